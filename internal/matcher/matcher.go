// Package matcher classifies feed entries against keyword and author rules.
package matcher

import (
	"strings"

	"PaperPoster/internal/domain"
)

// tokenTrim is stripped from both ends of every token for whole-word modes.
const tokenTrim = `":.,!?`

// Result is the outcome of classifying one batch.
type Result struct {
	Area    string
	Papers  []*domain.Paper
	Authors domain.AuthorHits
	// LatestID is the cursor to persist once the cycle succeeds.
	LatestID string
}

// Classify matches every entry newer than cursor against rules. An empty
// cursor means every entry is eligible. A batch whose field counts disagree
// yields an IntegrityError and no papers.
func Classify(batch domain.Batch, rules []domain.KeywordRule, favored domain.FavoredAuthors, cursor string) (Result, error) {
	if err := CheckIntegrity(batch); err != nil {
		return Result{}, err
	}

	res := Result{
		Area:     batch.Area,
		Authors:  domain.AuthorHits{},
		LatestID: cursor,
	}

	for _, e := range batch.Entries {
		if e.ID > res.LatestID {
			res.LatestID = e.ID
		}
		if Seen(e.ID, cursor) {
			continue
		}

		for _, name := range MatchAuthors(e.Contributors, favored) {
			res.Authors.Add(e.URL, name)
		}

		keywords, channels := Match(e, rules)
		if len(keywords) == 0 {
			continue
		}
		res.Papers = append(res.Papers, domain.NewPaper(e, keywords, channels))
	}

	return res, nil
}

// Seen reports whether id was already processed under cursor. Ids compare
// as plain strings.
func Seen(id, cursor string) bool {
	return cursor != "" && id <= cursor
}

// CheckIntegrity verifies that all extracted field counts agree.
func CheckIntegrity(batch domain.Batch) error {
	if len(batch.FieldCounts) == 0 {
		return nil
	}
	want := len(batch.Entries)
	for _, n := range batch.FieldCounts {
		if n != want {
			counts := make(map[string]int, len(batch.FieldCounts)+1)
			for k, v := range batch.FieldCounts {
				counts[k] = v
			}
			counts["entries"] = want
			return &domain.IntegrityError{Area: batch.Area, Counts: counts}
		}
	}
	return nil
}

// MatchAuthors returns the lowercased favored names among contributors.
func MatchAuthors(contributors []string, favored domain.FavoredAuthors) []string {
	if len(favored) == 0 {
		return nil
	}
	var out []string
	for _, c := range contributors {
		name := strings.ToLower(strings.TrimSpace(c))
		if _, ok := favored[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

type text struct {
	title, abstract           string
	lowerTitle, lowerAbstract string
	tokens, lowerTokens       map[string]struct{}
}

func newText(e domain.Entry) *text {
	t := &text{
		title:    collapse(e.Title),
		abstract: collapse(e.Abstract),
	}
	t.lowerTitle = strings.ToLower(t.title)
	t.lowerAbstract = strings.ToLower(t.abstract)
	t.tokens = tokenize(t.title, t.abstract)
	t.lowerTokens = tokenize(t.lowerTitle, t.lowerAbstract)
	return t
}

// Match returns the distinct keywords and channels of every rule that fires
// on e, in rule order.
func Match(e domain.Entry, rules []domain.KeywordRule) (keywords, channels []string) {
	t := newText(e)
	seenKW := map[string]bool{}
	seenCh := map[string]bool{}
	for _, r := range rules {
		if !t.matches(r) {
			continue
		}
		if !seenKW[r.Text] {
			seenKW[r.Text] = true
			keywords = append(keywords, r.Text)
		}
		if !seenCh[r.Channel] {
			seenCh[r.Channel] = true
			channels = append(channels, r.Channel)
		}
	}
	return keywords, channels
}

func (t *text) matches(r domain.KeywordRule) bool {
	title, abstract := t.lowerTitle, t.lowerAbstract
	tokens := t.lowerTokens
	if r.Mode == domain.MatchCase {
		title, abstract = t.title, t.abstract
		tokens = t.tokens
	}

	for _, x := range r.Excludes {
		if strings.Contains(abstract, x) || strings.Contains(title, x) {
			return false
		}
	}

	switch r.Mode {
	case domain.MatchUnique, domain.MatchCase:
		_, ok := tokens[r.Text]
		return ok
	default:
		return strings.Contains(abstract, r.Text) || strings.Contains(title, r.Text)
	}
}

// collapse turns newlines into spaces.
func collapse(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

func tokenize(parts ...string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range parts {
		for _, tok := range strings.Fields(p) {
			out[strings.Trim(tok, tokenTrim)] = struct{}{}
		}
	}
	return out
}
