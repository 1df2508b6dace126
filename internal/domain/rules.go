package domain

// MatchMode selects how a keyword rule is tested against an entry.
type MatchMode string

const (
	// MatchAny matches the keyword as a substring of the lowercased text.
	MatchAny MatchMode = "any"
	// MatchUnique matches the keyword as a whole lowercased token.
	MatchUnique MatchMode = "unique"
	// MatchCase matches the keyword as a whole token without lowercasing.
	MatchCase MatchMode = "case"
)

// KeywordRule belongs to exactly one channel.
type KeywordRule struct {
	Text     string
	Mode     MatchMode
	Channel  string
	Excludes []string
}

// ChannelRequirement is the minimum number of distinct keywords a paper
// needs before it is posted to the channel.
type ChannelRequirement struct {
	Name string
	Min  int
}

// Ruleset is a parsed rules file.
type Ruleset struct {
	Rules    []KeywordRule
	Channels []ChannelRequirement
}

// Requirement returns the minimum match count for channel, defaulting to 1.
func (r Ruleset) Requirement(channel string) int {
	for _, c := range r.Channels {
		if c.Name == channel {
			return c.Min
		}
	}
	return 1
}

// FavoredAuthors maps a lowercased author name to its display string.
type FavoredAuthors map[string]string

// AuthorHits maps a paper URL to the lowercased favored author names found on it.
type AuthorHits map[string][]string

// Add records name for url once.
func (h AuthorHits) Add(url, name string) {
	for _, existing := range h[url] {
		if existing == name {
			return
		}
	}
	h[url] = append(h[url], name)
}

// Merge copies all hits from other into h.
func (h AuthorHits) Merge(other AuthorHits) {
	for url, names := range other {
		for _, n := range names {
			h.Add(url, n)
		}
	}
}
