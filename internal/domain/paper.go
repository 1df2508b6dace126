package domain

import "strings"

// Entry is a raw record extracted from a feed or listing page.
type Entry struct {
	ID           string
	Title        string
	Abstract     string
	URL          string
	Contributors []string
	Updated      string
}

// Field names reported by sources in Batch.FieldCounts.
const (
	FieldID       = "id"
	FieldTitle    = "title"
	FieldAbstract = "abstract"
	FieldLink     = "link"
	FieldDate     = "date"
)

// Batch is everything one source produced for one subject area in a cycle.
type Batch struct {
	Area    string
	Entries []Entry
	// FieldCounts records how many values of each field were extracted
	// before they were paired into entries. Nil means the source paired
	// fields structurally and there is nothing to cross-check.
	FieldCounts map[string]int
	// Unordered is set by sources whose ids carry no ordering (event pages).
	// No cursor is applied to or stored for such batches.
	Unordered bool
}

// Paper is an entry that matched at least one keyword rule.
type Paper struct {
	ID           string
	Title        string
	URL          string
	Abstract     string
	Contributors []string

	Keywords []string
	Channels map[string]struct{}

	posted map[string]bool
}

// NewPaper builds a paper from a matched entry.
func NewPaper(e Entry, keywords, channels []string) *Paper {
	p := &Paper{
		ID:           e.ID,
		Title:        strings.Join(strings.Fields(e.Title), " "),
		URL:          e.URL,
		Abstract:     e.Abstract,
		Contributors: append([]string(nil), e.Contributors...),
		Keywords:     append([]string(nil), keywords...),
		Channels:     make(map[string]struct{}, len(channels)),
	}
	for _, c := range channels {
		p.Channels[c] = struct{}{}
	}
	return p
}

// KeywordString joins matched keywords for display and ordering.
func (p *Paper) KeywordString() string {
	return strings.Join(p.Keywords, ", ")
}

// InChannel reports whether any matching rule targets channel.
func (p *Paper) InChannel(channel string) bool {
	_, ok := p.Channels[channel]
	return ok
}

// Posted reports whether the paper was already included in a body for channel.
func (p *Paper) Posted(channel string) bool {
	return p.posted[channel]
}

// MarkPosted flags the paper as posted to channel. The flag is never reset.
func (p *Paper) MarkPosted(channel string) {
	if p.posted == nil {
		p.posted = map[string]bool{}
	}
	p.posted[channel] = true
}

// String renders the email digest line.
func (p *Paper) String() string {
	return p.ID + " : " + p.Title + "\n  " + p.URL + "\n"
}
