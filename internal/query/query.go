// Package query builds arXiv API search URLs for a subject area.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"PaperPoster/internal/domain"
)

const (
	// DefaultBaseURL is the arXiv export API endpoint.
	DefaultBaseURL = "http://export.arxiv.org/api/query?"
	// DefaultWindow is how far back the date filter reaches.
	DefaultWindow = 10 * 24 * time.Hour
	// DefaultMaxResults caps the number of returned entries.
	DefaultMaxResults = 200

	// arXiv announces at 20:00, the range is anchored there on both ends.
	rangeTimeOfDay = "2000"
)

// Area describes how a top-level category expands into subcategories.
type Area struct {
	Suffix        string   `yaml:"suffix" toml:"suffix"`
	Subcategories []string `yaml:"subcategories" toml:"subcategories"`
}

// Categories returns the fully qualified category names for the area.
func (a Area) Categories(name string) []string {
	if len(a.Subcategories) == 0 {
		return []string{name}
	}
	out := make([]string, 0, len(a.Subcategories))
	for _, sub := range a.Subcategories {
		out = append(out, name+a.Suffix+sub)
	}
	return out
}

// DefaultAreas is the built-in subject area table.
func DefaultAreas() map[string]Area {
	return map[string]Area{
		"astro": {Suffix: "-ph.", Subcategories: []string{"GA", "CO", "EP", "HE", "IM", "SR"}},
		"cond": {Suffix: "-mat.", Subcategories: []string{
			"dis-nn", "mtrl-sci", "mes-hall", "other", "quant-gas", "soft", "stat-mech", "str-el", "supr-con",
		}},
		"gr":   {Suffix: "-qc", Subcategories: []string{""}},
		"hep":  {Suffix: "-", Subcategories: []string{"ex", "lat", "ph", "th"}},
		"math": {Suffix: "-ph", Subcategories: []string{""}},
		"nlin": {Suffix: ".", Subcategories: []string{"AO", "CG", "CD", "SI", "PS"}},
		"nucl": {Suffix: "-", Subcategories: []string{"ex", "th"}},
		"physics": {Suffix: ".", Subcategories: []string{
			"acc-ph", "app-ph", "ao-ph", "atom-ph", "atm-clus", "bio-ph", "chem-ph",
			"class-ph", "comp-ph", "data-an", "flu-dyn", "gen-ph", "geo-ph", "hist-ph", "ins-det",
			"med-ph", "optics", "ed-ph", "soc-ph", "plasm-ph", "pop-ph", "space-ph",
		}},
		"quant": {Suffix: "-ph", Subcategories: []string{""}},
	}
}

// Request carries the parameters of one query.
type Request struct {
	Area       string
	Window     time.Duration
	MaxResults int
	Start      int
	// Cursor is the resume id for the area. The API has no id filter, so it
	// is carried through for the caller and not encoded in the URL.
	Cursor string
}

// Builder turns requests into query URLs.
type Builder struct {
	BaseURL string
	Areas   map[string]Area
	Now     func() time.Time
}

// NewBuilder returns a builder over the default endpoint and area table.
func NewBuilder() *Builder {
	return &Builder{BaseURL: DefaultBaseURL, Areas: DefaultAreas(), Now: time.Now}
}

// Build renders the query URL. Unknown areas are a configuration error.
func (b *Builder) Build(req Request) (string, error) {
	area, ok := b.Areas[req.Area]
	if !ok {
		return "", &domain.ConfigError{Err: fmt.Errorf("unknown subject area %q", req.Area)}
	}

	window := req.Window
	if window <= 0 {
		window = DefaultWindow
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	base := b.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	end := now()
	start := end.Add(-window)

	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("search_query=")
	sb.WriteString(CategoryFilter(area.Categories(req.Area)))
	sb.WriteString("+AND+")
	sb.WriteString(RangeFilter(start, end))
	sb.WriteString("&max_results=")
	sb.WriteString(strconv.Itoa(maxResults))
	sb.WriteString("&sortBy=submittedDate&sortOrder=descending")
	if req.Start > 0 {
		sb.WriteString("&start=")
		sb.WriteString(strconv.Itoa(req.Start))
	}
	return sb.String(), nil
}

// CategoryFilter joins categories into a parenthesised OR expression.
func CategoryFilter(categories []string) string {
	return "%28" + strings.Join(categories, "+OR+") + "%29"
}

// RangeFilter renders the lastUpdatedDate range between two days.
func RangeFilter(from, to time.Time) string {
	return fmt.Sprintf("lastUpdatedDate:[%s%s+TO+%s%s]",
		from.Format("20060102"), rangeTimeOfDay, to.Format("20060102"), rangeTimeOfDay)
}
