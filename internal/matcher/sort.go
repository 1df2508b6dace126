package matcher

import (
	"slices"
	"strings"

	"PaperPoster/internal/domain"
)

// Sort orders papers for display: most keywords first, then alphabetically
// by the joined keyword list, ignoring case. Ties run ascending (a before z);
// they are not reversed along with the keyword count.
func Sort(papers []*domain.Paper) {
	slices.SortStableFunc(papers, func(a, b *domain.Paper) int {
		if len(a.Keywords) != len(b.Keywords) {
			return len(b.Keywords) - len(a.Keywords)
		}
		return strings.Compare(strings.ToLower(a.KeywordString()), strings.ToLower(b.KeywordString()))
	})
}
