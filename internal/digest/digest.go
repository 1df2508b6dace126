// Package digest deduplicates matched papers and renders channel and email
// bodies.
package digest

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"PaperPoster/internal/domain"
)

const separator = "*- - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - -*"

// Dedupe drops papers whose URL was already seen. The first occurrence wins
// and the relative order is kept.
func Dedupe(papers []*domain.Paper) []*domain.Paper {
	return lo.UniqBy(papers, func(p *domain.Paper) string { return p.URL })
}

// Eligible returns the papers that target channel, have at least min
// distinct keywords and were not yet posted there.
func Eligible(channel string, min int, papers []*domain.Paper) []*domain.Paper {
	return lo.Filter(papers, func(p *domain.Paper, _ int) bool {
		return p.InChannel(channel) && len(p.Keywords) >= min && !p.Posted(channel)
	})
}

// ChannelBody renders the numbered list for channel and marks every included
// paper as posted there. Papers with favored authors are wrapped in a
// congratulation block. The body is empty when nothing qualifies.
func ChannelBody(channel string, min int, papers []*domain.Paper, hits domain.AuthorHits, favored domain.FavoredAuthors) string {
	var sb strings.Builder
	for i, p := range Eligible(channel, min, papers) {
		names := hits[p.URL]
		if len(names) > 0 {
			sb.WriteString("\n" + separator + "\n")
		}

		fmt.Fprintf(&sb, "%d. %s\n\t[%s] - %s\n", i+1, p.Title, p.KeywordString(), p.URL)
		p.MarkPosted(channel)

		if len(names) > 0 {
			for _, name := range names {
				display := favored[name]
				if display == "" {
					display = name
				}
				fmt.Fprintf(&sb, "\n\t:point_up::star-struck: *Congrats <%s> on your paper!!*:tada::sparkles:\n", display)
			}
			sb.WriteString("\n" + separator + "\n")
		}
	}
	return sb.String()
}

// EmailBody renders the email digest, starting a new keyword header whenever
// the keyword list changes. Papers are expected in display order.
func EmailBody(papers []*domain.Paper) string {
	var (
		sb      strings.Builder
		current string
		started bool
	)
	for _, p := range papers {
		if kw := p.KeywordString(); !started || kw != current {
			current, started = kw, true
			fmt.Fprintf(&sb, "\nkeywords: %s\n\n", current)
		}
		sb.WriteString(p.String())
	}
	return sb.String()
}
