package query

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"PaperPoster/internal/domain"
)

func fixedBuilder() *Builder {
	b := NewBuilder()
	b.Now = func() time.Time { return time.Date(2025, time.November, 11, 9, 30, 0, 0, time.UTC) }
	return b
}

func TestBuildAstro(t *testing.T) {
	t.Parallel()

	u, err := fixedBuilder().Build(Request{Area: "astro"})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	want := "http://export.arxiv.org/api/query?search_query=" +
		"%28astro-ph.GA+OR+astro-ph.CO+OR+astro-ph.EP+OR+astro-ph.HE+OR+astro-ph.IM+OR+astro-ph.SR%29" +
		"+AND+lastUpdatedDate:[202511012000+TO+202511112000]" +
		"&max_results=200&sortBy=submittedDate&sortOrder=descending"
	if u != want {
		t.Fatalf("unexpected url:\n got %s\nwant %s", u, want)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if parsed.Query().Get("sortOrder") != "descending" {
		t.Fatalf("unexpected sort order in %s", parsed.RawQuery)
	}
}

func TestBuildPagingAndCap(t *testing.T) {
	t.Parallel()

	u, err := fixedBuilder().Build(Request{Area: "hep", MaxResults: 50, Start: 100, Window: 48 * time.Hour})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	for _, part := range []string{
		"%28hep-ex+OR+hep-lat+OR+hep-ph+OR+hep-th%29",
		"[202511092000+TO+202511112000]",
		"&max_results=50",
		"&start=100",
	} {
		if !strings.Contains(u, part) {
			t.Fatalf("expected %q in %s", part, u)
		}
	}
}

func TestBuildBareCategory(t *testing.T) {
	t.Parallel()

	b := fixedBuilder()
	b.Areas["econ"] = Area{}
	u, err := b.Build(Request{Area: "econ"})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !strings.Contains(u, "search_query=%28econ%29+AND+") {
		t.Fatalf("expected bare category filter in %s", u)
	}

	u, err = b.Build(Request{Area: "gr"})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !strings.Contains(u, "search_query=%28gr-qc%29+AND+") {
		t.Fatalf("expected gr-qc filter in %s", u)
	}
}

func TestBuildUnknownArea(t *testing.T) {
	t.Parallel()

	_, err := fixedBuilder().Build(Request{Area: "bogus"})
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}
