package digest

import (
	"strings"
	"testing"

	"PaperPoster/internal/domain"
)

func paper(id, url string, channels []string, kws ...string) *domain.Paper {
	return domain.NewPaper(domain.Entry{ID: id, Title: "Title " + id, URL: url}, kws, channels)
}

func TestDedupeAcrossAreas(t *testing.T) {
	t.Parallel()

	fromAstro := paper("2101.00001", "http://arxiv.org/abs/2101.00001", []string{"#astro"}, "galaxy")
	fromPhysics := paper("2101.00001", "http://arxiv.org/abs/2101.00001", []string{"#astro"}, "galaxy", "dust")
	other := paper("2101.00002", "http://arxiv.org/abs/2101.00002", []string{"#astro"}, "galaxy")

	unique := Dedupe([]*domain.Paper{fromAstro, other, fromPhysics})
	if len(unique) != 2 || unique[0] != fromAstro || unique[1] != other {
		t.Fatalf("unexpected dedupe result: %v", unique)
	}

	body := ChannelBody("#astro", 1, unique, nil, nil)
	if n := strings.Count(body, "http://arxiv.org/abs/2101.00001"); n != 1 {
		t.Fatalf("expected one line for duplicated url, got %d:\n%s", n, body)
	}
}

func TestChannelBodyFormat(t *testing.T) {
	t.Parallel()

	papers := []*domain.Paper{
		paper("1", "u1", []string{"#astro"}, "dark matter", "halo"),
		paper("2", "u2", []string{"#hep"}, "neutrino"),
		paper("3", "u3", []string{"#astro"}, "halo"),
	}

	got := ChannelBody("#astro", 1, papers, nil, nil)
	want := "1. Title 1\n\t[dark matter, halo] - u1\n" +
		"2. Title 3\n\t[halo] - u3\n"
	if got != want {
		t.Fatalf("unexpected body:\n%q\nwant\n%q", got, want)
	}
	if !papers[0].Posted("#astro") || papers[1].Posted("#astro") || papers[0].Posted("#hep") {
		t.Fatal("posted flags not set per channel")
	}
}

func TestChannelBodyRequirement(t *testing.T) {
	t.Parallel()

	papers := []*domain.Paper{
		paper("1", "u1", []string{"#hep"}, "dark matter"),
		paper("2", "u2", []string{"#hep"}, "dark matter", "neutrino"),
	}
	got := ChannelBody("#hep", 2, papers, nil, nil)
	if strings.Contains(got, "u1") || !strings.HasPrefix(got, "1. Title 2") {
		t.Fatalf("requirement not applied:\n%s", got)
	}
	if papers[0].Posted("#hep") {
		t.Fatal("ineligible paper must not be marked posted")
	}
}

func TestChannelBodySticky(t *testing.T) {
	t.Parallel()

	p := paper("1", "u1", []string{"#astro"}, "galaxy")
	if body := ChannelBody("#astro", 1, []*domain.Paper{p}, nil, nil); body == "" {
		t.Fatal("expected first body to include paper")
	}
	if body := ChannelBody("#astro", 1, []*domain.Paper{p}, nil, nil); body != "" {
		t.Fatalf("posted paper re-included:\n%s", body)
	}
}

func TestChannelBodyFavoredAuthors(t *testing.T) {
	t.Parallel()

	p := paper("1", "u1", []string{"#astro"}, "galaxy")
	hits := domain.AuthorHits{"u1": {"jane doe", "john roe"}}
	favored := domain.FavoredAuthors{"jane doe": "@jane"}

	got := ChannelBody("#astro", 1, []*domain.Paper{p}, hits, favored)
	want := "\n" + separator + "\n" +
		"1. Title 1\n\t[galaxy] - u1\n" +
		"\n\t:point_up::star-struck: *Congrats <@jane> on your paper!!*:tada::sparkles:\n" +
		"\n\t:point_up::star-struck: *Congrats <john roe> on your paper!!*:tada::sparkles:\n" +
		"\n" + separator + "\n"
	if got != want {
		t.Fatalf("unexpected body:\n%s\nwant\n%s", got, want)
	}
}

func TestEmailBody(t *testing.T) {
	t.Parallel()

	papers := []*domain.Paper{
		paper("3", "u3", nil, "a", "b"),
		paper("1", "u1", nil, "a"),
		paper("2", "u2", nil, "a"),
	}
	got := EmailBody(papers)
	want := "\nkeywords: a, b\n\n3 : Title 3\n  u3\n" +
		"\nkeywords: a\n\n1 : Title 1\n  u1\n2 : Title 2\n  u2\n"
	if got != want {
		t.Fatalf("unexpected email body:\n%q\nwant\n%q", got, want)
	}
	if EmailBody(nil) != "" {
		t.Fatal("expected empty body for no papers")
	}
}
