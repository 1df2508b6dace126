package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"PaperPoster/internal/domain"
)

func TestParse(t *testing.T) {
	t.Parallel()

	input := `
#astro
ml-
Supernova not: Remnant, remnant , simulation

@hep min=2
dark matter
neutrino-
`
	got, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	want := domain.Ruleset{
		Rules: []domain.KeywordRule{
			{Text: "ml", Mode: domain.MatchUnique, Channel: "#astro"},
			{Text: "supernova", Mode: domain.MatchAny, Channel: "#astro", Excludes: []string{"remnant", "simulation"}},
			{Text: "dark matter", Mode: domain.MatchAny, Channel: "@hep"},
			{Text: "neutrino", Mode: domain.MatchUnique, Channel: "@hep"},
		},
		Channels: []domain.ChannelRequirement{
			{Name: "#astro", Min: 1},
			{Name: "@hep", Min: 2},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse mismatch (-want +got):\n%s", diff)
	}

	if got.Requirement("@hep") != 2 || got.Requirement("#nope") != 1 {
		t.Fatalf("unexpected requirements: %+v", got.Channels)
	}
}

func TestParseRejectsBadRequirement(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"#astro min\nfoo", "#astro min=zero\nfoo", "#astro min=0"} {
		if _, err := Parse(strings.NewReader(input)); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestLoadFileMissingIsConfigError(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "inputs"))
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestParseAuthors(t *testing.T) {
	t.Parallel()

	got, err := ParseAuthors(strings.NewReader("Jane Doe;Jane\n\n  john smith ; @john\n"))
	if err != nil {
		t.Fatalf("ParseAuthors error: %v", err)
	}
	want := domain.FavoredAuthors{"jane doe": "Jane", "john smith": "@john"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("authors mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseAuthors(strings.NewReader("no separator")); err == nil {
		t.Fatal("expected error for malformed line")
	}
}

func TestLoadWebhookAndAddresses(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	hook := filepath.Join(dir, "webhook")
	if err := os.WriteFile(hook, []byte("https://hooks.example.org/abc\nignored\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := LoadWebhook(hook)
	if err != nil || got != "https://hooks.example.org/abc" {
		t.Fatalf("LoadWebhook = %q, %v", got, err)
	}

	emails := filepath.Join(dir, "emails.txt")
	if err := os.WriteFile(emails, []byte("a@example.org\n\n b@example.org \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	addrs, err := LoadAddresses(emails)
	if err != nil {
		t.Fatalf("LoadAddresses error: %v", err)
	}
	if diff := cmp.Diff([]string{"a@example.org", "b@example.org"}, addrs); diff != "" {
		t.Fatalf("addresses mismatch (-want +got):\n%s", diff)
	}

	if got := SplitAddresses(" x@y.z, ,w@v.u"); len(got) != 2 {
		t.Fatalf("SplitAddresses = %v", got)
	}
}
