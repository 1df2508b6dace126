package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperPoster/internal/config"
	"PaperPoster/internal/domain"
)

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/">
  <title>ArXiv Query</title>
  <id>http://arxiv.org/api/q</id>
  <opensearch:totalResults>1</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/2101.00007v1</id>
    <title>Dark Matter in Dwarf Galaxies</title>
    <summary>We constrain cores.</summary>
    <author><name>Jane Roe</name></author>
    <link href="http://arxiv.org/abs/2101.00007v1" rel="alternate" type="text/html"/>
  </entry>
</feed>`

func writeInput(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		posts []map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/query":
			_, _ = w.Write([]byte(feed))
		case "/hook":
			var msg map[string]string
			if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			mu.Lock()
			posts = append(posts, msg)
			mu.Unlock()
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	rulesFile := writeInput(t, dir, "inputs", "#astro\ndark matter\n")
	authors := writeInput(t, dir, "fave_authors.txt", "jane roe;Dr. Jane Roe\n")
	hook := writeInput(t, dir, "webhook", srv.URL+"/hook\n")

	cfg := config.Default()
	cfg.Feed.BaseURL = srv.URL + "/api/query?"

	application, err := New(cfg, Options{
		RulesFile:   rulesFile,
		AuthorsFile: authors,
		WebhookFile: hook,
		Username:    "arxivbot",
		Areas:       []string{"astro"},
		QueryEmail:  "ops@example.org",
	}, nil)
	require.NoError(t, err)
	defer application.Close()

	require.NoError(t, application.Run(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, posts, 1)
	assert.Equal(t, "#astro", posts[0]["channel"], "channel keeps its sigil from the rules file")
	assert.Equal(t, "arxivbot", posts[0]["username"])
	assert.Contains(t, posts[0]["text"], "1. Dark Matter in Dwarf Galaxies\n\t[dark matter] - http://arxiv.org/abs/2101.00007v1\n")
	assert.Contains(t, posts[0]["text"], "Congrats <Dr. Jane Roe>")

	cursor, err := os.ReadFile(filepath.Join(dir, ".paperposter-astro"))
	require.NoError(t, err)
	assert.Equal(t, "2101.00007v1", string(cursor))
}

func TestRunDryRunWithSQLite(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	dir := t.TempDir()
	rulesFile := writeInput(t, dir, "inputs", "@astro\ndwarf-\n")

	cfg := config.Default()
	cfg.Feed.BaseURL = srv.URL + "/api/query?"
	cfg.Storage.Backend = config.BackendSQLite

	var out bytes.Buffer
	application, err := New(cfg, Options{
		RulesFile:       rulesFile,
		AuthorsFile:     filepath.Join(dir, "fave_authors.txt"),
		AuthorsOptional: true,
		Areas:           []string{"astro"},
		QueryEmail:      "ops@example.org",
		DryRun:          true,
		Out:             &out,
	}, nil)
	require.NoError(t, err)
	defer application.Close()

	require.NoError(t, application.Run(context.Background()))
	assert.Contains(t, out.String(), "[dwarf] - http://arxiv.org/abs/2101.00007v1")
	assert.FileExists(t, filepath.Join(dir, "paperposter.db"))
}

func TestNewRejectsBadInputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rulesFile := writeInput(t, dir, "inputs", "#astro\ndark matter\n")
	base := Options{RulesFile: rulesFile, Areas: []string{"astro"}, QueryEmail: "ops@example.org"}

	cases := map[string]func(o *Options){
		"missing query email": func(o *Options) { o.QueryEmail = "" },
		"unknown area":        func(o *Options) { o.Areas = []string{"biology"} },
		"missing rules":       func(o *Options) { o.RulesFile = filepath.Join(dir, "absent") },
		"missing authors":     func(o *Options) { o.AuthorsFile = filepath.Join(dir, "absent") },
		"missing webhook":     func(o *Options) { o.WebhookFile = filepath.Join(dir, "absent") },
	}
	for name, mutate := range cases {
		opts := base
		mutate(&opts)
		_, err := New(config.Default(), opts, nil)
		var cfgErr *domain.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("%s: expected ConfigError, got %v", name, err)
		}
		if name == "missing rules" && !strings.Contains(err.Error(), "absent") {
			t.Fatalf("%s: error should name the file: %v", name, err)
		}
	}
}
