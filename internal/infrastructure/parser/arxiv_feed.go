package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"PaperPoster/internal/domain"
	"PaperPoster/internal/query"
	"PaperPoster/internal/retry"
	"PaperPoster/internal/scanner"
)

const (
	// FeedTimeout bounds a single feed request.
	FeedTimeout = 120 * time.Second

	errorBodyLimit = 16384
)

// ArxivFeed queries the arXiv API and parses the Atom response.
type ArxivFeed struct {
	client     *http.Client
	builder    *query.Builder
	userAgent  string
	maxResults int
	window     time.Duration
	retry      retry.Policy
	logger     *slog.Logger
}

var _ scanner.Scanner = (*ArxivFeed)(nil)

// ArxivOptions configures an ArxivFeed.
type ArxivOptions struct {
	Client     *http.Client
	Builder    *query.Builder
	AppName    string
	QueryEmail string
	MaxResults int
	Window     time.Duration
	// Retry wraps transport failures. The zero value retries once immediately.
	Retry  retry.Policy
	Logger *slog.Logger
}

// NewArxivFeed wires an HTTP client with a 120s timeout unless one is given.
func NewArxivFeed(opts ArxivOptions) *ArxivFeed {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: FeedTimeout}
	}
	builder := opts.Builder
	if builder == nil {
		builder = query.NewBuilder()
	}
	policy := opts.Retry
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = 2
	}
	return &ArxivFeed{
		client:     client,
		builder:    builder,
		userAgent:  UserAgent(opts.AppName, opts.QueryEmail),
		maxResults: opts.MaxResults,
		window:     opts.Window,
		retry:      policy,
		logger:     opts.Logger,
	}
}

// UserAgent identifies the poller and its operator to arXiv.
func UserAgent(app, email string) string {
	if app == "" {
		app = "paperPoster"
	}
	return fmt.Sprintf("%s/1.0 (%s)", app, email)
}

// Name identifies the strategy inside the registry.
func (a *ArxivFeed) Name() string {
	return "arxiv"
}

// Scan builds the area query and fetches it, retrying transport failures.
func (a *ArxivFeed) Scan(ctx context.Context, req scanner.Request) (domain.Batch, error) {
	u, err := a.builder.Build(query.Request{
		Area:       req.Area,
		Window:     a.window,
		MaxResults: a.maxResults,
		Cursor:     req.Cursor,
	})
	if err != nil {
		return domain.Batch{}, err
	}
	a.debug("query arxiv", "area", req.Area, "url", u)

	policy := a.retry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		if a.logger != nil {
			a.logger.Warn("feed request failed, retrying", "area", req.Area, "attempt", attempt, "wait", wait, "error", err)
		}
	}

	var batch domain.Batch
	err = policy.Do(func() error {
		var fetchErr error
		batch, fetchErr = a.Fetch(ctx, u)
		var parseErr *domain.ParseError
		if errors.As(fetchErr, &parseErr) {
			return retry.Permanent(fetchErr)
		}
		return fetchErr
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			err = exhausted.Err
		}
		var parseErr *domain.ParseError
		if errors.As(err, &parseErr) {
			parseErr.Area = req.Area
		}
		return domain.Batch{}, err
	}

	batch.Area = req.Area
	a.debug("arxiv batch", "area", req.Area, "entries", len(batch.Entries))
	return batch, nil
}

// Fetch performs one request and parses the feed.
func (a *ArxivFeed) Fetch(ctx context.Context, feedURL string) (domain.Batch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return domain.Batch{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.Batch{}, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		if readErr != nil {
			body = []byte("unable to read body")
		}
		return domain.Batch{}, &domain.TransportError{URL: feedURL, StatusCode: resp.StatusCode, Body: string(body)}
	}

	// gofeed.Parser keeps per-parse state; one per request keeps Fetch safe
	// for concurrent areas.
	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return domain.Batch{}, &domain.ParseError{Err: err}
	}

	if total, ok := totalResults(feed); (ok && total == 0) || (!ok && len(feed.Items) == 0) {
		return domain.Batch{}, &domain.ParseError{Err: errors.New("no results found")}
	}

	return toBatch(feed), nil
}

func totalResults(feed *gofeed.Feed) (int, bool) {
	exts, ok := feed.Extensions["opensearch"]
	if !ok || len(exts["totalResults"]) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(exts["totalResults"][0].Value))
	if err != nil {
		return 0, false
	}
	return n, true
}

func toBatch(feed *gofeed.Feed) domain.Batch {
	counts := map[string]int{
		domain.FieldID:       0,
		domain.FieldTitle:    0,
		domain.FieldAbstract: 0,
		domain.FieldLink:     0,
	}
	entries := make([]domain.Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		e := domain.Entry{
			ID:       arxivID(item.GUID),
			Title:    strings.ReplaceAll(item.Title, "\n", " "),
			Abstract: item.Description,
			URL:      item.Link,
			Updated:  item.Updated,
		}
		for _, author := range item.Authors {
			if author != nil && author.Name != "" {
				e.Contributors = append(e.Contributors, author.Name)
			}
		}

		countIf(counts, domain.FieldID, e.ID)
		countIf(counts, domain.FieldTitle, e.Title)
		countIf(counts, domain.FieldAbstract, e.Abstract)
		countIf(counts, domain.FieldLink, e.URL)
		entries = append(entries, e)
	}
	return domain.Batch{Entries: entries, FieldCounts: counts}
}

func countIf(counts map[string]int, field, value string) {
	if strings.TrimSpace(value) != "" {
		counts[field]++
	}
}

// arxivID strips everything up to "/abs/" from an Atom entry id.
func arxivID(guid string) string {
	if _, after, ok := strings.Cut(guid, "/abs/"); ok {
		return after
	}
	return guid
}

func (a *ArxivFeed) debug(msg string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
