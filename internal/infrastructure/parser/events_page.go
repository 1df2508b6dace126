package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PaperPoster/internal/domain"
	"PaperPoster/internal/scanner"
)

// EventsScanner extracts events from an HTML listing page. Titles, links,
// subtitles and dates are collected independently and reported in the batch
// field counts so a layout change surfaces as an integrity failure instead of
// mispaired records.
type EventsScanner struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

var _ scanner.Scanner = (*EventsScanner)(nil)

// NewEventsScanner wires an HTTP client; a nil client gets a 20s timeout.
func NewEventsScanner(client *http.Client, userAgent string, log *slog.Logger) *EventsScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &EventsScanner{client: client, userAgent: userAgent, logger: log}
}

// Name identifies the strategy inside the registry.
func (s *EventsScanner) Name() string {
	return "events"
}

// Scan downloads req.URL and extracts its events.
func (s *EventsScanner) Scan(ctx context.Context, req scanner.Request) (domain.Batch, error) {
	if req.URL == "" {
		return domain.Batch{}, &domain.ConfigError{Err: fmt.Errorf("events source %s has no url", req.Area)}
	}

	doc, err := s.fetchDocument(ctx, req.URL)
	if err != nil {
		return domain.Batch{}, err
	}

	batch, err := extractEvents(doc, req.URL)
	if err != nil {
		return domain.Batch{}, &domain.ParseError{Area: req.Area, Err: err}
	}
	batch.Area = req.Area
	batch.Unordered = true
	if s.logger != nil {
		s.logger.Debug("events batch", "area", req.Area, "counts", batch.FieldCounts)
	}
	return batch, nil
}

func (s *EventsScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TransportError{URL: pageURL, StatusCode: resp.StatusCode, Body: resp.Status}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &domain.ParseError{Err: err}
	}
	return doc, nil
}

func extractEvents(doc *goquery.Document, pageURL string) (domain.Batch, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return domain.Batch{}, fmt.Errorf("invalid page url %s: %w", pageURL, err)
	}

	var titles, links, subtitles, dates []string

	doc.Find("h3.event-title").Each(func(_ int, h *goquery.Selection) {
		titles = append(titles, clean(h.Text()))
		if href, ok := h.Find("a[href]").First().Attr("href"); ok {
			if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
				links = append(links, base.ResolveReference(ref).String())
			}
		}
		if next := h.Next(); next.Is("h4.event-subtitle") {
			subtitles = append(subtitles, clean(next.Text()))
		} else {
			subtitles = append(subtitles, "")
		}
	})
	doc.Find("p.event-date").Each(func(_ int, p *goquery.Selection) {
		dates = append(dates, clean(p.Text()))
	})

	n := min(len(titles), len(links), len(subtitles), len(dates))
	entries := make([]domain.Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, domain.Entry{
			ID:       links[i],
			Title:    titles[i],
			Abstract: subtitles[i],
			URL:      links[i],
			Updated:  dates[i],
		})
	}

	return domain.Batch{
		Entries: entries,
		FieldCounts: map[string]int{
			domain.FieldTitle:    len(titles),
			domain.FieldLink:     len(links),
			domain.FieldAbstract: len(subtitles),
			domain.FieldDate:     len(dates),
		},
	}, nil
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
