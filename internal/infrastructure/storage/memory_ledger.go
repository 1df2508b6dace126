package storage

import (
	"context"
	"sync"

	"PaperPoster/internal/ports"
)

// MemoryLedger keeps posted flags for the lifetime of the process.
type MemoryLedger struct {
	mu     sync.Mutex
	posted map[string]map[string]struct{}
}

var _ ports.PostedLedger = (*MemoryLedger)(nil)

// NewMemoryLedger builds an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{posted: map[string]map[string]struct{}{}}
}

// Posted reports whether url was already posted to channel.
func (l *MemoryLedger) Posted(_ context.Context, channel, url string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.posted[channel][url]
	return ok, nil
}

// MarkPosted records url as posted to channel.
func (l *MemoryLedger) MarkPosted(_ context.Context, channel, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	urls, ok := l.posted[channel]
	if !ok {
		urls = map[string]struct{}{}
		l.posted[channel] = urls
	}
	urls[url] = struct{}{}
	return nil
}
