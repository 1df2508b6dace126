package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"PaperPoster/internal/domain"
)

type fakeSource struct {
	mu      sync.Mutex
	batches map[string]domain.Batch
	errs    map[string]error
	cursors map[string]string
}

func (f *fakeSource) FetchArea(_ context.Context, area, cursor string) (domain.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursors == nil {
		f.cursors = map[string]string{}
	}
	f.cursors[area] = cursor
	if err := f.errs[area]; err != nil {
		return domain.Batch{}, err
	}
	b, ok := f.batches[area]
	if !ok {
		return domain.Batch{}, &domain.ParseError{Area: area, Err: errors.New("no results found")}
	}
	return b, nil
}

type memCursors struct {
	mu     sync.Mutex
	ids    map[string]string
	stores int
}

func newMemCursors(seed map[string]string) *memCursors {
	ids := map[string]string{}
	for k, v := range seed {
		ids[k] = v
	}
	return &memCursors{ids: ids}
}

func (m *memCursors) Load(_ context.Context, area string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.ids[area]
	return id, ok, nil
}

func (m *memCursors) Store(_ context.Context, area, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[area] = id
	m.stores++
	return nil
}

type fakeNotifier struct {
	posts []domain.Message
	calls int
	err   error
}

func (f *fakeNotifier) Post(_ context.Context, msg domain.Message) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.posts = append(f.posts, msg)
	return nil
}

type fakeMailer struct {
	mails []domain.Mail
	err   error
}

func (f *fakeMailer) Send(ctx context.Context, m domain.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	f.mails = append(f.mails, m)
	return nil
}

func (f *fakeMailer) withSubject(subject string) []domain.Mail {
	var out []domain.Mail
	for _, m := range f.mails {
		if m.Subject == subject {
			out = append(out, m)
		}
	}
	return out
}

// instantTimer fires immediately and records requested waits.
type instantTimer struct {
	c     chan time.Time
	waits []time.Duration
}

func newInstantTimer() *instantTimer {
	return &instantTimer{c: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.waits = append(t.waits, d)
	t.c <- time.Time{}
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }
