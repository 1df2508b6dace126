package ports

import (
	"context"
	"time"

	"PaperPoster/internal/domain"
)

// BatchSource pulls one batch of entries per subject area.
type BatchSource interface {
	FetchArea(ctx context.Context, area, cursor string) (domain.Batch, error)
}

// CursorStore persists the last processed entry id per subject area.
type CursorStore interface {
	Load(ctx context.Context, area string) (id string, ok bool, err error)
	Store(ctx context.Context, area, id string) error
}

// PostedLedger remembers which paper URLs were already posted to a channel.
type PostedLedger interface {
	Posted(ctx context.Context, channel, url string) (bool, error)
	MarkPosted(ctx context.Context, channel, url string) error
}

// Notifier posts a message to a chat webhook.
type Notifier interface {
	Post(ctx context.Context, msg domain.Message) error
}

// Mailer submits a plain-text email.
type Mailer interface {
	Send(ctx context.Context, mail domain.Mail) error
}

// Scheduler controls when cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
