package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"PaperPoster/internal/domain"
	"PaperPoster/internal/ports"
)

// DefaultAddr is the local relay used when nothing else is configured.
const DefaultAddr = "localhost:25"

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer submits plain-text mail to an unauthenticated relay.
type SMTPMailer struct {
	addr string
	from string
	send sendFunc
}

var _ ports.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer sends through addr with from as the default sender.
func NewSMTPMailer(addr, from string) *SMTPMailer {
	if addr == "" {
		addr = DefaultAddr
	}
	return &SMTPMailer{addr: addr, from: from, send: smtp.SendMail}
}

// DefaultFrom builds "<app>@<hostname>".
func DefaultFrom(app string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return app + "@" + host
}

// Send submits m. An empty m.From falls back to the mailer sender.
func (s *SMTPMailer) Send(ctx context.Context, m domain.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.To == "" {
		return fmt.Errorf("mail has no recipient")
	}
	from := m.From
	if from == "" {
		from = s.from
	}

	if err := s.send(s.addr, nil, from, []string{m.To}, compose(from, m)); err != nil {
		return fmt.Errorf("send mail to %s: %w", m.To, err)
	}
	return nil
}

func compose(from string, m domain.Mail) []byte {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", m.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", m.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(msg.String())
}
