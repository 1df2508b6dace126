package domain

import (
	"fmt"
	"strings"
)

// ConfigError reports a missing or unreadable local input.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TransportError is a non-success feed response. Body is kept for operator
// diagnostics only.
type TransportError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("feed %s: want 200, got %d", e.URL, e.StatusCode)
}

// Report renders the diagnostic text sent to operators.
func (e *TransportError) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\nStatus Code: %d\n\nResponse Text:\n%s\n", e.URL, e.StatusCode, e.Body)
	return sb.String()
}

// ParseError reports an unparsable or empty feed.
type ParseError struct {
	Area string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed for %s: %v", e.Area, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IntegrityError reports disagreeing field counts within one batch.
type IntegrityError struct {
	Area   string
	Counts map[string]int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("batch %s: field counts disagree: %v", e.Area, e.Counts)
}

// DeliveryError reports a delivery that kept failing after every retry.
type DeliveryError struct {
	Channel  string
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s failed after %d attempts: %v", e.Channel, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
