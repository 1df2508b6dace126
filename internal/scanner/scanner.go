package scanner

import (
	"context"
	"fmt"

	"PaperPoster/internal/domain"
)

// Request carries all parameters required to scan one subject area.
type Request struct {
	Area   string
	Cursor string
	// URL is set for sources that read a fixed page instead of building a query.
	URL string
}

// Scanner captures a single source implementation (arXiv API, event pages).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) (domain.Batch, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, &domain.ConfigError{Err: fmt.Errorf("scanner %s is not registered", name)}
}
