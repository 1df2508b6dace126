package parser

import (
	"context"
	"fmt"
	"log/slog"

	"PaperPoster/internal/config"
	"PaperPoster/internal/domain"
	"PaperPoster/internal/ports"
	"PaperPoster/internal/scanner"
)

// DefaultScanner serves every area without an explicit source binding.
const DefaultScanner = "arxiv"

// StrategySource implements BatchSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  map[string]config.SourceConfig
	logger   *slog.Logger
}

var _ ports.BatchSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	bound := make(map[string]config.SourceConfig, len(sources))
	for _, src := range sources {
		bound[src.Name] = src
	}
	return &StrategySource{
		registry: reg,
		sources:  bound,
		logger:   log,
	}
}

// FetchArea resolves the scanner for area and executes it.
func (s *StrategySource) FetchArea(ctx context.Context, area, cursor string) (domain.Batch, error) {
	if s.registry == nil {
		return domain.Batch{}, fmt.Errorf("scanner registry is not configured")
	}

	req := scanner.Request{Area: area, Cursor: cursor}
	name := DefaultScanner
	if src, ok := s.sources[area]; ok {
		name = src.Scanner
		req.URL = src.URL
	}

	s.debug("process area", "area", area, "scanner", name, "cursor", cursor)
	strategy, err := s.registry.Resolve(name)
	if err != nil {
		return domain.Batch{}, fmt.Errorf("area %s: %w", area, err)
	}

	batch, err := strategy.Scan(ctx, req)
	if err != nil {
		return domain.Batch{}, fmt.Errorf("scan area %s: %w", area, err)
	}
	if batch.Area == "" {
		batch.Area = area
	}

	s.debug("area produced entries", "area", area, "count", len(batch.Entries))
	return batch, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
