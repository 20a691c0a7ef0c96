// Package source fetches raw candidates from external content providers.
package source

import (
	"context"
	"errors"
	"log/slog"

	"aus-news/internal/models"
)

// ErrSourceUnavailable indicates the provider errored or timed out. Callers
// treat it as "zero candidates from this source", not a fatal condition.
var ErrSourceUnavailable = errors.New("source unavailable")

// Source pulls fresh candidates from one upstream provider.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.Candidate, error)
}

// FetchAll collects candidates from every source, degrading per source: a
// failed source contributes nothing and the run continues with the rest.
// Candidates sharing a source URL are deduplicated, first occurrence wins.
func FetchAll(ctx context.Context, logger *slog.Logger, sources ...Source) []models.Candidate {
	var merged []models.Candidate
	seen := make(map[string]struct{})

	for _, src := range sources {
		candidates, err := src.Fetch(ctx)
		if err != nil {
			logger.Warn("source fetch failed, continuing without it", "source", src.Name(), "error", err)
			continue
		}
		logger.Info("source fetched", "source", src.Name(), "candidates", len(candidates))
		for _, cand := range candidates {
			if _, dup := seen[cand.SourceURL]; dup {
				continue
			}
			seen[cand.SourceURL] = struct{}{}
			merged = append(merged, cand)
		}
	}

	return merged
}
