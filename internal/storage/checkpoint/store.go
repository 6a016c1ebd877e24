// Package checkpoint persists score mappings so long scoring runs survive
// crashes and can be resumed or evaluated later.
//
// Three backends share the Store interface:
//   - FileStore: a JSON document replaced atomically via temp file and rename
//   - SQLiteStore: an embedded database file, one transaction per flush
//   - PostgresStore: a shared database, one transaction per flush
//
// Every Save overwrites the whole mapping for the run, so a reader never
// observes a partially written flush.
package checkpoint

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
	"github.com/lueurxax/url-risk-bench/internal/platform/config"
)

// Store is a durable home for one run's score mapping.
type Store interface {
	// Backend returns the backend name for logs and metrics.
	Backend() string
	// Load returns the persisted mapping, or an empty one when nothing was saved.
	Load(ctx context.Context) (domain.ScoreMapping, error)
	// Save atomically replaces the persisted mapping.
	Save(ctx context.Context, mapping domain.ScoreMapping) error
	// Reset discards any persisted mapping for the run.
	Reset(ctx context.Context) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Open creates the store selected by settings.Backend. Database backends run
// their migrations before returning.
func Open(ctx context.Context, settings config.CheckpointSettings, logger *zerolog.Logger) (Store, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	runID := uuid.NewString()

	switch settings.Backend {
	case config.BackendFile:
		return NewFileStore(settings.Path, runID), nil
	case config.BackendSQLite:
		store, err := OpenSQLite(ctx, settings.Path, settings.Run, runID, logger)
		if err != nil {
			return nil, err
		}

		return store, nil
	case config.BackendPostgres:
		store, err := OpenPostgres(ctx, settings.PostgresDSN, settings.Run, runID, logger)
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownBackend, settings.Backend)
	}
}
