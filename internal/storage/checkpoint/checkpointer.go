package checkpoint

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
	apperrors "github.com/lueurxax/url-risk-bench/internal/core/errors"
	"github.com/lueurxax/url-risk-bench/internal/platform/observability"
)

const (
	defaultFlushEvery = 10
	flushAttempts     = 2

	logKeyBackend = "backend"
	logKeySize    = "size"
	logKeyAttempt = "attempt"
)

// Checkpointer owns the in-memory mapping of a run and flushes it to a Store
// every flushEvery new URLs.
type Checkpointer struct {
	store      Store
	flushEvery int
	logger     *zerolog.Logger

	mu      sync.Mutex
	mapping domain.ScoreMapping
}

// New prepares a checkpointer. With resume set the persisted mapping is
// loaded; otherwise any previous checkpoint for the run is discarded.
func New(ctx context.Context, store Store, flushEvery int, resume bool, logger *zerolog.Logger) (*Checkpointer, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if flushEvery <= 0 {
		flushEvery = defaultFlushEvery
	}

	c := &Checkpointer{store: store, flushEvery: flushEvery, logger: logger}

	if !resume {
		if err := store.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset checkpoint: %w", err)
		}

		c.mapping = domain.NewScoreMapping()

		return c, nil
	}

	mapping, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	c.mapping = mapping
	observability.CheckpointSize.Set(float64(len(mapping)))

	logger.Info().
		Str(logKeyBackend, store.Backend()).
		Int(logKeySize, len(mapping)).
		Msg("Resuming from checkpoint")

	return c, nil
}

// Put stores rec and flushes when a new URL brings the mapping size to a
// multiple of the flush cadence. Overwrites never trigger a flush.
func (c *Checkpointer) Put(ctx context.Context, rec domain.ScoreRecord) (bool, error) {
	c.mu.Lock()
	isNew := c.mapping.Put(rec)
	size := len(c.mapping)
	c.mu.Unlock()

	if !isNew || size%c.flushEvery != 0 {
		return false, nil
	}

	if err := c.Flush(ctx); err != nil {
		return false, err
	}

	return true, nil
}

// Flush persists a snapshot of the mapping. A failed save is retried once.
func (c *Checkpointer) Flush(ctx context.Context) error {
	snapshot := c.Mapping()
	backend := c.store.Backend()

	var err error

	for attempt := 1; attempt <= flushAttempts; attempt++ {
		if err = c.store.Save(ctx, snapshot); err == nil {
			break
		}

		c.logger.Warn().
			Err(err).
			Str(logKeyBackend, backend).
			Int(logKeyAttempt, attempt).
			Msg("Checkpoint flush failed")

		if ctx.Err() != nil {
			break
		}
	}

	if err != nil {
		observability.CheckpointFlushes.WithLabelValues(backend, observability.StatusError).Inc()

		return fmt.Errorf("%w: %w", apperrors.ErrPersistence, err)
	}

	observability.CheckpointFlushes.WithLabelValues(backend, observability.StatusSuccess).Inc()
	observability.CheckpointSize.Set(float64(len(snapshot)))

	c.logger.Debug().
		Str(logKeyBackend, backend).
		Int(logKeySize, len(snapshot)).
		Msg("Checkpoint flushed")

	return nil
}

// Mapping returns a copy of the current mapping.
func (c *Checkpointer) Mapping() domain.ScoreMapping {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mapping.Clone()
}

// Len returns the number of URLs held in memory.
func (c *Checkpointer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.mapping)
}
