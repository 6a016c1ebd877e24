package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
	"github.com/lueurxax/url-risk-bench/internal/platform/config"
	"github.com/lueurxax/url-risk-bench/migrations"
)

const (
	postgresDialect = "postgres"

	migrationLockID = 7311

	maxConnectionRetries   = 3
	connectionRetrySleep   = 2 * time.Second
	defaultMaxConns        = 4
	defaultMaxConnIdleTime = 5 * time.Minute
)

const (
	pgUpsertRun = `INSERT INTO checkpoint_runs (run_name, run_id, updated_at) VALUES ($1, $2, now())
ON CONFLICT (run_name) DO UPDATE SET run_id = EXCLUDED.run_id, updated_at = EXCLUDED.updated_at`
	pgDeleteScores = `DELETE FROM checkpoint_scores WHERE run_name = $1`
	pgDeleteRun    = `DELETE FROM checkpoint_runs WHERE run_name = $1`
	pgSelectScores = `SELECT url, score, rationale FROM checkpoint_scores WHERE run_name = $1`
)

var scoreColumns = []string{"run_name", "url", "score", "rationale"}

// PostgresStore keeps run mappings in PostgreSQL, one row per URL.
type PostgresStore struct {
	pool    *pgxpool.Pool
	runName string
	runID   string
	logger  *zerolog.Logger
}

// OpenPostgres connects to dsn with retries and applies migrations under an
// advisory lock so concurrent runners do not race on schema changes.
func OpenPostgres(ctx context.Context, dsn, runName, runID string, logger *zerolog.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	cfg.MaxConns = defaultMaxConns
	cfg.MaxConnIdleTime = defaultMaxConnIdleTime

	pool, err := connectWithRetries(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool, runName: runName, runID: runID, logger: logger}

	if err := store.migrate(ctx); err != nil {
		pool.Close()

		return nil, err
	}

	return store, nil
}

func connectWithRetries(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	var err error

	for i := 0; i < maxConnectionRetries; i++ {
		var pool *pgxpool.Pool

		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}

			pool.Close()
		}

		if i < maxConnectionRetries-1 {
			if sleepErr := sleepCtx(ctx, connectionRetrySleep); sleepErr != nil {
				return nil, fmt.Errorf("connect to database: %w", sleepErr)
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to database after retries: %w", err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	defer func() {
		//nolint:errcheck // advisory unlock in defer is best-effort, lock released on connection close anyway
		_, _ = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID)
	}()

	dbSQL := stdlib.OpenDB(*s.pool.Config().ConnConfig)

	defer func() {
		_ = dbSQL.Close()
	}()

	return migrate(dbSQL, postgresDialect, migrations.PostgresDir, s.logger)
}

func (s *PostgresStore) Backend() string {
	return config.BackendPostgres
}

func (s *PostgresStore) Load(ctx context.Context) (domain.ScoreMapping, error) {
	rows, err := s.pool.Query(ctx, pgSelectScores, s.runName)
	if err != nil {
		return nil, fmt.Errorf("query checkpoint scores: %w", err)
	}
	defer rows.Close()

	mapping := domain.NewScoreMapping()

	for rows.Next() {
		var rec domain.ScoreRecord
		if err := rows.Scan(&rec.URL, &rec.Score, &rec.Rationale); err != nil {
			return nil, fmt.Errorf("scan checkpoint score: %w", err)
		}

		mapping.Put(rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoint scores: %w", err)
	}

	return mapping, nil
}

// Save replaces the run's rows in one transaction using COPY for the bulk insert.
func (s *PostgresStore) Save(ctx context.Context, mapping domain.ScoreMapping) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin checkpoint tx: %w", err)
	}

	defer func() {
		//nolint:errcheck // rollback after commit is a no-op
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, pgUpsertRun, s.runName, s.runID); err != nil {
		return fmt.Errorf("upsert checkpoint run: %w", err)
	}

	if _, err := tx.Exec(ctx, pgDeleteScores, s.runName); err != nil {
		return fmt.Errorf("clear checkpoint scores: %w", err)
	}

	rows := make([][]any, 0, len(mapping))
	for _, rec := range mapping {
		rows = append(rows, []any{s.runName, rec.URL, rec.Score, rec.Rationale})
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"checkpoint_scores"}, scoreColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy checkpoint scores: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}

	return nil
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgDeleteRun, s.runName); err != nil {
		return fmt.Errorf("clear checkpoint run: %w", err)
	}

	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()

	return nil
}

var _ Store = (*PostgresStore)(nil)
