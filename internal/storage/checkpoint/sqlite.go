package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/lueurxax/url-risk-bench/internal/core/domain"
	"github.com/lueurxax/url-risk-bench/internal/platform/config"
	"github.com/lueurxax/url-risk-bench/migrations"
)

const (
	sqliteDriver  = "sqlite"
	sqliteDialect = "sqlite3"
	sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
)

const (
	sqliteUpsertRun = `INSERT INTO checkpoint_runs (run_name, run_id, updated_at) VALUES (?, ?, ?)
ON CONFLICT (run_name) DO UPDATE SET run_id = excluded.run_id, updated_at = excluded.updated_at`
	sqliteDeleteScores = `DELETE FROM checkpoint_scores WHERE run_name = ?`
	sqliteDeleteRun    = `DELETE FROM checkpoint_runs WHERE run_name = ?`
	sqliteInsertScore  = `INSERT INTO checkpoint_scores (run_name, url, score, rationale) VALUES (?, ?, ?, ?)`
	sqliteSelectScores = `SELECT url, score, rationale FROM checkpoint_scores WHERE run_name = ?`
)

// SQLiteStore keeps run mappings in an embedded SQLite database file.
type SQLiteStore struct {
	db      *sql.DB
	runName string
	runID   string
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path, runName, runID string, logger *zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open(sqliteDriver, path+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// A single connection serializes writers and keeps pragmas consistent.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	if err := migrate(db, sqliteDialect, migrations.SQLiteDir, logger); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &SQLiteStore{db: db, runName: runName, runID: runID}, nil
}

func (s *SQLiteStore) Backend() string {
	return config.BackendSQLite
}

func (s *SQLiteStore) Load(ctx context.Context) (domain.ScoreMapping, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectScores, s.runName)
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

func (s *SQLiteStore) Save(ctx context.Context, mapping domain.ScoreMapping) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, sqliteUpsertRun, s.runName, s.runID, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("upsert checkpoint run: %w", err)
	}

	if _, err = tx.ExecContext(ctx, sqliteDeleteScores, s.runName); err != nil {
		return fmt.Errorf("clear checkpoint scores: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, sqliteInsertScore)
	if err != nil {
		return fmt.Errorf("prepare checkpoint insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range mapping {
		if _, err = stmt.ExecContext(ctx, s.runName, rec.URL, rec.Score, rec.Rationale); err != nil {
			return fmt.Errorf("insert checkpoint score: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteDeleteScores, s.runName); err != nil {
		return fmt.Errorf("clear checkpoint scores: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, sqliteDeleteRun, s.runName); err != nil {
		return fmt.Errorf("clear checkpoint run: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}

	return nil
}

var _ Store = (*SQLiteStore)(nil)
