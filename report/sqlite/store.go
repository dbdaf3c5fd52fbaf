package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hupe1980/flowclust/report"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("sqlite: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS cluster_runs (
	run_id          TEXT PRIMARY KEY,
	label           TEXT NOT NULL,
	mode            TEXT NOT NULL,
	metric          TEXT NOT NULL,
	row_count       INTEGER NOT NULL,
	k               INTEGER NOT NULL,
	group_count     INTEGER NOT NULL,
	entropy         REAL,
	scores_json     TEXT NOT NULL,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cluster_runs_created ON cluster_runs (created_at);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// Store is a report.Sink writing to the cluster_runs table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ report.Sink = (*Store)(nil)

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	s, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New applies the schema to db and returns a store over it.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WriteSummary inserts sum. An empty RunID is replaced by a new UUID and a
// zero Created by the current time.
func (s *Store) WriteSummary(ctx context.Context, sum report.Summary) error {
	if sum.RunID == "" {
		sum.RunID = uuid.New().String()
	}
	if sum.Created.IsZero() {
		sum.Created = s.now()
	}

	scores, err := json.Marshal(sum.Scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	var entropy any
	if sum.EntropyDefined {
		entropy = sum.Entropy
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cluster_runs (
			run_id, label, mode, metric, row_count, k, group_count, entropy, scores_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.Label, sum.Mode, sum.Metric, sum.Rows, sum.K, sum.Groups,
		entropy, string(scores), sum.Created.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", sum.RunID, err)
	}
	return nil
}

const selectRun = `
	SELECT run_id, label, mode, metric, row_count, k, group_count, entropy, scores_json, created_at
	FROM cluster_runs`

// Get returns the run with the given id.
func (s *Store) Get(ctx context.Context, runID string) (report.Summary, error) {
	row := s.db.QueryRowContext(ctx, selectRun+` WHERE run_id = ?`, runID)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return report.Summary{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return sum, err
}

// List returns all runs ordered by creation time, oldest first.
func (s *Store) List(ctx context.Context) ([]report.Summary, error) {
	rows, err := s.db.QueryContext(ctx, selectRun+` ORDER BY created_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []report.Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(r scanner) (report.Summary, error) {
	var (
		sum     report.Summary
		entropy sql.NullFloat64
		scores  string
		created int64
	)
	err := r.Scan(&sum.RunID, &sum.Label, &sum.Mode, &sum.Metric,
		&sum.Rows, &sum.K, &sum.Groups, &entropy, &scores, &created)
	if err != nil {
		return report.Summary{}, err
	}
	sum.Entropy, sum.EntropyDefined = entropy.Float64, entropy.Valid
	if err := json.Unmarshal([]byte(scores), &sum.Scores); err != nil {
		return report.Summary{}, fmt.Errorf("decode scores of run %s: %w", sum.RunID, err)
	}
	sum.Created = time.Unix(0, created)
	return sum, nil
}
