// Package journal persists run and attempt history in an embedded SQLite
// database, so past outcomes survive the process and can be inspected with
// the journal subcommand. Writes are best-effort from the controller's point
// of view: a journal error never alters a run's outcome.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

type Journal struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open creates (or opens) the database at path and applies migrations.
// Use ":memory:" for an ephemeral journal.
func Open(ctx context.Context, path string, log zerolog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// SQLite allows one writer; the journal is only ever written from the
	// single run goroutine, so a single connection avoids lock contention.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	log.Debug().Str("path", path).Msg("journal opened")
	return &Journal{db: db, log: log}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// StartRun inserts a new run row and returns its id.
func (j *Journal) StartRun(ctx context.Context, mode string) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO runs(started_at, mode, status) VALUES (?, ?, 'running')`,
		time.Now().UTC(), mode)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecordAttempt appends one attempt outcome to a run.
func (j *Journal) RecordAttempt(ctx context.Context, runID int64, n int, success bool, message, evidence string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO attempts(run_id, n, success, message, evidence, at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, n, success, message, evidence, time.Now().UTC())
	return err
}

// FinishRun records the terminal status of a run.
func (j *Journal) FinishRun(ctx context.Context, runID int64, status string, attempts int, lastErr string) error {
	_, err := j.db.ExecContext(ctx,
		`UPDATE runs SET status=?, attempts=?, last_error=?, finished_at=? WHERE id=?`,
		status, attempts, nullable(lastErr), time.Now().UTC(), runID)
	return err
}

type Run struct {
	ID         int64
	StartedAt  time.Time
	Mode       string
	Status     string
	Attempts   int
	LastError  string
	FinishedAt *time.Time
}

type Attempt struct {
	N        int
	Success  bool
	Message  string
	Evidence string
	At       time.Time
}

// RecentRuns returns up to limit runs, newest first.
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
SELECT id, started_at, mode, status, attempts, last_error, finished_at
FROM runs
ORDER BY id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var lastErr sql.NullString
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Mode, &r.Status, &r.Attempts, &lastErr, &finished); err != nil {
			return nil, err
		}
		r.LastError = lastErr.String
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Attempts returns all attempts of a run in order.
func (j *Journal) Attempts(ctx context.Context, runID int64) ([]Attempt, error) {
	rows, err := j.db.QueryContext(ctx, `
SELECT n, success, message, evidence, at
FROM attempts
WHERE run_id=?
ORDER BY n ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		var evidence sql.NullString
		if err := rows.Scan(&a.N, &a.Success, &a.Message, &evidence, &a.At); err != nil {
			return nil, err
		}
		a.Evidence = evidence.String
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
