// Package store is Atlas's persistent job queue: a single SQLite-backed
// table of typed, JSON-encoded job payloads, discriminated by job_type, with
// atomic pending->running claims and status-transition helpers in the style
// of the tile-processing job table this module's tile pipeline is modeled
// on.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Umpriel/atlas/internal/atlaserr"
	"github.com/Umpriel/atlas/internal/log"
	"github.com/Umpriel/atlas/internal/metrics"
)

// DBPath is the on-disk location of Atlas's embedded database, relative to
// the daemon's working directory.
const DBPath = "state/atlas.db"

// Status is a job row's lifecycle state.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	job_type TEXT NOT NULL,
	job BLOB NOT NULL,
	status TEXT NOT NULL,
	done_at DATETIME,
	last_error TEXT
);
CREATE INDEX IF NOT EXISTS idx_jobs_type_status ON jobs(job_type, status);
CREATE INDEX IF NOT EXISTS idx_jobs_type_done_at ON jobs(job_type, done_at DESC);
`

// DB is the shared handle to Atlas's embedded database. Each typed queue
// (Store[T]) is a thin view over the same jobs table, distinguished by
// job_type.
type DB struct {
	conn *sql.DB
}

// Open creates the state directory if needed and opens (or creates) the
// embedded SQLite database at DBPath.
func Open(ctx context.Context) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(DBPath), 0o755); err != nil {
		return nil, atlaserr.Wrap(atlaserr.QueueFailure, "create state directory", err)
	}

	conn, err := sql.Open("sqlite", DBPath)
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.QueueFailure, "open database", err)
	}
	conn.SetMaxOpenConns(1) // modernc.org/sqlite: one writer, matches a single-process daemon

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, atlaserr.Wrap(atlaserr.QueueFailure, "apply schema", err)
	}

	log.Info("opened job store at " + DBPath)
	return &DB{conn: conn}, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// Store is a typed view over the jobs table for a single job payload type.
type Store[T any] struct {
	db      *DB
	jobType string
}

// NewStore builds a Store for jobType, the discriminator recorded in every
// row this Store writes and the filter every read applies.
func NewStore[T any](db *DB, jobType string) *Store[T] {
	return &Store[T]{db: db, jobType: jobType}
}

// Row is a claimed or historical job with its store-assigned ID.
type Row[T any] struct {
	ID        string
	Job       T
	Status    Status
	DoneAt    *time.Time
	LastError string
}

// Push enqueues a new pending job and returns its assigned ID.
func (s *Store[T]) Push(ctx context.Context, job T) (string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return "", atlaserr.Wrap(atlaserr.DataFormatFailure, "marshal job", err)
	}

	id := uuid.NewString()
	_, err = s.db.conn.ExecContext(ctx,
		`INSERT INTO jobs (id, job_type, job, status) VALUES (?, ?, ?, ?)`,
		id, s.jobType, payload, StatusPending,
	)
	if err != nil {
		return "", atlaserr.Wrap(atlaserr.QueueFailure, "push job", err)
	}
	metrics.JobsPushedTotal.WithLabelValues(s.jobType).Inc()
	return id, nil
}

// Poll atomically claims one pending job of this type, marking it running,
// and returns it. It returns (nil, nil) when no pending job is available.
func (s *Store[T]) Poll(ctx context.Context) (*Row[T], error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.QueueFailure, "begin poll transaction", err)
	}
	defer tx.Rollback()

	var id string
	var payload []byte
	err = tx.QueryRowContext(ctx,
		`SELECT id, job FROM jobs WHERE job_type = ? AND status = ? ORDER BY rowid LIMIT 1`,
		s.jobType, StatusPending,
	).Scan(&id, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.QueueFailure, "select pending job", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE jobs SET status = ? WHERE id = ?`, StatusRunning, id); err != nil {
		return nil, atlaserr.Wrap(atlaserr.QueueFailure, "claim job", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, atlaserr.Wrap(atlaserr.QueueFailure, "commit claim", err)
	}

	var job T
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, atlaserr.Wrap(atlaserr.DataFormatFailure, "unmarshal job", err)
	}

	return &Row[T]{ID: id, Job: job, Status: StatusRunning}, nil
}

// Complete marks a claimed job done.
func (s *Store[T]) Complete(ctx context.Context, id string) error {
	return s.setTerminal(ctx, id, StatusDone, "")
}

// Fail marks a claimed job failed, recording cause.
func (s *Store[T]) Fail(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.setTerminal(ctx, id, StatusFailed, msg)
}

func (s *Store[T]) setTerminal(ctx context.Context, id string, status Status, lastError string) error {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE jobs SET status = ?, done_at = ?, last_error = ? WHERE id = ? AND job_type = ?`,
		status, time.Now().UTC(), lastError, id, s.jobType,
	)
	if err != nil {
		return atlaserr.Wrap(atlaserr.QueueFailure, "update job status", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return atlaserr.Wrap(atlaserr.QueueFailure, "read rows affected", err)
	}
	if rows == 0 {
		return atlaserr.New(atlaserr.JobNotFound, fmt.Sprintf("job %s not found", id))
	}
	return nil
}

// FetchAllByType returns every row of this job type, ordered with the most
// recently completed first, matching the "current run" lookup's dependence
// on done_at ordering.
func (s *Store[T]) FetchAllByType(ctx context.Context) ([]Row[T], error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, job, status, done_at, last_error FROM jobs WHERE job_type = ? ORDER BY done_at DESC`,
		s.jobType,
	)
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.QueueFailure, "fetch jobs by type", err)
	}
	defer rows.Close()

	var out []Row[T]
	for rows.Next() {
		var id, status, lastError string
		var payload []byte
		var doneAt sql.NullTime
		if err := rows.Scan(&id, &payload, &status, &doneAt, &lastError); err != nil {
			return nil, atlaserr.Wrap(atlaserr.QueueFailure, "scan job row", err)
		}
		var job T
		if err := json.Unmarshal(payload, &job); err != nil {
			return nil, atlaserr.Wrap(atlaserr.DataFormatFailure, "unmarshal job", err)
		}
		row := Row[T]{ID: id, Job: job, Status: Status(status), LastError: lastError}
		if doneAt.Valid {
			row.DoneAt = &doneAt.Time
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, atlaserr.Wrap(atlaserr.QueueFailure, "iterate job rows", err)
	}
	return out, nil
}

// SetFailed marks a job of this type failed by ID, independent of its
// current status. Used when a machine's provisioning itself fails before
// any tile work begins.
func (s *Store[T]) SetFailed(ctx context.Context, id string, cause error) error {
	return s.Fail(ctx, id, cause)
}

// ReclaimStale resets every row of this type left in status=running back to
// pending. Called once at daemon startup: a running row past a restart was
// interrupted mid-job and is safe to retry, never partially applied, by
// construction of the per-job stage pipeline.
func (s *Store[T]) ReclaimStale(ctx context.Context) (int64, error) {
	result, err := s.db.conn.ExecContext(ctx,
		`UPDATE jobs SET status = ? WHERE job_type = ? AND status = ?`,
		StatusPending, s.jobType, StatusRunning,
	)
	if err != nil {
		return 0, atlaserr.Wrap(atlaserr.QueueFailure, "reclaim stale jobs", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, atlaserr.Wrap(atlaserr.QueueFailure, "read rows affected", err)
	}
	return n, nil
}
