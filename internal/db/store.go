package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nexus-app/nexus/internal/remote"
)

// DefaultListLimit applies when ListExecutions gets a non-positive limit.
const DefaultListLimit = 50

// Execution is one stored audit record.
type Execution struct {
	ID        string        `json:"id"`
	Source    remote.Source `json:"source"`
	CreatedAt time.Time     `json:"created_at"`
	remote.Result
}

// Store wraps the database handle.
type Store struct {
	db *sql.DB
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordExecution stores res. It satisfies remote.Recorder.
func (s *Store) RecordExecution(ctx context.Context, res remote.Result, source remote.Source) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (id, machine_name, command, source, stdout, stderr,
			exit_code, success, timed_out, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), res.MachineName, res.Command, string(source),
		res.Stdout, res.Stderr, res.ExitCode, res.Success, res.TimedOut,
		res.DurationMS, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// ListExecutions returns the newest executions first.
func (s *Store) ListExecutions(ctx context.Context, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, machine_name, command, source, stdout, stderr,
			exit_code, success, timed_out, duration_ms, created_at
		FROM executions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	out := []Execution{}
	for rows.Next() {
		var (
			e       Execution
			source  string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.MachineName, &e.Command, &source, &e.Stdout, &e.Stderr,
			&e.ExitCode, &e.Success, &e.TimedOut, &e.DurationMS, &created); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		e.Source = remote.Source(source)
		e.CreatedAt = time.UnixMilli(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
