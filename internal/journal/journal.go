// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package journal keeps a local SQLite record of submission attempts.
package journal

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dotandev/tzsubmit/internal/logger"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1

	// DefaultTTL is how long entries are kept by Prune (90 days)
	DefaultTTL = 90 * 24 * time.Hour

	// DefaultMaxEntries is the maximum number of entries to keep
	DefaultMaxEntries = 5000

	defaultListLimit = 50
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = stderrors.New("journal entry not found")

// Entry is one submission attempt. Failed attempts are recorded too, with
// the stage they reached and the classified error.
type Entry struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Source     string    `json:"source"`
	Network    string    `json:"network"`
	Operations int       `json:"operations"`
	Stage      string    `json:"stage"`
	OpHash     string    `json:"op_hash,omitempty"`

	Fee     int64 `json:"fee_mutez"`
	Burn    int64 `json:"burn_mutez"`
	Gas     int64 `json:"gas"`
	Storage int64 `json:"storage"`

	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`

	PayloadJSON string `json:"payload_json,omitempty"`
	ForgedHex   string `json:"forged_hex,omitempty"`
}

// Succeeded reports whether the attempt reached injection.
func (e *Entry) Succeeded() bool {
	return e.OpHash != "" && e.Error == ""
}

// Filter narrows List.
type Filter struct {
	Source string
	// FailedOnly keeps attempts that recorded an error.
	FailedOnly bool
	Limit      int
}

// Store manages journal persistence in SQLite
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal at path, creating parent directories.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := os.Chmod(path, 0600); err != nil {
		logger.Logger.Warn("Failed to set journal permissions", "error", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		source TEXT NOT NULL,
		network TEXT NOT NULL,
		operations INTEGER NOT NULL,
		stage TEXT NOT NULL,
		op_hash TEXT NOT NULL,
		fee INTEGER NOT NULL,
		burn INTEGER NOT NULL,
		gas INTEGER NOT NULL,
		storage INTEGER NOT NULL,
		error_kind TEXT NOT NULL,
		error TEXT NOT NULL,
		payload_json TEXT,
		forged_hex TEXT,
		schema_version INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);
	CREATE INDEX IF NOT EXISTS idx_submissions_source ON submissions(source);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record stores e, assigning an id and timestamp when missing.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.Source == "" {
		return fmt.Errorf("journal entry needs a source")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO submissions (
		id, created_at, source, network, operations, stage, op_hash,
		fee, burn, gas, storage, error_kind, error,
		payload_json, forged_hex, schema_version
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		stage = excluded.stage,
		op_hash = excluded.op_hash,
		error_kind = excluded.error_kind,
		error = excluded.error,
		forged_hex = excluded.forged_hex
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.CreatedAt.UnixNano(), e.Source, e.Network, e.Operations, e.Stage, e.OpHash,
		e.Fee, e.Burn, e.Gas, e.Storage, e.ErrorKind, e.Error,
		e.PayloadJSON, e.ForgedHex, SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}

	logger.Logger.Debug("Submission recorded", "id", e.ID, "stage", e.Stage, "hash", e.OpHash)
	return nil
}

const selectColumns = `
	SELECT id, created_at, source, network, operations, stage, op_hash,
	       fee, burn, gas, storage, error_kind, error,
	       COALESCE(payload_json, ''), COALESCE(forged_hex, '')
	FROM submissions`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var created int64
	err := row.Scan(
		&e.ID, &created, &e.Source, &e.Network, &e.Operations, &e.Stage, &e.OpHash,
		&e.Fee, &e.Burn, &e.Gas, &e.Storage, &e.ErrorKind, &e.Error,
		&e.PayloadJSON, &e.ForgedHex,
	)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = time.Unix(0, created)
	return &e, nil
}

// Get retrieves an entry by id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	return e, nil
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]*Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := selectColumns + ` WHERE (? = '' OR source = ?)`
	args := []any{f.Source, f.Source}
	if f.FailedOnly {
		query += ` AND error != ''`
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}
	return out, nil
}

// Prune removes entries older than ttl and then the oldest entries beyond
// maxEntries. Zero disables either bound. It returns the number removed.
func (s *Store) Prune(ctx context.Context, ttl time.Duration, maxEntries int) (int64, error) {
	var removed int64

	if ttl > 0 {
		cutoff := time.Now().Add(-ttl).UnixNano()
		result, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE created_at < ?`, cutoff)
		if err != nil {
			return removed, fmt.Errorf("failed to delete expired submissions: %w", err)
		}
		n, _ := result.RowsAffected()
		removed += n
	}

	if maxEntries > 0 {
		result, err := s.db.ExecContext(ctx, `
			DELETE FROM submissions
			WHERE id IN (
				SELECT id FROM submissions
				ORDER BY created_at DESC, rowid DESC
				LIMIT -1 OFFSET ?
			)`, maxEntries)
		if err != nil {
			return removed, fmt.Errorf("failed to delete excess submissions: %w", err)
		}
		n, _ := result.RowsAffected()
		removed += n
	}

	if removed > 0 {
		logger.Logger.Debug("Pruned journal", "count", removed)
	}
	return removed, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
