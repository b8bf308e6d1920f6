// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records finished batch runs in a SQLite database so
// past conversions and their download locators can be listed later.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/convertly/internal/batch"
	"github.com/pdiddy/convertly/pkg/types"
)

const dbFile = "history.db"

// ErrRunNotFound is returned by Get for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded batch run.
type Run struct {
	ID       string    `json:"id" yaml:"id"`
	Workflow string    `json:"workflow" yaml:"workflow"`
	Service  string    `json:"service" yaml:"service"`
	Started  time.Time `json:"started" yaml:"started"`
	Finished time.Time `json:"finished" yaml:"finished"`
	Done     int       `json:"done" yaml:"done"`
	Failed   int       `json:"failed" yaml:"failed"`
	Total    int       `json:"total" yaml:"total"`
	Items    []RunItem `json:"items,omitempty" yaml:"items,omitempty"`
}

// RunItem is the outcome of one item of a run.
type RunItem struct {
	ItemID      string       `json:"item_id" yaml:"item_id"`
	Source      string       `json:"source" yaml:"source"`
	Size        int64        `json:"size" yaml:"size"`
	Status      types.Status `json:"status" yaml:"status"`
	DownloadURL string       `json:"download_url,omitempty" yaml:"download_url,omitempty"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
	LocalPath   string       `json:"local_path,omitempty" yaml:"local_path,omitempty"`
}

// FromManifest converts a run manifest into a history record.
func FromManifest(m *batch.Manifest) Run {
	r := Run{
		ID:       m.RunID,
		Workflow: m.Workflow,
		Service:  m.Service,
		Started:  m.Started,
		Finished: m.Finished,
		Done:     m.Done,
		Failed:   m.Failed,
		Total:    len(m.Items),
		Items:    make([]RunItem, len(m.Items)),
	}
	for i, it := range m.Items {
		r.Items[i] = RunItem{
			ItemID:      it.ID,
			Source:      it.Source,
			Size:        it.Size,
			Status:      it.Status,
			DownloadURL: it.DownloadURL,
			Error:       it.Error,
			LocalPath:   it.LocalPath,
		}
	}
	return r
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates dir/history.db and its schema.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("history directory not configured")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			workflow TEXT NOT NULL,
			service TEXT,
			started TEXT NOT NULL,
			finished TEXT NOT NULL,
			done INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			total INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_items (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			item_id TEXT NOT NULL,
			source TEXT,
			size INTEGER,
			status TEXT NOT NULL,
			download_url TEXT,
			error TEXT,
			local_path TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores r and its items in one transaction. Recording the same
// run id twice replaces the earlier record.
func (s *Store) Record(ctx context.Context, r Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_items WHERE run_id = ?`, r.ID); err != nil {
		return fmt.Errorf("clearing items of run %s: %w", r.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, workflow, service, started, finished, done, failed, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Workflow, r.Service, formatTime(r.Started), formatTime(r.Finished), r.Done, r.Failed, r.Total,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", r.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_items (run_id, position, item_id, source, size, status, download_url, error, local_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing item insert: %w", err)
	}
	defer stmt.Close()

	for i, it := range r.Items {
		if _, err := stmt.ExecContext(ctx, r.ID, i, it.ItemID, it.Source, it.Size,
			string(it.Status), it.DownloadURL, it.Error, it.LocalPath); err != nil {
			return fmt.Errorf("inserting item %s: %w", it.ItemID, err)
		}
	}

	return tx.Commit()
}

// List returns up to limit runs, newest first, without their items.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workflow, service, started, finished, done, failed, total
		FROM runs ORDER BY started DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns the run with id including its items.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, workflow, service, started, finished, done, failed, total
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, source, size, status, download_url, error, local_path
		FROM run_items WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("querying items of run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var it RunItem
		var status string
		var source, url, msg, local sql.NullString
		if err := rows.Scan(&it.ItemID, &source, &it.Size, &status, &url, &msg, &local); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		it.Source, it.DownloadURL, it.Error, it.LocalPath = source.String, url.String, msg.String, local.String
		it.Status = types.Status(status)
		r.Items = append(r.Items, it)
	}
	return &r, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	var service sql.NullString
	var started, finished string
	if err := sc.Scan(&r.ID, &r.Workflow, &service, &started, &finished, &r.Done, &r.Failed, &r.Total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning run: %w", err)
	}
	r.Service = service.String
	r.Started = parseTime(started)
	r.Finished = parseTime(finished)
	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// WriteJSON writes runs to w as indented JSON.
func WriteJSON(w io.Writer, runs []Run) error {
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// WriteYAML writes runs to w as YAML.
func WriteYAML(w io.Writer, runs []Run) error {
	data, err := yaml.Marshal(runs)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}
