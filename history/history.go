// Package history keeps a local, display-only record of every job report
// the client tried to submit. Entries are never re-sent.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ngtracker/ngt-desktop/common"
)

const schema = `
CREATE TABLE IF NOT EXISTS job_reports (
	id           TEXT PRIMARY KEY,
	recorded_at  INTEGER NOT NULL,
	was_finished INTEGER NOT NULL,
	submitted    INTEGER NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	report       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS job_reports_recorded_at ON job_reports (recorded_at DESC);
`

// Entry is one recorded submission attempt.
type Entry struct {
	ID         string
	RecordedAt time.Time
	Report     common.JobReport
	Submitted  bool
	Error      string
}

// NewEntry builds an entry for report. A nil submitErr marks it submitted.
func NewEntry(report common.JobReport, submitErr error) Entry {
	entry := Entry{
		ID:         uuid.NewString(),
		RecordedAt: time.Now().UTC(),
		Report:     report,
		Submitted:  submitErr == nil,
	}
	if submitErr != nil {
		entry.Error = submitErr.Error()
	}
	return entry
}

// Outcome returns a short label for the entry.
func (e Entry) Outcome() string {
	switch {
	case !e.Submitted:
		return "Not sent"
	case e.Report.WasFinished:
		return "Delivered"
	default:
		return "Cancelled"
	}
}

// Stats summarizes the stored entries.
type Stats struct {
	Total     int
	Delivered int
	Cancelled int
	Failed    int
}

// Store persists entries in SQLite.
type Store struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("history is not open")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	report, err := json.Marshal(entry.Report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO job_reports (id, recorded_at, was_finished, submitted, error, report)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID,
		toMillis(entry.RecordedAt),
		boolToInt(entry.Report.WasFinished),
		boolToInt(entry.Submitted),
		entry.Error,
		string(report),
	)
	if err != nil {
		return fmt.Errorf("record job report: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = common.HistoryDisplayLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recorded_at, submitted, error, report
		 FROM job_reports ORDER BY recorded_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query job reports: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			recorded  int64
			submitted int
			report    string
		)
		if err := rows.Scan(&entry.ID, &recorded, &submitted, &entry.Error, &report); err != nil {
			return nil, fmt.Errorf("scan job report: %w", err)
		}
		if err := json.Unmarshal([]byte(report), &entry.Report); err != nil {
			return nil, fmt.Errorf("decode job report %s: %w", entry.ID, err)
		}
		entry.RecordedAt = fromMillis(recorded)
		entry.Submitted = submitted != 0
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats counts entries by outcome.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT
		   COUNT(*),
		   COALESCE(SUM(CASE WHEN submitted = 1 AND was_finished = 1 THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN submitted = 1 AND was_finished = 0 THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN submitted = 0 THEN 1 ELSE 0 END), 0)
		 FROM job_reports`,
	).Scan(&stats.Total, &stats.Delivered, &stats.Cancelled, &stats.Failed)
	if err != nil {
		return Stats{}, fmt.Errorf("count job reports: %w", err)
	}
	return stats, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
