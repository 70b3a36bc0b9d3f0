package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/0x6d61/curlwrap/internal/transport"
)

// timeLayout is fixed-width so stored timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store using SQLite via modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and if needed creates) the history database.
// Use ":memory:" for testing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS transfers (
			id          TEXT PRIMARY KEY,
			method      TEXT NOT NULL,
			url         TEXT NOT NULL,
			status_code INTEGER DEFAULT 0,
			body_size   INTEGER DEFAULT 0,
			info_json   TEXT NOT NULL,
			created_at  TEXT NOT NULL
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create table: %w", err)
	}

	createIndexSQL := `
		CREATE INDEX IF NOT EXISTS idx_transfers_created_at ON transfers(created_at);
	`
	if _, err := db.Exec(createIndexSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save inserts or replaces a record. An empty ID is replaced by a new
// UUID and a zero CreatedAt by the current time.
func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	info := rec.Info
	if info == nil {
		info = &transport.TransferInfo{}
	}
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("history: marshal info: %w", err)
	}

	query := `
		INSERT INTO transfers (id, method, url, status_code, body_size, info_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			method      = excluded.method,
			url         = excluded.url,
			status_code = excluded.status_code,
			body_size   = excluded.body_size,
			info_json   = excluded.info_json,
			created_at  = excluded.created_at
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Method,
		rec.URL,
		rec.StatusCode,
		rec.BodySize,
		string(infoJSON),
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("history: save record: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, method, url, status_code, body_size, info_json, created_at FROM transfers`

// Get retrieves a record by ID. Returns (nil, nil) if there is none.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// List returns the most recent records first. limit <= 0 returns all.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate rows: %w", err)
	}
	return records, nil
}

// Delete removes a record by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transfers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("history: delete record: %w", err)
	}
	return nil
}

// Cleanup removes records older than maxAge and returns how many were
// deleted.
func (s *SQLiteStore) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(timeLayout)

	result, err := s.db.ExecContext(ctx, `DELETE FROM transfers WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: cleanup records: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: rows affected: %w", err)
	}
	return deleted, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec       Record
		infoJSON  string
		createdAt string
	)
	err := row.Scan(&rec.ID, &rec.Method, &rec.URL, &rec.StatusCode, &rec.BodySize, &infoJSON, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("history: scan row: %w", err)
	}

	rec.Info = &transport.TransferInfo{}
	if err := json.Unmarshal([]byte(infoJSON), rec.Info); err != nil {
		return nil, fmt.Errorf("history: unmarshal info: %w", err)
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("history: parse created_at %q: %w", createdAt, err)
	}
	rec.CreatedAt = t
	return &rec, nil
}
