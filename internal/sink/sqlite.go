package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	file TEXT NOT NULL,
	position INTEGER NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	breadcrumb TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_file ON records(file, position);`

// SQLite stores records in a local database file, replacing a file's rows
// each time it is written.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Write(ctx context.Context, file string, records []doctree.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE file = ?`, file); err != nil {
		return fmt.Errorf("delete %s: %w", file, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, file, position, title, content, breadcrumb, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i, r := range records {
		var crumb sql.NullString
		if len(r.Breadcrumb) > 0 {
			b, err := json.Marshal(r.Breadcrumb)
			if err != nil {
				return fmt.Errorf("marshal breadcrumb: %w", err)
			}
			crumb = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), file, i, r.Title, r.Content, crumb, now); err != nil {
			return fmt.Errorf("insert %s[%d]: %w", file, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Records returns the stored records of file in their original order.
func (s *SQLite) Records(ctx context.Context, file string) ([]doctree.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, content, breadcrumb FROM records WHERE file = ? ORDER BY position`, file)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []doctree.Record
	for rows.Next() {
		r := doctree.Record{File: file}
		var crumb sql.NullString
		if err := rows.Scan(&r.Title, &r.Content, &crumb); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if crumb.Valid {
			if err := json.Unmarshal([]byte(crumb.String), &r.Breadcrumb); err != nil {
				return nil, fmt.Errorf("decode breadcrumb: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Files lists every file with stored records.
func (s *SQLite) Files(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT file FROM records ORDER BY file`)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
