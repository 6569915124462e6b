// Package store persists scan records and signature updates in sqlite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/avguard/avscan/internal/classifier"
	"github.com/avguard/avscan/internal/logging"
	"github.com/avguard/avscan/internal/scanner"
)

// Fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	db   *sql.DB
	path string
	log  *logrus.Entry
}

func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath, log: logging.For("store")}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scan_records (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		category TEXT NOT NULL,
		infected INTEGER NOT NULL,
		details TEXT,
		hash TEXT,
		scan_context TEXT NOT NULL,
		action TEXT NOT NULL,
		scanned_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_infected ON scan_records(infected);
	CREATE INDEX IF NOT EXISTS idx_records_category ON scan_records(category);
	CREATE INDEX IF NOT EXISTS idx_records_context ON scan_records(scan_context);

	CREATE TABLE IF NOT EXISTS signatures (
		hash TEXT PRIMARY KEY,
		source TEXT,
		added_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

const insertRecord = `
	INSERT OR REPLACE INTO scan_records
	(id, path, category, infected, details, hash, scan_context, action, scanned_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insert(e execer, r scanner.Record) error {
	_, err := e.Exec(insertRecord,
		r.ID, r.Path, string(r.Category), r.Infected, r.Details, r.Hash,
		string(r.Context), string(r.Action), r.Timestamp.UTC().Format(timeLayout),
	)
	return err
}

// Save stores one record.
func (s *Store) Save(r scanner.Record) error {
	if err := insert(s.db, r); err != nil {
		return fmt.Errorf("failed to save record %s: %w", r.Path, err)
	}
	return nil
}

// SaveBatch stores records in a single transaction.
func (s *Store) SaveBatch(rs []scanner.Record) error {
	if len(rs) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range rs {
		if err := insert(tx, r); err != nil {
			return fmt.Errorf("failed to save record %s: %w", r.Path, err)
		}
	}
	return tx.Commit()
}

const selectRecords = `
	SELECT id, path, category, infected, details, hash, scan_context, action, scanned_at
	FROM scan_records`

func (s *Store) FindInfected() ([]scanner.Record, error) {
	return s.query(selectRecords+` WHERE infected = 1 ORDER BY scanned_at DESC`)
}

func (s *Store) FindByCategory(c classifier.Category) ([]scanner.Record, error) {
	return s.query(selectRecords+` WHERE category = ? ORDER BY scanned_at DESC`, strings.ToUpper(string(c)))
}

func (s *Store) FindByContext(c scanner.Context) ([]scanner.Record, error) {
	return s.query(selectRecords+` WHERE scan_context = ? ORDER BY scanned_at DESC`, strings.ToUpper(string(c)))
}

func (s *Store) query(q string, args ...any) ([]scanner.Record, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []scanner.Record
	for rows.Next() {
		var (
			r                         scanner.Record
			category, context, action string
			details, hash             sql.NullString
			scannedAt                 string
		)
		if err := rows.Scan(&r.ID, &r.Path, &category, &r.Infected, &details, &hash,
			&context, &action, &scannedAt); err != nil {
			return nil, err
		}
		r.Category = classifier.Category(category)
		r.Context = scanner.Context(context)
		r.Action = scanner.Action(action)
		r.Details = details.String
		r.Hash = hash.String
		if ts, err := time.Parse(timeLayout, scannedAt); err == nil {
			r.Timestamp = ts
		} else {
			s.log.WithField("id", r.ID).Warnf("bad timestamp %q", scannedAt)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddSignature persists a known-bad hash. It reports false if the hash was
// already stored.
func (s *Store) AddSignature(hash, source string) (bool, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" {
		return false, fmt.Errorf("empty signature hash")
	}
	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO signatures (hash, source, added_at)
		VALUES (?, ?, ?)`,
		hash, source, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("failed to add signature: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Signatures returns every persisted hash.
func (s *Store) Signatures() ([]string, error) {
	rows, err := s.db.Query(`SELECT hash FROM signatures ORDER BY added_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query signatures: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) RecordCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM scan_records`).Scan(&n)
	return n, err
}
