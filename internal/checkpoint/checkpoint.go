// Package checkpoint provides SQLite-backed persistence for the ingest
// journal: a durable record of what Build did with every corpus record,
// so a crashed or resumed run can be audited without re-reading raw HTML.
// Uses ncruces/go-sqlite3/driver, which provides a database/sql interface
// with no cgo dependency.
package checkpoint

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
)

// Status classifies the outcome of ingesting a single corpus record.
type Status string

const (
	StatusAccepted    Status = "accepted"
	StatusDuplicate   Status = "duplicate"
	StatusFiltered    Status = "filtered"
	StatusOversize    Status = "oversize"
	StatusUnreadable  Status = "unreadable"
	StatusParseFailed Status = "parse_failed"
	StatusEmpty       Status = "empty"
	StatusLowEntropy  Status = "low_entropy"
)

// Store is the SQLite-backed ingest journal.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS ingest_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    domain TEXT NOT NULL,
    record TEXT NOT NULL,
    url TEXT,
    status TEXT NOT NULL,
    doc_id INTEGER,
    reason TEXT,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ingest_status ON ingest_events(status);
CREATE INDEX IF NOT EXISTS idx_ingest_domain ON ingest_events(domain);
`

// Open creates (or reuses) the ingest journal at path. Use ":memory:" for a
// throwaway journal, e.g. in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one ingest outcome to the journal. docID is ignored
// (stored as NULL) when the record was not assigned a document-id.
func (s *Store) Record(domain, record, url string, status Status, docID int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var docIDArg interface{}
	if docID >= 0 {
		docIDArg = docID
	}

	_, err := s.db.Exec(`
		INSERT INTO ingest_events (domain, record, url, status, doc_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, domain, record, url, string(status), docIDArg, reason, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("checkpoint: record event: %w", err)
	}
	return nil
}

// Counts returns the number of journal entries per status, for the final
// ingest report.
func (s *Store) Counts() (map[Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM ingest_events GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("checkpoint: scan count row: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}
