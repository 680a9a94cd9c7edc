// Package sqlstore persists the history document to a relational
// database over database/sql. The driver is chosen by the caller, who
// opens the *sql.DB and blank-imports the driver package.
package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dnstools/requestq/errors"
	"github.com/dnstools/requestq/item"
)

// DefaultTable is the table the history rows are written to.
const DefaultTable = "request_history"

// Store implements history.Persister over a SQL table. Each save
// replaces the whole document: one row per entry, ordered by position
// so Load returns entries most recent first, same as the file store.
type Store struct {
	db    *sql.DB
	table string
}

// NewStore creates a store writing to table. An empty table name uses
// DefaultTable.
func NewStore(db *sql.DB, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{db: db, table: table}
}

// EnsureSchema creates the history table if it does not exist.
func (s *Store) EnsureSchema() error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		position INT NOT NULL,
		id VARCHAR(64) NOT NULL,
		entry TEXT NOT NULL,
		PRIMARY KEY (position)
	)`, s.table)
	if _, err := s.db.Exec(query); err != nil {
		return errors.NewPersistenceError("schema", s.table, err)
	}
	return nil
}

// Save replaces the stored document with entries.
func (s *Store) Save(entries []item.Snapshot) error {
	if s.db == nil {
		return errors.ErrNotConnected
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.NewPersistenceError("save", s.table, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", s.table)); err != nil {
		return errors.NewPersistenceError("save", s.table, err)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (position, id, entry) VALUES (?, ?, ?)", s.table)
	for i, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return errors.NewPersistenceError("save", s.table, err)
		}
		if _, err := tx.Exec(stmt, i, entry.ID, data); err != nil {
			return errors.NewPersistenceError("save", s.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewPersistenceError("save", s.table, err)
	}
	return nil
}

// Load reads the stored document back in position order.
func (s *Store) Load() ([]item.Snapshot, error) {
	if s.db == nil {
		return nil, errors.ErrNotConnected
	}

	query := fmt.Sprintf("SELECT entry FROM %s ORDER BY position", s.table)
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errors.NewPersistenceError("load", s.table, err)
	}
	defer rows.Close()

	var entries []item.Snapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, errors.NewPersistenceError("load", s.table, err)
		}
		var entry item.Snapshot
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, errors.NewPersistenceError("load", s.table, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceError("load", s.table, err)
	}
	return entries, nil
}
