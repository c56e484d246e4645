package ledger

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"github.com/ledgerchat/ledgerchat/internal/address"
)

// SQLiteStore backs a ledger with a single-file SQLite database. The append
// commit reproduces the host-ledger atomicity with one transaction: a
// unique-key insert for the message plus an optimistic counter update.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed store.
// If dbPath is empty, defaults to "./data/ledgerchat.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/ledgerchat.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates the records table if it doesn't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		addr  TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the record at addr.
func (s *SQLiteStore) Get(ctx context.Context, addr address.Address) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM records WHERE addr = ?
	`, addr.String()).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// PutIfAbsent creates the record at addr.
func (s *SQLiteStore) PutIfAbsent(ctx context.Context, addr address.Address, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (addr, value) VALUES (?, ?)
	`, addr.String(), value)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

// Update replaces the record at addr if it currently holds old.
func (s *SQLiteStore) Update(ctx context.Context, addr address.Address, old, value []byte) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE records SET value = ? WHERE addr = ? AND value = ?
	`, value, addr.String(), old)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM records WHERE addr = ?
		`, addr.String()).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// AppendMessage commits the message record and the counter advance in one
// transaction.
func (s *SQLiteStore) AppendMessage(ctx context.Context, counterAddr address.Address, oldCounter, newCounter []byte, msgAddr address.Address, msgValue []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (addr, value) VALUES (?, ?)
	`, msgAddr.String(), msgValue)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE records SET value = ? WHERE addr = ? AND value = ?
	`, newCounter, counterAddr.String(), oldCounter)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}

	return tx.Commit()
}

// isUniqueViolation reports whether err is a primary-key constraint failure.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}
