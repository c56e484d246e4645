package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerchat/ledgerchat/internal/address"
)

// PostgresStore backs a ledger with PostgreSQL via a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates the records table if it doesn't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			addr  TEXT PRIMARY KEY,
			value BYTEA NOT NULL
		)
	`)
	return err
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Get returns the record at addr.
func (s *PostgresStore) Get(ctx context.Context, addr address.Address) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `
		SELECT value FROM records WHERE addr = $1
	`, addr.String()).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// PutIfAbsent creates the record at addr.
func (s *PostgresStore) PutIfAbsent(ctx context.Context, addr address.Address, value []byte) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO records (addr, value) VALUES ($1, $2)
		ON CONFLICT (addr) DO NOTHING
	`, addr.String(), value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// Update replaces the record at addr if it currently holds old.
func (s *PostgresStore) Update(ctx context.Context, addr address.Address, old, value []byte) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE records SET value = $1 WHERE addr = $2 AND value = $3
	`, value, addr.String(), old)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM records WHERE addr = $1)
		`, addr.String()).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// AppendMessage commits the message record and the counter advance in one
// transaction.
func (s *PostgresStore) AppendMessage(ctx context.Context, counterAddr address.Address, oldCounter, newCounter []byte, msgAddr address.Address, msgValue []byte) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO records (addr, value) VALUES ($1, $2)
		ON CONFLICT (addr) DO NOTHING
	`, msgAddr.String(), msgValue)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}

	tag, err = tx.Exec(ctx, `
		UPDATE records SET value = $1 WHERE addr = $2 AND value = $3
	`, newCounter, counterAddr.String(), oldCounter)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	return tx.Commit(ctx)
}
