package ledger

import (
	"context"

	"github.com/ledgerchat/ledgerchat/internal/address"
)

// Store is the key-addressed durable backing for a ledger. An address either
// holds a record or it does not; creates are rejected when the address is
// occupied. MemoryStore, SQLiteStore, PostgresStore and RedisStore implement
// this interface.
type Store interface {
	// Get returns the record at addr, or ErrNotFound.
	Get(ctx context.Context, addr address.Address) ([]byte, error)

	// PutIfAbsent creates the record at addr, or fails with ErrAlreadyExists.
	PutIfAbsent(ctx context.Context, addr address.Address, value []byte) error

	// Update replaces the record at addr only if it currently holds old.
	// Fails with ErrNotFound or ErrConflict.
	Update(ctx context.Context, addr address.Address, old, value []byte) error

	// AppendMessage atomically creates the message record and advances the
	// counter. If the message address is occupied it fails with
	// ErrAlreadyExists; if the counter no longer holds oldCounter it fails
	// with ErrConflict. Either way no partial state is left behind.
	AppendMessage(ctx context.Context, counterAddr address.Address, oldCounter, newCounter []byte, msgAddr address.Address, msgValue []byte) error

	// Connection management.
	Ping(ctx context.Context) error
	Close() error
}
