package ledger

import "errors"

var (
	// ErrAlreadyInitialized is benign: the namespace counter already exists.
	// Callers treat it as success.
	ErrAlreadyInitialized = errors.New("ledger: namespace already initialized")

	// ErrNotInitialized means the namespace has no counter record yet.
	ErrNotInitialized = errors.New("ledger: namespace not initialized")

	// ErrPayloadTooLarge means the ciphertext exceeds the record capacity.
	ErrPayloadTooLarge = errors.New("ledger: encrypted content exceeds record capacity")

	// ErrAddressCollision means a concurrent append won the race for this
	// sequence number. The caller must re-read state and retry.
	ErrAddressCollision = errors.New("ledger: message address already occupied")

	// ErrAccessDenied means a private namespace's access key did not match.
	ErrAccessDenied = errors.New("ledger: invalid namespace access key")

	// Store-level sentinels.
	ErrNotFound      = errors.New("ledger: record not found")
	ErrAlreadyExists = errors.New("ledger: record already exists")
	ErrConflict      = errors.New("ledger: concurrent update conflict")
)
