// Package ledger turns a key-addressed store with create-if-absent semantics
// into an ordered, collision-free message log. Records live at deterministic
// addresses, so the total order falls out of the addressing scheme: the
// counter record names how many messages exist and message n lives at the
// address derived from n.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerchat/ledgerchat/internal/address"
	"github.com/ledgerchat/ledgerchat/internal/identity"
	"github.com/ledgerchat/ledgerchat/internal/metrics"
	"github.com/ledgerchat/ledgerchat/internal/models"
)

// MaxCiphertext is the record capacity for encrypted content.
const MaxCiphertext = models.MaxEncryptedContent

// Ledger is the append-only message log for one namespace.
type Ledger struct {
	store     Store
	namespace string
	logger    zerolog.Logger
}

// New creates a Ledger over the given store and namespace.
func New(store Store, namespace string, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:     store,
		namespace: namespace,
		logger:    logger.With().Str("namespace", namespace).Logger(),
	}
}

// Namespace returns the namespace this ledger operates on.
func (l *Ledger) Namespace() string {
	return l.namespace
}

// Store exposes the backing store for collaborators sharing it (funding,
// health checks).
func (l *Ledger) Store() Store {
	return l.store
}

// Initialize creates the namespace counter with message_count = 0. Calling
// it again returns ErrAlreadyInitialized, which callers treat as success.
func (l *Ledger) Initialize(ctx context.Context) error {
	return l.initialize(ctx, "")
}

// InitializePrivate creates the namespace with an access key. Gateway reads
// of a private namespace must present the key.
func (l *Ledger) InitializePrivate(ctx context.Context, accessKey string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(accessKey), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return l.initialize(ctx, string(hash))
}

func (l *Ledger) initialize(ctx context.Context, keyHash string) error {
	value, err := json.Marshal(models.RoomCounter{MessageCount: 0, KeyHash: keyHash})
	if err != nil {
		return err
	}

	err = l.store.PutIfAbsent(ctx, address.Room(l.namespace), value)
	if errors.Is(err, ErrAlreadyExists) {
		return ErrAlreadyInitialized
	}
	if err != nil {
		return fmt.Errorf("initialize namespace %q: %w", l.namespace, err)
	}

	l.logger.Info().Msg("namespace initialized")
	return nil
}

// Counter returns the namespace's counter record.
func (l *Ledger) Counter(ctx context.Context) (models.RoomCounter, error) {
	counter, _, err := l.readCounter(ctx)
	return counter, err
}

// VerifyAccessKey checks a gateway access key against a private namespace's
// stored hash. Public namespaces accept any key.
func (l *Ledger) VerifyAccessKey(ctx context.Context, key string) error {
	counter, _, err := l.readCounter(ctx)
	if err != nil {
		return err
	}
	if !counter.IsPrivate() {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(counter.KeyHash), []byte(key)); err != nil {
		return ErrAccessDenied
	}
	return nil
}

// readCounter returns the counter record along with the exact stored bytes,
// which the append commit uses as its compare-and-swap expectation.
func (l *Ledger) readCounter(ctx context.Context) (models.RoomCounter, []byte, error) {
	raw, err := l.store.Get(ctx, address.Room(l.namespace))
	if errors.Is(err, ErrNotFound) {
		return models.RoomCounter{}, nil, ErrNotInitialized
	}
	if err != nil {
		return models.RoomCounter{}, nil, fmt.Errorf("read counter for %q: %w", l.namespace, err)
	}

	var counter models.RoomCounter
	if err := json.Unmarshal(raw, &counter); err != nil {
		return models.RoomCounter{}, nil, fmt.Errorf("decode counter for %q: %w", l.namespace, err)
	}
	return counter, raw, nil
}

// AppendRequest carries one message append and its authorization.
type AppendRequest struct {
	Sender     identity.ID
	Recipient  identity.ID
	Ciphertext []byte
	Timestamp  int64
	Signature  string // base64 Ed25519 signature over identity.AppendPayload
}

// Append writes a new message record at the next sequence number and
// advances the counter, atomically. On a lost race with a concurrent
// appender it fails with ErrAddressCollision and leaves no partial state;
// the caller retries with a freshly read counter.
func (l *Ledger) Append(ctx context.Context, req AppendRequest) (uint64, error) {
	if len(req.Ciphertext) > MaxCiphertext {
		return 0, fmt.Errorf("%w: %d bytes, capacity %d", ErrPayloadTooLarge, len(req.Ciphertext), MaxCiphertext)
	}

	payload := identity.AppendPayload(req.Sender, req.Recipient, req.Ciphertext, req.Timestamp)
	if err := identity.Verify(req.Sender, payload, req.Signature); err != nil {
		return 0, fmt.Errorf("append: sender authorization: %w", err)
	}

	counter, oldRaw, err := l.readCounter(ctx)
	if err != nil {
		return 0, err
	}
	n := counter.MessageCount

	record := models.MessageRecord{
		Sender:           req.Sender,
		Recipient:        req.Recipient,
		EncryptedContent: req.Ciphertext,
		Timestamp:        req.Timestamp,
		MessageID:        n,
	}
	recordRaw, err := json.Marshal(record)
	if err != nil {
		return 0, err
	}

	counter.MessageCount = n + 1
	newRaw, err := json.Marshal(counter)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	err = l.store.AppendMessage(ctx, address.Room(l.namespace), oldRaw, newRaw, address.Message(l.namespace, n), recordRaw)
	metrics.StoreLatency.WithLabelValues("append").Observe(time.Since(start).Seconds())
	if errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrConflict) {
		metrics.AppendCollisions.Inc()
		l.logger.Warn().Uint64("message_id", n).Msg("append lost concurrent race")
		return 0, fmt.Errorf("append message %d: %w", n, ErrAddressCollision)
	}
	if err != nil {
		return 0, fmt.Errorf("append message %d: %w", n, err)
	}

	metrics.MessagesSent.Inc()
	l.logger.Debug().
		Uint64("message_id", n).
		Str("sender", req.Sender.Short()).
		Str("recipient", req.Recipient.Short()).
		Msg("message appended")
	return n, nil
}

// ScanAll returns every message record in the namespace in ascending
// message_id order. Records missing mid-sequence (appends in flight when the
// counter was read) are skipped; a later scan will see them.
func (l *Ledger) ScanAll(ctx context.Context) ([]models.MessageRecord, error) {
	counter, _, err := l.readCounter(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		metrics.StoreLatency.WithLabelValues("scan").Observe(time.Since(start).Seconds())
	}()

	records := make([]models.MessageRecord, 0, counter.MessageCount)
	for n := uint64(0); n < counter.MessageCount; n++ {
		raw, err := l.store.Get(ctx, address.Message(l.namespace, n))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan message %d: %w", n, err)
		}

		var record models.MessageRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("decode message %d: %w", n, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// ScanForRecipient returns the recipient's inbox view: every record
// addressed to them, in ascending message_id order.
func (l *Ledger) ScanForRecipient(ctx context.Context, recipient identity.ID) ([]models.MessageRecord, error) {
	all, err := l.ScanAll(ctx)
	if err != nil {
		return nil, err
	}

	inbox := make([]models.MessageRecord, 0, len(all))
	for _, record := range all {
		if record.Recipient == recipient {
			inbox = append(inbox, record)
		}
	}
	return inbox, nil
}
