package ledger

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerchat/ledgerchat/internal/address"
	"github.com/ledgerchat/ledgerchat/internal/identity"
	"github.com/ledgerchat/ledgerchat/internal/models"
)

type testParty struct {
	id  identity.ID
	key ed25519.PrivateKey
}

func newTestParty(t *testing.T) testParty {
	t.Helper()
	id, key, err := identity.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	return testParty{id: id, key: key}
}

func newTestLedger(t *testing.T) (*Ledger, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return New(store, "room1", zerolog.Nop()), store
}

func signedAppend(p testParty, recipient identity.ID, ciphertext []byte) AppendRequest {
	timestamp := time.Now().Unix()
	payload := identity.AppendPayload(p.id, recipient, ciphertext, timestamp)
	return AppendRequest{
		Sender:     p.id,
		Recipient:  recipient,
		Ciphertext: ciphertext,
		Timestamp:  timestamp,
		Signature:  identity.Sign(p.key, payload),
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	if err := led.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	counter, err := led.Counter(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counter.MessageCount != 0 {
		t.Fatalf("expected message_count 0, got %d", counter.MessageCount)
	}

	// Second initialize is a benign no-op.
	err = led.Initialize(ctx)
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	counter, err = led.Counter(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counter.MessageCount != 0 {
		t.Fatalf("message_count changed to %d after repeated initialize", counter.MessageCount)
	}
}

func TestAppendRequiresInitialize(t *testing.T) {
	led, _ := newTestLedger(t)
	alice := newTestParty(t)
	bob := newTestParty(t)

	_, err := led.Append(context.Background(), signedAppend(alice, bob.id, []byte("ct")))
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestAppendAssignsSequentialIDs(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()
	alice := newTestParty(t)
	bob := newTestParty(t)

	if err := led.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	const n = 5
	for i := uint64(0); i < n; i++ {
		id, err := led.Append(ctx, signedAppend(alice, bob.id, []byte(fmt.Sprintf("ct-%d", i))))
		if err != nil {
			t.Fatal(err)
		}
		if id != i {
			t.Fatalf("expected message_id %d, got %d", i, id)
		}
	}

	counter, err := led.Counter(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counter.MessageCount != n {
		t.Fatalf("expected message_count %d, got %d", n, counter.MessageCount)
	}
}

func TestAppendRejectsOversizePayload(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()
	alice := newTestParty(t)
	bob := newTestParty(t)

	if err := led.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	_, err := led.Append(ctx, signedAppend(alice, bob.id, make([]byte, MaxCiphertext+1)))
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}

	counter, err := led.Counter(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counter.MessageCount != 0 {
		t.Fatalf("message_count changed to %d after rejected append", counter.MessageCount)
	}
}

func TestAppendAcceptsFullCapacity(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()
	alice := newTestParty(t)
	bob := newTestParty(t)

	if err := led.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := led.Append(ctx, signedAppend(alice, bob.id, make([]byte, MaxCiphertext))); err != nil {
		t.Fatal(err)
	}
}

func TestAppendRejectsBadSignature(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()
	alice := newTestParty(t)
	mallory := newTestParty(t)
	bob := newTestParty(t)

	if err := led.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	// mallory signs but claims alice as sender
	req := signedAppend(mallory, bob.id, []byte("ct"))
	req.Sender = alice.id
	_, err := led.Append(ctx, req)
	if !errors.Is(err, identity.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestAppendDetectsAddressCollision(t *testing.T) {
	led, store := newTestLedger(t)
	ctx := context.Background()
	alice := newTestParty(t)
	bob := newTestParty(t)

	if err := led.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	// A concurrent appender already claimed sequence number 0.
	if err := store.PutIfAbsent(ctx, address.Message("room1", 0), []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	_, err := led.Append(ctx, signedAppend(alice, bob.id, []byte("ct")))
	if !errors.Is(err, ErrAddressCollision) {
		t.Fatalf("expected ErrAddressCollision, got %v", err)
	}

	counter, err := led.Counter(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counter.MessageCount != 0 {
		t.Fatalf("message_count changed to %d after collision", counter.MessageCount)
	}
}

func TestAppendDetectsStaleCounter(t *testing.T) {
	led, store := newTestLedger(t)
	ctx := context.Background()
	alice := newTestParty(t)
	bob := newTestParty(t)

	if err := led.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	// Move the counter out from under the append by hand: the store-level
	// commit must fail rather than double-assign a sequence number.
	old, err := store.Get(ctx, address.Room("room1"))
	if err != nil {
		t.Fatal(err)
	}
	moved, _ := json.Marshal(models.RoomCounter{MessageCount: 7})
	if err := store.Update(ctx, address.Room("room1"), old, moved); err != nil {
		t.Fatal(err)
	}

	err = store.AppendMessage(ctx, address.Room("room1"), old, []byte(`{"message_count":1}`), address.Message("room1", 0), []byte(`{}`))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := store.Get(ctx, address.Message("room1", 0)); !errors.Is(err, ErrNotFound) {
		t.Fatal("conflicted commit left a partial message record")
	}

	// The ledger path retries from a fresh counter read and succeeds.
	id, err := led.Append(ctx, signedAppend(alice, bob.id, []byte("ct")))
	if err != nil {
		t.Fatal(err)
	}
	if id != 7 {
		t.Fatalf("expected message_id 7 after counter moved, got %d", id)
	}
}

func TestScanForRecipientFiltersAndOrders(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()
	alice := newTestParty(t)
	bob := newTestParty(t)
	carol := newTestParty(t)

	if err := led.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	recipients := []identity.ID{bob.id, carol.id, bob.id, bob.id, carol.id}
	for i, r := range recipients {
		if _, err := led.Append(ctx, signedAppend(alice, r, []byte(fmt.Sprintf("ct-%d", i)))); err != nil {
			t.Fatal(err)
		}
	}

	inbox, err := led.ScanForRecipient(ctx, bob.id)
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 3 {
		t.Fatalf("expected 3 records for bob, got %d", len(inbox))
	}
	wantIDs := []uint64{0, 2, 3}
	for i, record := range inbox {
		if record.MessageID != wantIDs[i] {
			t.Fatalf("expected message_id %d at position %d, got %d", wantIDs[i], i, record.MessageID)
		}
		if record.Recipient != bob.id {
			t.Fatal("record for wrong recipient in inbox")
		}
	}
}

func TestScanForRecipientEmptyInbox(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()
	alice := newTestParty(t)
	bob := newTestParty(t)
	carol := newTestParty(t)

	if err := led.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := led.Append(ctx, signedAppend(alice, bob.id, []byte("ct"))); err != nil {
		t.Fatal(err)
	}

	inbox, err := led.ScanForRecipient(ctx, carol.id)
	if err != nil {
		t.Fatalf("empty inbox must not be an error: %v", err)
	}
	if len(inbox) != 0 {
		t.Fatalf("expected empty inbox, got %d records", len(inbox))
	}
}

func TestScanToleratesGaps(t *testing.T) {
	led, store := newTestLedger(t)
	ctx := context.Background()
	alice := newTestParty(t)
	bob := newTestParty(t)

	if err := led.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := led.Append(ctx, signedAppend(alice, bob.id, []byte("ct"))); err != nil {
		t.Fatal(err)
	}

	// Claim two more messages on the counter without writing their records,
	// as a reader racing in-flight appends would observe.
	old, err := store.Get(ctx, address.Room("room1"))
	if err != nil {
		t.Fatal(err)
	}
	moved, _ := json.Marshal(models.RoomCounter{MessageCount: 3})
	if err := store.Update(ctx, address.Room("room1"), old, moved); err != nil {
		t.Fatal(err)
	}

	records, err := led.ScanAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record across the gap, got %d", len(records))
	}
	if records[0].MessageID != 0 {
		t.Fatalf("expected message_id 0, got %d", records[0].MessageID)
	}
}

func TestPrivateNamespaceAccessKey(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	if err := led.InitializePrivate(ctx, "hunter2"); err != nil {
		t.Fatal(err)
	}

	if err := led.VerifyAccessKey(ctx, "hunter2"); err != nil {
		t.Fatalf("correct key rejected: %v", err)
	}
	if err := led.VerifyAccessKey(ctx, "wrong"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestPublicNamespaceNeedsNoKey(t *testing.T) {
	led, _ := newTestLedger(t)
	ctx := context.Background()

	if err := led.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if err := led.VerifyAccessKey(ctx, ""); err != nil {
		t.Fatalf("public namespace rejected empty key: %v", err)
	}
}
