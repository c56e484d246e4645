package funding

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ledgerchat/ledgerchat/internal/identity"
	"github.com/ledgerchat/ledgerchat/internal/ledger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(ledger.NewMemoryStore(), "room1", zerolog.Nop())
}

func newTestIdentity(t *testing.T) identity.ID {
	t.Helper()
	id, _, err := identity.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestBalanceOfUnknownAccountIsZero(t *testing.T) {
	svc := newTestService(t)
	owner := newTestIdentity(t)

	balance, err := svc.Balance(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 0 {
		t.Fatalf("expected 0, got %d", balance)
	}
}

func TestAirdropCreditsAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := newTestIdentity(t)

	receipt, err := svc.Airdrop(ctx, owner, 500)
	if err != nil {
		t.Fatal(err)
	}
	if receipt == "" {
		t.Fatal("expected a receipt ID")
	}

	balance, err := svc.Balance(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 500 {
		t.Fatalf("expected 500, got %d", balance)
	}

	// Airdrops accumulate.
	if _, err := svc.Airdrop(ctx, owner, 250); err != nil {
		t.Fatal(err)
	}
	balance, _ = svc.Balance(ctx, owner)
	if balance != 750 {
		t.Fatalf("expected 750, got %d", balance)
	}
}

func TestAirdropDefaultAmount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := newTestIdentity(t)

	if _, err := svc.Airdrop(ctx, owner, 0); err != nil {
		t.Fatal(err)
	}
	balance, _ := svc.Balance(ctx, owner)
	if balance != DefaultAirdrop {
		t.Fatalf("expected %d, got %d", DefaultAirdrop, balance)
	}
}

func TestChargeDebitsAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := newTestIdentity(t)

	if _, err := svc.Airdrop(ctx, owner, 1000); err != nil {
		t.Fatal(err)
	}
	if err := svc.Charge(ctx, owner, 300); err != nil {
		t.Fatal(err)
	}
	balance, _ := svc.Balance(ctx, owner)
	if balance != 700 {
		t.Fatalf("expected 700, got %d", balance)
	}
}

func TestChargeInsufficientFunds(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	owner := newTestIdentity(t)

	if _, err := svc.Airdrop(ctx, owner, 100); err != nil {
		t.Fatal(err)
	}
	err := svc.Charge(ctx, owner, 101)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Balance untouched by the failed charge.
	balance, _ := svc.Balance(ctx, owner)
	if balance != 100 {
		t.Fatalf("expected 100, got %d", balance)
	}
}

func TestAccountsAreIndependent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := newTestIdentity(t)
	bob := newTestIdentity(t)

	if _, err := svc.Airdrop(ctx, alice, 500); err != nil {
		t.Fatal(err)
	}
	balance, err := svc.Balance(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 0 {
		t.Fatalf("bob's balance should be 0, got %d", balance)
	}
}

func TestRentScalesWithRecordSize(t *testing.T) {
	if Rent(0) != 0 {
		t.Fatal("empty record should cost nothing")
	}
	if Rent(100) != 100*RentPerByte {
		t.Fatalf("expected %d, got %d", 100*RentPerByte, Rent(100))
	}
}
