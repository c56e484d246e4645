// Package funding tracks per-identity balances on the same store the
// message ledger lives on. Balances pay rent for the record space a message
// occupies, mirroring what the backing chain charges for account storage.
package funding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/ledgerchat/ledgerchat/internal/address"
	"github.com/ledgerchat/ledgerchat/internal/identity"
	"github.com/ledgerchat/ledgerchat/internal/ledger"
	"github.com/ledgerchat/ledgerchat/internal/metrics"
	"github.com/ledgerchat/ledgerchat/internal/models"
)

const (
	// DefaultAirdrop is the amount credited when no amount is given.
	DefaultAirdrop uint64 = 1_000_000

	// RentPerByte is the charge per byte of encoded record.
	RentPerByte uint64 = 8

	// casRetries bounds the optimistic-update loop on contended accounts.
	casRetries = 5
)

var (
	// ErrInsufficientFunds means the account cannot cover a charge.
	ErrInsufficientFunds = errors.New("funding: insufficient funds")

	// ErrContended means the account update lost too many races in a row.
	ErrContended = errors.New("funding: account update contended, retry")
)

// Rent returns the charge for storing a record of the given encoded size.
func Rent(recordSize int) uint64 {
	return uint64(recordSize) * RentPerByte
}

// Service provides balance, airdrop and charge operations for a namespace.
type Service struct {
	store     ledger.Store
	namespace string
	logger    zerolog.Logger
}

// New creates a funding service over the given store and namespace.
func New(store ledger.Store, namespace string, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		namespace: namespace,
		logger:    logger.With().Str("namespace", namespace).Logger(),
	}
}

// Balance returns the identity's balance. An absent account reads as zero.
func (s *Service) Balance(ctx context.Context, owner identity.ID) (uint64, error) {
	account, _, err := s.readAccount(ctx, owner)
	if errors.Is(err, ledger.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Airdrop credits the identity's account and returns a receipt ID.
func (s *Service) Airdrop(ctx context.Context, owner identity.ID, amount uint64) (string, error) {
	if amount == 0 {
		amount = DefaultAirdrop
	}

	err := s.mutate(ctx, owner, func(account *models.Account) error {
		account.Balance += amount
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("airdrop to %s: %w", owner.Short(), err)
	}

	receipt := ulid.Make().String()
	metrics.AirdropsIssued.Inc()
	s.logger.Info().
		Str("owner", owner.Short()).
		Uint64("amount", amount).
		Str("receipt", receipt).
		Msg("airdrop credited")
	return receipt, nil
}

// Charge debits the identity's account, failing with ErrInsufficientFunds
// when the balance cannot cover it.
func (s *Service) Charge(ctx context.Context, owner identity.ID, amount uint64) error {
	err := s.mutate(ctx, owner, func(account *models.Account) error {
		if account.Balance < amount {
			return fmt.Errorf("%w: balance %d, charge %d", ErrInsufficientFunds, account.Balance, amount)
		}
		account.Balance -= amount
		return nil
	})
	if err != nil {
		return fmt.Errorf("charge %s: %w", owner.Short(), err)
	}
	return nil
}

// readAccount returns the account record plus the exact stored bytes for the
// compare-and-swap expectation.
func (s *Service) readAccount(ctx context.Context, owner identity.ID) (models.Account, []byte, error) {
	raw, err := s.store.Get(ctx, address.Account(s.namespace, owner))
	if err != nil {
		return models.Account{}, nil, err
	}

	var account models.Account
	if err := json.Unmarshal(raw, &account); err != nil {
		return models.Account{}, nil, fmt.Errorf("decode account for %s: %w", owner.Short(), err)
	}
	return account, raw, nil
}

// mutate applies fn to the account under an optimistic-concurrency loop,
// creating the account on first touch.
func (s *Service) mutate(ctx context.Context, owner identity.ID, fn func(*models.Account) error) error {
	addr := address.Account(s.namespace, owner)

	for attempt := 0; attempt < casRetries; attempt++ {
		account, oldRaw, err := s.readAccount(ctx, owner)
		created := false
		if errors.Is(err, ledger.ErrNotFound) {
			account = models.Account{Owner: owner}
			created = true
		} else if err != nil {
			return err
		}

		if err := fn(&account); err != nil {
			return err
		}
		account.UpdatedAt = time.Now().Unix()

		newRaw, err := json.Marshal(account)
		if err != nil {
			return err
		}

		if created {
			err = s.store.PutIfAbsent(ctx, addr, newRaw)
			if errors.Is(err, ledger.ErrAlreadyExists) {
				continue // lost the create race, re-read
			}
			return err
		}

		err = s.store.Update(ctx, addr, oldRaw, newRaw)
		if errors.Is(err, ledger.ErrConflict) {
			continue
		}
		return err
	}
	return ErrContended
}
