// Package chat orchestrates the envelope codec, the funding service and the
// ledger into send and receive operations.
package chat

import (
	"context"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ledgerchat/ledgerchat/internal/envelope"
	"github.com/ledgerchat/ledgerchat/internal/funding"
	"github.com/ledgerchat/ledgerchat/internal/identity"
	"github.com/ledgerchat/ledgerchat/internal/ledger"
	"github.com/ledgerchat/ledgerchat/internal/metrics"
	"github.com/ledgerchat/ledgerchat/internal/models"
)

// Credentials is the caller's identity plus the signing key that authorizes
// appends under it.
type Credentials struct {
	Identity   identity.ID
	SigningKey ed25519.PrivateKey
}

// InboxMessage is one decrypted (or failed) record from a receive. Err is
// set when this record could not be decrypted; the rest of the batch is
// unaffected.
type InboxMessage struct {
	MessageID uint64
	Sender    identity.ID
	Timestamp int64
	Plaintext []byte
	Err       error
}

// Service provides send and receive over one ledger namespace.
type Service struct {
	ledger *ledger.Ledger
	funds  *funding.Service
	logger zerolog.Logger
}

// New creates a chat service. funds may be nil, in which case sends are not
// charged rent.
func New(led *ledger.Ledger, funds *funding.Service, logger zerolog.Logger) *Service {
	return &Service{ledger: led, funds: funds, logger: logger}
}

// Send encrypts plaintext for the recipient and appends the resulting record
// to the ledger, returning the assigned message ID.
func (s *Service) Send(ctx context.Context, creds Credentials, recipient identity.ID, recipientKey *rsa.PublicKey, plaintext []byte) (uint64, error) {
	log := s.logger.With().
		Str("op", "send").
		Str("op_id", uuid.NewString()).
		Str("sender", creds.Identity.Short()).
		Str("recipient", recipient.Short()).
		Logger()

	ciphertext, err := envelope.Encrypt(plaintext, recipientKey)
	if err != nil {
		return 0, fmt.Errorf("send: %w", err)
	}
	if len(ciphertext) > ledger.MaxCiphertext {
		return 0, fmt.Errorf("send: %w: ciphertext is %d bytes, capacity %d",
			ledger.ErrPayloadTooLarge, len(ciphertext), ledger.MaxCiphertext)
	}

	timestamp := time.Now().Unix()
	rent := s.recordRent(creds.Identity, recipient, ciphertext, timestamp)
	if s.funds != nil {
		balance, err := s.funds.Balance(ctx, creds.Identity)
		if err != nil {
			return 0, fmt.Errorf("send: %w", err)
		}
		if balance < rent {
			return 0, fmt.Errorf("send: %w: balance %d, rent %d", funding.ErrInsufficientFunds, balance, rent)
		}
	}

	payload := identity.AppendPayload(creds.Identity, recipient, ciphertext, timestamp)
	messageID, err := s.ledger.Append(ctx, ledger.AppendRequest{
		Sender:     creds.Identity,
		Recipient:  recipient,
		Ciphertext: ciphertext,
		Timestamp:  timestamp,
		Signature:  identity.Sign(creds.SigningKey, payload),
	})
	if err != nil {
		return 0, fmt.Errorf("send: %w", err)
	}

	if s.funds != nil {
		// The record is already durable; a failed rent charge is logged, not
		// fatal to the send.
		if err := s.funds.Charge(ctx, creds.Identity, rent); err != nil {
			log.Warn().Err(err).Uint64("message_id", messageID).Msg("rent charge failed after append")
		}
	}

	log.Info().Uint64("message_id", messageID).Msg("message sent")
	return messageID, nil
}

// Receive returns the caller's inbox in message order. A record that fails
// to decrypt is reported with Err set and does not abort the batch.
func (s *Service) Receive(ctx context.Context, creds Credentials, decryptionKey *rsa.PrivateKey) ([]InboxMessage, error) {
	log := s.logger.With().
		Str("op", "receive").
		Str("op_id", uuid.NewString()).
		Str("recipient", creds.Identity.Short()).
		Logger()

	records, err := s.ledger.ScanForRecipient(ctx, creds.Identity)
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}

	inbox := make([]InboxMessage, 0, len(records))
	for _, record := range records {
		msg := InboxMessage{
			MessageID: record.MessageID,
			Sender:    record.Sender,
			Timestamp: record.Timestamp,
		}
		plaintext, err := envelope.Decrypt(record.EncryptedContent, decryptionKey)
		if err != nil {
			msg.Err = fmt.Errorf("receive message %d: %w", record.MessageID, err)
			metrics.DecryptFailures.Inc()
			log.Warn().Uint64("message_id", record.MessageID).Msg("record failed to decrypt")
		} else {
			msg.Plaintext = plaintext
		}
		inbox = append(inbox, msg)
	}

	log.Info().Int("records", len(inbox)).Msg("inbox scanned")
	return inbox, nil
}

// recordRent computes the rent for the record as it will be stored.
func (s *Service) recordRent(sender, recipient identity.ID, ciphertext []byte, timestamp int64) uint64 {
	record := models.MessageRecord{
		Sender:           sender,
		Recipient:        recipient,
		EncryptedContent: ciphertext,
		Timestamp:        timestamp,
	}
	// Encoded size is dominated by the fixed fields plus base64 ciphertext.
	raw, err := json.Marshal(record)
	if err != nil {
		return funding.Rent(len(ciphertext))
	}
	return funding.Rent(len(raw))
}
