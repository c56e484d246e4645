package models

import "github.com/ledgerchat/ledgerchat/internal/identity"

// MaxEncryptedContent is the record capacity for ciphertext in bytes.
const MaxEncryptedContent = 512

// MessageRecord is one sent message as stored on the ledger. Records are
// immutable after creation.
type MessageRecord struct {
	Sender           identity.ID `json:"sender"`
	Recipient        identity.ID `json:"recipient"`
	EncryptedContent []byte      `json:"encrypted_content"` // ≤ MaxEncryptedContent, base64 on the wire
	Timestamp        int64       `json:"ts"`                // Unix seconds
	MessageID        uint64      `json:"message_id"`
}
