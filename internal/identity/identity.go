// Package identity defines the 32-byte ledger identity and the signature
// scheme used to authorize appends.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// Size is the length of a ledger identity in bytes.
const Size = 32

var (
	ErrInvalidIdentity  = errors.New("identity: invalid public key")
	ErrInvalidSignature = errors.New("identity: invalid signature")
)

// ID is a ledger identity: an Ed25519 public key.
type ID [Size]byte

// String returns the base64 form of the identity.
func (id ID) String() string {
	return base64.StdEncoding.EncodeToString(id[:])
}

// Short returns a truncated form suitable for log lines and CLI output.
func (id ID) Short() string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// PublicKey returns the identity as an Ed25519 public key.
func (id ID) PublicKey() ed25519.PublicKey {
	return ed25519.PublicKey(id[:])
}

// Parse decodes a base64-encoded identity.
func Parse(b64 string) (ID, error) {
	decoded, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return ID{}, fmt.Errorf("%w: invalid base64 encoding", ErrInvalidIdentity)
	}
	if len(decoded) != Size {
		return ID{}, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidIdentity, Size, len(decoded))
	}
	var id ID
	copy(id[:], decoded)
	return id, nil
}

// FromPublicKey converts an Ed25519 public key to an identity.
func FromPublicKey(pub ed25519.PublicKey) (ID, error) {
	if len(pub) != Size {
		return ID{}, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidIdentity, Size, len(pub))
	}
	var id ID
	copy(id[:], pub)
	return id, nil
}

// GenerateKeyPair produces a fresh signing key pair and its identity.
func GenerateKeyPair() (ID, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return ID{}, nil, err
	}
	id, err := FromPublicKey(pub)
	if err != nil {
		return ID{}, nil, err
	}
	return id, priv, nil
}

// AppendPayload creates the canonical data signed by a sender to authorize
// an append. Format: sha256(ciphertext)|sender|recipient|timestamp.
func AppendPayload(sender, recipient ID, ciphertext []byte, timestamp int64) []byte {
	digest := sha256.Sum256(ciphertext)
	return []byte(fmt.Sprintf("%x|%s|%s|%d", digest, sender, recipient, timestamp))
}

// Sign signs a payload and returns the base64-encoded signature.
func Sign(priv ed25519.PrivateKey, payload []byte) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, payload))
}

// Verify checks a base64-encoded signature over payload against the identity.
func Verify(id ID, payload []byte, signatureB64 string) error {
	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("%w: invalid base64 encoding", ErrInvalidSignature)
	}
	if !ed25519.Verify(id.PublicKey(), payload, signature) {
		return ErrInvalidSignature
	}
	return nil
}
