// Package envelope encrypts a plaintext for exactly one recipient using
// RSA-OAEP. Ciphertexts are fixed-size opaque blobs: the modulus size of the
// recipient's key, independent of plaintext length. Any textual encoding
// (base64 on the wire, in CLI output) is a boundary concern, not part of
// this package's contract.
package envelope

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
)

// KeyBits is the key size used for generated key pairs.
const KeyBits = 2048

// EncryptionError represents a failure to produce a ciphertext: oversize
// plaintext or malformed key material.
type EncryptionError struct {
	Message string
}

func (e *EncryptionError) Error() string {
	return "envelope: " + e.Message
}

// IsEncryptionError checks if an error is an EncryptionError.
func IsEncryptionError(err error) bool {
	var ee *EncryptionError
	return errors.As(err, &ee)
}

// ErrDecryption is the single failure variant for Decrypt. Wrong key,
// truncation, corruption, and padding failures are indistinguishable so
// callers cannot be used as a padding oracle.
var ErrDecryption = errors.New("envelope: decryption failed")

// GenerateKeyPair produces a fresh RSA key pair.
func GenerateKeyPair() (*rsa.PublicKey, *rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, nil, err
	}
	return &priv.PublicKey, priv, nil
}

// MaxPayload returns the largest plaintext encryptable under pub:
// modulus bytes minus the OAEP overhead (2*hash+2). 190 bytes for a
// 2048-bit key.
func MaxPayload(pub *rsa.PublicKey) int {
	return pub.Size() - 2*sha256.Size - 2
}

// Encrypt encrypts plaintext under the recipient's public key. The returned
// ciphertext is exactly pub.Size() bytes.
func Encrypt(plaintext []byte, pub *rsa.PublicKey) ([]byte, error) {
	if pub == nil || pub.N == nil {
		return nil, &EncryptionError{Message: "nil or malformed public key"}
	}
	if max := MaxPayload(pub); len(plaintext) > max {
		return nil, &EncryptionError{Message: fmt.Sprintf("plaintext is %d bytes, maximum payload is %d", len(plaintext), max)}
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return nil, &EncryptionError{Message: err.Error()}
	}
	return ciphertext, nil
}

// Decrypt is the inverse of Encrypt. Every failure is reported as
// ErrDecryption regardless of cause.
func Decrypt(ciphertext []byte, priv *rsa.PrivateKey) ([]byte, error) {
	if priv == nil {
		return nil, ErrDecryption
	}
	if len(ciphertext) != priv.Size() {
		return nil, ErrDecryption
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), nil, priv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}
