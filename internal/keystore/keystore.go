// Package keystore persists key material per identity label on disk.
// Layout under the base directory:
//
//	<label>/identity.key  base64 Ed25519 seed (0600)
//	<label>/identity.pub  base64 Ed25519 public key
//	<label>/rsa.pem       PKCS#1 RSA private key (0600)
//	<label>/rsa.pub       PKCS#1 RSA public key
//
// The .pub files are everything a sender needs; recipients share just those
// two files and keep the rest private.
package keystore

import (
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledgerchat/ledgerchat/internal/envelope"
	"github.com/ledgerchat/ledgerchat/internal/identity"
)

// ErrNotFound means no key material exists for the label.
var ErrNotFound = errors.New("keystore: key material not found")

// KeyPair is the full key material for one identity label.
type KeyPair struct {
	Identity      identity.ID
	SigningKey    ed25519.PrivateKey
	EncryptionKey *rsa.PrivateKey
}

// Keystore stores key pairs under a base directory.
type Keystore struct {
	dir string
}

// New creates a keystore rooted at dir. If dir is empty, defaults to
// ~/.ledgerchat.
func New(dir string) *Keystore {
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".ledgerchat")
	}
	return &Keystore{dir: dir}
}

// Generate creates fresh signing and encryption key pairs for the label and
// saves them.
func (k *Keystore) Generate(label string) (*KeyPair, error) {
	id, signingKey, err := identity.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	_, encryptionKey, err := envelope.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	kp := &KeyPair{
		Identity:      id,
		SigningKey:    signingKey,
		EncryptionKey: encryptionKey,
	}
	if err := k.Save(label, kp); err != nil {
		return nil, err
	}
	return kp, nil
}

// Save writes the key pair's material to disk.
func (k *Keystore) Save(label string, kp *KeyPair) error {
	dir := filepath.Join(k.dir, label)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	seed := base64.StdEncoding.EncodeToString(kp.SigningKey.Seed())
	if err := os.WriteFile(filepath.Join(dir, "identity.key"), []byte(seed), 0600); err != nil {
		return err
	}

	pub := base64.StdEncoding.EncodeToString(kp.Identity[:])
	if err := os.WriteFile(filepath.Join(dir, "identity.pub"), []byte(pub), 0644); err != nil {
		return err
	}

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(kp.EncryptionKey),
	}
	if err := os.WriteFile(filepath.Join(dir, "rsa.pem"), pem.EncodeToMemory(block), 0600); err != nil {
		return err
	}

	pubBlock := &pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(&kp.EncryptionKey.PublicKey),
	}
	return os.WriteFile(filepath.Join(dir, "rsa.pub"), pem.EncodeToMemory(pubBlock), 0644)
}

// Load reads the key pair for a label, or ErrNotFound.
func (k *Keystore) Load(label string) (*KeyPair, error) {
	dir := filepath.Join(k.dir, label)

	seedData, err := os.ReadFile(filepath.Join(dir, "identity.key"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, label)
		}
		return nil, err
	}
	seed, err := base64.StdEncoding.DecodeString(string(seedData))
	if err != nil {
		return nil, fmt.Errorf("keystore: corrupt identity key for %q: %w", label, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keystore: identity seed for %q is %d bytes, expected %d", label, len(seed), ed25519.SeedSize)
	}
	signingKey := ed25519.NewKeyFromSeed(seed)
	id, err := identity.FromPublicKey(signingKey.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}

	pemData, err := os.ReadFile(filepath.Join(dir, "rsa.pem"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, label)
		}
		return nil, err
	}
	block, _ := pem.Decode(pemData)
	if block == nil || block.Type != "RSA PRIVATE KEY" {
		return nil, fmt.Errorf("keystore: corrupt RSA key for %q", label)
	}
	encryptionKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keystore: corrupt RSA key for %q: %w", label, err)
	}

	return &KeyPair{
		Identity:      id,
		SigningKey:    signingKey,
		EncryptionKey: encryptionKey,
	}, nil
}

// PublicKeys is the shareable half of a label's key material: enough to
// address and encrypt a message to its owner.
type PublicKeys struct {
	Identity      identity.ID
	EncryptionKey *rsa.PublicKey
}

// LoadPublic reads only the public halves for a label, or ErrNotFound. It
// works when the private files are absent, so recipients can be looked up
// from copied-in .pub files alone.
func (k *Keystore) LoadPublic(label string) (*PublicKeys, error) {
	dir := filepath.Join(k.dir, label)

	idData, err := os.ReadFile(filepath.Join(dir, "identity.pub"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, label)
		}
		return nil, err
	}
	id, err := identity.Parse(string(idData))
	if err != nil {
		return nil, fmt.Errorf("keystore: corrupt identity for %q: %w", label, err)
	}

	pemData, err := os.ReadFile(filepath.Join(dir, "rsa.pub"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, label)
		}
		return nil, err
	}
	block, _ := pem.Decode(pemData)
	if block == nil || block.Type != "RSA PUBLIC KEY" {
		return nil, fmt.Errorf("keystore: corrupt RSA public key for %q", label)
	}
	encryptionKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keystore: corrupt RSA public key for %q: %w", label, err)
	}

	return &PublicKeys{Identity: id, EncryptionKey: encryptionKey}, nil
}
