package keystore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateAndLoad(t *testing.T) {
	ks := New(t.TempDir())

	created, err := ks.Generate("alice")
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := ks.Load("alice")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Identity != created.Identity {
		t.Fatal("loaded identity differs from generated")
	}
	if !loaded.SigningKey.Equal(created.SigningKey) {
		t.Fatal("loaded signing key differs from generated")
	}
	if !loaded.EncryptionKey.Equal(created.EncryptionKey) {
		t.Fatal("loaded encryption key differs from generated")
	}
}

func TestLoadUnknownLabel(t *testing.T) {
	ks := New(t.TempDir())

	_, err := ks.Load("nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPrivateKeyFilePermissions(t *testing.T) {
	dir := t.TempDir()
	ks := New(dir)

	if _, err := ks.Generate("alice"); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"identity.key", "rsa.pem"} {
		info, err := os.Stat(filepath.Join(dir, "alice", name))
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Fatalf("%s has mode %o, expected 0600", name, perm)
		}
	}
}

func TestLabelsAreIsolated(t *testing.T) {
	ks := New(t.TempDir())

	alice, err := ks.Generate("alice")
	if err != nil {
		t.Fatal(err)
	}
	bob, err := ks.Generate("bob")
	if err != nil {
		t.Fatal(err)
	}
	if alice.Identity == bob.Identity {
		t.Fatal("labels share an identity")
	}

	loaded, err := ks.Load("bob")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Identity != bob.Identity {
		t.Fatal("loaded wrong label's material")
	}
}

func TestLoadPublic(t *testing.T) {
	ks := New(t.TempDir())

	created, err := ks.Generate("bob")
	if err != nil {
		t.Fatal(err)
	}

	pub, err := ks.LoadPublic("bob")
	if err != nil {
		t.Fatal(err)
	}
	if pub.Identity != created.Identity {
		t.Fatal("public identity differs from generated")
	}
	if !pub.EncryptionKey.Equal(&created.EncryptionKey.PublicKey) {
		t.Fatal("public encryption key differs from generated")
	}
}

func TestLoadPublicWithoutPrivateFiles(t *testing.T) {
	dir := t.TempDir()
	ks := New(dir)

	created, err := ks.Generate("bob")
	if err != nil {
		t.Fatal(err)
	}

	// A sender's keystore holds only the recipient's shared .pub files.
	for _, name := range []string{"identity.key", "rsa.pem"} {
		if err := os.Remove(filepath.Join(dir, "bob", name)); err != nil {
			t.Fatal(err)
		}
	}

	pub, err := ks.LoadPublic("bob")
	if err != nil {
		t.Fatal(err)
	}
	if pub.Identity != created.Identity {
		t.Fatal("public identity differs from generated")
	}

	if _, err := ks.Load("bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from full load, got %v", err)
	}
}

func TestLoadPublicUnknownLabel(t *testing.T) {
	ks := New(t.TempDir())

	_, err := ks.LoadPublic("nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCorruptSeedRejected(t *testing.T) {
	dir := t.TempDir()
	ks := New(dir)

	if _, err := ks.Generate("alice"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "alice", "identity.key")
	if err := os.WriteFile(path, []byte("not base64!!!"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := ks.Load("alice"); err == nil {
		t.Fatal("expected error for corrupt seed")
	}
}
