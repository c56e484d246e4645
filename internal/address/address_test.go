package address

import (
	"testing"

	"github.com/ledgerchat/ledgerchat/internal/identity"
)

func TestDeriveIsDeterministic(t *testing.T) {
	a := Derive("room1", TagMessage, []byte{1, 0, 0, 0, 0, 0, 0, 0})
	b := Derive("room1", TagMessage, []byte{1, 0, 0, 0, 0, 0, 0, 0})
	if a != b {
		t.Fatal("same inputs must derive the same address")
	}
}

func TestMessageAddressesAreDistinct(t *testing.T) {
	seen := make(map[Address]uint64)
	for n := uint64(0); n < 1000; n++ {
		addr := Message("room1", n)
		if prev, ok := seen[addr]; ok {
			t.Fatalf("message %d collides with message %d", n, prev)
		}
		seen[addr] = n
	}
}

func TestTagsAreDistinct(t *testing.T) {
	if Room("room1") == Derive("room1", TagMessage, nil) {
		t.Fatal("room and message tags must not collide")
	}

	var id identity.ID
	if Account("room1", id) == Room("room1") {
		t.Fatal("account and room tags must not collide")
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	if Room("room1") == Room("room2") {
		t.Fatal("namespaces must derive distinct counter addresses")
	}
	if Message("room1", 0) == Message("room2", 0) {
		t.Fatal("namespaces must derive distinct message addresses")
	}
}

func TestLengthPrefixingPreventsBoundaryCollisions(t *testing.T) {
	// Without length prefixes "ab"+"c" and "a"+"bc" would hash identically.
	if Derive("ab", "c", nil) == Derive("a", "bc", nil) {
		t.Fatal("shifted namespace/tag boundary must not collide")
	}
	if Derive("ns", "t", []byte("xy")) == Derive("ns", "tx", []byte("y")) {
		t.Fatal("shifted tag/discriminator boundary must not collide")
	}
}

func TestStringIsHex(t *testing.T) {
	s := Room("room1").String()
	if len(s) != Size*2 {
		t.Fatalf("expected %d hex chars, got %d", Size*2, len(s))
	}
}
