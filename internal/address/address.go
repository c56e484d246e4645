// Package address derives deterministic record addresses. An address is a
// SHA-256 digest over the namespace, a tag literal, and an optional
// discriminator, each length-prefixed so distinct inputs can never collide.
// Any party can recompute an address without coordination.
package address

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/ledgerchat/ledgerchat/internal/identity"
)

// Tag literals. These match the seed layout of the original deployment and
// must not change if wire compatibility matters.
const (
	TagRoom    = "chat_room"
	TagMessage = "message"
	TagAccount = "account"
)

// Size is the length of a derived address in bytes.
const Size = sha256.Size

// Address is a deterministic storage address.
type Address [Size]byte

// String returns the hex form of the address, used as the store key.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Derive computes the address for (namespace, tag, discriminator).
// It is pure and never fails.
func Derive(namespace, tag string, discriminator []byte) Address {
	h := sha256.New()
	writeLenPrefixed(h, []byte(namespace))
	writeLenPrefixed(h, []byte(tag))
	writeLenPrefixed(h, discriminator)

	var a Address
	h.Sum(a[:0])
	return a
}

// Room returns the address of a namespace's counter record.
func Room(namespace string) Address {
	return Derive(namespace, TagRoom, nil)
}

// Message returns the address of the message record with the given sequence
// number. The discriminator is the 8-byte little-endian sequence number,
// matching the original seed layout.
func Message(namespace string, messageID uint64) Address {
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], messageID)
	return Derive(namespace, TagMessage, seq[:])
}

// Account returns the address of an identity's funding account record.
func Account(namespace string, owner identity.ID) Address {
	return Derive(namespace, TagAccount, owner[:])
}

func writeLenPrefixed(h io.Writer, b []byte) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
	h.Write(n[:])
	h.Write(b)
}
