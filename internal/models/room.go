package models

// RoomCounter is the singleton counter record for a namespace. MessageCount
// equals the number of messages ever successfully appended and only grows.
type RoomCounter struct {
	MessageCount uint64 `json:"message_count"`
	KeyHash      string `json:"key_hash,omitempty"` // bcrypt hash for private namespaces
}

// IsPrivate reports whether reads through the gateway require an access key.
func (c RoomCounter) IsPrivate() bool {
	return c.KeyHash != ""
}
