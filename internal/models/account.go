package models

import "github.com/ledgerchat/ledgerchat/internal/identity"

// Account is a funding account record. Balances pay for record storage.
type Account struct {
	Owner     identity.ID `json:"owner"`
	Balance   uint64      `json:"balance"`
	UpdatedAt int64       `json:"updated_at"` // Unix seconds
}
