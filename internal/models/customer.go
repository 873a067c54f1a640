package models

import "time"

// Customer is a loyalty account, keyed in the customer map by display name.
type Customer struct {
	Purchase float64 `json:"purchase"`
	Points   float64 `json:"points"`
	Redeemed float64 `json:"redeemed"`
}

// TransactionType enumerates ledger entry kinds.
type TransactionType string

const (
	TransactionAdd     TransactionType = "add"
	TransactionRedeem  TransactionType = "redeem"
	TransactionAdjust  TransactionType = "adjust"
	TransactionRestore TransactionType = "restore"
)

// Transaction is an immutable ledger entry. The timestamp doubles as the
// entry's identity while it is live for undo.
type Transaction struct {
	Type      TransactionType `json:"type"`
	Name      string          `json:"name"`
	Amount    float64         `json:"amount,omitempty"`
	Points    float64         `json:"points,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// DeletedCustomer archives a removed customer together with their
// transaction history so the record can be restored later.
type DeletedCustomer struct {
	Data    Customer      `json:"data"`
	History []Transaction `json:"history"`
}
