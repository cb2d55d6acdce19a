package history

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a balance-affecting event
type TransactionType string

const (
	TransactionTypeEarn        TransactionType = "EARN"
	TransactionTypeSpend       TransactionType = "SPEND"
	TransactionTypeTransferIn  TransactionType = "TRANSFER_IN"
	TransactionTypeTransferOut TransactionType = "TRANSFER_OUT"
	TransactionTypeCollect     TransactionType = "COLLECT"
)

// Entry is an immutable audit record of one balance-affecting event.
// Entries are written exactly once per ledger mutation and never updated
// or deleted.
type Entry struct {
	ID              uuid.UUID       `json:"id" bson:"entry_id"`
	UserID          uuid.UUID       `json:"user_id" bson:"user_id"`
	SpaceID         int64           `json:"space_id" bson:"space_id"`
	TransactionType TransactionType `json:"transaction_type" bson:"transaction_type"`
	Amount          decimal.Decimal `json:"amount" bson:"amount"`
	BalanceBefore   decimal.Decimal `json:"balance_before" bson:"balance_before"`
	BalanceAfter    decimal.Decimal `json:"balance_after" bson:"balance_after"`
	ReferenceID     uuid.UUID       `json:"reference_id" bson:"reference_id"`
	Reason          string          `json:"reason" bson:"reason"`
	CorrelationID   string          `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
}

// SignedAmount returns the amount with the sign implied by the transaction
// type, so that summing signed amounts from zero reproduces the balance
func (e *Entry) SignedAmount() decimal.Decimal {
	switch e.TransactionType {
	case TransactionTypeEarn, TransactionTypeTransferIn:
		return e.Amount
	case TransactionTypeSpend, TransactionTypeTransferOut, TransactionTypeCollect:
		return e.Amount.Neg()
	default:
		return decimal.Zero
	}
}
