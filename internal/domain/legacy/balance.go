// Package legacy holds the secondary balance representation kept for
// backward compatibility. The primary store in the balance package is
// canonical; rows here are written on the legacy mirror path and checked
// against the primary by the reconciliation service.
package legacy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance is the legacy per-user, per-space record. It tracks spend
// totals separately instead of deriving them, which is the usual source
// of drift against the primary store.
type Balance struct {
	UserID      uuid.UUID       `json:"user_id"`
	SpaceID     int64           `json:"space_id"`
	Balance     decimal.Decimal `json:"balance"`
	TotalEarned decimal.Decimal `json:"total_earned"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewBalance returns a zeroed legacy record
func NewBalance(userID uuid.UUID, spaceID int64) *Balance {
	return &Balance{
		UserID:      userID,
		SpaceID:     spaceID,
		Balance:     decimal.Zero,
		TotalEarned: decimal.Zero,
		TotalSpent:  decimal.Zero,
		UpdatedAt:   time.Now(),
	}
}

// ApplyEarn mirrors a credit onto the legacy record
func (b *Balance) ApplyEarn(amount decimal.Decimal) {
	b.Balance = b.Balance.Add(amount)
	b.TotalEarned = b.TotalEarned.Add(amount)
	b.UpdatedAt = time.Now()
}

// ApplySpend mirrors a debit onto the legacy record. The legacy schema
// never clamped, so balances here can go negative; reconciliation treats
// the primary store as truth.
func (b *Balance) ApplySpend(amount decimal.Decimal) {
	b.Balance = b.Balance.Sub(amount)
	b.TotalSpent = b.TotalSpent.Add(amount)
	b.UpdatedAt = time.Now()
}

// Overwrite replaces the record's figures with the primary store's
// values, used by reconciliation repair
func (b *Balance) Overwrite(balance, totalEarned decimal.Decimal) {
	b.Balance = balance
	b.TotalEarned = totalEarned
	b.TotalSpent = totalEarned.Sub(balance)
	b.UpdatedAt = time.Now()
}
