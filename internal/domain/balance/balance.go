package balance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spacepoints-ledger/internal/domain/shared"
)

// Balance tracks the spendable point quantity for a user within a space.
// CurrentBalance is always reconstructible by replaying the history log;
// TotalEarned only ever increases.
type Balance struct {
	UserID         uuid.UUID       `json:"user_id"`
	SpaceID        int64           `json:"space_id"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	Version        int             `json:"version"` // For optimistic locking
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewBalance creates a zero balance for the given user and space
func NewBalance(userID uuid.UUID, spaceID int64) *Balance {
	now := time.Now()
	return &Balance{
		UserID:         userID,
		SpaceID:        spaceID,
		CurrentBalance: decimal.Zero,
		TotalEarned:    decimal.Zero,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Credit adds the specified amount to the balance and to the lifetime
// earned total
func (b *Balance) Credit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.ErrInvalidAmount
	}

	b.CurrentBalance = b.CurrentBalance.Add(amount)
	b.TotalEarned = b.TotalEarned.Add(amount)
	b.UpdatedAt = time.Now()
	b.Version++
	return nil
}

// Debit subtracts the specified amount from the balance. Without force the
// debit fails when the balance is insufficient; with force the balance is
// clamped at zero and the actually deducted amount is returned.
func (b *Balance) Debit(amount decimal.Decimal, force bool) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, shared.ErrInvalidAmount
	}

	if b.CurrentBalance.LessThan(amount) {
		if !force {
			return decimal.Zero, ErrInsufficientBalance{
				UserID:    b.UserID,
				SpaceID:   b.SpaceID,
				Requested: amount,
				Available: b.CurrentBalance,
			}
		}
		deducted := b.CurrentBalance
		b.CurrentBalance = decimal.Zero
		b.UpdatedAt = time.Now()
		b.Version++
		return deducted, nil
	}

	b.CurrentBalance = b.CurrentBalance.Sub(amount)
	b.UpdatedAt = time.Now()
	b.Version++
	return amount, nil
}

// CanDebit checks if the balance covers the requested amount
func (b *Balance) CanDebit(amount decimal.Decimal) bool {
	return b.CurrentBalance.GreaterThanOrEqual(amount)
}
