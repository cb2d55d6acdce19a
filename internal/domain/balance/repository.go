package balance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Key identifies a balance record
type Key struct {
	UserID  uuid.UUID
	SpaceID int64
}

// Repository defines balance persistence operations
type Repository interface {
	Get(ctx context.Context, userID uuid.UUID, spaceID int64) (*Balance, error)

	// GetOrCreate atomically inserts a zero balance when none exists and
	// returns the current record. Creation is an upsert so two concurrent
	// first reads cannot both insert.
	GetOrCreate(ctx context.Context, userID uuid.UUID, spaceID int64) (*Balance, error)

	// LockOrCreate upserts a zero balance if needed, then acquires a
	// pessimistic row lock. Must be called within a transaction.
	LockOrCreate(ctx context.Context, userID uuid.UUID, spaceID int64) (*Balance, error)

	// Update uses optimistic locking on the version column
	Update(ctx context.Context, bal *Balance) error

	CountUsers(ctx context.Context) (int64, error)
	ListKeys(ctx context.Context, limit, offset int) ([]Key, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrBalanceNotFound indicates a missing balance record
type ErrBalanceNotFound struct {
	UserID  uuid.UUID
	SpaceID int64
}

func (e ErrBalanceNotFound) Error() string {
	return fmt.Sprintf("balance not found for user %s in space %d", e.UserID, e.SpaceID)
}

// Is implements the errors.Is interface for ErrBalanceNotFound
func (e ErrBalanceNotFound) Is(target error) bool {
	t, ok := target.(ErrBalanceNotFound)
	if !ok {
		return false
	}
	if t.UserID == uuid.Nil {
		return true
	}
	return e.UserID == t.UserID && e.SpaceID == t.SpaceID
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	UserID  uuid.UUID
	SpaceID int64
}

func (e ErrConcurrentModification) Error() string {
	return fmt.Sprintf("concurrent modification detected for balance %s/%d", e.UserID, e.SpaceID)
}

// ErrInsufficientBalance indicates a debit beyond the available balance
// without a force override
type ErrInsufficientBalance struct {
	UserID    uuid.UUID
	SpaceID   int64
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance for user %s in space %d: requested %s, available %s",
		e.UserID, e.SpaceID, e.Requested, e.Available)
}

// Is implements the errors.Is interface for ErrInsufficientBalance
func (e ErrInsufficientBalance) Is(target error) bool {
	t, ok := target.(ErrInsufficientBalance)
	if !ok {
		return false
	}
	if t.UserID == uuid.Nil {
		return true
	}
	return e.UserID == t.UserID && e.SpaceID == t.SpaceID
}
