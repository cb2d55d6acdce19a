package reward

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Statistics aggregates completed and approved distributions over a
// time window. Pure read-model, no invariants of its own.
type Statistics struct {
	TotalDistributions     int64           `json:"total_distributions"`
	CompletedDistributions int64           `json:"completed_distributions"`
	FailedDistributions    int64           `json:"failed_distributions"`
	TotalAmountDistributed decimal.Decimal `json:"total_amount_distributed"`
	AverageAmount          decimal.Decimal `json:"average_amount"`
}

// Repository defines reward distribution persistence operations.
// Status transitions are persisted with a guard on the expected prior
// status so concurrent duplicate transitions yield exactly one success.
type Repository interface {
	Create(ctx context.Context, d *Distribution) error
	GetByID(ctx context.Context, id uuid.UUID) (*Distribution, error)
	GetByUser(ctx context.Context, userID uuid.UUID, spaceID int64, limit, offset int) ([]*Distribution, error)
	GetByStatus(ctx context.Context, status Status, limit, offset int) ([]*Distribution, error)

	// Update persists the full record guarded on the expected prior
	// status. Returns ErrStatusConflict when no row matched the guard.
	Update(ctx context.Context, d *Distribution, expectedStatus Status) error

	// ListExpirable returns PENDING/APPROVED distributions whose expiry
	// deadline passed before the cutoff
	ListExpirable(ctx context.Context, cutoff time.Time, limit int) ([]*Distribution, error)

	Statistics(ctx context.Context, spaceID int64, from, to time.Time) (*Statistics, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrDistributionNotFound indicates a missing distribution record
type ErrDistributionNotFound struct {
	ID uuid.UUID
}

func (e ErrDistributionNotFound) Error() string {
	return "reward distribution not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrDistributionNotFound
func (e ErrDistributionNotFound) Is(target error) bool {
	t, ok := target.(ErrDistributionNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrStatusConflict indicates the status guard did not match: another
// caller transitioned the record first
type ErrStatusConflict struct {
	ID       uuid.UUID
	Expected Status
}

func (e ErrStatusConflict) Error() string {
	return fmt.Sprintf("reward distribution %s was not in expected status %s", e.ID, e.Expected)
}

// Is implements the errors.Is interface for ErrStatusConflict
func (e ErrStatusConflict) Is(target error) bool {
	t, ok := target.(ErrStatusConflict)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrInvalidStateTransition indicates a lifecycle method was called from
// a state that does not permit it
type ErrInvalidStateTransition struct {
	ID        uuid.UUID
	From      Status
	Attempted Status
}

func (e ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid reward distribution transition for %s: %s -> %s", e.ID, e.From, e.Attempted)
}

// Is implements the errors.Is interface for ErrInvalidStateTransition
func (e ErrInvalidStateTransition) Is(target error) bool {
	t, ok := target.(ErrInvalidStateTransition)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
