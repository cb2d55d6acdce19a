package burn

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Statistics aggregates completed and in-flight burn activity for a space
type Statistics struct {
	SpaceID            int64           `json:"space_id"`
	TotalDecisions     int64           `json:"total_decisions"`
	PendingCount       int64           `json:"pending_count"`
	CompletedCount     int64           `json:"completed_count"`
	RejectedCount      int64           `json:"rejected_count"`
	TotalBurned        decimal.Decimal `json:"total_burned"`
	AverageBurnRate    decimal.Decimal `json:"average_burn_rate"`
	LastCompletedAt    *time.Time      `json:"last_completed_at,omitempty"`
}

// Repository defines burn decision persistence. Update takes the status
// the caller observed before mutating; the store applies the change only
// if the row still carries that status, so concurrent approvals or
// executions resolve to exactly one winner.
type Repository interface {
	Create(ctx context.Context, d *Decision) error
	GetByID(ctx context.Context, id uuid.UUID) (*Decision, error)
	GetBySpace(ctx context.Context, spaceID int64, limit, offset int) ([]*Decision, error)
	GetByStatus(ctx context.Context, status Status, limit, offset int) ([]*Decision, error)
	Update(ctx context.Context, d *Decision, expectedStatus Status) error
	Statistics(ctx context.Context, spaceID int64) (*Statistics, error)
	HighValue(ctx context.Context, threshold decimal.Decimal, limit int) ([]*Decision, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrDecisionNotFound indicates no burn decision exists for the given ID
type ErrDecisionNotFound struct {
	ID uuid.UUID
}

func (e ErrDecisionNotFound) Error() string {
	return fmt.Sprintf("burn decision not found: %s", e.ID)
}

func (e ErrDecisionNotFound) Is(target error) bool {
	_, ok := target.(ErrDecisionNotFound)
	return ok
}

// ErrStatusConflict indicates a guarded update lost to a concurrent
// transition; the caller should re-read and re-evaluate
type ErrStatusConflict struct {
	ID       uuid.UUID
	Expected Status
}

func (e ErrStatusConflict) Error() string {
	return fmt.Sprintf("burn decision %s no longer in status %s", e.ID, e.Expected)
}

func (e ErrStatusConflict) Is(target error) bool {
	_, ok := target.(ErrStatusConflict)
	return ok
}

// ErrInvalidStateTransition indicates a lifecycle move the state machine
// does not permit
type ErrInvalidStateTransition struct {
	ID        uuid.UUID
	From      Status
	Attempted Status
}

func (e ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("burn decision %s cannot move from %s to %s", e.ID, e.From, e.Attempted)
}

func (e ErrInvalidStateTransition) Is(target error) bool {
	_, ok := target.(ErrInvalidStateTransition)
	return ok
}
