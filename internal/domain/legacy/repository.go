package legacy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists the legacy mirror. Save is an upsert keyed on
// (user_id, space_id); mirror writes must never fail a primary-path
// transaction, so callers decide whether an error here is fatal.
type Repository interface {
	Get(ctx context.Context, userID uuid.UUID, spaceID int64) (*Balance, error)
	Save(ctx context.Context, b *Balance) error
	Count(ctx context.Context) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrLegacyBalanceNotFound indicates no legacy record exists for the
// user and space
type ErrLegacyBalanceNotFound struct {
	UserID  uuid.UUID
	SpaceID int64
}

func (e ErrLegacyBalanceNotFound) Error() string {
	return fmt.Sprintf("legacy balance not found for user %s in space %d", e.UserID, e.SpaceID)
}

func (e ErrLegacyBalanceNotFound) Is(target error) bool {
	_, ok := target.(ErrLegacyBalanceNotFound)
	return ok
}
