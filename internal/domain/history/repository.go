package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages history entry persistence with pagination support.
// The log is append-only: there is no update or delete operation.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	GetByReferenceID(ctx context.Context, referenceID uuid.UUID) ([]*Entry, error)
	GetByUser(ctx context.Context, userID uuid.UUID, spaceID int64, limit, offset int) ([]*Entry, error)
	CountByUser(ctx context.Context, userID uuid.UUID, spaceID int64) (int64, error)
	GetByTimeRange(ctx context.Context, startTime, endTime time.Time, limit, offset int) ([]*Entry, error)
}

// ErrEntryNotFound indicates a missing history entry
type ErrEntryNotFound struct {
	ID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "history entry not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrDuplicateEntry indicates entry uniqueness violation, used for
// reference-based deduplication on republish
type ErrDuplicateEntry struct {
	ID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate history entry: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
