package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spacepoints-ledger/internal/domain/legacy"
	"github.com/spacepoints-ledger/internal/platform/persistence"
)

// LegacyBalanceRepository implements the legacy.Repository interface for
// PostgreSQL. The legacy_balances table keeps the old representation
// alive for consumers that still read it; the reconciliation engine
// treats it as a repairable mirror of the balances table.
type LegacyBalanceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLegacyBalanceRepository creates a new PostgreSQL legacy balance repository
func NewLegacyBalanceRepository(logger *slog.Logger, db *persistence.PostgresDB) legacy.Repository {
	return &LegacyBalanceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *LegacyBalanceRepository) WithTx(tx pgx.Tx) legacy.Repository {
	return &LegacyBalanceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Get retrieves a legacy balance record by its composite key
func (r *LegacyBalanceRepository) Get(ctx context.Context, userID uuid.UUID, spaceID int64) (*legacy.Balance, error) {
	query := `
		SELECT user_id, space_id, balance, total_earned, total_spent, updated_at
		FROM legacy_balances
		WHERE user_id = $1 AND space_id = $2
	`

	var b legacy.Balance
	err := r.querier.QueryRow(ctx, query, userID, spaceID).Scan(
		&b.UserID,
		&b.SpaceID,
		&b.Balance,
		&b.TotalEarned,
		&b.TotalSpent,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, legacy.ErrLegacyBalanceNotFound{UserID: userID, SpaceID: spaceID}
		}
		r.logger.Error("Failed to get legacy balance", "user_id", userID.String(), "space_id", spaceID, "error", err)
		return nil, fmt.Errorf("failed to get legacy balance: %w", err)
	}

	return &b, nil
}

// Save upserts the legacy record keyed on (user_id, space_id)
func (r *LegacyBalanceRepository) Save(ctx context.Context, b *legacy.Balance) error {
	query := `
		INSERT INTO legacy_balances (user_id, space_id, balance, total_earned, total_spent, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, space_id) DO UPDATE
		SET balance = EXCLUDED.balance,
		    total_earned = EXCLUDED.total_earned,
		    total_spent = EXCLUDED.total_spent,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.querier.Exec(ctx, query,
		b.UserID,
		b.SpaceID,
		b.Balance,
		b.TotalEarned,
		b.TotalSpent,
		b.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save legacy balance", "user_id", b.UserID.String(), "space_id", b.SpaceID, "error", err)
		return fmt.Errorf("failed to save legacy balance: %w", err)
	}

	return nil
}

// Count returns the number of legacy balance records
func (r *LegacyBalanceRepository) Count(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM legacy_balances`

	var count int64
	if err := r.querier.QueryRow(ctx, query).Scan(&count); err != nil {
		r.logger.Error("Failed to count legacy balance records", "error", err)
		return 0, fmt.Errorf("failed to count legacy balance records: %w", err)
	}

	return count, nil
}
