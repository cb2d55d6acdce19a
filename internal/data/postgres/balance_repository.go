// Package postgres provides PostgreSQL implementations of the domain repositories.
// It handles all database operations while maintaining transaction safety and
// proper error handling for the points ledger system.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spacepoints-ledger/internal/domain/balance"
	"github.com/spacepoints-ledger/internal/platform/persistence"
)

// BalanceRepository implements the balance.Repository interface for PostgreSQL
type BalanceRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBalanceRepository creates a new PostgreSQL balance repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewBalanceRepository(logger *slog.Logger, db *persistence.PostgresDB) balance.Repository {
	return &BalanceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic operations
// across multiple repository calls
func (r *BalanceRepository) WithTx(tx pgx.Tx) balance.Repository {
	return &BalanceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const balanceColumns = `user_id, space_id, current_balance, total_earned, version, created_at, updated_at`

// Get retrieves a balance by its composite key
func (r *BalanceRepository) Get(ctx context.Context, userID uuid.UUID, spaceID int64) (*balance.Balance, error) {
	query := `
		SELECT ` + balanceColumns + `
		FROM balances
		WHERE user_id = $1 AND space_id = $2
	`

	bal, err := r.scanOne(r.querier.QueryRow(ctx, query, userID, spaceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, balance.ErrBalanceNotFound{UserID: userID, SpaceID: spaceID}
		}
		r.logger.Error("Failed to get balance", "user_id", userID.String(), "space_id", spaceID, "error", err)
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	return bal, nil
}

// GetOrCreate atomically inserts a zero balance when none exists and
// returns the current record. The upsert makes two concurrent first
// reads converge on one row.
func (r *BalanceRepository) GetOrCreate(ctx context.Context, userID uuid.UUID, spaceID int64) (*balance.Balance, error) {
	if err := r.upsertZero(ctx, userID, spaceID); err != nil {
		return nil, err
	}
	return r.Get(ctx, userID, spaceID)
}

// LockOrCreate upserts a zero balance if needed, then obtains a
// pessimistic row lock. Must be called within a transaction.
func (r *BalanceRepository) LockOrCreate(ctx context.Context, userID uuid.UUID, spaceID int64) (*balance.Balance, error) {
	if err := r.upsertZero(ctx, userID, spaceID); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + balanceColumns + `
		FROM balances
		WHERE user_id = $1 AND space_id = $2
		FOR UPDATE
	`

	bal, err := r.scanOne(r.querier.QueryRow(ctx, query, userID, spaceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, balance.ErrBalanceNotFound{UserID: userID, SpaceID: spaceID}
		}
		r.logger.Error("Failed to lock balance for update", "user_id", userID.String(), "space_id", spaceID, "error", err)
		return nil, fmt.Errorf("failed to lock balance for update: %w", err)
	}

	return bal, nil
}

// Update persists a mutated balance using optimistic locking on the
// version column. Returns ErrConcurrentModification if the row was
// modified between read and update.
func (r *BalanceRepository) Update(ctx context.Context, bal *balance.Balance) error {
	query := `
		UPDATE balances
		SET current_balance = $1, total_earned = $2, version = $3, updated_at = $4
		WHERE user_id = $5 AND space_id = $6 AND version = $7
	`

	result, err := r.querier.Exec(ctx, query,
		bal.CurrentBalance,
		bal.TotalEarned,
		bal.Version,
		bal.UpdatedAt,
		bal.UserID,
		bal.SpaceID,
		bal.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update balance", "user_id", bal.UserID.String(), "space_id", bal.SpaceID, "error", err)
		return fmt.Errorf("failed to update balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return balance.ErrConcurrentModification{UserID: bal.UserID, SpaceID: bal.SpaceID}
	}

	return nil
}

// CountUsers returns the number of balance records in the store
func (r *BalanceRepository) CountUsers(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM balances`

	var count int64
	if err := r.querier.QueryRow(ctx, query).Scan(&count); err != nil {
		r.logger.Error("Failed to count balance records", "error", err)
		return 0, fmt.Errorf("failed to count balance records: %w", err)
	}

	return count, nil
}

// ListKeys returns a stable page of balance keys for scanning
func (r *BalanceRepository) ListKeys(ctx context.Context, limit, offset int) ([]balance.Key, error) {
	query := `
		SELECT user_id, space_id
		FROM balances
		ORDER BY user_id, space_id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list balance keys", "error", err)
		return nil, fmt.Errorf("failed to list balance keys: %w", err)
	}
	defer rows.Close()

	var keys []balance.Key
	for rows.Next() {
		var key balance.Key
		if err := rows.Scan(&key.UserID, &key.SpaceID); err != nil {
			return nil, fmt.Errorf("failed to scan balance key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over balance keys: %w", err)
	}

	return keys, nil
}

// upsertZero lazily creates a zero balance row. Creation is not a
// history-producing event.
func (r *BalanceRepository) upsertZero(ctx context.Context, userID uuid.UUID, spaceID int64) error {
	query := `
		INSERT INTO balances (user_id, space_id, current_balance, total_earned, version, created_at, updated_at)
		VALUES ($1, $2, 0, 0, 1, NOW(), NOW())
		ON CONFLICT (user_id, space_id) DO NOTHING
	`

	if _, err := r.querier.Exec(ctx, query, userID, spaceID); err != nil {
		r.logger.Error("Failed to upsert zero balance", "user_id", userID.String(), "space_id", spaceID, "error", err)
		return fmt.Errorf("failed to upsert zero balance: %w", err)
	}
	return nil
}

func (r *BalanceRepository) scanOne(row pgx.Row) (*balance.Balance, error) {
	var bal balance.Balance
	err := row.Scan(
		&bal.UserID,
		&bal.SpaceID,
		&bal.CurrentBalance,
		&bal.TotalEarned,
		&bal.Version,
		&bal.CreatedAt,
		&bal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bal, nil
}
