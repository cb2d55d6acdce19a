package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spacepoints-ledger/internal/domain/reward"
	"github.com/spacepoints-ledger/internal/platform/persistence"
)

// RewardRepository implements the reward.Repository interface for PostgreSQL
type RewardRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRewardRepository creates a new PostgreSQL reward distribution repository
func NewRewardRepository(logger *slog.Logger, db *persistence.PostgresDB) reward.Repository {
	return &RewardRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *RewardRepository) WithTx(tx pgx.Tx) reward.Repository {
	return &RewardRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const rewardColumns = `id, user_id, space_id, amount, category, trigger_type, reference_id, reason,
		quality_score, engagement_score, status, distribution_date, expires_at,
		approved_by, approved_at, approval_notes, processed_at, processed_by,
		transaction_hash, failure_reason, created_at, updated_at`

// Create stores a new reward distribution
func (r *RewardRepository) Create(ctx context.Context, d *reward.Distribution) error {
	query := `
		INSERT INTO reward_distributions (` + rewardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := r.querier.Exec(ctx, query,
		d.ID, d.UserID, d.SpaceID, d.Amount, d.Category, d.TriggerType, d.ReferenceID, d.Reason,
		d.QualityScore, d.EngagementScore, d.Status, d.DistributionDate, d.ExpiresAt,
		d.ApprovedBy, d.ApprovedAt, d.ApprovalNotes, d.ProcessedAt, d.ProcessedBy,
		d.TransactionHash, d.FailureReason, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create reward distribution", "distribution_id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to create reward distribution: %w", err)
	}

	return nil
}

// GetByID retrieves a reward distribution by its ID
func (r *RewardRepository) GetByID(ctx context.Context, id uuid.UUID) (*reward.Distribution, error) {
	query := `
		SELECT ` + rewardColumns + `
		FROM reward_distributions
		WHERE id = $1
	`

	d, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, reward.ErrDistributionNotFound{ID: id}
		}
		r.logger.Error("Failed to get reward distribution", "distribution_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get reward distribution: %w", err)
	}

	return d, nil
}

// GetByUser retrieves a paginated list of a user's distributions, newest first
func (r *RewardRepository) GetByUser(ctx context.Context, userID uuid.UUID, spaceID int64, limit, offset int) ([]*reward.Distribution, error) {
	query := `
		SELECT ` + rewardColumns + `
		FROM reward_distributions
		WHERE user_id = $1 AND space_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.querier.Query(ctx, query, userID, spaceID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get reward distributions by user", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get reward distributions by user: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// GetByStatus retrieves distributions in the given status, oldest first
func (r *RewardRepository) GetByStatus(ctx context.Context, status reward.Status, limit, offset int) ([]*reward.Distribution, error) {
	query := `
		SELECT ` + rewardColumns + `
		FROM reward_distributions
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, status, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get reward distributions by status", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to get reward distributions by status: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// Update persists the full record guarded on the expected prior status.
// Returns ErrStatusConflict when no row matched the guard, so concurrent
// transitions from the same state resolve to exactly one winner.
func (r *RewardRepository) Update(ctx context.Context, d *reward.Distribution, expectedStatus reward.Status) error {
	query := `
		UPDATE reward_distributions
		SET status = $1, expires_at = $2, approved_by = $3, approved_at = $4, approval_notes = $5,
		    processed_at = $6, processed_by = $7, transaction_hash = $8, failure_reason = $9, updated_at = $10
		WHERE id = $11 AND status = $12
	`

	result, err := r.querier.Exec(ctx, query,
		d.Status, d.ExpiresAt, d.ApprovedBy, d.ApprovedAt, d.ApprovalNotes,
		d.ProcessedAt, d.ProcessedBy, d.TransactionHash, d.FailureReason, d.UpdatedAt,
		d.ID, expectedStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update reward distribution", "distribution_id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to update reward distribution: %w", err)
	}

	if result.RowsAffected() == 0 {
		return reward.ErrStatusConflict{ID: d.ID, Expected: expectedStatus}
	}

	return nil
}

// ListExpirable returns PENDING or APPROVED distributions whose expiry
// deadline passed before the cutoff
func (r *RewardRepository) ListExpirable(ctx context.Context, cutoff time.Time, limit int) ([]*reward.Distribution, error) {
	query := `
		SELECT ` + rewardColumns + `
		FROM reward_distributions
		WHERE status IN ($1, $2) AND expires_at IS NOT NULL AND expires_at < $3
		ORDER BY expires_at ASC
		LIMIT $4
	`

	rows, err := r.querier.Query(ctx, query, reward.StatusPending, reward.StatusApproved, cutoff, limit)
	if err != nil {
		r.logger.Error("Failed to list expirable reward distributions", "error", err)
		return nil, fmt.Errorf("failed to list expirable reward distributions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// Statistics aggregates distribution activity for a space over a window
func (r *RewardRepository) Statistics(ctx context.Context, spaceID int64, from, to time.Time) (*reward.Statistics, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $1),
		       COUNT(*) FILTER (WHERE status = $2),
		       COALESCE(SUM(amount) FILTER (WHERE status = $1), 0),
		       COALESCE(AVG(amount) FILTER (WHERE status = $1), 0)
		FROM reward_distributions
		WHERE space_id = $3 AND created_at >= $4 AND created_at < $5
	`

	var stats reward.Statistics
	err := r.querier.QueryRow(ctx, query,
		reward.StatusCompleted, reward.StatusFailed, spaceID, from, to,
	).Scan(
		&stats.TotalDistributions,
		&stats.CompletedDistributions,
		&stats.FailedDistributions,
		&stats.TotalAmountDistributed,
		&stats.AverageAmount,
	)
	if err != nil {
		r.logger.Error("Failed to aggregate reward statistics", "space_id", spaceID, "error", err)
		return nil, fmt.Errorf("failed to aggregate reward statistics: %w", err)
	}

	return &stats, nil
}

func (r *RewardRepository) scanOne(row pgx.Row) (*reward.Distribution, error) {
	var d reward.Distribution
	err := row.Scan(
		&d.ID, &d.UserID, &d.SpaceID, &d.Amount, &d.Category, &d.TriggerType, &d.ReferenceID, &d.Reason,
		&d.QualityScore, &d.EngagementScore, &d.Status, &d.DistributionDate, &d.ExpiresAt,
		&d.ApprovedBy, &d.ApprovedAt, &d.ApprovalNotes, &d.ProcessedAt, &d.ProcessedBy,
		&d.TransactionHash, &d.FailureReason, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *RewardRepository) scanAll(rows pgx.Rows) ([]*reward.Distribution, error) {
	var distributions []*reward.Distribution
	for rows.Next() {
		d, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward distribution: %w", err)
		}
		distributions = append(distributions, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over reward distributions: %w", err)
	}

	return distributions, nil
}
