package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spacepoints-ledger/internal/domain/burn"
	"github.com/spacepoints-ledger/internal/platform/persistence"
)

// BurnRepository implements the burn.Repository interface for PostgreSQL
type BurnRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBurnRepository creates a new PostgreSQL burn decision repository
func NewBurnRepository(logger *slog.Logger, db *persistence.PostgresDB) burn.Repository {
	return &BurnRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *BurnRepository) WithTx(tx pgx.Tx) burn.Repository {
	return &BurnRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const burnColumns = `id, space_id, proposed_burn_amount, burn_rate_proposed, circulating_supply_before,
		circulating_supply_after, decision_type, trigger_reason, ai_confidence_score, economic_indicators,
		decision_rationale, status, approver_id, approved_at, approval_notes, rejection_reason,
		executor_id, started_at, actual_burn_amount, burn_rate_actual, transaction_hash, executed_at,
		created_at, updated_at`

// Create stores a new burn decision
func (r *BurnRepository) Create(ctx context.Context, d *burn.Decision) error {
	query := `
		INSERT INTO burn_decisions (` + burnColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`

	_, err := r.querier.Exec(ctx, query,
		d.ID, d.SpaceID, d.ProposedBurnAmount, d.BurnRateProposed, d.CirculatingSupplyBefore,
		d.CirculatingSupplyAfter, d.DecisionType, d.TriggerReason, d.AiConfidenceScore, d.EconomicIndicators,
		d.DecisionRationale, d.Status, d.ApproverID, d.ApprovedAt, d.ApprovalNotes, d.RejectionReason,
		d.ExecutorID, d.StartedAt, d.ActualBurnAmount, d.BurnRateActual, d.TransactionHash, d.ExecutedAt,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create burn decision", "decision_id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to create burn decision: %w", err)
	}

	return nil
}

// GetByID retrieves a burn decision by its ID
func (r *BurnRepository) GetByID(ctx context.Context, id uuid.UUID) (*burn.Decision, error) {
	query := `
		SELECT ` + burnColumns + `
		FROM burn_decisions
		WHERE id = $1
	`

	d, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, burn.ErrDecisionNotFound{ID: id}
		}
		r.logger.Error("Failed to get burn decision", "decision_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get burn decision: %w", err)
	}

	return d, nil
}

// GetBySpace retrieves a paginated list of a space's decisions, newest first
func (r *BurnRepository) GetBySpace(ctx context.Context, spaceID int64, limit, offset int) ([]*burn.Decision, error) {
	query := `
		SELECT ` + burnColumns + `
		FROM burn_decisions
		WHERE space_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, spaceID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get burn decisions by space", "space_id", spaceID, "error", err)
		return nil, fmt.Errorf("failed to get burn decisions by space: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// GetByStatus retrieves decisions in the given status, oldest first
func (r *BurnRepository) GetByStatus(ctx context.Context, status burn.Status, limit, offset int) ([]*burn.Decision, error) {
	query := `
		SELECT ` + burnColumns + `
		FROM burn_decisions
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, status, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get burn decisions by status", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to get burn decisions by status: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// Update persists the full record guarded on the expected prior status.
// Returns ErrStatusConflict when no row matched the guard.
func (r *BurnRepository) Update(ctx context.Context, d *burn.Decision, expectedStatus burn.Status) error {
	query := `
		UPDATE burn_decisions
		SET circulating_supply_after = $1, status = $2, approver_id = $3, approved_at = $4,
		    approval_notes = $5, rejection_reason = $6, executor_id = $7, started_at = $8,
		    actual_burn_amount = $9, burn_rate_actual = $10, transaction_hash = $11, executed_at = $12,
		    updated_at = $13
		WHERE id = $14 AND status = $15
	`

	result, err := r.querier.Exec(ctx, query,
		d.CirculatingSupplyAfter, d.Status, d.ApproverID, d.ApprovedAt,
		d.ApprovalNotes, d.RejectionReason, d.ExecutorID, d.StartedAt,
		d.ActualBurnAmount, d.BurnRateActual, d.TransactionHash, d.ExecutedAt,
		d.UpdatedAt,
		d.ID, expectedStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update burn decision", "decision_id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to update burn decision: %w", err)
	}

	if result.RowsAffected() == 0 {
		return burn.ErrStatusConflict{ID: d.ID, Expected: expectedStatus}
	}

	return nil
}

// Statistics aggregates burn activity for a space
func (r *BurnRepository) Statistics(ctx context.Context, spaceID int64) (*burn.Statistics, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $1),
		       COUNT(*) FILTER (WHERE status = $2),
		       COUNT(*) FILTER (WHERE status = $3),
		       COALESCE(SUM(actual_burn_amount) FILTER (WHERE status = $2), 0),
		       COALESCE(AVG(burn_rate_actual) FILTER (WHERE status = $2), 0),
		       MAX(executed_at) FILTER (WHERE status = $2)
		FROM burn_decisions
		WHERE space_id = $4
	`

	stats := burn.Statistics{SpaceID: spaceID}
	err := r.querier.QueryRow(ctx, query,
		burn.StatusPending, burn.StatusCompleted, burn.StatusRejected, spaceID,
	).Scan(
		&stats.TotalDecisions,
		&stats.PendingCount,
		&stats.CompletedCount,
		&stats.RejectedCount,
		&stats.TotalBurned,
		&stats.AverageBurnRate,
		&stats.LastCompletedAt,
	)
	if err != nil {
		r.logger.Error("Failed to aggregate burn statistics", "space_id", spaceID, "error", err)
		return nil, fmt.Errorf("failed to aggregate burn statistics: %w", err)
	}

	return &stats, nil
}

// HighValue lists completed decisions whose realized amount meets the
// threshold, largest first
func (r *BurnRepository) HighValue(ctx context.Context, threshold decimal.Decimal, limit int) ([]*burn.Decision, error) {
	query := `
		SELECT ` + burnColumns + `
		FROM burn_decisions
		WHERE status = $1 AND actual_burn_amount >= $2
		ORDER BY actual_burn_amount DESC
		LIMIT $3
	`

	rows, err := r.querier.Query(ctx, query, burn.StatusCompleted, threshold, limit)
	if err != nil {
		r.logger.Error("Failed to list high value burn decisions", "error", err)
		return nil, fmt.Errorf("failed to list high value burn decisions: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *BurnRepository) scanOne(row pgx.Row) (*burn.Decision, error) {
	var d burn.Decision
	err := row.Scan(
		&d.ID, &d.SpaceID, &d.ProposedBurnAmount, &d.BurnRateProposed, &d.CirculatingSupplyBefore,
		&d.CirculatingSupplyAfter, &d.DecisionType, &d.TriggerReason, &d.AiConfidenceScore, &d.EconomicIndicators,
		&d.DecisionRationale, &d.Status, &d.ApproverID, &d.ApprovedAt, &d.ApprovalNotes, &d.RejectionReason,
		&d.ExecutorID, &d.StartedAt, &d.ActualBurnAmount, &d.BurnRateActual, &d.TransactionHash, &d.ExecutedAt,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *BurnRepository) scanAll(rows pgx.Rows) ([]*burn.Decision, error) {
	var decisions []*burn.Decision
	for rows.Next() {
		d, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan burn decision: %w", err)
		}
		decisions = append(decisions, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over burn decisions: %w", err)
	}

	return decisions, nil
}
