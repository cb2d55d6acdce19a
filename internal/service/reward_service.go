package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spacepoints-ledger/internal/domain/reward"
	"github.com/spacepoints-ledger/internal/domain/shared"
	"github.com/spacepoints-ledger/internal/platform/messaging/producers"
)

// RewardServiceImpl implements the RewardService interface. Status
// transitions are persisted with a guard on the prior status, so two
// concurrent callers racing the same transition resolve to exactly one
// winner; the loser observes a state conflict.
type RewardServiceImpl struct {
	rewardRepo reward.Repository
	ledger     LedgerService
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewRewardService creates a new reward distribution service
func NewRewardService(logger *slog.Logger, rewardRepo reward.Repository, ledger LedgerService, producer producers.MessagePublisher) RewardService {
	return &RewardServiceImpl{
		rewardRepo: rewardRepo,
		ledger:     ledger,
		producer:   producer,
		logger:     logger,
	}
}

// Create records a new distribution in PENDING with its scoring snapshot
func (s *RewardServiceImpl) Create(ctx context.Context, userID uuid.UUID, spaceID int64, amount decimal.Decimal, category reward.Category, trigger reward.TriggerType, referenceID, reason string, qualityScore, engagementScore decimal.Decimal, expiresAt *time.Time) (*reward.Distribution, error) {
	d, err := reward.NewDistribution(userID, spaceID, amount, category, trigger, referenceID, reason, qualityScore, engagementScore, expiresAt)
	if err != nil {
		return nil, err
	}

	if err := s.rewardRepo.Create(ctx, d); err != nil {
		s.logger.Error("Failed to create reward distribution",
			"user_id", userID,
			"space_id", spaceID,
			"amount", amount,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Reward distribution created",
		"distribution_id", d.ID,
		"user_id", userID,
		"space_id", spaceID,
		"amount", amount,
		"category", string(category),
		"trigger_type", string(trigger),
	)
	return d, nil
}

// Approve moves a PENDING distribution to APPROVED
func (s *RewardServiceImpl) Approve(ctx context.Context, id uuid.UUID, approverID uuid.UUID, notes string) (*reward.Distribution, error) {
	d, err := s.rewardRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prior := d.Status
	if err := d.Approve(approverID, notes); err != nil {
		return nil, err
	}

	if err := s.rewardRepo.Update(ctx, d, prior); err != nil {
		if errors.Is(err, reward.ErrStatusConflict{}) {
			return nil, reward.ErrInvalidStateTransition{ID: id, From: prior, Attempted: reward.StatusApproved}
		}
		return nil, err
	}

	s.logger.Info("Reward distribution approved",
		"distribution_id", id,
		"approver_id", approverID,
	)
	return d, nil
}

// Process settles the distribution by crediting the recipient through
// the ledger. The ledger credit and the guarded COMPLETED write share one
// transaction, so either the whole settlement lands or the stored record
// keeps its prior status and a redelivery can settle it again; an already
// COMPLETED distribution is returned as-is.
func (s *RewardServiceImpl) Process(ctx context.Context, id uuid.UUID, settlementMarker string, processedBy uuid.UUID) (*reward.Distribution, error) {
	d, err := s.rewardRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if d.Status == reward.StatusCompleted {
		s.logger.Info("Reward distribution already completed, skipping",
			"distribution_id", id,
			"transaction_hash", d.TransactionHash,
		)
		return d, nil
	}
	if d.IsExpired() && d.IsProcessable() {
		return nil, reward.ErrInvalidStateTransition{ID: id, From: d.Status, Attempted: reward.StatusProcessing}
	}

	prior := d.Status
	if err := d.MarkProcessing(); err != nil {
		return nil, err
	}

	reason := fmt.Sprintf("Reward: %s", d.Reason)
	correlationID := d.ReferenceID
	settlementReached := false
	_, err = s.ledger.IssueWithSettlement(ctx, d.UserID, d.SpaceID, d.Amount, reason, d.ID, correlationID, func(tx pgx.Tx) error {
		settlementReached = true
		if err := d.MarkCompleted(settlementMarker, processedBy); err != nil {
			return err
		}
		// Guarded on the status read before the claim, so a concurrent
		// settlement of the same row loses here and its credit rolls back
		return s.rewardRepo.WithTx(tx).Update(ctx, d, prior)
	})
	if err != nil {
		if errors.Is(err, reward.ErrStatusConflict{}) {
			// Lost the guarded write; re-read so a completed race partner
			// still resolves idempotently
			current, readErr := s.rewardRepo.GetByID(ctx, id)
			if readErr == nil && current.Status == reward.StatusCompleted {
				return current, nil
			}
			return nil, reward.ErrInvalidStateTransition{ID: id, From: prior, Attempted: reward.StatusProcessing}
		}
		if !settlementReached {
			// The ledger refused the credit, so nothing was applied
			s.logger.Error("Failed to settle reward distribution through ledger",
				"distribution_id", id,
				"user_id", d.UserID,
				"amount", d.Amount,
				"error", err,
			)
			if failErr := d.MarkFailed(err.Error()); failErr == nil {
				if updateErr := s.rewardRepo.Update(ctx, d, prior); updateErr != nil {
					s.logger.Error("Failed to record reward distribution failure",
						"distribution_id", id, "error", updateErr)
				}
			}
			return nil, err
		}
		// The completion write failed and the credit rolled back with it;
		// the stored record kept its prior status so a retry is safe
		s.logger.Error("Failed to persist reward settlement, transaction rolled back",
			"distribution_id", id, "error", err)
		return nil, err
	}

	s.logger.Info("Reward distribution completed",
		"distribution_id", id,
		"user_id", d.UserID,
		"amount", d.Amount,
		"processed_by", processedBy,
	)
	return d, nil
}

// EnqueueProcess publishes an async settlement request for the reward
// processor instead of settling inline
func (s *RewardServiceImpl) EnqueueProcess(ctx context.Context, id uuid.UUID, settlementMarker string, processedBy uuid.UUID, correlationID string) error {
	d, err := s.rewardRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d.Status == reward.StatusCompleted {
		s.logger.Info("Reward distribution already completed, not enqueueing",
			"distribution_id", id)
		return nil
	}
	if !d.IsProcessable() {
		return reward.ErrInvalidStateTransition{ID: id, From: d.Status, Attempted: reward.StatusProcessing}
	}
	if s.producer == nil {
		return errors.New("no message producer configured for async settlement")
	}

	req := &shared.RewardProcessRequest{
		DistributionID:   id,
		SettlementMarker: settlementMarker,
		ProcessedBy:      processedBy,
		CorrelationID:    correlationID,
		Timestamp:        time.Now(),
	}
	if err := s.producer.Publish(ctx, id.String(), req); err != nil {
		s.logger.Error("Failed to publish reward process request",
			"distribution_id", id,
			"error", err,
		)
		return err
	}

	s.logger.Info("Reward process request published",
		"distribution_id", id,
		"processed_by", processedBy,
		"correlation_id", correlationID,
	)
	return nil
}

// Cancel transitions a not-yet-completed distribution to CANCELLED
func (s *RewardServiceImpl) Cancel(ctx context.Context, id uuid.UUID, reason string) (*reward.Distribution, error) {
	d, err := s.rewardRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prior := d.Status
	if err := d.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.rewardRepo.Update(ctx, d, prior); err != nil {
		if errors.Is(err, reward.ErrStatusConflict{}) {
			return nil, reward.ErrInvalidStateTransition{ID: id, From: prior, Attempted: reward.StatusCancelled}
		}
		return nil, err
	}

	s.logger.Info("Reward distribution cancelled", "distribution_id", id, "reason", reason)
	return d, nil
}

// ExpireOverdue sweeps distributions whose expiry deadline passed and
// marks them EXPIRED. Individual guard conflicts are skipped, another
// sweeper or a settlement won the row.
func (s *RewardServiceImpl) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	overdue, err := s.rewardRepo.ListExpirable(ctx, time.Now(), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, d := range overdue {
		prior := d.Status
		if err := d.MarkExpired(); err != nil {
			continue
		}
		if err := s.rewardRepo.Update(ctx, d, prior); err != nil {
			if errors.Is(err, reward.ErrStatusConflict{}) {
				continue
			}
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("Expired overdue reward distributions", "count", expired)
	}
	return expired, nil
}

// GetByID retrieves a distribution by its ID
func (s *RewardServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*reward.Distribution, error) {
	return s.rewardRepo.GetByID(ctx, id)
}

// GetByUser retrieves a paginated list of a user's distributions
func (s *RewardServiceImpl) GetByUser(ctx context.Context, userID uuid.UUID, spaceID int64, page, perPage int) ([]*reward.Distribution, error) {
	offset := (page - 1) * perPage
	return s.rewardRepo.GetByUser(ctx, userID, spaceID, perPage, offset)
}

// Statistics aggregates distribution activity over a time window
func (s *RewardServiceImpl) Statistics(ctx context.Context, spaceID int64, from, to time.Time) (*reward.Statistics, error) {
	return s.rewardRepo.Statistics(ctx, spaceID, from, to)
}
