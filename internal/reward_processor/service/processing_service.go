package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spacepoints-ledger/internal/domain/reward"
	"github.com/spacepoints-ledger/internal/domain/shared"
	appservice "github.com/spacepoints-ledger/internal/service"
)

// RewardProcessingService settles queued reward requests through the
// reward service. Settlement is idempotent: a request that raced with an
// inline settlement or a redelivered message resolves to the existing
// COMPLETED record instead of a second credit.
type RewardProcessingService struct {
	rewardService appservice.RewardService
	logger        *slog.Logger
}

// NewRewardProcessingService creates a new processing service
func NewRewardProcessingService(logger *slog.Logger, rewardService appservice.RewardService) *RewardProcessingService {
	return &RewardProcessingService{
		rewardService: rewardService,
		logger:        logger,
	}
}

// ProcessReward settles one distribution. Requests that can never
// succeed are logged and dropped so the consumer commits the offset
// instead of redelivering them forever.
func (s *RewardProcessingService) ProcessReward(ctx context.Context, request *shared.RewardProcessRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	d, err := s.rewardService.Process(ctx, request.DistributionID, request.SettlementMarker, request.ProcessedBy)
	if err != nil {
		if errors.Is(err, reward.ErrDistributionNotFound{}) || errors.Is(err, reward.ErrInvalidStateTransition{}) {
			logger.Warn("Dropping unprocessable reward request",
				"distribution_id", request.DistributionID.String(),
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("settling distribution %s failed: %w", request.DistributionID.String(), err)
	}

	logger.Info("Settled reward distribution",
		"distribution_id", d.ID.String(),
		"user_id", d.UserID.String(),
		"space_id", d.SpaceID,
		"amount", d.Amount,
		"status", d.Status,
	)
	return nil
}
