package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spacepoints-ledger/internal/domain/burn"
)

// BurnServiceImpl implements the BurnService interface. Burns apply to
// aggregate supply accounting only and never touch the ledger, so the
// workflow is pure state machine over the decision records.
type BurnServiceImpl struct {
	burnRepo burn.Repository
	logger   *slog.Logger
}

// NewBurnService creates a new burn decision service
func NewBurnService(logger *slog.Logger, burnRepo burn.Repository) BurnService {
	return &BurnServiceImpl{
		burnRepo: burnRepo,
		logger:   logger,
	}
}

// CreateManual records an operator-raised burn proposal in PENDING
func (s *BurnServiceImpl) CreateManual(ctx context.Context, spaceID int64, proposedAmount, supplyBefore decimal.Decimal, trigger burn.TriggerReason, rationale string) (*burn.Decision, error) {
	d, err := burn.NewManualDecision(spaceID, proposedAmount, supplyBefore, trigger, rationale)
	if err != nil {
		return nil, err
	}
	return s.persistNew(ctx, d)
}

// CreateAiAuto records an automated burn proposal in PENDING, keeping
// the confidence score and indicator snapshot for audit. The proposal
// still waits for human approval like a manual one.
func (s *BurnServiceImpl) CreateAiAuto(ctx context.Context, spaceID int64, proposedAmount, supplyBefore decimal.Decimal, trigger burn.TriggerReason, confidenceScore decimal.Decimal, economicIndicators, rationale string) (*burn.Decision, error) {
	d, err := burn.NewAiDecision(spaceID, proposedAmount, supplyBefore, trigger, confidenceScore, economicIndicators, rationale)
	if err != nil {
		return nil, err
	}
	return s.persistNew(ctx, d)
}

func (s *BurnServiceImpl) persistNew(ctx context.Context, d *burn.Decision) (*burn.Decision, error) {
	if err := s.burnRepo.Create(ctx, d); err != nil {
		s.logger.Error("Failed to create burn decision",
			"space_id", d.SpaceID,
			"proposed_amount", d.ProposedBurnAmount,
			"decision_type", string(d.DecisionType),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Burn decision created",
		"decision_id", d.ID,
		"space_id", d.SpaceID,
		"proposed_amount", d.ProposedBurnAmount,
		"decision_type", string(d.DecisionType),
		"trigger_reason", string(d.TriggerReason),
	)
	return d, nil
}

// Approve moves a PENDING decision to APPROVED
func (s *BurnServiceImpl) Approve(ctx context.Context, id uuid.UUID, approverID uuid.UUID, notes string) (*burn.Decision, error) {
	return s.transition(ctx, id, burn.StatusApproved, func(d *burn.Decision) error {
		return d.Approve(approverID, notes)
	})
}

// Reject moves a PENDING decision to REJECTED; terminal
func (s *BurnServiceImpl) Reject(ctx context.Context, id uuid.UUID, rejectorID uuid.UUID, reason string) (*burn.Decision, error) {
	return s.transition(ctx, id, burn.StatusRejected, func(d *burn.Decision) error {
		return d.Reject(rejectorID, reason)
	})
}

// StartExecution moves an APPROVED decision to EXECUTING
func (s *BurnServiceImpl) StartExecution(ctx context.Context, id uuid.UUID, executorID uuid.UUID) (*burn.Decision, error) {
	return s.transition(ctx, id, burn.StatusExecuting, func(d *burn.Decision) error {
		return d.StartExecution(executorID)
	})
}

// CompleteExecution moves an EXECUTING decision to COMPLETED with the
// realized burn amount, which may differ from the proposed one
func (s *BurnServiceImpl) CompleteExecution(ctx context.Context, id uuid.UUID, actualBurnAmount, supplyAfter decimal.Decimal, settlementMarker string) (*burn.Decision, error) {
	d, err := s.transition(ctx, id, burn.StatusCompleted, func(d *burn.Decision) error {
		return d.CompleteExecution(actualBurnAmount, supplyAfter, settlementMarker)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Burn executed",
		"decision_id", id,
		"proposed_amount", d.ProposedBurnAmount,
		"actual_amount", d.ActualBurnAmount,
		"supply_after", d.CirculatingSupplyAfter,
	)
	return d, nil
}

// transition loads the decision, applies the lifecycle move, and
// persists it guarded on the observed prior status. A guard miss is
// reported as an invalid transition, same as a stale lifecycle call.
func (s *BurnServiceImpl) transition(ctx context.Context, id uuid.UUID, target burn.Status, apply func(*burn.Decision) error) (*burn.Decision, error) {
	d, err := s.burnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prior := d.Status
	if err := apply(d); err != nil {
		return nil, err
	}

	if err := s.burnRepo.Update(ctx, d, prior); err != nil {
		if errors.Is(err, burn.ErrStatusConflict{}) {
			return nil, burn.ErrInvalidStateTransition{ID: id, From: prior, Attempted: target}
		}
		s.logger.Error("Failed to persist burn decision transition",
			"decision_id", id,
			"target_status", string(target),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Burn decision transitioned",
		"decision_id", id,
		"from", string(prior),
		"to", string(d.Status),
	)
	return d, nil
}

// GetByID retrieves a burn decision by its ID
func (s *BurnServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*burn.Decision, error) {
	return s.burnRepo.GetByID(ctx, id)
}

// GetBySpace retrieves a paginated list of a space's burn decisions
func (s *BurnServiceImpl) GetBySpace(ctx context.Context, spaceID int64, page, perPage int) ([]*burn.Decision, error) {
	offset := (page - 1) * perPage
	return s.burnRepo.GetBySpace(ctx, spaceID, perPage, offset)
}

// Statistics aggregates burn activity for a space
func (s *BurnServiceImpl) Statistics(ctx context.Context, spaceID int64) (*burn.Statistics, error) {
	return s.burnRepo.Statistics(ctx, spaceID)
}

// HighValue lists completed decisions whose realized amount meets the
// threshold
func (s *BurnServiceImpl) HighValue(ctx context.Context, threshold decimal.Decimal, limit int) ([]*burn.Decision, error) {
	return s.burnRepo.HighValue(ctx, threshold, limit)
}
