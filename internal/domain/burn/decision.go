package burn

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spacepoints-ledger/internal/domain/shared"
)

// DecisionType records whether a supply-reduction proposal was raised by
// an operator or generated by the automated economic model
type DecisionType string

const (
	DecisionManual DecisionType = "MANUAL"
	DecisionAiAuto DecisionType = "AI_AUTO"
)

// TriggerReason classifies why a burn was proposed
type TriggerReason string

const (
	TriggerInflationControl TriggerReason = "INFLATION_CONTROL"
	TriggerExcessSupply     TriggerReason = "EXCESS_SUPPLY"
	TriggerLowActivity      TriggerReason = "LOW_ACTIVITY"
	TriggerMarketCorrection TriggerReason = "MARKET_CORRECTION"
	TriggerTokenomics       TriggerReason = "TOKENOMICS_BALANCE"
	TriggerGovernance       TriggerReason = "GOVERNANCE_MANDATE"
	TriggerSecurityMeasure  TriggerReason = "SECURITY_MEASURE"
	TriggerEcosystemHealth  TriggerReason = "ECOSYSTEM_HEALTH"
)

// ParseTriggerReason validates a raw trigger reason string
func ParseTriggerReason(s string) (TriggerReason, error) {
	switch t := TriggerReason(s); t {
	case TriggerInflationControl, TriggerExcessSupply, TriggerLowActivity,
		TriggerMarketCorrection, TriggerTokenomics, TriggerGovernance,
		TriggerSecurityMeasure, TriggerEcosystemHealth:
		return t, nil
	default:
		return "", shared.ValidationError{Field: "trigger_reason", Message: "unknown trigger reason " + s}
	}
}

// Status defines the burn decision lifecycle states
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusExecuting Status = "EXECUTING"
	StatusCompleted Status = "COMPLETED"
)

// burnRateScale is the precision used for proposed/actual burn rates
const burnRateScale = 6

// Decision is one governance-gated supply-reduction proposal. Burns apply
// to aggregate supply accounting, not individual user balances. The
// realized burn amount is independent of the proposed one: execution may
// only partially fulfill a proposal.
type Decision struct {
	ID                      uuid.UUID       `json:"id"`
	SpaceID                 int64           `json:"space_id"`
	ProposedBurnAmount      decimal.Decimal `json:"proposed_burn_amount"`
	BurnRateProposed        decimal.Decimal `json:"burn_rate_proposed"`
	CirculatingSupplyBefore decimal.Decimal `json:"circulating_supply_before"`
	CirculatingSupplyAfter  decimal.Decimal `json:"circulating_supply_after"` // set only on completion
	DecisionType            DecisionType    `json:"decision_type"`
	TriggerReason           TriggerReason   `json:"trigger_reason"`
	AiConfidenceScore       decimal.Decimal `json:"ai_confidence_score"`          // AI-originated decisions only
	EconomicIndicators      string          `json:"economic_indicators,omitempty"` // raw indicator snapshot, AI path
	DecisionRationale       string          `json:"decision_rationale"`
	Status                  Status          `json:"status"`
	ApproverID              *uuid.UUID      `json:"approver_id,omitempty"`
	ApprovedAt              *time.Time      `json:"approved_at,omitempty"`
	ApprovalNotes           string          `json:"approval_notes,omitempty"`
	RejectionReason         string          `json:"rejection_reason,omitempty"`
	ExecutorID              *uuid.UUID      `json:"executor_id,omitempty"`
	StartedAt               *time.Time      `json:"started_at,omitempty"`
	ActualBurnAmount        decimal.Decimal `json:"actual_burn_amount"`
	BurnRateActual          decimal.Decimal `json:"burn_rate_actual"`
	TransactionHash         string          `json:"transaction_hash,omitempty"` // opaque settlement marker
	ExecutedAt              *time.Time      `json:"executed_at,omitempty"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

func newDecision(spaceID int64, proposedAmount, supplyBefore decimal.Decimal, decisionType DecisionType, trigger TriggerReason, rationale string) (*Decision, error) {
	if proposedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.ErrInvalidAmount
	}
	if supplyBefore.LessThanOrEqual(decimal.Zero) {
		return nil, shared.ValidationError{Field: "circulating_supply_before", Message: "must be positive"}
	}
	if rationale == "" {
		return nil, shared.ValidationError{Field: "decision_rationale", Message: "is required"}
	}

	now := time.Now()
	return &Decision{
		ID:                      uuid.New(),
		SpaceID:                 spaceID,
		ProposedBurnAmount:      proposedAmount,
		BurnRateProposed:        proposedAmount.DivRound(supplyBefore, burnRateScale),
		CirculatingSupplyBefore: supplyBefore,
		DecisionType:            decisionType,
		TriggerReason:           trigger,
		DecisionRationale:       rationale,
		Status:                  StatusPending,
		CreatedAt:               now,
		UpdatedAt:               now,
	}, nil
}

// NewManualDecision creates an operator-raised proposal in PENDING
func NewManualDecision(spaceID int64, proposedAmount, supplyBefore decimal.Decimal, trigger TriggerReason, rationale string) (*Decision, error) {
	return newDecision(spaceID, proposedAmount, supplyBefore, DecisionManual, trigger, rationale)
}

// NewAiDecision creates an automated proposal in PENDING, keeping the
// confidence score and the raw indicator snapshot for later audit.
// AI proposals still require human approval before execution.
func NewAiDecision(spaceID int64, proposedAmount, supplyBefore decimal.Decimal, trigger TriggerReason, confidenceScore decimal.Decimal, economicIndicators, rationale string) (*Decision, error) {
	if confidenceScore.LessThan(decimal.Zero) || confidenceScore.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.ValidationError{Field: "ai_confidence_score", Message: "must be between 0 and 1"}
	}

	d, err := newDecision(spaceID, proposedAmount, supplyBefore, DecisionAiAuto, trigger, rationale)
	if err != nil {
		return nil, err
	}
	d.AiConfidenceScore = confidenceScore
	d.EconomicIndicators = economicIndicators
	return d, nil
}

// Approve transitions PENDING -> APPROVED only
func (d *Decision) Approve(approverID uuid.UUID, notes string) error {
	if d.Status != StatusPending {
		return ErrInvalidStateTransition{ID: d.ID, From: d.Status, Attempted: StatusApproved}
	}
	now := time.Now()
	d.Status = StatusApproved
	d.ApproverID = &approverID
	d.ApprovedAt = &now
	d.ApprovalNotes = notes
	d.UpdatedAt = now
	return nil
}

// Reject transitions PENDING -> REJECTED; terminal, reason mandatory
func (d *Decision) Reject(rejectorID uuid.UUID, reason string) error {
	if reason == "" {
		return shared.ValidationError{Field: "rejection_reason", Message: "is required"}
	}
	if d.Status != StatusPending {
		return ErrInvalidStateTransition{ID: d.ID, From: d.Status, Attempted: StatusRejected}
	}
	now := time.Now()
	d.Status = StatusRejected
	d.ApproverID = &rejectorID
	d.RejectionReason = reason
	d.UpdatedAt = now
	return nil
}

// StartExecution transitions APPROVED -> EXECUTING, recording the
// executor and start time. Starting twice is rejected.
func (d *Decision) StartExecution(executorID uuid.UUID) error {
	if d.Status != StatusApproved {
		return ErrInvalidStateTransition{ID: d.ID, From: d.Status, Attempted: StatusExecuting}
	}
	now := time.Now()
	d.Status = StatusExecuting
	d.ExecutorID = &executorID
	d.StartedAt = &now
	d.UpdatedAt = now
	return nil
}

// CompleteExecution transitions EXECUTING -> COMPLETED, persisting the
// realized burn amount and the resulting supply figure
func (d *Decision) CompleteExecution(actualBurnAmount, supplyAfter decimal.Decimal, settlementMarker string) error {
	if actualBurnAmount.LessThanOrEqual(decimal.Zero) {
		return shared.ErrInvalidAmount
	}
	if d.Status != StatusExecuting {
		return ErrInvalidStateTransition{ID: d.ID, From: d.Status, Attempted: StatusCompleted}
	}
	now := time.Now()
	d.Status = StatusCompleted
	d.ActualBurnAmount = actualBurnAmount
	d.BurnRateActual = actualBurnAmount.DivRound(d.CirculatingSupplyBefore, burnRateScale)
	d.CirculatingSupplyAfter = supplyAfter
	d.TransactionHash = settlementMarker
	d.ExecutedAt = &now
	d.UpdatedAt = now
	return nil
}
