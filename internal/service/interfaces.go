package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spacepoints-ledger/internal/domain/balance"
	"github.com/spacepoints-ledger/internal/domain/burn"
	"github.com/spacepoints-ledger/internal/domain/history"
	"github.com/spacepoints-ledger/internal/domain/reward"
)

// TxRunner wraps a unit of work in a database transaction
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// TransferResult describes both sides of a completed transfer
type TransferResult struct {
	ReferenceID      uuid.UUID        `json:"reference_id"`
	SenderBalance    *balance.Balance `json:"sender_balance"`
	RecipientBalance *balance.Balance `json:"recipient_balance"`
	Amount           decimal.Decimal  `json:"amount"`
	TransferredAt    time.Time        `json:"transferred_at"`
}

// LedgerService defines balance mutation and read operations. It is the
// only component permitted to write the balance store, and every
// successful mutation appends a matching history entry in the same
// transaction.
type LedgerService interface {
	// Issue credits amount to the user's balance and lifetime earned total
	Issue(ctx context.Context, userID uuid.UUID, spaceID int64, amount decimal.Decimal, reason string) (*balance.Balance, error)

	// IssueWithSettlement is Issue with a caller-supplied reference ID so a
	// reward settlement can be correlated back to its distribution. When
	// settle is non-nil it runs inside the credit transaction, so the
	// caller's settlement write and the credit commit or roll back together.
	IssueWithSettlement(ctx context.Context, userID uuid.UUID, spaceID int64, amount decimal.Decimal, reason string, referenceID uuid.UUID, correlationID string, settle func(tx pgx.Tx) error) (*balance.Balance, error)

	// Collect debits amount from the user's balance. Without force the
	// debit fails on insufficient balance; with force it clamps at zero.
	Collect(ctx context.Context, userID uuid.UUID, spaceID int64, amount decimal.Decimal, reason string, force bool) (*balance.Balance, error)

	// Transfer moves amount between two users atomically
	Transfer(ctx context.Context, senderID, recipientID uuid.UUID, spaceID int64, amount decimal.Decimal, message string) (*TransferResult, error)

	// GetBalance reads the user's balance, lazily creating a zero record.
	// Lazy creation produces no history entry.
	GetBalance(ctx context.Context, userID uuid.UUID, spaceID int64) (*balance.Balance, error)

	// GetHistory retrieves a paginated slice of the user's history with
	// the total entry count
	GetHistory(ctx context.Context, userID uuid.UUID, spaceID int64, page, perPage int) ([]*history.Entry, int64, error)
}

// RewardService drives reward distributions through their lifecycle
type RewardService interface {
	Create(ctx context.Context, userID uuid.UUID, spaceID int64, amount decimal.Decimal, category reward.Category, trigger reward.TriggerType, referenceID, reason string, qualityScore, engagementScore decimal.Decimal, expiresAt *time.Time) (*reward.Distribution, error)

	// Approve moves a PENDING distribution to APPROVED. Exactly one of
	// two concurrent calls succeeds.
	Approve(ctx context.Context, id uuid.UUID, approverID uuid.UUID, notes string) (*reward.Distribution, error)

	// Process settles the distribution through the ledger. Calling it on
	// an already COMPLETED distribution returns the existing record
	// without a second credit.
	Process(ctx context.Context, id uuid.UUID, settlementMarker string, processedBy uuid.UUID) (*reward.Distribution, error)

	// EnqueueProcess publishes an async settlement request instead of
	// settling inline
	EnqueueProcess(ctx context.Context, id uuid.UUID, settlementMarker string, processedBy uuid.UUID, correlationID string) error

	Cancel(ctx context.Context, id uuid.UUID, reason string) (*reward.Distribution, error)

	// ExpireOverdue marks overdue PENDING/APPROVED distributions EXPIRED
	// and returns how many were transitioned
	ExpireOverdue(ctx context.Context, limit int) (int, error)

	GetByID(ctx context.Context, id uuid.UUID) (*reward.Distribution, error)
	GetByUser(ctx context.Context, userID uuid.UUID, spaceID int64, page, perPage int) ([]*reward.Distribution, error)
	Statistics(ctx context.Context, spaceID int64, from, to time.Time) (*reward.Statistics, error)
}

// BurnService drives governance-gated supply-reduction decisions
type BurnService interface {
	CreateManual(ctx context.Context, spaceID int64, proposedAmount, supplyBefore decimal.Decimal, trigger burn.TriggerReason, rationale string) (*burn.Decision, error)
	CreateAiAuto(ctx context.Context, spaceID int64, proposedAmount, supplyBefore decimal.Decimal, trigger burn.TriggerReason, confidenceScore decimal.Decimal, economicIndicators, rationale string) (*burn.Decision, error)
	Approve(ctx context.Context, id uuid.UUID, approverID uuid.UUID, notes string) (*burn.Decision, error)
	Reject(ctx context.Context, id uuid.UUID, rejectorID uuid.UUID, reason string) (*burn.Decision, error)
	StartExecution(ctx context.Context, id uuid.UUID, executorID uuid.UUID) (*burn.Decision, error)
	CompleteExecution(ctx context.Context, id uuid.UUID, actualBurnAmount, supplyAfter decimal.Decimal, settlementMarker string) (*burn.Decision, error)
	GetByID(ctx context.Context, id uuid.UUID) (*burn.Decision, error)
	GetBySpace(ctx context.Context, spaceID int64, page, perPage int) ([]*burn.Decision, error)
	Statistics(ctx context.Context, spaceID int64) (*burn.Statistics, error)
	HighValue(ctx context.Context, threshold decimal.Decimal, limit int) ([]*burn.Decision, error)
}

// ConsistencyCheckResult reports one user's drift between the canonical
// balance store and the legacy mirror. Ephemeral, never persisted.
type ConsistencyCheckResult struct {
	UserID           uuid.UUID       `json:"user_id"`
	SpaceID          int64           `json:"space_id"`
	PrimaryBalance   decimal.Decimal `json:"primary_balance"`
	SecondaryBalance decimal.Decimal `json:"secondary_balance"`
	Discrepancy      decimal.Decimal `json:"discrepancy"`
	IsConsistent     bool            `json:"is_consistent"`
	CheckedAt        time.Time       `json:"checked_at"`
}

// SystemSyncSummary aggregates a full reconciliation scan
type SystemSyncSummary struct {
	PrimaryUserCount      int64     `json:"primary_user_count"`
	SecondaryUserCount    int64     `json:"secondary_user_count"`
	InconsistentUserCount int64     `json:"inconsistent_user_count"`
	ScannedUserCount      int64     `json:"scanned_user_count"`
	LastCheckedAt         time.Time `json:"last_checked_at"`
}

// ReconciliationService detects and repairs drift between the canonical
// balance store and the legacy mirror
type ReconciliationService interface {
	// CheckConsistency is a pure read, safe at any frequency
	CheckConsistency(ctx context.Context, userID uuid.UUID, spaceID int64) (*ConsistencyCheckResult, error)

	// Repair overwrites the legacy record with the canonical figures.
	// Repair direction is one-way, primary to secondary.
	Repair(ctx context.Context, userID uuid.UUID, spaceID int64) (*ConsistencyCheckResult, error)

	// ReplayLegacyTransfer applies a mutation that happened directly
	// against the legacy system to the legacy bookkeeping only
	ReplayLegacyTransfer(ctx context.Context, fromUserID, toUserID uuid.UUID, spaceID int64, amount decimal.Decimal, transactionType history.TransactionType, description string) error

	// SystemSyncSummary scans all known balances. Cancellable through
	// the context; partial results remain valid.
	SystemSyncSummary(ctx context.Context) (*SystemSyncSummary, error)
}
