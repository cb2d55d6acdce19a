package reward

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spacepoints-ledger/internal/domain/shared"
)

// Category classifies what a reward was granted for
type Category string

const (
	CategoryContentCreation     Category = "CONTENT_CREATION"
	CategoryCommunityEngagement Category = "COMMUNITY_ENGAGEMENT"
	CategoryKnowledgeSharing    Category = "KNOWLEDGE_SHARING"
	CategoryGovernance          Category = "GOVERNANCE"
	CategoryReferral            Category = "REFERRAL"
	CategoryAchievement         Category = "ACHIEVEMENT"
	CategorySpecialEvent        Category = "SPECIAL_EVENT"
	CategoryBonus               Category = "BONUS"
	CategorySystemReward        Category = "SYSTEM_REWARD"
)

// ParseCategory validates a raw category string
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryContentCreation, CategoryCommunityEngagement, CategoryKnowledgeSharing,
		CategoryGovernance, CategoryReferral, CategoryAchievement,
		CategorySpecialEvent, CategoryBonus, CategorySystemReward:
		return c, nil
	default:
		return "", shared.ValidationError{Field: "category", Message: "unknown category " + s}
	}
}

// TriggerType records how a distribution was originated
type TriggerType string

const (
	TriggerManual     TriggerType = "MANUAL"
	TriggerRuleBased  TriggerType = "RULE_BASED"
	TriggerAiDecision TriggerType = "AI_DECISION"
)

// ParseTriggerType validates a raw trigger type string
func ParseTriggerType(s string) (TriggerType, error) {
	switch t := TriggerType(s); t {
	case TriggerManual, TriggerRuleBased, TriggerAiDecision:
		return t, nil
	default:
		return "", shared.ValidationError{Field: "trigger_type", Message: "unknown trigger type " + s}
	}
}

// Status defines the distribution lifecycle states
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusApproved   Status = "APPROVED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
	StatusExpired    Status = "EXPIRED"
)

// Distribution is one reward payout record. Scoring and trigger metadata
// are an immutable snapshot captured at creation time; the record is
// read-only once COMPLETED.
type Distribution struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	SpaceID          int64           `json:"space_id"`
	Amount           decimal.Decimal `json:"amount"`
	Category         Category        `json:"category"`
	TriggerType      TriggerType     `json:"trigger_type"`
	ReferenceID      string          `json:"reference_id,omitempty"` // originating post/comment/action
	Reason           string          `json:"reason"`
	QualityScore     decimal.Decimal `json:"quality_score"`
	EngagementScore  decimal.Decimal `json:"engagement_score"`
	Status           Status          `json:"status"`
	DistributionDate time.Time       `json:"distribution_date"`
	ExpiresAt        *time.Time      `json:"expires_at,omitempty"`
	ApprovedBy       *uuid.UUID      `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time      `json:"approved_at,omitempty"`
	ApprovalNotes    string          `json:"approval_notes,omitempty"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	ProcessedBy      *uuid.UUID      `json:"processed_by,omitempty"`
	TransactionHash  string          `json:"transaction_hash,omitempty"` // opaque settlement marker
	FailureReason    string          `json:"failure_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewDistribution creates a distribution in PENDING with the scoring
// snapshot captured at creation time
func NewDistribution(userID uuid.UUID, spaceID int64, amount decimal.Decimal, category Category, trigger TriggerType, referenceID, reason string, qualityScore, engagementScore decimal.Decimal, expiresAt *time.Time) (*Distribution, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.ErrInvalidAmount
	}
	if reason == "" {
		return nil, shared.ErrEmptyReason
	}

	now := time.Now()
	return &Distribution{
		ID:               uuid.New(),
		UserID:           userID,
		SpaceID:          spaceID,
		Amount:           amount,
		Category:         category,
		TriggerType:      trigger,
		ReferenceID:      referenceID,
		Reason:           reason,
		QualityScore:     qualityScore,
		EngagementScore:  engagementScore,
		Status:           StatusPending,
		DistributionDate: now,
		ExpiresAt:        expiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Approve transitions PENDING -> APPROVED, recording the approver
func (d *Distribution) Approve(approverID uuid.UUID, notes string) error {
	if d.Status != StatusPending {
		return ErrInvalidStateTransition{ID: d.ID, From: d.Status, Attempted: StatusApproved}
	}
	now := time.Now()
	d.Status = StatusApproved
	d.ApprovedBy = &approverID
	d.ApprovedAt = &now
	d.ApprovalNotes = notes
	d.UpdatedAt = now
	return nil
}

// MarkProcessing transitions PENDING or APPROVED -> PROCESSING
func (d *Distribution) MarkProcessing() error {
	if d.Status != StatusPending && d.Status != StatusApproved {
		return ErrInvalidStateTransition{ID: d.ID, From: d.Status, Attempted: StatusProcessing}
	}
	d.Status = StatusProcessing
	d.UpdatedAt = time.Now()
	return nil
}

// MarkCompleted transitions PROCESSING -> COMPLETED, recording the
// settlement marker verbatim
func (d *Distribution) MarkCompleted(settlementMarker string, processedBy uuid.UUID) error {
	if d.Status != StatusProcessing {
		return ErrInvalidStateTransition{ID: d.ID, From: d.Status, Attempted: StatusCompleted}
	}
	now := time.Now()
	d.Status = StatusCompleted
	d.TransactionHash = settlementMarker
	d.ProcessedAt = &now
	d.ProcessedBy = &processedBy
	d.UpdatedAt = now
	return nil
}

// MarkFailed transitions PROCESSING -> FAILED with the underlying error
// reason captured
func (d *Distribution) MarkFailed(reason string) error {
	if d.Status != StatusProcessing {
		return ErrInvalidStateTransition{ID: d.ID, From: d.Status, Attempted: StatusFailed}
	}
	d.Status = StatusFailed
	d.FailureReason = reason
	d.UpdatedAt = time.Now()
	return nil
}

// Cancel is valid from any non-terminal, non-completed state
func (d *Distribution) Cancel(reason string) error {
	switch d.Status {
	case StatusPending, StatusApproved, StatusFailed:
		d.Status = StatusCancelled
		d.FailureReason = reason
		d.UpdatedAt = time.Now()
		return nil
	default:
		return ErrInvalidStateTransition{ID: d.ID, From: d.Status, Attempted: StatusCancelled}
	}
}

// IsExpired reports whether the distribution passed its expiry deadline
func (d *Distribution) IsExpired() bool {
	return d.ExpiresAt != nil && time.Now().After(*d.ExpiresAt)
}

// MarkExpired transitions PENDING or APPROVED -> EXPIRED once the
// deadline passed
func (d *Distribution) MarkExpired() error {
	if d.Status != StatusPending && d.Status != StatusApproved {
		return ErrInvalidStateTransition{ID: d.ID, From: d.Status, Attempted: StatusExpired}
	}
	d.Status = StatusExpired
	d.UpdatedAt = time.Now()
	return nil
}

// IsProcessable reports whether Process may settle this distribution
func (d *Distribution) IsProcessable() bool {
	return d.Status == StatusPending || d.Status == StatusApproved
}
