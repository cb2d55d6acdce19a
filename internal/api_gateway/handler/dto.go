package handler

// IssuePointsRequest represents a request to credit points to a user
type IssuePointsRequest struct {
	UserID  string `json:"user_id" binding:"required,uuid"`
	SpaceID int64  `json:"space_id" binding:"required,gt=0"`
	Amount  string `json:"amount" binding:"required"`
	Reason  string `json:"reason" binding:"required"`
}

// CollectPointsRequest represents a request to debit points from a user
type CollectPointsRequest struct {
	UserID          string `json:"user_id" binding:"required,uuid"`
	SpaceID         int64  `json:"space_id" binding:"required,gt=0"`
	Amount          string `json:"amount" binding:"required"`
	Reason          string `json:"reason" binding:"required"`
	ForceCollection bool   `json:"force_collection"`
}

// TransferPointsRequest represents a request to move points between users
type TransferPointsRequest struct {
	SenderID    string `json:"sender_id" binding:"required,uuid"`
	RecipientID string `json:"recipient_id" binding:"required,uuid"`
	SpaceID     int64  `json:"space_id" binding:"required,gt=0"`
	Amount      string `json:"amount" binding:"required"`
	Message     string `json:"message"`
}

// BalanceResponse represents a balance in API responses
type BalanceResponse struct {
	UserID         string `json:"user_id"`
	SpaceID        int64  `json:"space_id"`
	CurrentBalance string `json:"current_balance"`
	TotalEarned    string `json:"total_earned"`
	UpdatedAt      string `json:"updated_at"`
}

// HistoryEntryResponse represents a history entry in API responses
type HistoryEntryResponse struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	SpaceID         int64  `json:"space_id"`
	TransactionType string `json:"transaction_type"`
	Amount          string `json:"amount"`
	BalanceBefore   string `json:"balance_before"`
	BalanceAfter    string `json:"balance_after"`
	ReferenceID     string `json:"reference_id"`
	Reason          string `json:"reason"`
	CreatedAt       string `json:"created_at"`
}

// TransferResponse represents a completed transfer in API responses
type TransferResponse struct {
	ReferenceID      string          `json:"reference_id"`
	Amount           string          `json:"amount"`
	SenderBalance    BalanceResponse `json:"sender_balance"`
	RecipientBalance BalanceResponse `json:"recipient_balance"`
	TransferredAt    string          `json:"transferred_at"`
}

// CreateRewardRequest represents a request to create a reward distribution
type CreateRewardRequest struct {
	UserID          string  `json:"user_id" binding:"required,uuid"`
	SpaceID         int64   `json:"space_id" binding:"required,gt=0"`
	Amount          string  `json:"amount" binding:"required"`
	Category        string  `json:"category" binding:"required"`
	TriggerType     string  `json:"trigger_type" binding:"required,oneof=MANUAL RULE_BASED AI_DECISION"`
	ReferenceID     string  `json:"reference_id"`
	Reason          string  `json:"reason" binding:"required"`
	QualityScore    string  `json:"quality_score"`
	EngagementScore string  `json:"engagement_score"`
	ExpiresAt       *string `json:"expires_at"`
}

// ApproveRequest represents an approval action on a distribution or decision
type ApproveRequest struct {
	ApproverID string `json:"approver_id" binding:"required,uuid"`
	Notes      string `json:"notes"`
}

// ProcessRewardRequest represents a request to settle a distribution
type ProcessRewardRequest struct {
	SettlementMarker string `json:"settlement_marker"`
	ProcessedBy      string `json:"processed_by" binding:"required,uuid"`
	Async            bool   `json:"async"`
}

// CancelRewardRequest represents a request to cancel a distribution
type CancelRewardRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RewardResponse represents a reward distribution in API responses
type RewardResponse struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id"`
	SpaceID          int64   `json:"space_id"`
	Amount           string  `json:"amount"`
	Category         string  `json:"category"`
	TriggerType      string  `json:"trigger_type"`
	ReferenceID      string  `json:"reference_id,omitempty"`
	Reason           string  `json:"reason"`
	QualityScore     string  `json:"quality_score"`
	EngagementScore  string  `json:"engagement_score"`
	Status           string  `json:"status"`
	ApprovedBy       *string `json:"approved_by,omitempty"`
	ApprovedAt       *string `json:"approved_at,omitempty"`
	ApprovalNotes    string  `json:"approval_notes,omitempty"`
	ProcessedBy      *string `json:"processed_by,omitempty"`
	ProcessedAt      *string `json:"processed_at,omitempty"`
	TransactionHash  string  `json:"transaction_hash,omitempty"`
	FailureReason    string  `json:"failure_reason,omitempty"`
	DistributionDate string  `json:"distribution_date"`
	ExpiresAt        *string `json:"expires_at,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// CreateBurnRequest represents a request to propose a supply burn
type CreateBurnRequest struct {
	SpaceID            int64  `json:"space_id" binding:"required,gt=0"`
	ProposedBurnAmount string `json:"proposed_burn_amount" binding:"required"`
	CirculatingSupply  string `json:"circulating_supply" binding:"required"`
	TriggerReason      string `json:"trigger_reason" binding:"required"`
	Rationale          string `json:"rationale" binding:"required"`
	AiGenerated        bool   `json:"ai_generated"`
	AiConfidenceScore  string `json:"ai_confidence_score"`
	EconomicIndicators string `json:"economic_indicators"`
}

// RejectBurnRequest represents a rejection of a burn proposal
type RejectBurnRequest struct {
	RejectorID string `json:"rejector_id" binding:"required,uuid"`
	Reason     string `json:"reason" binding:"required"`
}

// StartBurnRequest represents the start of a burn execution
type StartBurnRequest struct {
	ExecutorID string `json:"executor_id" binding:"required,uuid"`
}

// CompleteBurnRequest represents the completion of a burn execution
type CompleteBurnRequest struct {
	ActualBurnAmount       string `json:"actual_burn_amount" binding:"required"`
	CirculatingSupplyAfter string `json:"circulating_supply_after" binding:"required"`
	SettlementMarker       string `json:"settlement_marker"`
}

// BurnResponse represents a burn decision in API responses
type BurnResponse struct {
	ID                      string  `json:"id"`
	SpaceID                 int64   `json:"space_id"`
	ProposedBurnAmount      string  `json:"proposed_burn_amount"`
	BurnRateProposed        string  `json:"burn_rate_proposed"`
	ActualBurnAmount        string  `json:"actual_burn_amount,omitempty"`
	BurnRateActual          string  `json:"burn_rate_actual,omitempty"`
	CirculatingSupplyBefore string  `json:"circulating_supply_before"`
	CirculatingSupplyAfter  string  `json:"circulating_supply_after,omitempty"`
	DecisionType            string  `json:"decision_type"`
	TriggerReason           string  `json:"trigger_reason"`
	AiConfidenceScore       string  `json:"ai_confidence_score,omitempty"`
	EconomicIndicators      string  `json:"economic_indicators,omitempty"`
	Status                  string  `json:"status"`
	DecisionRationale       string  `json:"decision_rationale"`
	ApproverID              *string `json:"approver_id,omitempty"`
	ApprovedAt              *string `json:"approved_at,omitempty"`
	ApprovalNotes           string  `json:"approval_notes,omitempty"`
	RejectionReason         string  `json:"rejection_reason,omitempty"`
	ExecutorID              *string `json:"executor_id,omitempty"`
	StartedAt               *string `json:"started_at,omitempty"`
	TransactionHash         string  `json:"transaction_hash,omitempty"`
	ExecutedAt              *string `json:"executed_at,omitempty"`
	CreatedAt               string  `json:"created_at"`
}

// ReplayLegacyTransferRequest represents a legacy-side transfer to replay
type ReplayLegacyTransferRequest struct {
	FromUserID      string `json:"from_user_id" binding:"required,uuid"`
	ToUserID        string `json:"to_user_id" binding:"required,uuid"`
	SpaceID         int64  `json:"space_id" binding:"required,gt=0"`
	Amount          string `json:"amount" binding:"required"`
	TransactionType string `json:"transaction_type" binding:"required"`
	Description     string `json:"description"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
