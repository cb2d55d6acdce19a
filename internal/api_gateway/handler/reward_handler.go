package handler

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spacepoints-ledger/internal/api_gateway/middleware"
	"github.com/spacepoints-ledger/internal/domain/reward"
	"github.com/spacepoints-ledger/internal/service"
)

// RewardHandler handles HTTP requests for reward distribution operations
type RewardHandler struct {
	rewardService service.RewardService
	logger        *slog.Logger
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(logger *slog.Logger, rewardService service.RewardService) *RewardHandler {
	return &RewardHandler{
		rewardService: rewardService,
		logger:        logger,
	}
}

// Create registers a new reward distribution in PENDING
func (h *RewardHandler) Create(c *gin.Context) {
	var req CreateRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.logger.Error("Invalid user ID", "user_id", req.UserID, "error", err)
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.logger.Error("Invalid amount", "amount", req.Amount, "error", err)
		RespondBadRequest(c, "Invalid amount")
		return
	}

	category, err := reward.ParseCategory(req.Category)
	if err != nil {
		h.logger.Error("Invalid category", "category", req.Category, "error", err)
		respondDomainError(c, err)
		return
	}

	trigger, err := reward.ParseTriggerType(req.TriggerType)
	if err != nil {
		h.logger.Error("Invalid trigger type", "trigger_type", req.TriggerType, "error", err)
		respondDomainError(c, err)
		return
	}

	qualityScore, err := parseOptionalDecimal(req.QualityScore)
	if err != nil {
		RespondBadRequest(c, "Invalid quality score")
		return
	}
	engagementScore, err := parseOptionalDecimal(req.EngagementScore)
	if err != nil {
		RespondBadRequest(c, "Invalid engagement score")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			h.logger.Error("Invalid expiry", "expires_at", *req.ExpiresAt, "error", err)
			RespondBadRequest(c, "Invalid expires_at, expected RFC 3339")
			return
		}
		expiresAt = &t
	}

	d, err := h.rewardService.Create(c.Request.Context(), userID, req.SpaceID, amount, category, trigger, req.ReferenceID, req.Reason, qualityScore, engagementScore, expiresAt)
	if err != nil {
		h.logger.Error("Failed to create reward distribution", "user_id", req.UserID, "space_id", req.SpaceID, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondCreated(c, mapDistributionToResponse(d))
}

// Approve moves a PENDING distribution to APPROVED
func (h *RewardHandler) Approve(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	approverID, err := uuid.Parse(req.ApproverID)
	if err != nil {
		h.logger.Error("Invalid approver ID", "approver_id", req.ApproverID, "error", err)
		RespondBadRequest(c, "Invalid approver ID")
		return
	}

	d, err := h.rewardService.Approve(c.Request.Context(), id, approverID, req.Notes)
	if err != nil {
		h.logger.Error("Failed to approve distribution", "id", id, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapDistributionToResponse(d))
}

// Process settles a distribution through the ledger. With async set the
// settlement request is queued and picked up by the reward processor.
func (h *RewardHandler) Process(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req ProcessRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	processedBy, err := uuid.Parse(req.ProcessedBy)
	if err != nil {
		h.logger.Error("Invalid processor ID", "processed_by", req.ProcessedBy, "error", err)
		RespondBadRequest(c, "Invalid processor ID")
		return
	}

	if req.Async {
		correlationID := middleware.GetCorrelationID(c)
		if err := h.rewardService.EnqueueProcess(c.Request.Context(), id, req.SettlementMarker, processedBy, correlationID); err != nil {
			h.logger.Error("Failed to enqueue distribution processing", "id", id, "error", err)
			respondDomainError(c, err)
			return
		}
		RespondAccepted(c, gin.H{
			"id":     id,
			"status": string(reward.StatusProcessing),
		})
		return
	}

	d, err := h.rewardService.Process(c.Request.Context(), id, req.SettlementMarker, processedBy)
	if err != nil {
		h.logger.Error("Failed to process distribution", "id", id, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapDistributionToResponse(d))
}

// Cancel aborts a distribution that has not completed
func (h *RewardHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req CancelRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	d, err := h.rewardService.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.logger.Error("Failed to cancel distribution", "id", id, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapDistributionToResponse(d))
}

// GetByID retrieves a distribution by its ID
func (h *RewardHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	d, err := h.rewardService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get distribution", "id", id, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapDistributionToResponse(d))
}

// GetByUser retrieves paginated distributions for a user
func (h *RewardHandler) GetByUser(c *gin.Context) {
	userIDParam := c.Param("user_id")
	userID, err := uuid.Parse(userIDParam)
	if err != nil {
		h.logger.Error("Invalid user ID", "user_id", userIDParam, "error", err)
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	spaceIDParam := c.Query("space_id")
	spaceID, err := strconv.ParseInt(spaceIDParam, 10, 64)
	if err != nil || spaceID <= 0 {
		h.logger.Error("Invalid space ID", "space_id", spaceIDParam)
		RespondBadRequest(c, "Invalid space ID")
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	distributions, err := h.rewardService.GetByUser(c.Request.Context(), userID, spaceID, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to get distributions", "user_id", userID, "space_id", spaceID, "error", err)
		respondDomainError(c, err)
		return
	}

	responses := make([]RewardResponse, 0, len(distributions))
	for _, d := range distributions {
		responses = append(responses, mapDistributionToResponse(d))
	}

	RespondOK(c, responses)
}

// Statistics returns aggregate distribution figures for a space within a
// time range
func (h *RewardHandler) Statistics(c *gin.Context) {
	spaceIDParam := c.Query("space_id")
	spaceID, err := strconv.ParseInt(spaceIDParam, 10, 64)
	if err != nil || spaceID <= 0 {
		h.logger.Error("Invalid space ID", "space_id", spaceIDParam)
		RespondBadRequest(c, "Invalid space ID")
		return
	}

	from, to, err := parseTimeRange(c.Query("from"), c.Query("to"))
	if err != nil {
		h.logger.Error("Invalid time range", "error", err)
		RespondBadRequest(c, "Invalid time range, expected RFC 3339 from/to")
		return
	}

	stats, err := h.rewardService.Statistics(c.Request.Context(), spaceID, from, to)
	if err != nil {
		h.logger.Error("Failed to get reward statistics", "space_id", spaceID, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, stats)
}

func (h *RewardHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid distribution ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid distribution ID")
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parseTimeRange defaults to the trailing 30 days when bounds are omitted
func parseTimeRange(fromParam, toParam string) (time.Time, time.Time, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if fromParam != "" {
		parsed, err := time.Parse(time.RFC3339, fromParam)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if toParam != "" {
		parsed, err := time.Parse(time.RFC3339, toParam)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	return from, to, nil
}

func mapDistributionToResponse(d *reward.Distribution) RewardResponse {
	resp := RewardResponse{
		ID:               d.ID.String(),
		UserID:           d.UserID.String(),
		SpaceID:          d.SpaceID,
		Amount:           d.Amount.String(),
		Category:         string(d.Category),
		TriggerType:      string(d.TriggerType),
		ReferenceID:      d.ReferenceID,
		Reason:           d.Reason,
		QualityScore:     d.QualityScore.String(),
		EngagementScore:  d.EngagementScore.String(),
		Status:           string(d.Status),
		ApprovalNotes:    d.ApprovalNotes,
		TransactionHash:  d.TransactionHash,
		FailureReason:    d.FailureReason,
		DistributionDate: d.DistributionDate.Format(time.RFC3339),
		CreatedAt:        d.CreatedAt.Format(time.RFC3339),
	}
	if d.ApprovedBy != nil {
		resp.ApprovedBy = stringPtr(d.ApprovedBy.String())
	}
	if d.ApprovedAt != nil {
		resp.ApprovedAt = stringPtr(d.ApprovedAt.Format(time.RFC3339))
	}
	if d.ProcessedBy != nil {
		resp.ProcessedBy = stringPtr(d.ProcessedBy.String())
	}
	if d.ProcessedAt != nil {
		resp.ProcessedAt = stringPtr(d.ProcessedAt.Format(time.RFC3339))
	}
	if d.ExpiresAt != nil {
		resp.ExpiresAt = stringPtr(d.ExpiresAt.Format(time.RFC3339))
	}
	return resp
}

func stringPtr(s string) *string {
	return &s
}
