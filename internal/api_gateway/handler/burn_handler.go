package handler

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spacepoints-ledger/internal/domain/burn"
	"github.com/spacepoints-ledger/internal/service"
)

// BurnHandler handles HTTP requests for supply burn decisions
type BurnHandler struct {
	burnService service.BurnService
	logger      *slog.Logger
}

// NewBurnHandler creates a new burn handler
func NewBurnHandler(logger *slog.Logger, burnService service.BurnService) *BurnHandler {
	return &BurnHandler{
		burnService: burnService,
		logger:      logger,
	}
}

// Create registers a burn proposal in PENDING. AI-generated proposals
// carry a confidence score and an economic indicator snapshot.
func (h *BurnHandler) Create(c *gin.Context) {
	var req CreateBurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	proposedAmount, err := decimal.NewFromString(req.ProposedBurnAmount)
	if err != nil {
		h.logger.Error("Invalid proposed burn amount", "amount", req.ProposedBurnAmount, "error", err)
		RespondBadRequest(c, "Invalid proposed burn amount")
		return
	}

	supply, err := decimal.NewFromString(req.CirculatingSupply)
	if err != nil {
		h.logger.Error("Invalid circulating supply", "supply", req.CirculatingSupply, "error", err)
		RespondBadRequest(c, "Invalid circulating supply")
		return
	}

	trigger, err := burn.ParseTriggerReason(req.TriggerReason)
	if err != nil {
		h.logger.Error("Invalid trigger reason", "trigger_reason", req.TriggerReason, "error", err)
		respondDomainError(c, err)
		return
	}

	var d *burn.Decision
	if req.AiGenerated {
		confidence, err := parseOptionalDecimal(req.AiConfidenceScore)
		if err != nil {
			RespondBadRequest(c, "Invalid AI confidence score")
			return
		}
		d, err = h.burnService.CreateAiAuto(c.Request.Context(), req.SpaceID, proposedAmount, supply, trigger, confidence, req.EconomicIndicators, req.Rationale)
		if err != nil {
			h.logger.Error("Failed to create burn decision", "space_id", req.SpaceID, "error", err)
			respondDomainError(c, err)
			return
		}
	} else {
		d, err = h.burnService.CreateManual(c.Request.Context(), req.SpaceID, proposedAmount, supply, trigger, req.Rationale)
		if err != nil {
			h.logger.Error("Failed to create burn decision", "space_id", req.SpaceID, "error", err)
			respondDomainError(c, err)
			return
		}
	}

	RespondCreated(c, mapDecisionToResponse(d))
}

// Approve moves a PENDING decision to APPROVED
func (h *BurnHandler) Approve(c *gin.Context) {
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

	d, err := h.burnService.Approve(c.Request.Context(), id, approverID, req.Notes)
	if err != nil {
		h.logger.Error("Failed to approve burn decision", "id", id, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapDecisionToResponse(d))
}

// Reject moves a PENDING decision to REJECTED with a mandatory reason
func (h *BurnHandler) Reject(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req RejectBurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	rejectorID, err := uuid.Parse(req.RejectorID)
	if err != nil {
		h.logger.Error("Invalid rejector ID", "rejector_id", req.RejectorID, "error", err)
		RespondBadRequest(c, "Invalid rejector ID")
		return
	}

	d, err := h.burnService.Reject(c.Request.Context(), id, rejectorID, req.Reason)
	if err != nil {
		h.logger.Error("Failed to reject burn decision", "id", id, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapDecisionToResponse(d))
}

// StartExecution moves an APPROVED decision to EXECUTING
func (h *BurnHandler) StartExecution(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req StartBurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	executorID, err := uuid.Parse(req.ExecutorID)
	if err != nil {
		h.logger.Error("Invalid executor ID", "executor_id", req.ExecutorID, "error", err)
		RespondBadRequest(c, "Invalid executor ID")
		return
	}

	d, err := h.burnService.StartExecution(c.Request.Context(), id, executorID)
	if err != nil {
		h.logger.Error("Failed to start burn execution", "id", id, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapDecisionToResponse(d))
}

// CompleteExecution moves an EXECUTING decision to COMPLETED with the
// realized burn figures
func (h *BurnHandler) CompleteExecution(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req CompleteBurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	actualAmount, err := decimal.NewFromString(req.ActualBurnAmount)
	if err != nil {
		h.logger.Error("Invalid actual burn amount", "amount", req.ActualBurnAmount, "error", err)
		RespondBadRequest(c, "Invalid actual burn amount")
		return
	}

	supplyAfter, err := decimal.NewFromString(req.CirculatingSupplyAfter)
	if err != nil {
		h.logger.Error("Invalid circulating supply", "supply", req.CirculatingSupplyAfter, "error", err)
		RespondBadRequest(c, "Invalid circulating supply")
		return
	}

	d, err := h.burnService.CompleteExecution(c.Request.Context(), id, actualAmount, supplyAfter, req.SettlementMarker)
	if err != nil {
		h.logger.Error("Failed to complete burn execution", "id", id, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapDecisionToResponse(d))
}

// GetByID retrieves a burn decision by its ID
func (h *BurnHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	d, err := h.burnService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get burn decision", "id", id, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapDecisionToResponse(d))
}

// GetBySpace retrieves paginated burn decisions for a space
func (h *BurnHandler) GetBySpace(c *gin.Context) {
	spaceIDParam := c.Param("space_id")
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

	decisions, err := h.burnService.GetBySpace(c.Request.Context(), spaceID, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to get burn decisions", "space_id", spaceID, "error", err)
		respondDomainError(c, err)
		return
	}

	responses := make([]BurnResponse, 0, len(decisions))
	for _, d := range decisions {
		responses = append(responses, mapDecisionToResponse(d))
	}

	RespondOK(c, responses)
}

// Statistics returns aggregate burn figures for a space
func (h *BurnHandler) Statistics(c *gin.Context) {
	spaceIDParam := c.Query("space_id")
	spaceID, err := strconv.ParseInt(spaceIDParam, 10, 64)
	if err != nil || spaceID <= 0 {
		h.logger.Error("Invalid space ID", "space_id", spaceIDParam)
		RespondBadRequest(c, "Invalid space ID")
		return
	}

	stats, err := h.burnService.Statistics(c.Request.Context(), spaceID)
	if err != nil {
		h.logger.Error("Failed to get burn statistics", "space_id", spaceID, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, stats)
}

// HighValue lists completed burns at or above a threshold amount
func (h *BurnHandler) HighValue(c *gin.Context) {
	thresholdParam := c.DefaultQuery("threshold", "0")
	threshold, err := decimal.NewFromString(thresholdParam)
	if err != nil {
		h.logger.Error("Invalid threshold", "threshold", thresholdParam, "error", err)
		RespondBadRequest(c, "Invalid threshold")
		return
	}

	limitParam := c.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(limitParam)
	if err != nil || limit <= 0 || limit > 100 {
		h.logger.Error("Invalid limit", "limit", limitParam)
		RespondBadRequest(c, "Invalid limit")
		return
	}

	decisions, err := h.burnService.HighValue(c.Request.Context(), threshold, limit)
	if err != nil {
		h.logger.Error("Failed to get high value burns", "error", err)
		respondDomainError(c, err)
		return
	}

	responses := make([]BurnResponse, 0, len(decisions))
	for _, d := range decisions {
		responses = append(responses, mapDecisionToResponse(d))
	}

	RespondOK(c, responses)
}

func (h *BurnHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid decision ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid decision ID")
		return uuid.Nil, false
	}
	return id, true
}

func mapDecisionToResponse(d *burn.Decision) BurnResponse {
	resp := BurnResponse{
		ID:                      d.ID.String(),
		SpaceID:                 d.SpaceID,
		ProposedBurnAmount:      d.ProposedBurnAmount.String(),
		BurnRateProposed:        d.BurnRateProposed.String(),
		CirculatingSupplyBefore: d.CirculatingSupplyBefore.String(),
		DecisionType:            string(d.DecisionType),
		TriggerReason:           string(d.TriggerReason),
		EconomicIndicators:      d.EconomicIndicators,
		Status:                  string(d.Status),
		DecisionRationale:       d.DecisionRationale,
		ApprovalNotes:           d.ApprovalNotes,
		RejectionReason:         d.RejectionReason,
		TransactionHash:         d.TransactionHash,
		CreatedAt:               d.CreatedAt.Format(time.RFC3339),
	}
	if d.DecisionType == burn.DecisionAiAuto {
		resp.AiConfidenceScore = d.AiConfidenceScore.String()
	}
	if !d.ActualBurnAmount.IsZero() {
		resp.ActualBurnAmount = d.ActualBurnAmount.String()
		resp.BurnRateActual = d.BurnRateActual.String()
		resp.CirculatingSupplyAfter = d.CirculatingSupplyAfter.String()
	}
	if d.ApproverID != nil {
		resp.ApproverID = stringPtr(d.ApproverID.String())
	}
	if d.ApprovedAt != nil {
		resp.ApprovedAt = stringPtr(d.ApprovedAt.Format(time.RFC3339))
	}
	if d.ExecutorID != nil {
		resp.ExecutorID = stringPtr(d.ExecutorID.String())
	}
	if d.StartedAt != nil {
		resp.StartedAt = stringPtr(d.StartedAt.Format(time.RFC3339))
	}
	if d.ExecutedAt != nil {
		resp.ExecutedAt = stringPtr(d.ExecutedAt.Format(time.RFC3339))
	}
	return resp
}
