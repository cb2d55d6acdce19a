package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spacepoints-ledger/internal/domain/history"
	"github.com/spacepoints-ledger/internal/service"
)

// ReconciliationHandler handles HTTP requests for dual-ledger consistency
// operations
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// CheckConsistency compares one user's canonical balance against the
// legacy mirror. Pure read, never mutates either side.
func (h *ReconciliationHandler) CheckConsistency(c *gin.Context) {
	userID, spaceID, ok := h.parseUserAndSpace(c)
	if !ok {
		return
	}

	result, err := h.reconciliationService.CheckConsistency(c.Request.Context(), userID, spaceID)
	if err != nil {
		h.logger.Error("Failed to check consistency", "user_id", userID, "space_id", spaceID, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, result)
}

// Repair overwrites the legacy record with the canonical figures
func (h *ReconciliationHandler) Repair(c *gin.Context) {
	userID, spaceID, ok := h.parseUserAndSpace(c)
	if !ok {
		return
	}

	result, err := h.reconciliationService.Repair(c.Request.Context(), userID, spaceID)
	if err != nil {
		h.logger.Error("Failed to repair legacy balance", "user_id", userID, "space_id", spaceID, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, result)
}

// ReplayLegacyTransfer applies a transfer that happened directly against
// the legacy system to the legacy bookkeeping only
func (h *ReconciliationHandler) ReplayLegacyTransfer(c *gin.Context) {
	var req ReplayLegacyTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	fromUserID, err := uuid.Parse(req.FromUserID)
	if err != nil {
		h.logger.Error("Invalid source user ID", "from_user_id", req.FromUserID, "error", err)
		RespondBadRequest(c, "Invalid source user ID")
		return
	}

	toUserID, err := uuid.Parse(req.ToUserID)
	if err != nil {
		h.logger.Error("Invalid destination user ID", "to_user_id", req.ToUserID, "error", err)
		RespondBadRequest(c, "Invalid destination user ID")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.logger.Error("Invalid amount", "amount", req.Amount, "error", err)
		RespondBadRequest(c, "Invalid amount")
		return
	}

	if err := h.reconciliationService.ReplayLegacyTransfer(c.Request.Context(), fromUserID, toUserID, req.SpaceID, amount, history.TransactionType(req.TransactionType), req.Description); err != nil {
		h.logger.Error("Failed to replay legacy transfer", "from_user_id", req.FromUserID, "to_user_id", req.ToUserID, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondNoContent(c)
}

// SystemSyncSummary scans all known balances and reports aggregate drift
func (h *ReconciliationHandler) SystemSyncSummary(c *gin.Context) {
	summary, err := h.reconciliationService.SystemSyncSummary(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build sync summary", "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, summary)
}

func (h *ReconciliationHandler) parseUserAndSpace(c *gin.Context) (uuid.UUID, int64, bool) {
	userIDParam := c.Param("user_id")
	userID, err := uuid.Parse(userIDParam)
	if err != nil {
		h.logger.Error("Invalid user ID", "user_id", userIDParam, "error", err)
		RespondBadRequest(c, "Invalid user ID")
		return uuid.Nil, 0, false
	}

	spaceIDParam := c.Query("space_id")
	spaceID, err := strconv.ParseInt(spaceIDParam, 10, 64)
	if err != nil || spaceID <= 0 {
		h.logger.Error("Invalid space ID", "space_id", spaceIDParam)
		RespondBadRequest(c, "Invalid space ID")
		return uuid.Nil, 0, false
	}

	return userID, spaceID, true
}
