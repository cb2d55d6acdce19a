package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spacepoints-ledger/internal/domain/balance"
	"github.com/spacepoints-ledger/internal/domain/history"
	"github.com/spacepoints-ledger/internal/service"
)

// LedgerHandler handles HTTP requests for point balance operations
type LedgerHandler struct {
	ledgerService service.LedgerService
	logger        *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(logger *slog.Logger, ledgerService service.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// Issue credits points to a user's balance
func (h *LedgerHandler) Issue(c *gin.Context) {
	var req IssuePointsRequest
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

	bal, err := h.ledgerService.Issue(c.Request.Context(), userID, req.SpaceID, amount, req.Reason)
	if err != nil {
		h.logger.Error("Failed to issue points", "user_id", req.UserID, "space_id", req.SpaceID, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapBalanceToResponse(bal))
}

// Collect debits points from a user's balance. With force_collection set
// the debit clamps at zero instead of failing on insufficient balance.
func (h *LedgerHandler) Collect(c *gin.Context) {
	var req CollectPointsRequest
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

	bal, err := h.ledgerService.Collect(c.Request.Context(), userID, req.SpaceID, amount, req.Reason, req.ForceCollection)
	if err != nil {
		h.logger.Error("Failed to collect points", "user_id", req.UserID, "space_id", req.SpaceID, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapBalanceToResponse(bal))
}

// Transfer moves points between two users atomically
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req TransferPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	senderID, err := uuid.Parse(req.SenderID)
	if err != nil {
		h.logger.Error("Invalid sender ID", "sender_id", req.SenderID, "error", err)
		RespondBadRequest(c, "Invalid sender ID")
		return
	}

	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		h.logger.Error("Invalid recipient ID", "recipient_id", req.RecipientID, "error", err)
		RespondBadRequest(c, "Invalid recipient ID")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.logger.Error("Invalid amount", "amount", req.Amount, "error", err)
		RespondBadRequest(c, "Invalid amount")
		return
	}

	result, err := h.ledgerService.Transfer(c.Request.Context(), senderID, recipientID, req.SpaceID, amount, req.Message)
	if err != nil {
		h.logger.Error("Failed to transfer points", "sender_id", req.SenderID, "recipient_id", req.RecipientID, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapTransferToResponse(result))
}

// GetBalance retrieves a user's balance, lazily creating a zero record
// for users never seen before
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	userID, spaceID, ok := h.parseUserAndSpace(c)
	if !ok {
		return
	}

	bal, err := h.ledgerService.GetBalance(c.Request.Context(), userID, spaceID)
	if err != nil {
		h.logger.Error("Failed to get balance", "user_id", userID, "space_id", spaceID, "error", err)
		respondDomainError(c, err)
		return
	}

	RespondOK(c, mapBalanceToResponse(bal))
}

// GetHistory retrieves paginated point history for a user
func (h *LedgerHandler) GetHistory(c *gin.Context) {
	userID, spaceID, ok := h.parseUserAndSpace(c)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, total, err := h.ledgerService.GetHistory(c.Request.Context(), userID, spaceID, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to get history", "user_id", userID, "space_id", spaceID, "error", err)
		respondDomainError(c, err)
		return
	}

	responses := make([]HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapHistoryEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, params.Page, params.PerPage, int(total))
}

func (h *LedgerHandler) parseUserAndSpace(c *gin.Context) (uuid.UUID, int64, bool) {
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

func mapBalanceToResponse(b *balance.Balance) BalanceResponse {
	return BalanceResponse{
		UserID:         b.UserID.String(),
		SpaceID:        b.SpaceID,
		CurrentBalance: b.CurrentBalance.String(),
		TotalEarned:    b.TotalEarned.String(),
		UpdatedAt:      b.UpdatedAt.Format(time.RFC3339),
	}
}

func mapHistoryEntryToResponse(e *history.Entry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:              e.ID.String(),
		UserID:          e.UserID.String(),
		SpaceID:         e.SpaceID,
		TransactionType: string(e.TransactionType),
		Amount:          e.Amount.String(),
		BalanceBefore:   e.BalanceBefore.String(),
		BalanceAfter:    e.BalanceAfter.String(),
		ReferenceID:     e.ReferenceID.String(),
		Reason:          e.Reason,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
}

func mapTransferToResponse(r *service.TransferResult) TransferResponse {
	return TransferResponse{
		ReferenceID:      r.ReferenceID.String(),
		Amount:           r.Amount.String(),
		SenderBalance:    mapBalanceToResponse(r.SenderBalance),
		RecipientBalance: mapBalanceToResponse(r.RecipientBalance),
		TransferredAt:    r.TransferredAt.Format(time.RFC3339),
	}
}
