package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/spacepoints-ledger/internal/domain/balance"
	"github.com/spacepoints-ledger/internal/domain/burn"
	"github.com/spacepoints-ledger/internal/domain/legacy"
	"github.com/spacepoints-ledger/internal/domain/reward"
	"github.com/spacepoints-ledger/internal/domain/shared"
)

// respondDomainError translates service errors into HTTP responses.
// Insufficient balance is reported as 422 and state machine conflicts as
// 409 so clients can tell a business rejection from a server fault.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidAmount),
		errors.Is(err, shared.ErrEmptyReason),
		errors.Is(err, shared.ErrSelfTransfer),
		errors.Is(err, shared.ValidationError{}):
		RespondBadRequest(c, err.Error())

	case errors.Is(err, balance.ErrInsufficientBalance{}):
		RespondUnprocessable(c, "INSUFFICIENT_BALANCE", err.Error())

	case errors.Is(err, balance.ErrBalanceNotFound{}),
		errors.Is(err, reward.ErrDistributionNotFound{}),
		errors.Is(err, burn.ErrDecisionNotFound{}),
		errors.Is(err, legacy.ErrLegacyBalanceNotFound{}):
		RespondNotFound(c, err.Error())

	case errors.Is(err, reward.ErrInvalidStateTransition{}),
		errors.Is(err, burn.ErrInvalidStateTransition{}),
		errors.Is(err, reward.ErrStatusConflict{}),
		errors.Is(err, burn.ErrStatusConflict{}):
		RespondConflict(c, err.Error())

	default:
		RespondInternalError(c)
	}
}
