package service

import (
	"context"

	"github.com/spacepoints-ledger/internal/domain/shared"
)

// ProcessingService defines the interface for settling queued reward
// process requests.
type ProcessingService interface {
	ProcessReward(ctx context.Context, request *shared.RewardProcessRequest) error
}
