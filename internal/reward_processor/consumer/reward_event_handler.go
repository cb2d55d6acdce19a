package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spacepoints-ledger/internal/domain/shared"
	"github.com/spacepoints-ledger/internal/platform/messaging/producers"
	"github.com/spacepoints-ledger/internal/reward_processor/service"
)

// RewardEventHandler handles incoming reward process requests from Kafka
type RewardEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewRewardEventHandler creates a new handler
func NewRewardEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *RewardEventHandler {
	return &RewardEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *RewardEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.RewardProcessRequest
	if err := json.Unmarshal(value, &request); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal reward process request from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received reward process request",
		"distribution_id", request.DistributionID.String(),
		"processed_by", request.ProcessedBy.String(),
	)

	if err := h.processingService.ProcessReward(ctx, &request); err != nil {
		logger.Error("Failed to settle reward distribution",
			"distribution_id", request.DistributionID.String(),
			"error", err,
		)
		return fmt.Errorf("processing reward request %s failed: %w", request.DistributionID.String(), err)
	}

	logger.Info("Successfully handled reward process request", "distribution_id", request.DistributionID.String())
	return nil // Success, commit offset
}
