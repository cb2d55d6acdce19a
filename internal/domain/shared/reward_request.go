package shared

import (
	"time"

	"github.com/google/uuid"
)

// RewardProcessRequest defines a Kafka message asking the processor to
// settle an approved reward distribution through the ledger
type RewardProcessRequest struct {
	DistributionID   uuid.UUID `json:"distribution_id"`
	SettlementMarker string    `json:"settlement_marker,omitempty"`
	ProcessedBy      uuid.UUID `json:"processed_by"`
	CorrelationID    string    `json:"correlation_id"`
	Timestamp        time.Time `json:"timestamp"`
}
