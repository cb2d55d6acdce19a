package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spacepoints-ledger/internal/domain/history"
	"github.com/spacepoints-ledger/internal/domain/outbox"
	"github.com/spacepoints-ledger/internal/domain/shared"
)

// HistoryPublisher publishes staged outbox messages to the history log
type HistoryPublisher interface {
	PublishToHistory(ctx context.Context, message *outbox.Message) error
}

// HistoryPublisherImpl implements HistoryPublisher
type HistoryPublisherImpl struct {
	outboxRepo  outbox.Repository
	historyRepo history.Repository
	logger      *slog.Logger
}

// NewHistoryPublisher creates a new publisher
func NewHistoryPublisher(
	outboxRepo outbox.Repository,
	historyRepo history.Repository,
	logger *slog.Logger,
) HistoryPublisher {
	return &HistoryPublisherImpl{
		outboxRepo:  outboxRepo,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// PublishToHistory writes every entry staged in the message to the
// history log and marks the message PROCESSED. Entries already present
// from an earlier partial publish are skipped, so a crashed run can be
// safely replayed.
func (p *HistoryPublisherImpl) PublishToHistory(ctx context.Context, message *outbox.Message) error {
	entries, err := message.Entries()
	if err != nil {
		p.logger.Error("Failed to unmarshal history entries from outbox payload",
			"outbox_id", message.ID, "reference_id", message.ReferenceID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	// Add correlation ID to logger
	logger := p.logger
	if len(entries) > 0 && entries[0].CorrelationID != "" {
		logger = p.logger.With("correlation_id", entries[0].CorrelationID)
	}

	logger.Info("Attempting to publish outbox message to history log",
		"outbox_id", message.ID, "reference_id", message.ReferenceID, "entry_count", len(entries),
	)

	for _, entry := range entries {
		if err := p.historyRepo.Create(ctx, entry); err != nil {
			if errors.Is(err, history.ErrDuplicateEntry{}) {
				logger.Info("History entry already published, skipping",
					"entry_id", entry.ID, "reference_id", message.ReferenceID,
				)
				continue
			}
			logger.Error("Failed to create history entry", "entry_id", entry.ID, "error", err)
			return fmt.Errorf("failed to create history entry %s: %w", entry.ID, err)
		}
	}

	// Mark outbox message as processed
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "reference_id", message.ReferenceID, "error", err,
		)
		return fmt.Errorf("history write for %s OK, but failed to mark outbox %d as PROCESSED: %w", message.ReferenceID, message.ID, err)
	}

	logger.Info("Outbox message successfully published and marked as PROCESSED", "outbox_id", message.ID, "reference_id", message.ReferenceID)
	return nil
}
