package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes settlement requests to the primary reward
// topic. The gateway enqueues through it; the processor consumes.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks requests the settlement consumer cannot
// decode, so a poison message never blocks its partition
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the subset of kafka.Writer the producers use; tests
// substitute a mock
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
