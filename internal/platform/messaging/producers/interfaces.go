package producers

import (
	"context"

	"github.com/petropulse-loyalty-ledger/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// RequestPublisher publishes per-customer ledger requests
type RequestPublisher interface {
	PublishRequest(ctx context.Context, request *shared.LedgerRequest) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
