package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/petropulse-loyalty-ledger/internal/config"
	"github.com/petropulse-loyalty-ledger/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// LedgerRequestProducer publishes ledger requests keyed by customer id.
// The hash balancer keeps every request for a customer on one partition, so
// a customer's requests are handled one at a time and in order.
type LedgerRequestProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewLedgerRequestProducer creates the producer and ensures the request topic exists
func NewLedgerRequestProducer(logger *slog.Logger, cfg *config.KafkaConfig) (*LedgerRequestProducer, error) {
	if cfg.RequestTopic == "" {
		return nil, fmt.Errorf("kafka ledger request topic is not configured")
	}

	logger = logger.With("component", "ledger_request_producer")
	if err := ensureTopic(cfg.Brokers, cfg.RequestTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger request topic %s exists: %w", cfg.RequestTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.RequestTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return &LedgerRequestProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.RequestTopic,
	}, nil
}

func (p *LedgerRequestProducer) PublishRequest(ctx context.Context, request *shared.LedgerRequest) error {
	if err := request.Validate(); err != nil {
		return fmt.Errorf("refusing to publish invalid ledger request: %w", err)
	}

	value, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger request: %w", err)
	}

	key := request.CustomerID.String()
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish ledger request",
			"topic", p.topic,
			"customer_id", key,
			"operation", request.Operation,
			"error", err,
		)
		return fmt.Errorf("failed to publish ledger request to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published ledger request",
		"customer_id", key,
		"operation", request.Operation,
		"request_id", request.RequestID.String(),
	)
	return nil
}

func (p *LedgerRequestProducer) Close() error {
	p.logger.Info("Closing ledger request producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
