package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/hotbray/briar/pkg/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	requiredAcks := kafka.RequiredAcks(cfg.RequiredAcks)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           requiredAcks,
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// withTraceHeaders appends the trace context so downstream consumers can
// join the span that produced the event
func withTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
	}
	if tracestate := tracing.GetTraceState(ctx); tracestate != "" {
		headers = append(headers, kafka.Header{Key: "tracestate", Value: []byte(tracestate)})
	}
	return headers
}

// ImportEvent reports the outcome of an import batch
type ImportEvent struct {
	EventType  string    `json:"event_type"` // import.completed, import.failed
	TenantID   string    `json:"tenant_id"`
	BatchID    string    `json:"batch_id"`
	ImportType string    `json:"import_type"`
	RowCount   int       `json:"row_count"`
	Applied    int       `json:"applied"`
	ErrorCount int       `json:"error_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// RebuildEvent reports a supersession resolution rebuild
type RebuildEvent struct {
	EventType     string    `json:"event_type"` // supersession.rebuilt
	TenantID      string    `json:"tenant_id"`
	BatchID       string    `json:"batch_id"`
	ResolvedCount int       `json:"resolved_count"`
	LoopCount     int       `json:"loop_count"`
	Timestamp     time.Time `json:"timestamp"`
}

// PublishImportEvent publishes an import batch outcome
func (p *Producer) PublishImportEvent(ctx context.Context, event *ImportEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishImportEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.BatchID),
		Value: data,
		Headers: withTraceHeaders(ctx, []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "tenant_id", Value: []byte(event.TenantID)},
			{Key: "import_type", Value: []byte(event.ImportType)},
		}),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish import event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type":  event.EventType,
		"batch_id":    event.BatchID,
		"import_type": event.ImportType,
	}).Debug("Published import event")

	return nil
}

// PublishRebuildEvent publishes a supersession rebuild notification
func (p *Producer) PublishRebuildEvent(ctx context.Context, event *RebuildEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishRebuildEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.BatchID),
		Value: data,
		Headers: withTraceHeaders(ctx, []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "tenant_id", Value: []byte(event.TenantID)},
		}),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish rebuild event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"batch_id":   event.BatchID,
	}).Debug("Published rebuild event")

	return nil
}
