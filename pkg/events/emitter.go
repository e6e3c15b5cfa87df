// Package events handles event emission for import pipeline outcomes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/hotbray/briar/pkg/kafka"
	"github.com/hotbray/briar/pkg/models"
	"github.com/hotbray/briar/pkg/tracing"
)

// Event types published on the output topic
const (
	EventImportCompleted     = "import.completed"
	EventImportFailed        = "import.failed"
	EventSupersessionRebuilt = "supersession.rebuilt"
)

// Emitter publishes pipeline outcome events
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitImportCompleted announces a batch that finished applying
func (e *Emitter) EmitImportCompleted(ctx context.Context, batch *models.ImportBatch) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitImportCompleted")
	defer span.End()

	event := &kafka.ImportEvent{
		EventType:  EventImportCompleted,
		TenantID:   batch.TenantID,
		BatchID:    batch.ID,
		ImportType: string(batch.ImportType),
		RowCount:   batch.RowCount,
		Applied:    batch.ValidRowCount,
		ErrorCount: batch.ErrorCount,
	}

	if err := e.producer.PublishImportEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit import.completed event")
		return err
	}
	return nil
}

// EmitImportFailed announces a batch whose apply produced nothing usable
func (e *Emitter) EmitImportFailed(ctx context.Context, batch *models.ImportBatch) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitImportFailed")
	defer span.End()

	event := &kafka.ImportEvent{
		EventType:  EventImportFailed,
		TenantID:   batch.TenantID,
		BatchID:    batch.ID,
		ImportType: string(batch.ImportType),
		RowCount:   batch.RowCount,
		Applied:    batch.ValidRowCount,
		ErrorCount: batch.ErrorCount,
	}

	if err := e.producer.PublishImportEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit import.failed event")
		return err
	}
	return nil
}

// EmitSupersessionRebuilt announces a fresh resolution table so downstream
// caches can invalidate
func (e *Emitter) EmitSupersessionRebuilt(ctx context.Context, tenantID, batchID string, resolvedCount, loopCount int) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSupersessionRebuilt")
	defer span.End()

	event := &kafka.RebuildEvent{
		EventType:     EventSupersessionRebuilt,
		TenantID:      tenantID,
		BatchID:       batchID,
		ResolvedCount: resolvedCount,
		LoopCount:     loopCount,
	}

	if err := e.producer.PublishRebuildEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit supersession.rebuilt event")
		return err
	}
	return nil
}
