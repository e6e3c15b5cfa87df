// Package processor routes import pipeline messages. Row messages stage one
// upload row; commit messages apply the batch and announce the outcome.
package processor

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/hotbray/briar/pkg/importer"
	"github.com/hotbray/briar/pkg/kafka"
	"github.com/hotbray/briar/pkg/models"
	"github.com/hotbray/briar/pkg/tracing"
)

// ImportService is the staging and apply surface the processor drives
type ImportService interface {
	StageRow(ctx context.Context, msg models.ImportMessage) error
	Commit(ctx context.Context, msg models.ImportMessage) (*importer.CommitResult, error)
}

// OutcomeEmitter publishes batch outcome events
type OutcomeEmitter interface {
	EmitImportCompleted(ctx context.Context, batch *models.ImportBatch) error
	EmitImportFailed(ctx context.Context, batch *models.ImportBatch) error
	EmitSupersessionRebuilt(ctx context.Context, tenantID, batchID string, resolvedCount, loopCount int) error
}

// Processor handles message processing for the import pipeline
type Processor struct {
	logger   ectologger.Logger
	importer ImportService
	emitter  OutcomeEmitter
}

// NewProcessor creates a new import message processor
func NewProcessor(logger ectologger.Logger, importService ImportService, emitter OutcomeEmitter) *Processor {
	return &Processor{
		logger:   logger,
		importer: importService,
		emitter:  emitter,
	}
}

// HandleMessage is the consumer entry point. Returning an error leaves the
// message uncommitted so it is redelivered.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleMessage")
	defer span.End()

	if msg.ImportMessage == nil {
		p.logger.WithContext(ctx).WithFields(map[string]any{"topic": msg.Topic, "offset": msg.Offset}).Warn("Skipping message without import payload")
		return nil
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":   msg.GetTenantID(),
		"batch_id":    msg.GetBatchID(),
		"import_type": msg.GetImportType(),
		"type":        msg.ImportMessage.Type,
	})

	if msg.GetTenantID() == "" || msg.GetBatchID() == "" {
		log.Warn("Skipping message without tenant or batch id")
		return nil
	}

	switch {
	case msg.IsRow():
		return p.handleRow(ctx, msg)
	case msg.IsCommit():
		return p.handleCommit(ctx, msg)
	default:
		log.Warn("Skipping message with unknown type")
		return nil
	}
}

func (p *Processor) handleRow(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.handleRow")
	defer span.End()

	if err := p.importer.StageRow(ctx, *msg.ImportMessage); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id":  msg.GetTenantID(),
			"batch_id":   msg.GetBatchID(),
			"row_number": msg.ImportMessage.RowNumber,
		}).Error("Failed to stage import row")
		return fmt.Errorf("failed to stage row %d of batch %s: %w", msg.ImportMessage.RowNumber, msg.GetBatchID(), err)
	}
	return nil
}

func (p *Processor) handleCommit(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.handleCommit")
	defer span.End()

	result, err := p.importer.Commit(ctx, *msg.ImportMessage)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": msg.GetTenantID(),
			"batch_id":  msg.GetBatchID(),
		}).Error("Failed to commit import batch")
		return fmt.Errorf("failed to commit batch %s: %w", msg.GetBatchID(), err)
	}

	// Outcome events are best-effort: the batch is already applied, so a
	// publish failure must not trigger a redelivered commit.
	if p.emitter != nil {
		batch := result.Batch
		if batch.Status == models.BatchStatusFailed {
			if err := p.emitter.EmitImportFailed(ctx, batch); err != nil {
				p.logger.WithContext(ctx).WithError(err).Warn("Import failed event not published")
			}
		} else {
			if err := p.emitter.EmitImportCompleted(ctx, batch); err != nil {
				p.logger.WithContext(ctx).WithError(err).Warn("Import completed event not published")
			}
		}
		if result.Rebuild != nil {
			if err := p.emitter.EmitSupersessionRebuilt(ctx, batch.TenantID, batch.ID, result.Rebuild.ResolvedCount, result.Rebuild.LoopCount); err != nil {
				p.logger.WithContext(ctx).WithError(err).Warn("Supersession rebuilt event not published")
			}
		}
	}
	return nil
}
