// Package importbatch persists import batch lifecycle state and per-row errors
package importbatch

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/hotbray/briar/pkg/database"
	"github.com/hotbray/briar/pkg/models"
	"github.com/hotbray/briar/pkg/tracing"
)

// Repository handles import batch persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new import batch repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const batchColumns = "id, tenant_id, import_type, status, row_count, valid_row_count, error_count, created_at, completed_at"

// Create opens a new batch in staging status
func (r *Repository) Create(ctx context.Context, tenantID string, importType models.ImportType, batchID string) (*models.ImportBatch, error) {
	ctx, span := tracing.StartSpan(ctx, "importbatch.Repository.Create")
	defer span.End()

	batch := models.ImportBatch{
		ID:         batchID,
		TenantID:   tenantID,
		ImportType: importType,
		Status:     models.BatchStatusStaging,
		CreatedAt:  time.Now().UTC(),
	}
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("import_batches")
	sb.Cols("id", "tenant_id", "import_type", "status", "row_count", "valid_row_count", "error_count", "created_at")
	sb.Values(batch.ID, batch.TenantID, batch.ImportType, batch.Status, 0, 0, 0, batch.CreatedAt)

	query, args := sb.Build()
	query += " ON CONFLICT (id) DO NOTHING"
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "batch_id": batch.ID}).Error("Failed to create import batch")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create import batch")
	}
	return r.Get(ctx, tenantID, batch.ID)
}

// Get returns a batch by id, or nil when absent
func (r *Repository) Get(ctx context.Context, tenantID, batchID string) (*models.ImportBatch, error) {
	ctx, span := tracing.StartSpan(ctx, "importbatch.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(batchColumns)
	sb.From("import_batches")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("id", batchID),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var batch models.ImportBatch
	if err := r.db.GetContext(ctx, &batch, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "batch_id": batchID}).Error("Failed to get import batch")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get import batch")
	}
	return &batch, nil
}

// UpdateStatus moves a batch to a new lifecycle status
func (r *Repository) UpdateStatus(ctx context.Context, tenantID, batchID string, status models.ImportBatchStatus) error {
	ctx, span := tracing.StartSpan(ctx, "importbatch.Repository.UpdateStatus")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("import_batches")
	ub.Set(ub.Assign("status", status))
	ub.Where(
		ub.Equal("tenant_id", tenantID),
		ub.Equal("id", batchID),
	)

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "batch_id": batchID, "status": status}).Error("Failed to update import batch status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update import batch status")
	}
	return nil
}

// Finish records final counts and stamps completion. Status is completed or
// failed depending on how the apply went.
func (r *Repository) Finish(ctx context.Context, tenantID, batchID string, status models.ImportBatchStatus, rowCount, validRowCount, errorCount int) error {
	ctx, span := tracing.StartSpan(ctx, "importbatch.Repository.Finish")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("import_batches")
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("row_count", rowCount),
		ub.Assign("valid_row_count", validRowCount),
		ub.Assign("error_count", errorCount),
		ub.Assign("completed_at", time.Now().UTC()),
	)
	ub.Where(
		ub.Equal("tenant_id", tenantID),
		ub.Equal("id", batchID),
	)

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "batch_id": batchID, "status": status}).Error("Failed to finish import batch")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to finish import batch")
	}
	return nil
}

// AddRowError records one rejected row for later inspection
func (r *Repository) AddRowError(ctx context.Context, tenantID, batchID string, rowNumber int, message string) error {
	ctx, span := tracing.StartSpan(ctx, "importbatch.Repository.AddRowError")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("import_row_errors")
	sb.Cols("id", "tenant_id", "batch_id", "row_number", "message", "created_at")
	sb.Values(uuid.New().String(), tenantID, batchID, rowNumber, message, time.Now().UTC())

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "batch_id": batchID, "row_number": rowNumber}).Error("Failed to record import row error")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to record import row error")
	}
	return nil
}

// ListRowErrors returns every rejected row for a batch in row order
func (r *Repository) ListRowErrors(ctx context.Context, tenantID, batchID string) ([]models.ImportRowError, error) {
	ctx, span := tracing.StartSpan(ctx, "importbatch.Repository.ListRowErrors")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id, tenant_id, batch_id, row_number, message, created_at")
	sb.From("import_row_errors")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("batch_id", batchID),
	)
	sb.OrderBy("row_number").Asc()

	query, args := sb.Build()
	var errs []models.ImportRowError
	if err := r.db.SelectContext(ctx, &errs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "batch_id": batchID}).Error("Failed to list import row errors")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list import row errors")
	}
	return errs, nil
}
