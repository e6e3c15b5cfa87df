// Package stagedrow persists raw import rows accumulated between the first
// row message of a batch and its commit
package stagedrow

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

// Repository handles staged import row persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new staged row repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const stagedColumns = "id, tenant_id, batch_id, import_type, row_number, payload, is_valid, validation_errors, created_at"

// Stage records one raw row. Keyed on (tenant, batch, row_number) so message
// redelivery overwrites rather than duplicates.
func (r *Repository) Stage(ctx context.Context, row models.StagedImportRow) error {
	ctx, span := tracing.StartSpan(ctx, "stagedrow.Repository.Stage")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("staged_import_rows")
	sb.Cols("id", "tenant_id", "batch_id", "import_type", "row_number", "payload", "is_valid", "validation_errors", "created_at")
	sb.Values(uuid.New().String(), row.TenantID, row.BatchID, row.ImportType, row.RowNumber, []byte(row.Payload), row.IsValid, row.ValidationErrors, time.Now().UTC())

	query, args := sb.Build()
	query += " ON CONFLICT (tenant_id, batch_id, row_number) DO UPDATE SET import_type = EXCLUDED.import_type, payload = EXCLUDED.payload, is_valid = EXCLUDED.is_valid, validation_errors = EXCLUDED.validation_errors"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": row.TenantID, "batch_id": row.BatchID, "row_number": row.RowNumber}).Error("Failed to stage import row")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to stage import row")
	}
	return nil
}

// ListValid returns a batch's valid rows in row order, ready to apply
func (r *Repository) ListValid(ctx context.Context, tenantID, batchID string) ([]models.StagedImportRow, error) {
	ctx, span := tracing.StartSpan(ctx, "stagedrow.Repository.ListValid")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(stagedColumns)
	sb.From("staged_import_rows")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("batch_id", batchID),
		sb.Equal("is_valid", true),
	)
	sb.OrderBy("row_number").Asc()

	query, args := sb.Build()
	var rows []models.StagedImportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "batch_id": batchID}).Error("Failed to list staged rows")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list staged rows")
	}
	return rows, nil
}

// ListInvalid returns the rows rejected during staging so the commit can
// report them as row errors
func (r *Repository) ListInvalid(ctx context.Context, tenantID, batchID string) ([]models.StagedImportRow, error) {
	ctx, span := tracing.StartSpan(ctx, "stagedrow.Repository.ListInvalid")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(stagedColumns)
	sb.From("staged_import_rows")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("batch_id", batchID),
		sb.Equal("is_valid", false),
	)
	sb.OrderBy("row_number").Asc()

	query, args := sb.Build()
	var rows []models.StagedImportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "batch_id": batchID}).Error("Failed to list rejected staged rows")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list rejected staged rows")
	}
	return rows, nil
}

// Count returns total and valid row counts for a batch
func (r *Repository) Count(ctx context.Context, tenantID, batchID string) (total int, valid int, err error) {
	ctx, span := tracing.StartSpan(ctx, "stagedrow.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*) AS total", "COUNT(*) FILTER (WHERE is_valid) AS valid")
	sb.From("staged_import_rows")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("batch_id", batchID),
	)

	query, args := sb.Build()
	var counts struct {
		Total int `db:"total"`
		Valid int `db:"valid"`
	}
	if err := r.db.GetContext(ctx, &counts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "batch_id": batchID}).Error("Failed to count staged rows")
		return 0, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count staged rows")
	}
	return counts.Total, counts.Valid, nil
}

// DeleteByBatch clears a batch's staged rows once the batch is applied
func (r *Repository) DeleteByBatch(ctx context.Context, tenantID, batchID string) error {
	ctx, span := tracing.StartSpan(ctx, "stagedrow.Repository.DeleteByBatch")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("staged_import_rows")
	db.Where(
		db.Equal("tenant_id", tenantID),
		db.Equal("batch_id", batchID),
	)

	query, args := db.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "batch_id": batchID}).Error("Failed to delete staged rows")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete staged rows")
	}
	return nil
}
