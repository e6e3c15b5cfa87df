// Package supersession persists raw supersession links and the derived
// resolution table rebuilt from them
package supersession

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

// Repository handles supersession link and resolution persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new supersession repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const linkColumns = "id, tenant_id, original_part_code, replacement_part_code, note, source_batch_id, created_at, updated_at"
const resolvedColumns = "tenant_id, original_part_code, latest_part_code, chain_length, had_loop, loop_part_code, source_batch_id, computed_at"

// GetResolved returns the precomputed resolution for a part, or nil when the
// part has no cached row
func (r *Repository) GetResolved(ctx context.Context, tenantID, partCode string) (*models.SupersessionResolved, error) {
	ctx, span := tracing.StartSpan(ctx, "supersession.Repository.GetResolved")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(resolvedColumns)
	sb.From("supersession_resolved")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("original_part_code", partCode),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var resolved models.SupersessionResolved
	if err := r.db.GetContext(ctx, &resolved, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "part_code": partCode}).Error("Failed to get resolved supersession")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get resolved supersession")
	}
	return &resolved, nil
}

// ListLinks returns every raw link for a tenant
func (r *Repository) ListLinks(ctx context.Context, tenantID string) ([]models.SupersessionLink, error) {
	ctx, span := tracing.StartSpan(ctx, "supersession.Repository.ListLinks")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(linkColumns)
	sb.From("supersession_links")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("created_at").Asc()

	query, args := sb.Build()
	var links []models.SupersessionLink
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID}).Error("Failed to list supersession links")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list supersession links")
	}
	return links, nil
}

// UpsertLink creates or refreshes a raw link keyed by (tenant, original, replacement)
func (r *Repository) UpsertLink(ctx context.Context, tenantID string, link models.SupersessionLink) error {
	ctx, span := tracing.StartSpan(ctx, "supersession.Repository.UpsertLink")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("supersession_links")
	sb.Cols("id", "tenant_id", "original_part_code", "replacement_part_code", "note", "source_batch_id", "created_at", "updated_at")
	sb.Values(uuid.New().String(), tenantID, link.OriginalPartCode, link.ReplacementPartCode, link.Note, link.SourceBatchID, now, now)

	query, args := sb.Build()
	query += " ON CONFLICT (tenant_id, original_part_code, replacement_part_code) DO UPDATE SET note = EXCLUDED.note, source_batch_id = EXCLUDED.source_batch_id, updated_at = EXCLUDED.updated_at"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "original_part_code": link.OriginalPartCode}).Error("Failed to upsert supersession link")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert supersession link")
	}
	return nil
}

// ReplaceResolved swaps the tenant's entire resolution table for a freshly
// computed set of rows. The delete and inserts run in a single transaction so
// readers never see a partially rebuilt table.
func (r *Repository) ReplaceResolved(ctx context.Context, tenantID, batchID string, rows []models.SupersessionResolved) error {
	ctx, span := tracing.StartSpan(ctx, "supersession.Repository.ReplaceResolved")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("supersession_resolved")
	db.Where(db.Equal("tenant_id", tenantID))
	query, args := db.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
			"batch_id":  batchID,
		}).Error("Failed to clear resolved supersessions")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear resolved supersessions")
	}

	// bulk insert in batches
	const batchSize = 500
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		sb.InsertInto("supersession_resolved")
		sb.Cols("tenant_id", "original_part_code", "latest_part_code", "chain_length", "had_loop", "loop_part_code", "source_batch_id", "computed_at")
		for _, row := range rows[i:end] {
			sb.Values(tenantID, row.OriginalPartCode, row.LatestPartCode, row.ChainLength, row.HadLoop, row.LoopPartCode, batchID, row.ComputedAt)
		}
		query, args := sb.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"tenant_id": tenantID,
				"batch_id":  batchID,
			}).Error("Failed to insert resolved supersessions")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert resolved supersessions")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}
	return nil
}
