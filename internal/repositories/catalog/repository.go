// Package catalog persists priced product catalog entries
package catalog

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

// Repository handles product catalog persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new catalog repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const catalogColumns = "id, tenant_id, part_code, description, discount_code, supplier, retail_price, net1_price, net2_price, net3_price, net4_price, net5_price, net6_price, net7_price, free_stock, is_active, source_batch_id, created_at, updated_at"

// GetByPartCode returns the catalog entry for a part, or nil when absent
func (r *Repository) GetByPartCode(ctx context.Context, tenantID, partCode string) (*models.ProductCatalogEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.Repository.GetByPartCode")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(catalogColumns)
	sb.From("product_catalog")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("part_code", partCode),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var entry models.ProductCatalogEntry
	if err := r.db.GetContext(ctx, &entry, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "part_code": partCode}).Error("Failed to get catalog entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get catalog entry")
	}
	return &entry, nil
}

// ListByPartCodes returns the catalog entries for a set of parts in one query.
// Missing parts are simply absent from the result.
func (r *Repository) ListByPartCodes(ctx context.Context, tenantID string, partCodes []string) ([]models.ProductCatalogEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.Repository.ListByPartCodes")
	defer span.End()

	if len(partCodes) == 0 {
		return nil, nil
	}

	codes := make([]any, len(partCodes))
	for i, c := range partCodes {
		codes[i] = c
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(catalogColumns)
	sb.From("product_catalog")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.In("part_code", codes...),
	)

	query, args := sb.Build()
	var entries []models.ProductCatalogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "part_count": len(partCodes)}).Error("Failed to list catalog entries")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list catalog entries")
	}
	return entries, nil
}

// Upsert creates or updates a catalog entry keyed by (tenant, part_code)
func (r *Repository) Upsert(ctx context.Context, tenantID string, entry models.ProductCatalogEntry) error {
	ctx, span := tracing.StartSpan(ctx, "catalog.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("product_catalog")
	sb.Cols("id", "tenant_id", "part_code", "description", "discount_code", "supplier", "retail_price", "net1_price", "net2_price", "net3_price", "net4_price", "net5_price", "net6_price", "net7_price", "free_stock", "is_active", "source_batch_id", "created_at", "updated_at")
	sb.Values(
		uuid.New().String(), tenantID, entry.PartCode, entry.Description, entry.DiscountCode, entry.Supplier,
		entry.RetailPrice, entry.Net1Price, entry.Net2Price, entry.Net3Price, entry.Net4Price, entry.Net5Price, entry.Net6Price, entry.Net7Price,
		entry.FreeStock, entry.IsActive, entry.SourceBatchID, now, now,
	)

	query, args := sb.Build()
	query += " ON CONFLICT (tenant_id, part_code) DO UPDATE SET description = EXCLUDED.description, discount_code = EXCLUDED.discount_code, supplier = EXCLUDED.supplier, retail_price = EXCLUDED.retail_price, net1_price = EXCLUDED.net1_price, net2_price = EXCLUDED.net2_price, net3_price = EXCLUDED.net3_price, net4_price = EXCLUDED.net4_price, net5_price = EXCLUDED.net5_price, net6_price = EXCLUDED.net6_price, net7_price = EXCLUDED.net7_price, free_stock = EXCLUDED.free_stock, is_active = EXCLUDED.is_active, source_batch_id = EXCLUDED.source_batch_id, updated_at = EXCLUDED.updated_at"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "part_code": entry.PartCode}).Error("Failed to upsert catalog entry")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert catalog entry")
	}
	return nil
}
