// Package specialprice persists time-windowed promotional prices
package specialprice

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

// Repository handles special price persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new special price repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const specialPriceColumns = "id, tenant_id, part_code, discount_code, dealer_account_id, discount_price, starts_at, ends_at, is_active, description, source_batch_id, created_at"

// FindActive returns the winning special price for one part, or nil when no
// special applies. Candidates are restricted to the dealer's own specials plus
// global ones, and ties break on most recent creation.
func (r *Repository) FindActive(ctx context.Context, tenantID, partCode string, discountCode models.DiscountCode, dealerAccountID string, now time.Time) (*models.SpecialPrice, error) {
	ctx, span := tracing.StartSpan(ctx, "specialprice.Repository.FindActive")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(specialPriceColumns)
	sb.From("special_prices")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("part_code", partCode),
		sb.Equal("discount_code", discountCode),
		sb.Equal("is_active", true),
		sb.LessEqualThan("starts_at", now),
		sb.GreaterEqualThan("ends_at", now),
		sb.Or(
			sb.IsNull("dealer_account_id"),
			sb.Equal("dealer_account_id", dealerAccountID),
		),
	)
	sb.OrderBy("created_at").Desc()
	sb.Limit(1)

	query, args := sb.Build()
	var price models.SpecialPrice
	if err := r.db.GetContext(ctx, &price, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "part_code": partCode}).Error("Failed to find active special price")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find active special price")
	}
	return &price, nil
}

// ListActiveByPartCodes returns every special price active now for the given
// parts and dealer, ordered most recently created first so callers can take
// the first candidate per (part, discount code).
func (r *Repository) ListActiveByPartCodes(ctx context.Context, tenantID string, partCodes []string, dealerAccountID string, now time.Time) ([]models.SpecialPrice, error) {
	ctx, span := tracing.StartSpan(ctx, "specialprice.Repository.ListActiveByPartCodes")
	defer span.End()

	if len(partCodes) == 0 {
		return nil, nil
	}

	codes := make([]any, len(partCodes))
	for i, c := range partCodes {
		codes[i] = c
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(specialPriceColumns)
	sb.From("special_prices")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.In("part_code", codes...),
		sb.Equal("is_active", true),
		sb.LessEqualThan("starts_at", now),
		sb.GreaterEqualThan("ends_at", now),
		sb.Or(
			sb.IsNull("dealer_account_id"),
			sb.Equal("dealer_account_id", dealerAccountID),
		),
	)
	sb.OrderBy("created_at").Desc()

	query, args := sb.Build()
	var prices []models.SpecialPrice
	if err := r.db.SelectContext(ctx, &prices, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "part_count": len(partCodes)}).Error("Failed to list active special prices")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list active special prices")
	}
	return prices, nil
}

// Create inserts a new special price row. Specials are append-only; imports
// deactivate superseded rows rather than rewriting them.
func (r *Repository) Create(ctx context.Context, tenantID string, price models.SpecialPrice) (*models.SpecialPrice, error) {
	ctx, span := tracing.StartSpan(ctx, "specialprice.Repository.Create")
	defer span.End()

	price.ID = uuid.New().String()
	price.TenantID = tenantID
	price.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("special_prices")
	sb.Cols("id", "tenant_id", "part_code", "discount_code", "dealer_account_id", "discount_price", "starts_at", "ends_at", "is_active", "description", "source_batch_id", "created_at")
	sb.Values(
		price.ID, price.TenantID, price.PartCode, price.DiscountCode, price.DealerAccountID,
		price.DiscountPrice, price.StartsAt, price.EndsAt, price.IsActive, price.Description,
		price.SourceBatchID, price.CreatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "part_code": price.PartCode}).Error("Failed to create special price")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create special price")
	}
	return &price, nil
}

// DeactivateByPartCode flips is_active off for every special on a part,
// used before re-importing a part's promotions
func (r *Repository) DeactivateByPartCode(ctx context.Context, tenantID, partCode string) error {
	ctx, span := tracing.StartSpan(ctx, "specialprice.Repository.DeactivateByPartCode")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("special_prices")
	ub.Set(ub.Assign("is_active", false))
	ub.Where(
		ub.Equal("tenant_id", tenantID),
		ub.Equal("part_code", partCode),
	)

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "part_code": partCode}).Error("Failed to deactivate special prices")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to deactivate special prices")
	}
	return nil
}
