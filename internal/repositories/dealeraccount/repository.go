// Package dealeraccount persists dealer accounts and their tier assignments
package dealeraccount

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

// Repository handles dealer account persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new dealer account repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const dealerColumns = "id, tenant_id, account_no, company_name, status, entitlement, created_at, updated_at, deleted_at"

// GetByID returns a dealer account by id, or nil when none exists
func (r *Repository) GetByID(ctx context.Context, tenantID, id string) (*models.DealerAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "dealeraccount.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(dealerColumns)
	sb.From("dealer_accounts")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var account models.DealerAccount
	if err := r.db.GetContext(ctx, &account, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "dealer_account_id": id}).Error("Failed to get dealer account")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dealer account")
	}
	return &account, nil
}

// GetByAccountNo returns a dealer account by its external account number, or nil
func (r *Repository) GetByAccountNo(ctx context.Context, tenantID, accountNo string) (*models.DealerAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "dealeraccount.Repository.GetByAccountNo")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(dealerColumns)
	sb.From("dealer_accounts")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("account_no", accountNo),
		sb.IsNull("deleted_at"),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var account models.DealerAccount
	if err := r.db.GetContext(ctx, &account, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "account_no": accountNo}).Error("Failed to get dealer account by account number")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dealer account")
	}
	return &account, nil
}

// Upsert creates or updates a dealer account keyed by (tenant, account_no)
// and returns the stored row.
func (r *Repository) Upsert(ctx context.Context, tenantID string, account models.DealerAccount) (*models.DealerAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "dealeraccount.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("dealer_accounts")
	sb.Cols("id", "tenant_id", "account_no", "company_name", "status", "entitlement", "created_at", "updated_at")
	sb.Values(uuid.New().String(), tenantID, account.AccountNo, account.CompanyName, account.Status, account.Entitlement, now, now)

	query, args := sb.Build()
	query += " ON CONFLICT (tenant_id, account_no) DO UPDATE SET company_name = EXCLUDED.company_name, status = EXCLUDED.status, entitlement = EXCLUDED.entitlement, updated_at = EXCLUDED.updated_at, deleted_at = NULL"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "account_no": account.AccountNo}).Error("Failed to upsert dealer account")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert dealer account")
	}

	return r.GetByAccountNo(ctx, tenantID, account.AccountNo)
}

// ListTierAssignments returns all tier assignments for a dealer
func (r *Repository) ListTierAssignments(ctx context.Context, tenantID, dealerAccountID string) ([]models.DealerTierAssignment, error) {
	ctx, span := tracing.StartSpan(ctx, "dealeraccount.Repository.ListTierAssignments")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "dealer_account_id", "discount_code", "tier", "source_batch_id", "created_at", "updated_at")
	sb.From("dealer_tier_assignments")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("dealer_account_id", dealerAccountID),
	)

	query, args := sb.Build()
	var assignments []models.DealerTierAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "dealer_account_id": dealerAccountID}).Error("Failed to list tier assignments")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list tier assignments")
	}
	return assignments, nil
}

// UpsertTierAssignment sets the dealer's tier for one discount category
func (r *Repository) UpsertTierAssignment(ctx context.Context, tenantID, dealerAccountID string, discountCode models.DiscountCode, tier models.PriceTier, batchID *string) error {
	ctx, span := tracing.StartSpan(ctx, "dealeraccount.Repository.UpsertTierAssignment")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("dealer_tier_assignments")
	sb.Cols("id", "tenant_id", "dealer_account_id", "discount_code", "tier", "source_batch_id", "created_at", "updated_at")
	sb.Values(uuid.New().String(), tenantID, dealerAccountID, discountCode, tier, batchID, now, now)

	query, args := sb.Build()
	query += " ON CONFLICT (tenant_id, dealer_account_id, discount_code) DO UPDATE SET tier = EXCLUDED.tier, source_batch_id = EXCLUDED.source_batch_id, updated_at = EXCLUDED.updated_at"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "dealer_account_id": dealerAccountID, "discount_code": discountCode}).Error("Failed to upsert tier assignment")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert tier assignment")
	}
	return nil
}

// DeleteTierAssignment removes the dealer's assignment for one category.
// Used when a dealer upload blanks out a previously assigned tier.
func (r *Repository) DeleteTierAssignment(ctx context.Context, tenantID, dealerAccountID string, discountCode models.DiscountCode) error {
	ctx, span := tracing.StartSpan(ctx, "dealeraccount.Repository.DeleteTierAssignment")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("dealer_tier_assignments")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("dealer_account_id", dealerAccountID),
		sb.Equal("discount_code", discountCode),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "dealer_account_id": dealerAccountID, "discount_code": discountCode}).Error("Failed to delete tier assignment")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete tier assignment")
	}
	return nil
}
