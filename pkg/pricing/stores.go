package pricing

import (
	"context"
	"time"

	"github.com/hotbray/briar/pkg/models"
)

// DealerStore provides dealer accounts and their tier assignments.
// Lookups return nil (not an error) when the row is absent.
type DealerStore interface {
	GetByID(ctx context.Context, tenantID, dealerAccountID string) (*models.DealerAccount, error)
	ListTierAssignments(ctx context.Context, tenantID, dealerAccountID string) ([]models.DealerTierAssignment, error)
}

// CatalogStore provides priced catalog entries by part code
type CatalogStore interface {
	GetByPartCode(ctx context.Context, tenantID, partCode string) (*models.ProductCatalogEntry, error)
	ListByPartCodes(ctx context.Context, tenantID string, partCodes []string) ([]models.ProductCatalogEntry, error)
}

// SpecialPriceStore provides active special-price overrides. Results cover
// global rows and rows targeted at the given dealer, with candidates ordered
// most recently created first; the resolver takes the first match per
// product+category. FindActive returns nil when no override applies.
type SpecialPriceStore interface {
	FindActive(ctx context.Context, tenantID, partCode string, discountCode models.DiscountCode, dealerAccountID string, now time.Time) (*models.SpecialPrice, error)
	ListActiveByPartCodes(ctx context.Context, tenantID string, partCodes []string, dealerAccountID string, now time.Time) ([]models.SpecialPrice, error)
}
