// Package pricing resolves dealer-specific unit prices. Resolution is a pure
// read: precedence runs special price, then tier price, behind an
// entitlement gate, and encodes per-item misses as unavailable decisions
// rather than errors.
package pricing

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/hotbray/briar/pkg/models"
	"github.com/hotbray/briar/pkg/partcode"
	"github.com/hotbray/briar/pkg/tracing"
)

// Hard errors that abort the caller's whole operation. Every other miss is a
// soft per-item outcome on the decision itself.
var (
	ErrDealerNotFound = httperror.NewHTTPError(http.StatusNotFound, "dealer account not found")
	ErrDealerInactive = httperror.NewHTTPError(http.StatusForbidden, "dealer account is inactive")
)

// Resolver orchestrates the pricing stores. It holds no mutable state, so
// concurrent resolution calls need no coordination.
type Resolver struct {
	dealers  DealerStore
	catalog  CatalogStore
	specials SpecialPriceStore
	logger   ectologger.Logger
	now      func() time.Time
}

func NewResolver(dealers DealerStore, catalog CatalogStore, specials SpecialPriceStore, logger ectologger.Logger) *Resolver {
	return &Resolver{
		dealers:  dealers,
		catalog:  catalog,
		specials: specials,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ResolveOne prices a single product for a dealer
func (r *Resolver) ResolveOne(ctx context.Context, tenantID, dealerAccountID, partCode string) (models.PriceDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "pricing.Resolver.ResolveOne")
	defer span.End()

	dealer, err := r.requireActiveDealer(ctx, tenantID, dealerAccountID)
	if err != nil {
		return models.PriceDecision{}, err
	}

	code := partcode.Normalize(partCode)
	entry, err := r.catalog.GetByPartCode(ctx, tenantID, code)
	if err != nil {
		return models.PriceDecision{}, err
	}

	var special *models.SpecialPrice
	if entry != nil {
		special, err = r.specials.FindActive(ctx, tenantID, code, entry.DiscountCode, dealer.ID, r.now())
		if err != nil {
			return models.PriceDecision{}, err
		}
	}

	assignments, err := r.dealers.ListTierAssignments(ctx, tenantID, dealer.ID)
	if err != nil {
		return models.PriceDecision{}, err
	}

	return decide(partCode, dealer, entry, special, tierMap(assignments)), nil
}

// ResolveMany prices a set of products with one grouped query per store.
// Results are keyed by the part codes as given and match a pointwise
// ResolveOne for every code.
func (r *Resolver) ResolveMany(ctx context.Context, tenantID, dealerAccountID string, partCodes []string) (map[string]models.PriceDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "pricing.Resolver.ResolveMany")
	defer span.End()

	dealer, err := r.requireActiveDealer(ctx, tenantID, dealerAccountID)
	if err != nil {
		return nil, err
	}

	decisions := make(map[string]models.PriceDecision, len(partCodes))
	if len(partCodes) == 0 {
		return decisions, nil
	}

	normalized := make([]string, 0, len(partCodes))
	seen := make(map[string]bool, len(partCodes))
	for _, raw := range partCodes {
		code := partcode.Normalize(raw)
		if !seen[code] {
			seen[code] = true
			normalized = append(normalized, code)
		}
	}

	entries, err := r.catalog.ListByPartCodes(ctx, tenantID, normalized)
	if err != nil {
		return nil, err
	}
	entryByCode := make(map[string]*models.ProductCatalogEntry, len(entries))
	for i := range entries {
		entryByCode[entries[i].PartCode] = &entries[i]
	}

	now := r.now()
	specialRows, err := r.specials.ListActiveByPartCodes(ctx, tenantID, normalized, dealer.ID, now)
	if err != nil {
		return nil, err
	}
	// Rows arrive most recently created first; keep the first per
	// product+category, mirroring the single-item lookup.
	type specialKey struct {
		partCode     string
		discountCode models.DiscountCode
	}
	specialFor := make(map[specialKey]*models.SpecialPrice, len(specialRows))
	for i := range specialRows {
		key := specialKey{specialRows[i].PartCode, specialRows[i].DiscountCode}
		if _, ok := specialFor[key]; !ok {
			specialFor[key] = &specialRows[i]
		}
	}

	assignments, err := r.dealers.ListTierAssignments(ctx, tenantID, dealer.ID)
	if err != nil {
		return nil, err
	}
	tiers := tierMap(assignments)

	for _, raw := range partCodes {
		code := partcode.Normalize(raw)
		entry := entryByCode[code]
		var special *models.SpecialPrice
		if entry != nil {
			special = specialFor[specialKey{code, entry.DiscountCode}]
		}
		decisions[raw] = decide(raw, dealer, entry, special, tiers)
	}

	return decisions, nil
}

func (r *Resolver) requireActiveDealer(ctx context.Context, tenantID, dealerAccountID string) (*models.DealerAccount, error) {
	dealer, err := r.dealers.GetByID(ctx, tenantID, dealerAccountID)
	if err != nil {
		return nil, err
	}
	if dealer == nil {
		return nil, ErrDealerNotFound
	}
	if dealer.Status == models.DealerStatusInactive {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"tenant_id":         tenantID,
			"dealer_account_id": dealerAccountID,
		}).Warn("Pricing requested for inactive dealer")
		return nil, ErrDealerInactive
	}
	return dealer, nil
}
