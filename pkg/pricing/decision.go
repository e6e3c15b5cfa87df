package pricing

import (
	"github.com/hotbray/briar/pkg/entitlement"
	"github.com/hotbray/briar/pkg/models"
)

// decide runs the precedence chain for one product once every input has been
// fetched. Both the single and batch paths funnel through here so their
// results cannot diverge.
//
// Precedence: catalog presence, entitlement gate, active special price,
// tier assignment, tier price.
func decide(
	partCode string,
	dealer *models.DealerAccount,
	entry *models.ProductCatalogEntry,
	special *models.SpecialPrice,
	tiers map[models.DiscountCode]models.PriceTier,
) models.PriceDecision {
	if entry == nil {
		return models.Unavailable(partCode, models.ReasonCatalogMissing)
	}

	category := entitlement.CategoryForDiscountCode(entry.DiscountCode)
	if gate := entitlement.CanAccess(dealer.Entitlement, category); !gate.Allowed {
		return models.Unavailable(partCode, gate.Reason)
	}

	if special != nil {
		return models.PriceDecision{
			PartCode:  partCode,
			Price:     special.DiscountPrice,
			BandCode:  models.BandCodeSpecial,
			Available: true,
		}
	}

	tier, ok := tiers[entry.DiscountCode]
	if !ok {
		return models.Unavailable(partCode, models.ReasonTierAssignmentMissing)
	}

	net := entry.NetPrice(tier)
	if !net.Valid {
		return models.Unavailable(partCode, models.ReasonTierPriceMissing)
	}

	return models.PriceDecision{
		PartCode:  partCode,
		Price:     net.Decimal,
		BandCode:  string(tier),
		Available: true,
	}
}

func tierMap(assignments []models.DealerTierAssignment) map[models.DiscountCode]models.PriceTier {
	tiers := make(map[models.DiscountCode]models.PriceTier, len(assignments))
	for _, a := range assignments {
		tiers[a.DiscountCode] = a.Tier
	}
	return tiers
}
