// Package entitlement implements the dealer visibility gate. It is a pure
// policy table: no I/O, no side effects.
package entitlement

import "github.com/hotbray/briar/pkg/models"

// PartCategory is the entitlement-facing grouping of a catalog entry,
// derived from its discount code.
type PartCategory string

const (
	CategoryGenuine     PartCategory = "GENUINE"
	CategoryAftermarket PartCategory = "AFTERMARKET"
	CategoryBranded     PartCategory = "BRANDED"
)

// Deny reasons surfaced on price decisions
const (
	ReasonInvalidEntitlement = "Invalid entitlement configuration"
	ReasonGenuineOnly        = "Entitlement restricted to genuine parts"
	ReasonAftermarketOnly    = "Entitlement restricted to aftermarket parts"
)

// Decision is the gate outcome; Reason is set only on denial
type Decision struct {
	Allowed bool
	Reason  string
}

// CategoryForDiscountCode maps a catalog discount code to its part category.
// gn is genuine and br is branded; everything else (es) is aftermarket.
func CategoryForDiscountCode(code models.DiscountCode) PartCategory {
	switch code {
	case models.DiscountCodeGenuine:
		return CategoryGenuine
	case models.DiscountCodeBranded:
		return CategoryBranded
	default:
		return CategoryAftermarket
	}
}

// CanAccess applies the entitlement policy table:
//
//	SHOW_ALL          -> every category
//	GENUINE_ONLY      -> GENUINE only
//	AFTERMARKET_ONLY  -> AFTERMARKET and BRANDED
//
// Any other entitlement value is a configuration error and denies access.
func CanAccess(ent models.DealerEntitlement, category PartCategory) Decision {
	switch ent {
	case models.EntitlementShowAll:
		return Decision{Allowed: true}
	case models.EntitlementGenuineOnly:
		if category == CategoryGenuine {
			return Decision{Allowed: true}
		}
		return Decision{Reason: ReasonGenuineOnly}
	case models.EntitlementAftermarketOnly:
		if category == CategoryAftermarket || category == CategoryBranded {
			return Decision{Allowed: true}
		}
		return Decision{Reason: ReasonAftermarketOnly}
	default:
		return Decision{Reason: ReasonInvalidEntitlement}
	}
}
