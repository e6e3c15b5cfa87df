package models

import "github.com/shopspring/decimal"

// BandCodeSpecial is reported instead of a tier name when an active special
// price won the precedence chain.
const BandCodeSpecial = "SPECIAL_PRICE"

// Soft per-item failure reasons carried on PriceDecision. These render as
// "price unavailable" in the portal, never as errors.
const (
	ReasonCatalogMissing        = "Catalog record missing"
	ReasonTierAssignmentMissing = "Tier assignment missing"
	ReasonTierPriceMissing      = "Tier price missing"
)

// PriceDecision is the outcome of price resolution for one product.
// Available=false means the dealer sees no price for the part; Reason says
// why. Price and BandCode are only meaningful when Available is true.
type PriceDecision struct {
	PartCode  string          `json:"part_code"`
	Price     decimal.Decimal `json:"price"`
	BandCode  string          `json:"band_code,omitempty"`
	Available bool            `json:"available"`
	Reason    string          `json:"reason,omitempty"`
}

// Unavailable builds a soft-failure decision for a part
func Unavailable(partCode, reason string) PriceDecision {
	return PriceDecision{PartCode: partCode, Available: false, Reason: reason}
}
