package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountCode partitions products and tier assignments into pricing
// categories: gn (genuine), es (aftermarket), br (branded)
type DiscountCode string

const (
	DiscountCodeGenuine     DiscountCode = "gn"
	DiscountCodeAftermarket DiscountCode = "es"
	DiscountCodeBranded     DiscountCode = "br"
)

// PriceTier is a dealer's assigned discount level within a part category
type PriceTier string

const (
	TierNet1 PriceTier = "Net1"
	TierNet2 PriceTier = "Net2"
	TierNet3 PriceTier = "Net3"
	TierNet4 PriceTier = "Net4"
	TierNet5 PriceTier = "Net5"
	TierNet6 PriceTier = "Net6"
	TierNet7 PriceTier = "Net7"
)

// AllTiers lists every valid tier in ascending order
var AllTiers = []PriceTier{TierNet1, TierNet2, TierNet3, TierNet4, TierNet5, TierNet6, TierNet7}

// ParsePriceTier validates a tier name
func ParsePriceTier(s string) (PriceTier, bool) {
	for _, t := range AllTiers {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// ProductCatalogEntry is one priced product. Tier columns are nullable since
// source feeds do not publish every tier for every part.
type ProductCatalogEntry struct {
	ID            string              `json:"id" db:"id"`
	TenantID      string              `json:"tenant_id" db:"tenant_id"`
	PartCode      string              `json:"part_code" db:"part_code"`
	Description   string              `json:"description" db:"description"`
	DiscountCode  DiscountCode        `json:"discount_code" db:"discount_code"`
	Supplier      string              `json:"supplier" db:"supplier"`
	RetailPrice   decimal.Decimal     `json:"retail_price" db:"retail_price"`
	Net1Price     decimal.NullDecimal `json:"net1_price" db:"net1_price"`
	Net2Price     decimal.NullDecimal `json:"net2_price" db:"net2_price"`
	Net3Price     decimal.NullDecimal `json:"net3_price" db:"net3_price"`
	Net4Price     decimal.NullDecimal `json:"net4_price" db:"net4_price"`
	Net5Price     decimal.NullDecimal `json:"net5_price" db:"net5_price"`
	Net6Price     decimal.NullDecimal `json:"net6_price" db:"net6_price"`
	Net7Price     decimal.NullDecimal `json:"net7_price" db:"net7_price"`
	FreeStock     int                 `json:"free_stock" db:"free_stock"`
	IsActive      bool                `json:"is_active" db:"is_active"`
	SourceBatchID *string             `json:"source_batch_id,omitempty" db:"source_batch_id"`
	CreatedAt     time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`
}

// NetPrice returns the price column for the given tier
func (p *ProductCatalogEntry) NetPrice(tier PriceTier) decimal.NullDecimal {
	switch tier {
	case TierNet1:
		return p.Net1Price
	case TierNet2:
		return p.Net2Price
	case TierNet3:
		return p.Net3Price
	case TierNet4:
		return p.Net4Price
	case TierNet5:
		return p.Net5Price
	case TierNet6:
		return p.Net6Price
	case TierNet7:
		return p.Net7Price
	}
	return decimal.NullDecimal{}
}
