package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpecialPrice is a time-boxed price override for a product within a
// discount category. A nil DealerAccountID applies the override to every
// dealer in the category.
type SpecialPrice struct {
	ID              string          `json:"id" db:"id"`
	TenantID        string          `json:"tenant_id" db:"tenant_id"`
	PartCode        string          `json:"part_code" db:"part_code"`
	DiscountCode    DiscountCode    `json:"discount_code" db:"discount_code"`
	DealerAccountID *string         `json:"dealer_account_id,omitempty" db:"dealer_account_id"`
	DiscountPrice   decimal.Decimal `json:"discount_price" db:"discount_price"`
	StartsAt        time.Time       `json:"starts_at" db:"starts_at"`
	EndsAt          time.Time       `json:"ends_at" db:"ends_at"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	Description     string          `json:"description" db:"description"`
	SourceBatchID   *string         `json:"source_batch_id,omitempty" db:"source_batch_id"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// InWindow reports whether the override applies at the given instant
func (s *SpecialPrice) InWindow(now time.Time) bool {
	return s.IsActive && !now.Before(s.StartsAt) && !now.After(s.EndsAt)
}
