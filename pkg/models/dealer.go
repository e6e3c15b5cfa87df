package models

import "time"

// DealerStatus is the lifecycle state of a dealer account
type DealerStatus string

const (
	DealerStatusActive    DealerStatus = "ACTIVE"
	DealerStatusSuspended DealerStatus = "SUSPENDED"
	DealerStatusInactive  DealerStatus = "INACTIVE"
)

// DealerEntitlement restricts which part categories a dealer can see,
// independent of pricing tier
type DealerEntitlement string

const (
	EntitlementShowAll         DealerEntitlement = "SHOW_ALL"
	EntitlementGenuineOnly     DealerEntitlement = "GENUINE_ONLY"
	EntitlementAftermarketOnly DealerEntitlement = "AFTERMARKET_ONLY"
)

// DealerAccount represents a dealer organization in the portal
type DealerAccount struct {
	ID          string            `json:"id" db:"id"`
	TenantID    string            `json:"tenant_id" db:"tenant_id"`
	AccountNo   string            `json:"account_no" db:"account_no"`
	CompanyName string            `json:"company_name" db:"company_name"`
	Status      DealerStatus      `json:"status" db:"status"`
	Entitlement DealerEntitlement `json:"entitlement" db:"entitlement"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time        `json:"deleted_at,omitempty" db:"deleted_at"`
}

// DealerTierAssignment maps a dealer to a net-price tier within one discount
// category. At most one assignment per (dealer, category).
type DealerTierAssignment struct {
	ID              string       `json:"id" db:"id"`
	TenantID        string       `json:"tenant_id" db:"tenant_id"`
	DealerAccountID string       `json:"dealer_account_id" db:"dealer_account_id"`
	DiscountCode    DiscountCode `json:"discount_code" db:"discount_code"`
	Tier            PriceTier    `json:"tier" db:"tier"`
	SourceBatchID   *string      `json:"source_batch_id,omitempty" db:"source_batch_id"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}
