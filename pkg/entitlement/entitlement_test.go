package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hotbray/briar/pkg/models"
)

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name        string
		entitlement models.DealerEntitlement
		category    PartCategory
		allowed     bool
		reason      string
	}{
		{"show_all genuine", models.EntitlementShowAll, CategoryGenuine, true, ""},
		{"show_all aftermarket", models.EntitlementShowAll, CategoryAftermarket, true, ""},
		{"show_all branded", models.EntitlementShowAll, CategoryBranded, true, ""},

		{"genuine_only genuine", models.EntitlementGenuineOnly, CategoryGenuine, true, ""},
		{"genuine_only aftermarket", models.EntitlementGenuineOnly, CategoryAftermarket, false, ReasonGenuineOnly},
		{"genuine_only branded", models.EntitlementGenuineOnly, CategoryBranded, false, ReasonGenuineOnly},

		{"aftermarket_only genuine", models.EntitlementAftermarketOnly, CategoryGenuine, false, ReasonAftermarketOnly},
		{"aftermarket_only aftermarket", models.EntitlementAftermarketOnly, CategoryAftermarket, true, ""},
		{"aftermarket_only branded", models.EntitlementAftermarketOnly, CategoryBranded, true, ""},

		{"unknown entitlement", models.DealerEntitlement("VIP"), CategoryGenuine, false, ReasonInvalidEntitlement},
		{"empty entitlement", models.DealerEntitlement(""), CategoryBranded, false, ReasonInvalidEntitlement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := CanAccess(tt.entitlement, tt.category)
			assert.Equal(t, tt.allowed, decision.Allowed)
			assert.Equal(t, tt.reason, decision.Reason)
		})
	}
}

func TestCategoryForDiscountCode(t *testing.T) {
	assert.Equal(t, CategoryGenuine, CategoryForDiscountCode(models.DiscountCodeGenuine))
	assert.Equal(t, CategoryBranded, CategoryForDiscountCode(models.DiscountCodeBranded))
	assert.Equal(t, CategoryAftermarket, CategoryForDiscountCode(models.DiscountCodeAftermarket))

	// unknown codes fall through to aftermarket, matching the catalog feed's
	// treatment of es as the default bucket
	assert.Equal(t, CategoryAftermarket, CategoryForDiscountCode(models.DiscountCode("xx")))
}
