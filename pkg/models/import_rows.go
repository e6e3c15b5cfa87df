package models

// Row payloads as parsed out of uploaded spreadsheets. Numeric and date
// columns stay strings here; the importer parses them during apply so that
// a malformed cell is a per-row validation error, not a batch failure.

// ProductRow is one catalog upload row
type ProductRow struct {
	PartCode     string `json:"part_code" validate:"required"`
	Description  string `json:"description"`
	DiscountCode string `json:"discount_code" validate:"required,oneof=gn es br"`
	Supplier     string `json:"supplier"`
	RetailPrice  string `json:"retail_price" validate:"required,numeric"`
	Net1Price    string `json:"net1_price" validate:"omitempty,numeric"`
	Net2Price    string `json:"net2_price" validate:"omitempty,numeric"`
	Net3Price    string `json:"net3_price" validate:"omitempty,numeric"`
	Net4Price    string `json:"net4_price" validate:"omitempty,numeric"`
	Net5Price    string `json:"net5_price" validate:"omitempty,numeric"`
	Net6Price    string `json:"net6_price" validate:"omitempty,numeric"`
	Net7Price    string `json:"net7_price" validate:"omitempty,numeric"`
	FreeStock    string `json:"free_stock" validate:"omitempty,number"`
}

// DealerRow is one dealer upload row. Tier columns assign the dealer's net
// tier per discount category; blank means no assignment for that category.
type DealerRow struct {
	AccountNo   string `json:"account_no" validate:"required"`
	CompanyName string `json:"company_name"`
	Status      string `json:"status" validate:"required,oneof=ACTIVE SUSPENDED INACTIVE"`
	Entitlement string `json:"entitlement" validate:"required,oneof=SHOW_ALL GENUINE_ONLY AFTERMARKET_ONLY"`
	GnTier      string `json:"gn_tier" validate:"omitempty,oneof=Net1 Net2 Net3 Net4 Net5 Net6 Net7"`
	EsTier      string `json:"es_tier" validate:"omitempty,oneof=Net1 Net2 Net3 Net4 Net5 Net6 Net7"`
	BrTier      string `json:"br_tier" validate:"omitempty,oneof=Net1 Net2 Net3 Net4 Net5 Net6 Net7"`
}

// SpecialPriceRow is one special-price upload row. DealerAccountNo empty
// means the override is global within the category.
type SpecialPriceRow struct {
	PartCode        string `json:"part_code" validate:"required"`
	DiscountCode    string `json:"discount_code" validate:"required,oneof=gn es br"`
	DiscountPrice   string `json:"discount_price" validate:"required,numeric"`
	StartsAt        string `json:"starts_at" validate:"required"`
	EndsAt          string `json:"ends_at" validate:"required"`
	DealerAccountNo string `json:"dealer_account_no"`
	Description     string `json:"description"`
}

// SupersessionRow is one supersession upload row
type SupersessionRow struct {
	OriginalPartCode    string `json:"original_part_code" validate:"required"`
	ReplacementPartCode string `json:"replacement_part_code" validate:"required,nefield=OriginalPartCode"`
	Note                string `json:"note"`
}
