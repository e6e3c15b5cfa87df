package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/hotbray/briar/pkg/models"
	"github.com/hotbray/briar/pkg/partcode"
)

// applyRow writes one staged row to its live table. Errors here are recorded
// as row errors on the batch; they never abort the apply.
func (s *Service) applyRow(ctx context.Context, tenantID, batchID string, importType models.ImportType, staged models.StagedImportRow) error {
	switch importType {
	case models.ImportTypeProduct:
		return s.applyProductRow(ctx, tenantID, batchID, staged.Payload)
	case models.ImportTypeDealer:
		return s.applyDealerRow(ctx, tenantID, batchID, staged.Payload)
	case models.ImportTypeSpecialPrice:
		return s.applySpecialPriceRow(ctx, tenantID, batchID, staged.Payload)
	case models.ImportTypeSupersession:
		return s.applySupersessionRow(ctx, tenantID, batchID, staged.Payload)
	}
	return ErrUnknownImportType
}

func (s *Service) applyProductRow(ctx context.Context, tenantID, batchID string, payload json.RawMessage) error {
	var row models.ProductRow
	if err := json.Unmarshal(payload, &row); err != nil {
		return fmt.Errorf("malformed row payload: %w", err)
	}

	retail, err := decimal.NewFromString(row.RetailPrice)
	if err != nil {
		return fmt.Errorf("invalid retail_price %q", row.RetailPrice)
	}

	entry := models.ProductCatalogEntry{
		PartCode:     partcode.Normalize(row.PartCode),
		Description:  row.Description,
		DiscountCode: models.DiscountCode(row.DiscountCode),
		Supplier:     row.Supplier,
		RetailPrice:  retail,
		IsActive:     true,
	}
	entry.SourceBatchID = &batchID

	nets := []struct {
		raw  string
		dest *decimal.NullDecimal
	}{
		{row.Net1Price, &entry.Net1Price},
		{row.Net2Price, &entry.Net2Price},
		{row.Net3Price, &entry.Net3Price},
		{row.Net4Price, &entry.Net4Price},
		{row.Net5Price, &entry.Net5Price},
		{row.Net6Price, &entry.Net6Price},
		{row.Net7Price, &entry.Net7Price},
	}
	for i, net := range nets {
		if net.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(net.raw)
		if err != nil {
			return fmt.Errorf("invalid net%d price %q", i+1, net.raw)
		}
		*net.dest = decimal.NullDecimal{Decimal: d, Valid: true}
	}

	if row.FreeStock != "" {
		stock, err := strconv.Atoi(row.FreeStock)
		if err != nil {
			return fmt.Errorf("invalid free_stock %q", row.FreeStock)
		}
		entry.FreeStock = stock
	}

	return s.catalog.Upsert(ctx, tenantID, entry)
}

func (s *Service) applyDealerRow(ctx context.Context, tenantID, batchID string, payload json.RawMessage) error {
	var row models.DealerRow
	if err := json.Unmarshal(payload, &row); err != nil {
		return fmt.Errorf("malformed row payload: %w", err)
	}

	account := models.DealerAccount{
		AccountNo:   row.AccountNo,
		CompanyName: row.CompanyName,
		Status:      models.DealerStatus(row.Status),
		Entitlement: models.DealerEntitlement(row.Entitlement),
	}
	dealer, err := s.dealers.Upsert(ctx, tenantID, account)
	if err != nil {
		return err
	}

	tiers := []struct {
		code models.DiscountCode
		raw  string
	}{
		{models.DiscountCodeGenuine, row.GnTier},
		{models.DiscountCodeAftermarket, row.EsTier},
		{models.DiscountCodeBranded, row.BrTier},
	}
	for _, t := range tiers {
		if t.raw == "" {
			// blank tier column clears the assignment for that category
			if err := s.dealers.DeleteTierAssignment(ctx, tenantID, dealer.ID, t.code); err != nil {
				return err
			}
			continue
		}
		tier, ok := models.ParsePriceTier(t.raw)
		if !ok {
			return fmt.Errorf("invalid tier %q for category %q", t.raw, t.code)
		}
		if err := s.dealers.UpsertTierAssignment(ctx, tenantID, dealer.ID, t.code, tier, &batchID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) applySpecialPriceRow(ctx context.Context, tenantID, batchID string, payload json.RawMessage) error {
	var row models.SpecialPriceRow
	if err := json.Unmarshal(payload, &row); err != nil {
		return fmt.Errorf("malformed row payload: %w", err)
	}

	code := partcode.Normalize(row.PartCode)
	entry, err := s.catalog.GetByPartCode(ctx, tenantID, code)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("special price references unknown part %q", row.PartCode)
	}

	price, err := decimal.NewFromString(row.DiscountPrice)
	if err != nil {
		return fmt.Errorf("invalid discount_price %q", row.DiscountPrice)
	}
	window, err := parseWindow(row.StartsAt, row.EndsAt)
	if err != nil {
		return err
	}

	var dealerAccountID *string
	if row.DealerAccountNo != "" {
		dealer, err := s.dealers.GetByAccountNo(ctx, tenantID, row.DealerAccountNo)
		if err != nil {
			return err
		}
		if dealer == nil {
			return fmt.Errorf("special price references unknown dealer account %q", row.DealerAccountNo)
		}
		dealerAccountID = &dealer.ID
	}

	special := models.SpecialPrice{
		PartCode:        code,
		DiscountCode:    models.DiscountCode(row.DiscountCode),
		DealerAccountID: dealerAccountID,
		DiscountPrice:   price,
		StartsAt:        window.startsAt,
		EndsAt:          window.endsAt,
		IsActive:        true,
		Description:     row.Description,
	}
	special.SourceBatchID = &batchID
	_, err = s.specials.Create(ctx, tenantID, special)
	return err
}

func (s *Service) applySupersessionRow(ctx context.Context, tenantID, batchID string, payload json.RawMessage) error {
	var row models.SupersessionRow
	if err := json.Unmarshal(payload, &row); err != nil {
		return fmt.Errorf("malformed row payload: %w", err)
	}

	link := models.SupersessionLink{
		OriginalPartCode:    partcode.Normalize(row.OriginalPartCode),
		ReplacementPartCode: partcode.Normalize(row.ReplacementPartCode),
	}
	if row.Note != "" {
		link.Note = &row.Note
	}
	link.SourceBatchID = &batchID
	return s.links.UpsertLink(ctx, tenantID, link)
}
