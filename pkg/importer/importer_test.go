package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotbray/briar/pkg/logging"
	"github.com/hotbray/briar/pkg/models"
	"github.com/hotbray/briar/pkg/supersession"
)

func testLogger() ectologger.Logger {
	return logging.NewNop()
}

type fakeBatchStore struct {
	batches   map[string]*models.ImportBatch
	rowErrors []models.ImportRowError
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{batches: map[string]*models.ImportBatch{}}
}

func (f *fakeBatchStore) Create(_ context.Context, tenantID string, importType models.ImportType, batchID string) (*models.ImportBatch, error) {
	if b, ok := f.batches[batchID]; ok {
		return b, nil
	}
	b := &models.ImportBatch{ID: batchID, TenantID: tenantID, ImportType: importType, Status: models.BatchStatusStaging, CreatedAt: time.Now().UTC()}
	f.batches[batchID] = b
	return b, nil
}

func (f *fakeBatchStore) Get(_ context.Context, _, batchID string) (*models.ImportBatch, error) {
	return f.batches[batchID], nil
}

func (f *fakeBatchStore) UpdateStatus(_ context.Context, _, batchID string, status models.ImportBatchStatus) error {
	f.batches[batchID].Status = status
	return nil
}

func (f *fakeBatchStore) Finish(_ context.Context, _, batchID string, status models.ImportBatchStatus, rowCount, validRowCount, errorCount int) error {
	b := f.batches[batchID]
	b.Status = status
	b.RowCount = rowCount
	b.ValidRowCount = validRowCount
	b.ErrorCount = errorCount
	now := time.Now().UTC()
	b.CompletedAt = &now
	return nil
}

func (f *fakeBatchStore) AddRowError(_ context.Context, tenantID, batchID string, rowNumber int, message string) error {
	f.rowErrors = append(f.rowErrors, models.ImportRowError{TenantID: tenantID, BatchID: batchID, RowNumber: rowNumber, Message: message})
	return nil
}

type fakeStagedStore struct {
	rows    []models.StagedImportRow
	deleted []string
}

func (f *fakeStagedStore) Stage(_ context.Context, row models.StagedImportRow) error {
	for i, existing := range f.rows {
		if existing.BatchID == row.BatchID && existing.RowNumber == row.RowNumber {
			f.rows[i] = row
			return nil
		}
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeStagedStore) list(batchID string, valid bool) []models.StagedImportRow {
	var out []models.StagedImportRow
	for _, row := range f.rows {
		if row.BatchID == batchID && row.IsValid == valid {
			out = append(out, row)
		}
	}
	return out
}

func (f *fakeStagedStore) ListValid(_ context.Context, _, batchID string) ([]models.StagedImportRow, error) {
	return f.list(batchID, true), nil
}

func (f *fakeStagedStore) ListInvalid(_ context.Context, _, batchID string) ([]models.StagedImportRow, error) {
	return f.list(batchID, false), nil
}

func (f *fakeStagedStore) Count(_ context.Context, _, batchID string) (int, int, error) {
	total := len(f.list(batchID, true)) + len(f.list(batchID, false))
	return total, len(f.list(batchID, true)), nil
}

func (f *fakeStagedStore) DeleteByBatch(_ context.Context, _, batchID string) error {
	f.deleted = append(f.deleted, batchID)
	var remaining []models.StagedImportRow
	for _, row := range f.rows {
		if row.BatchID != batchID {
			remaining = append(remaining, row)
		}
	}
	f.rows = remaining
	return nil
}

type tierWrite struct {
	dealerID string
	code     models.DiscountCode
	tier     models.PriceTier
}

type fakeDealerStore struct {
	accounts     map[string]*models.DealerAccount // keyed by account no
	tierUpserts  []tierWrite
	tierDeletes  []tierWrite
	upsertCalls  int
	nextDealerID int
}

func newFakeDealerStore() *fakeDealerStore {
	return &fakeDealerStore{accounts: map[string]*models.DealerAccount{}}
}

func (f *fakeDealerStore) GetByAccountNo(_ context.Context, _, accountNo string) (*models.DealerAccount, error) {
	return f.accounts[accountNo], nil
}

func (f *fakeDealerStore) Upsert(_ context.Context, tenantID string, account models.DealerAccount) (*models.DealerAccount, error) {
	f.upsertCalls++
	if existing, ok := f.accounts[account.AccountNo]; ok {
		existing.CompanyName = account.CompanyName
		existing.Status = account.Status
		existing.Entitlement = account.Entitlement
		return existing, nil
	}
	f.nextDealerID++
	account.ID = fmt.Sprintf("dealer-%d", f.nextDealerID)
	account.TenantID = tenantID
	f.accounts[account.AccountNo] = &account
	return &account, nil
}

func (f *fakeDealerStore) UpsertTierAssignment(_ context.Context, _, dealerAccountID string, discountCode models.DiscountCode, tier models.PriceTier, _ *string) error {
	f.tierUpserts = append(f.tierUpserts, tierWrite{dealerID: dealerAccountID, code: discountCode, tier: tier})
	return nil
}

func (f *fakeDealerStore) DeleteTierAssignment(_ context.Context, _, dealerAccountID string, discountCode models.DiscountCode) error {
	f.tierDeletes = append(f.tierDeletes, tierWrite{dealerID: dealerAccountID, code: discountCode})
	return nil
}

type fakeCatalogStore struct {
	entries map[string]*models.ProductCatalogEntry
	upserts []models.ProductCatalogEntry
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{entries: map[string]*models.ProductCatalogEntry{}}
}

func (f *fakeCatalogStore) GetByPartCode(_ context.Context, _, partCode string) (*models.ProductCatalogEntry, error) {
	return f.entries[partCode], nil
}

func (f *fakeCatalogStore) Upsert(_ context.Context, tenantID string, entry models.ProductCatalogEntry) error {
	entry.TenantID = tenantID
	f.entries[entry.PartCode] = &entry
	f.upserts = append(f.upserts, entry)
	return nil
}

type fakeSpecialStore struct {
	created []models.SpecialPrice
}

func (f *fakeSpecialStore) Create(_ context.Context, tenantID string, price models.SpecialPrice) (*models.SpecialPrice, error) {
	price.TenantID = tenantID
	f.created = append(f.created, price)
	return &price, nil
}

type fakeLinkStore struct {
	links []models.SupersessionLink
}

func (f *fakeLinkStore) ListLinks(_ context.Context, _ string) ([]models.SupersessionLink, error) {
	return f.links, nil
}

func (f *fakeLinkStore) UpsertLink(_ context.Context, tenantID string, link models.SupersessionLink) error {
	link.TenantID = tenantID
	f.links = append(f.links, link)
	return nil
}

type fakeRebuilder struct {
	calls   int
	edges   map[string]string
	batchID string
}

func (f *fakeRebuilder) RebuildAll(_ context.Context, _ string, edges map[string]string, batchID string) (supersession.RebuildStats, error) {
	f.calls++
	f.edges = edges
	f.batchID = batchID
	return supersession.RebuildStats{ResolvedCount: len(edges)}, nil
}

type testFixture struct {
	service  *Service
	batches  *fakeBatchStore
	staged   *fakeStagedStore
	dealers  *fakeDealerStore
	catalog  *fakeCatalogStore
	specials *fakeSpecialStore
	links    *fakeLinkStore
	rebuild  *fakeRebuilder
}

func newTestFixture() *testFixture {
	f := &testFixture{
		batches:  newFakeBatchStore(),
		staged:   &fakeStagedStore{},
		dealers:  newFakeDealerStore(),
		catalog:  newFakeCatalogStore(),
		specials: &fakeSpecialStore{},
		links:    &fakeLinkStore{},
		rebuild:  &fakeRebuilder{},
	}
	f.service = NewService(f.batches, f.staged, f.dealers, f.catalog, f.specials, f.links, f.rebuild, testLogger())
	return f
}

func rowMessage(t *testing.T, importType models.ImportType, batchID string, rowNumber int, row any) models.ImportMessage {
	t.Helper()
	payload, err := json.Marshal(row)
	require.NoError(t, err)
	return models.ImportMessage{
		Type:       models.ImportMessageTypeRow,
		TenantID:   "t1",
		BatchID:    batchID,
		ImportType: string(importType),
		RowNumber:  rowNumber,
		Row:        payload,
	}
}

func commitMessage(importType models.ImportType, batchID string) models.ImportMessage {
	return models.ImportMessage{
		Type:       models.ImportMessageTypeCommit,
		TenantID:   "t1",
		BatchID:    batchID,
		ImportType: string(importType),
	}
}

func TestStageRow_ValidProductRow(t *testing.T) {
	f := newTestFixture()
	msg := rowMessage(t, models.ImportTypeProduct, "b1", 1, models.ProductRow{
		PartCode:     "AB-123",
		DiscountCode: "gn",
		RetailPrice:  "100.00",
		Net3Price:    "45.00",
	})

	require.NoError(t, f.service.StageRow(context.Background(), msg))

	require.Len(t, f.staged.rows, 1)
	assert.True(t, f.staged.rows[0].IsValid)
	assert.Nil(t, f.staged.rows[0].ValidationErrors)
	require.Contains(t, f.batches.batches, "b1")
	assert.Equal(t, models.BatchStatusStaging, f.batches.batches["b1"].Status)
}

func TestStageRow_InvalidRowStagedAsInvalid(t *testing.T) {
	f := newTestFixture()
	msg := rowMessage(t, models.ImportTypeProduct, "b1", 4, models.ProductRow{
		PartCode:     "AB-123",
		DiscountCode: "zz", // not a category
		RetailPrice:  "100.00",
	})

	require.NoError(t, f.service.StageRow(context.Background(), msg))

	require.Len(t, f.staged.rows, 1)
	assert.False(t, f.staged.rows[0].IsValid)
	require.NotNil(t, f.staged.rows[0].ValidationErrors)
	assert.Contains(t, *f.staged.rows[0].ValidationErrors, "DiscountCode")
}

func TestStageRow_NegativePricesStagedAsInvalid(t *testing.T) {
	f := newTestFixture()
	msg := rowMessage(t, models.ImportTypeProduct, "b1", 2, models.ProductRow{
		PartCode:     "AB-123",
		DiscountCode: "gn",
		RetailPrice:  "-99.99",
		Net3Price:    "-45.00",
	})

	require.NoError(t, f.service.StageRow(context.Background(), msg))

	require.Len(t, f.staged.rows, 1)
	assert.False(t, f.staged.rows[0].IsValid)
	require.NotNil(t, f.staged.rows[0].ValidationErrors)
	assert.Contains(t, *f.staged.rows[0].ValidationErrors, "negative retail_price")
}

func TestStageRow_NegativeSpecialPriceStagedAsInvalid(t *testing.T) {
	f := newTestFixture()
	msg := rowMessage(t, models.ImportTypeSpecialPrice, "b1", 1, models.SpecialPriceRow{
		PartCode:      "AB-123",
		DiscountCode:  "gn",
		DiscountPrice: "-5.00",
		StartsAt:      "2026-03-01",
		EndsAt:        "2026-03-31",
	})

	require.NoError(t, f.service.StageRow(context.Background(), msg))

	require.Len(t, f.staged.rows, 1)
	assert.False(t, f.staged.rows[0].IsValid)
	require.NotNil(t, f.staged.rows[0].ValidationErrors)
	assert.Contains(t, *f.staged.rows[0].ValidationErrors, "negative discount_price")
}

func TestStageRow_UnknownImportType(t *testing.T) {
	f := newTestFixture()
	msg := rowMessage(t, models.ImportType("bogus"), "b1", 1, models.ProductRow{})

	err := f.service.StageRow(context.Background(), msg)
	assert.ErrorIs(t, err, ErrUnknownImportType)
	assert.Empty(t, f.staged.rows)
}

func TestStageRow_Redelivery_OverwritesRow(t *testing.T) {
	f := newTestFixture()
	msg := rowMessage(t, models.ImportTypeProduct, "b1", 1, models.ProductRow{PartCode: "A1", DiscountCode: "gn", RetailPrice: "10"})

	require.NoError(t, f.service.StageRow(context.Background(), msg))
	require.NoError(t, f.service.StageRow(context.Background(), msg))

	assert.Len(t, f.staged.rows, 1)
}

func TestCommit_ProductBatch(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	require.NoError(t, f.service.StageRow(ctx, rowMessage(t, models.ImportTypeProduct, "b1", 1, models.ProductRow{PartCode: "ab-123", DiscountCode: "gn", RetailPrice: "100.00", Net3Price: "45.00"})))
	require.NoError(t, f.service.StageRow(ctx, rowMessage(t, models.ImportTypeProduct, "b1", 2, models.ProductRow{PartCode: "CD-9", DiscountCode: "es", RetailPrice: "20.00", FreeStock: "7"})))

	res, err := f.service.Commit(ctx, commitMessage(models.ImportTypeProduct, "b1"))
	require.NoError(t, err)

	assert.Equal(t, models.BatchStatusCompleted, res.Batch.Status)
	assert.Equal(t, 2, res.Batch.RowCount)
	assert.Equal(t, 2, res.Batch.ValidRowCount)
	assert.Equal(t, 0, res.Batch.ErrorCount)

	require.Len(t, f.catalog.upserts, 2)
	first := f.catalog.upserts[0]
	assert.Equal(t, "AB123", first.PartCode) // normalized on apply
	assert.True(t, first.Net3Price.Valid)
	assert.Equal(t, "45", first.Net3Price.Decimal.String())
	assert.True(t, first.IsActive)
	require.NotNil(t, first.SourceBatchID)
	assert.Equal(t, "b1", *first.SourceBatchID)

	assert.Equal(t, 7, f.catalog.upserts[1].FreeStock)
	assert.Contains(t, f.staged.deleted, "b1")
}

func TestCommit_RecordsRowErrorsForInvalidRows(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	require.NoError(t, f.service.StageRow(ctx, rowMessage(t, models.ImportTypeProduct, "b1", 1, models.ProductRow{PartCode: "A1", DiscountCode: "gn", RetailPrice: "10.00"})))
	require.NoError(t, f.service.StageRow(ctx, rowMessage(t, models.ImportTypeProduct, "b1", 2, models.ProductRow{PartCode: "A2", DiscountCode: "gn", RetailPrice: "not-a-price"})))

	res, err := f.service.Commit(ctx, commitMessage(models.ImportTypeProduct, "b1"))
	require.NoError(t, err)

	assert.Equal(t, models.BatchStatusCompleted, res.Batch.Status)
	assert.Equal(t, 2, res.Batch.RowCount)
	assert.Equal(t, 1, res.Batch.ValidRowCount)
	assert.Equal(t, 1, res.Batch.ErrorCount)
	require.Len(t, f.batches.rowErrors, 1)
	assert.Equal(t, 2, f.batches.rowErrors[0].RowNumber)
	assert.Len(t, f.catalog.upserts, 1)
}

func TestCommit_AllRowsInvalidFailsBatch(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	require.NoError(t, f.service.StageRow(ctx, rowMessage(t, models.ImportTypeProduct, "b1", 1, models.ProductRow{PartCode: "A1", DiscountCode: "xx", RetailPrice: "10.00"})))

	res, err := f.service.Commit(ctx, commitMessage(models.ImportTypeProduct, "b1"))
	require.NoError(t, err)

	assert.Equal(t, models.BatchStatusFailed, res.Batch.Status)
	assert.Equal(t, 1, res.Batch.ErrorCount)
	assert.Empty(t, f.catalog.upserts)
}

func TestCommit_EmptyBatchCompletes(t *testing.T) {
	f := newTestFixture()

	res, err := f.service.Commit(context.Background(), commitMessage(models.ImportTypeProduct, "b1"))
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusCompleted, res.Batch.Status)
	assert.Equal(t, 0, res.Batch.RowCount)
}

func TestCommit_RedeliveredCommitSkipsApply(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	require.NoError(t, f.service.StageRow(ctx, rowMessage(t, models.ImportTypeProduct, "b1", 1, models.ProductRow{PartCode: "A1", DiscountCode: "gn", RetailPrice: "10.00"})))
	_, err := f.service.Commit(ctx, commitMessage(models.ImportTypeProduct, "b1"))
	require.NoError(t, err)
	require.Len(t, f.catalog.upserts, 1)

	_, err = f.service.Commit(ctx, commitMessage(models.ImportTypeProduct, "b1"))
	require.NoError(t, err)
	assert.Len(t, f.catalog.upserts, 1, "second commit must not re-apply rows")
}

func TestCommit_DealerRowAssignsTiers(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	require.NoError(t, f.service.StageRow(ctx, rowMessage(t, models.ImportTypeDealer, "b1", 1, models.DealerRow{
		AccountNo:   "D-100",
		CompanyName: "Meridian Motors",
		Status:      "ACTIVE",
		Entitlement: "SHOW_ALL",
		GnTier:      "Net3",
		EsTier:      "Net5",
	})))

	res, err := f.service.Commit(ctx, commitMessage(models.ImportTypeDealer, "b1"))
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusCompleted, res.Batch.Status)

	require.Len(t, f.dealers.tierUpserts, 2)
	assert.Equal(t, models.TierNet3, f.dealers.tierUpserts[0].tier)
	assert.Equal(t, models.DiscountCodeGenuine, f.dealers.tierUpserts[0].code)
	assert.Equal(t, models.TierNet5, f.dealers.tierUpserts[1].tier)

	// blank br column clears any previous branded assignment
	require.Len(t, f.dealers.tierDeletes, 1)
	assert.Equal(t, models.DiscountCodeBranded, f.dealers.tierDeletes[0].code)
}

func TestCommit_SpecialPriceUnknownPartBecomesRowError(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	f.catalog.entries["KNOWN1"] = &models.ProductCatalogEntry{PartCode: "KNOWN1", DiscountCode: models.DiscountCodeGenuine}

	require.NoError(t, f.service.StageRow(ctx, rowMessage(t, models.ImportTypeSpecialPrice, "b1", 1, models.SpecialPriceRow{
		PartCode: "KNOWN1", DiscountCode: "gn", DiscountPrice: "39.95", StartsAt: "2026-03-01", EndsAt: "2026-03-31",
	})))
	require.NoError(t, f.service.StageRow(ctx, rowMessage(t, models.ImportTypeSpecialPrice, "b1", 2, models.SpecialPriceRow{
		PartCode: "GHOST9", DiscountCode: "gn", DiscountPrice: "10.00", StartsAt: "2026-03-01", EndsAt: "2026-03-31",
	})))

	res, err := f.service.Commit(ctx, commitMessage(models.ImportTypeSpecialPrice, "b1"))
	require.NoError(t, err)

	assert.Equal(t, models.BatchStatusCompleted, res.Batch.Status)
	assert.Equal(t, 1, res.Batch.ErrorCount)
	require.Len(t, f.specials.created, 1)
	assert.Equal(t, "KNOWN1", f.specials.created[0].PartCode)
	require.Len(t, f.batches.rowErrors, 1)
	assert.Contains(t, f.batches.rowErrors[0].Message, "GHOST9")
}

func TestCommit_SpecialPriceDealerScope(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	f.catalog.entries["P1"] = &models.ProductCatalogEntry{PartCode: "P1", DiscountCode: models.DiscountCodeGenuine}
	dealer, err := f.dealers.Upsert(ctx, "t1", models.DealerAccount{AccountNo: "D-7", Status: models.DealerStatusActive, Entitlement: models.EntitlementShowAll})
	require.NoError(t, err)

	require.NoError(t, f.service.StageRow(ctx, rowMessage(t, models.ImportTypeSpecialPrice, "b1", 1, models.SpecialPriceRow{
		PartCode: "P1", DiscountCode: "gn", DiscountPrice: "5.00", StartsAt: "2026-03-01", EndsAt: "2026-03-31", DealerAccountNo: "D-7",
	})))
	_, err = f.service.Commit(ctx, commitMessage(models.ImportTypeSpecialPrice, "b1"))
	require.NoError(t, err)

	require.Len(t, f.specials.created, 1)
	require.NotNil(t, f.specials.created[0].DealerAccountID)
	assert.Equal(t, dealer.ID, *f.specials.created[0].DealerAccountID)
}

func TestCommit_SupersessionTriggersRebuild(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	require.NoError(t, f.service.StageRow(ctx, rowMessage(t, models.ImportTypeSupersession, "b1", 1, models.SupersessionRow{OriginalPartCode: "a-1", ReplacementPartCode: "B1"})))
	require.NoError(t, f.service.StageRow(ctx, rowMessage(t, models.ImportTypeSupersession, "b1", 2, models.SupersessionRow{OriginalPartCode: "B1", ReplacementPartCode: "C1"})))

	res, err := f.service.Commit(ctx, commitMessage(models.ImportTypeSupersession, "b1"))
	require.NoError(t, err)

	assert.Equal(t, models.BatchStatusCompleted, res.Batch.Status)
	require.Len(t, f.links.links, 2)
	assert.Equal(t, "A1", f.links.links[0].OriginalPartCode)

	assert.Equal(t, 1, f.rebuild.calls)
	assert.Equal(t, "b1", f.rebuild.batchID)
	assert.Equal(t, map[string]string{"A1": "B1", "B1": "C1"}, f.rebuild.edges)

	require.NotNil(t, res.Rebuild)
	assert.Equal(t, 2, res.Rebuild.ResolvedCount)
}

func TestStageRow_SelfReferentialLinkRejected(t *testing.T) {
	f := newTestFixture()
	// different raw spellings, same normalized code
	msg := rowMessage(t, models.ImportTypeSupersession, "b1", 1, models.SupersessionRow{OriginalPartCode: "a-1", ReplacementPartCode: "A1"})

	require.NoError(t, f.service.StageRow(context.Background(), msg))
	require.Len(t, f.staged.rows, 1)
	assert.False(t, f.staged.rows[0].IsValid)
}

func TestParseWindow(t *testing.T) {
	window, err := parseWindow("2026-03-01", "2026-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), window.startsAt)
	// bare end date is inclusive of the whole day
	assert.Equal(t, time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC), window.endsAt)

	_, err = parseWindow("2026-04-01", "2026-03-01")
	assert.Error(t, err)

	_, err = parseWindow("31/03/2026", "2026-04-01")
	assert.Error(t, err)

	window, err = parseWindow("2026-03-01T09:30:00Z", "2026-03-01T17:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 9, window.startsAt.Hour())
	assert.Equal(t, 17, window.endsAt.Hour())
}
