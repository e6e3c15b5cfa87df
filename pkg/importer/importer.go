// Package importer stages bulk upload rows and applies committed batches to
// the live tables. Rows arrive one message at a time; nothing touches the
// live tables until the batch's commit message lands.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"

	"github.com/hotbray/briar/pkg/models"
	"github.com/hotbray/briar/pkg/partcode"
	"github.com/hotbray/briar/pkg/supersession"
	"github.com/hotbray/briar/pkg/tracing"
	"github.com/hotbray/briar/pkg/validate"
)

// ErrUnknownImportType rejects messages whose import_type is not one of ours
var ErrUnknownImportType = httperror.NewHTTPError(http.StatusBadRequest, "unknown import type")

// BatchStore tracks import batch lifecycle and row errors
type BatchStore interface {
	Create(ctx context.Context, tenantID string, importType models.ImportType, batchID string) (*models.ImportBatch, error)
	Get(ctx context.Context, tenantID, batchID string) (*models.ImportBatch, error)
	UpdateStatus(ctx context.Context, tenantID, batchID string, status models.ImportBatchStatus) error
	Finish(ctx context.Context, tenantID, batchID string, status models.ImportBatchStatus, rowCount, validRowCount, errorCount int) error
	AddRowError(ctx context.Context, tenantID, batchID string, rowNumber int, message string) error
}

// StagedRowStore holds rows between staging and commit
type StagedRowStore interface {
	Stage(ctx context.Context, row models.StagedImportRow) error
	ListValid(ctx context.Context, tenantID, batchID string) ([]models.StagedImportRow, error)
	ListInvalid(ctx context.Context, tenantID, batchID string) ([]models.StagedImportRow, error)
	Count(ctx context.Context, tenantID, batchID string) (total int, valid int, err error)
	DeleteByBatch(ctx context.Context, tenantID, batchID string) error
}

// DealerStore is the dealer surface the apply step writes through
type DealerStore interface {
	GetByAccountNo(ctx context.Context, tenantID, accountNo string) (*models.DealerAccount, error)
	Upsert(ctx context.Context, tenantID string, account models.DealerAccount) (*models.DealerAccount, error)
	UpsertTierAssignment(ctx context.Context, tenantID, dealerAccountID string, discountCode models.DiscountCode, tier models.PriceTier, batchID *string) error
	DeleteTierAssignment(ctx context.Context, tenantID, dealerAccountID string, discountCode models.DiscountCode) error
}

// CatalogStore is the catalog surface the apply step writes through
type CatalogStore interface {
	GetByPartCode(ctx context.Context, tenantID, partCode string) (*models.ProductCatalogEntry, error)
	Upsert(ctx context.Context, tenantID string, entry models.ProductCatalogEntry) error
}

// SpecialPriceStore is the special-price surface the apply step writes through
type SpecialPriceStore interface {
	Create(ctx context.Context, tenantID string, price models.SpecialPrice) (*models.SpecialPrice, error)
}

// LinkStore is the supersession link surface the apply step writes through
type LinkStore interface {
	ListLinks(ctx context.Context, tenantID string) ([]models.SupersessionLink, error)
	UpsertLink(ctx context.Context, tenantID string, link models.SupersessionLink) error
}

// Rebuilder recomputes the derived supersession resolution table
type Rebuilder interface {
	RebuildAll(ctx context.Context, tenantID string, edges map[string]string, batchID string) (supersession.RebuildStats, error)
}

// Service runs the staging and apply halves of the import pipeline
type Service struct {
	batches   BatchStore
	staged    StagedRowStore
	dealers   DealerStore
	catalog   CatalogStore
	specials  SpecialPriceStore
	links     LinkStore
	rebuilder Rebuilder
	logger    ectologger.Logger
}

// NewService creates a new import service
func NewService(batches BatchStore, staged StagedRowStore, dealers DealerStore, catalog CatalogStore, specials SpecialPriceStore, links LinkStore, rebuilder Rebuilder, logger ectologger.Logger) *Service {
	return &Service{
		batches:   batches,
		staged:    staged,
		dealers:   dealers,
		catalog:   catalog,
		specials:  specials,
		links:     links,
		rebuilder: rebuilder,
		logger:    logger,
	}
}

// StageRow validates one row message and stages it. Validation failures are
// staged as invalid rather than returned: the batch keeps flowing and the
// commit reports them as row errors.
func (s *Service) StageRow(ctx context.Context, msg models.ImportMessage) error {
	ctx, span := tracing.StartSpan(ctx, "importer.Service.StageRow")
	defer span.End()

	importType, ok := models.ParseImportType(msg.ImportType)
	if !ok {
		s.logger.WithContext(ctx).WithFields(map[string]any{"tenant_id": msg.TenantID, "batch_id": msg.BatchID, "import_type": msg.ImportType}).Error("Unknown import type on row message")
		return ErrUnknownImportType
	}

	if _, err := s.batches.Create(ctx, msg.TenantID, importType, msg.BatchID); err != nil {
		return err
	}

	row := models.StagedImportRow{
		TenantID:   msg.TenantID,
		BatchID:    msg.BatchID,
		ImportType: importType,
		RowNumber:  msg.RowNumber,
		Payload:    msg.Row,
		IsValid:    true,
	}
	if err := validateRow(importType, msg.Row); err != nil {
		row.IsValid = false
		errMsg := err.Error()
		row.ValidationErrors = &errMsg
	}
	return s.staged.Stage(ctx, row)
}

// CommitResult is the outcome of applying one batch. Rebuild is set only for
// supersession batches.
type CommitResult struct {
	Batch   *models.ImportBatch
	Rebuild *supersession.RebuildStats
}

// Commit closes a batch: applies its valid rows to the live tables, records
// row errors, stamps final counts, and clears the staging rows. A committed
// supersession batch also triggers a full resolution rebuild.
func (s *Service) Commit(ctx context.Context, msg models.ImportMessage) (*CommitResult, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Service.Commit")
	defer span.End()

	importType, ok := models.ParseImportType(msg.ImportType)
	if !ok {
		return nil, ErrUnknownImportType
	}

	batch, err := s.batches.Create(ctx, msg.TenantID, importType, msg.BatchID)
	if err != nil {
		return nil, err
	}
	if batch.Status == models.BatchStatusCompleted {
		// commit redelivered after a successful apply
		s.logger.WithContext(ctx).WithFields(map[string]any{"tenant_id": msg.TenantID, "batch_id": msg.BatchID}).Info("Batch already applied, skipping commit")
		return &CommitResult{Batch: batch}, nil
	}

	if err := s.batches.UpdateStatus(ctx, msg.TenantID, msg.BatchID, models.BatchStatusApplying); err != nil {
		return nil, err
	}

	validRows, err := s.staged.ListValid(ctx, msg.TenantID, msg.BatchID)
	if err != nil {
		return nil, err
	}

	errorCount := 0
	applied := 0
	for _, staged := range validRows {
		if err := s.applyRow(ctx, msg.TenantID, msg.BatchID, importType, staged); err != nil {
			errorCount++
			if recErr := s.batches.AddRowError(ctx, msg.TenantID, msg.BatchID, staged.RowNumber, err.Error()); recErr != nil {
				return nil, recErr
			}
			continue
		}
		applied++
	}

	invalidRows, err := s.staged.ListInvalid(ctx, msg.TenantID, msg.BatchID)
	if err != nil {
		return nil, err
	}
	for _, staged := range invalidRows {
		errorCount++
		message := "row failed validation"
		if staged.ValidationErrors != nil {
			message = *staged.ValidationErrors
		}
		if err := s.batches.AddRowError(ctx, msg.TenantID, msg.BatchID, staged.RowNumber, message); err != nil {
			return nil, err
		}
	}

	var rebuild *supersession.RebuildStats
	if importType == models.ImportTypeSupersession {
		stats, err := s.rebuildResolved(ctx, msg.TenantID, msg.BatchID)
		if err != nil {
			_ = s.batches.Finish(ctx, msg.TenantID, msg.BatchID, models.BatchStatusFailed, len(validRows)+len(invalidRows), applied, errorCount)
			return nil, err
		}
		rebuild = &stats
	}

	rowCount := len(validRows) + len(invalidRows)
	status := models.BatchStatusCompleted
	if applied == 0 && rowCount > 0 {
		status = models.BatchStatusFailed
	}
	if err := s.batches.Finish(ctx, msg.TenantID, msg.BatchID, status, rowCount, applied, errorCount); err != nil {
		return nil, err
	}
	if err := s.staged.DeleteByBatch(ctx, msg.TenantID, msg.BatchID); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":   msg.TenantID,
		"batch_id":    msg.BatchID,
		"import_type": importType,
		"row_count":   rowCount,
		"applied":     applied,
		"error_count": errorCount,
		"status":      status,
	}).Info("Import batch committed")

	finished, err := s.batches.Get(ctx, msg.TenantID, msg.BatchID)
	if err != nil {
		return nil, err
	}
	return &CommitResult{Batch: finished, Rebuild: rebuild}, nil
}

// rebuildResolved recomputes the whole resolution table from the link set as
// it stands after this batch's upserts
func (s *Service) rebuildResolved(ctx context.Context, tenantID, batchID string) (supersession.RebuildStats, error) {
	linkRows, err := s.links.ListLinks(ctx, tenantID)
	if err != nil {
		return supersession.RebuildStats{}, err
	}
	stats, err := s.rebuilder.RebuildAll(ctx, tenantID, supersession.BuildEdgeMap(linkRows), batchID)
	if err != nil {
		return supersession.RebuildStats{}, err
	}
	s.logger.WithContext(ctx).WithFields(map[string]any{"tenant_id": tenantID, "batch_id": batchID, "resolved_count": stats.ResolvedCount}).Info("Supersession resolution rebuilt")
	return stats, nil
}

// validateRow checks a staged payload against its row schema plus part code
// shape rules
func validateRow(importType models.ImportType, payload json.RawMessage) error {
	switch importType {
	case models.ImportTypeProduct:
		var row models.ProductRow
		if err := json.Unmarshal(payload, &row); err != nil {
			return fmt.Errorf("malformed row payload: %w", err)
		}
		if _, err := validate.Struct(row); err != nil {
			return err
		}
		if !partcode.IsValid(partcode.Normalize(row.PartCode)) {
			return fmt.Errorf("invalid part code %q", row.PartCode)
		}
		prices := []struct {
			field string
			raw   string
		}{
			{"retail_price", row.RetailPrice},
			{"net1_price", row.Net1Price},
			{"net2_price", row.Net2Price},
			{"net3_price", row.Net3Price},
			{"net4_price", row.Net4Price},
			{"net5_price", row.Net5Price},
			{"net6_price", row.Net6Price},
			{"net7_price", row.Net7Price},
		}
		for _, p := range prices {
			if err := validatePrice(p.field, p.raw); err != nil {
				return err
			}
		}
	case models.ImportTypeDealer:
		var row models.DealerRow
		if err := json.Unmarshal(payload, &row); err != nil {
			return fmt.Errorf("malformed row payload: %w", err)
		}
		if _, err := validate.Struct(row); err != nil {
			return err
		}
	case models.ImportTypeSpecialPrice:
		var row models.SpecialPriceRow
		if err := json.Unmarshal(payload, &row); err != nil {
			return fmt.Errorf("malformed row payload: %w", err)
		}
		if _, err := validate.Struct(row); err != nil {
			return err
		}
		if !partcode.IsValid(partcode.Normalize(row.PartCode)) {
			return fmt.Errorf("invalid part code %q", row.PartCode)
		}
		if err := validatePrice("discount_price", row.DiscountPrice); err != nil {
			return err
		}
		if _, err := parseWindow(row.StartsAt, row.EndsAt); err != nil {
			return err
		}
	case models.ImportTypeSupersession:
		var row models.SupersessionRow
		if err := json.Unmarshal(payload, &row); err != nil {
			return fmt.Errorf("malformed row payload: %w", err)
		}
		if _, err := validate.Struct(row); err != nil {
			return err
		}
		original := partcode.Normalize(row.OriginalPartCode)
		replacement := partcode.Normalize(row.ReplacementPartCode)
		if !partcode.IsValid(original) || !partcode.IsValid(replacement) {
			return fmt.Errorf("invalid part code in link %q -> %q", row.OriginalPartCode, row.ReplacementPartCode)
		}
		if original == replacement {
			return fmt.Errorf("self-referential link for part %q", original)
		}
	default:
		return ErrUnknownImportType
	}
	return nil
}

// validatePrice rejects price cells that do not parse as non-negative
// decimals. Blank cells are allowed; the row schema marks the required ones.
func validatePrice(field, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q", field, raw)
	}
	if d.IsNegative() {
		return fmt.Errorf("negative %s %q", field, raw)
	}
	return nil
}

type priceWindow struct {
	startsAt time.Time
	endsAt   time.Time
}

func parseWindow(startsAt, endsAt string) (priceWindow, error) {
	start, _, err := parseDate(startsAt)
	if err != nil {
		return priceWindow{}, fmt.Errorf("invalid starts_at %q", startsAt)
	}
	end, bare, err := parseDate(endsAt)
	if err != nil {
		return priceWindow{}, fmt.Errorf("invalid ends_at %q", endsAt)
	}
	if bare {
		// a bare end date is inclusive of the whole day
		end = end.Add(24*time.Hour - time.Second)
	}
	if end.Before(start) {
		return priceWindow{}, fmt.Errorf("ends_at %q precedes starts_at %q", endsAt, startsAt)
	}
	return priceWindow{startsAt: start, endsAt: end}, nil
}

// parseDate accepts RFC 3339 timestamps and bare dates, reporting which form
// it saw
func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}
