package models

import (
	"encoding/json"
	"time"
)

// ImportType identifies which dataset an import batch feeds
type ImportType string

const (
	ImportTypeProduct      ImportType = "product"
	ImportTypeDealer       ImportType = "dealer"
	ImportTypeSpecialPrice ImportType = "special_price"
	ImportTypeSupersession ImportType = "supersession"
)

// ParseImportType validates an import type string
func ParseImportType(s string) (ImportType, bool) {
	switch ImportType(s) {
	case ImportTypeProduct, ImportTypeDealer, ImportTypeSpecialPrice, ImportTypeSupersession:
		return ImportType(s), true
	}
	return "", false
}

// ImportBatchStatus tracks an import batch through the pipeline
type ImportBatchStatus string

const (
	BatchStatusStaging   ImportBatchStatus = "staging"
	BatchStatusApplying  ImportBatchStatus = "applying"
	BatchStatusCompleted ImportBatchStatus = "completed"
	BatchStatusFailed    ImportBatchStatus = "failed"
)

// ImportBatch is one bulk upload moving through staging and apply
type ImportBatch struct {
	ID            string            `json:"id" db:"id"`
	TenantID      string            `json:"tenant_id" db:"tenant_id"`
	ImportType    ImportType        `json:"import_type" db:"import_type"`
	Status        ImportBatchStatus `json:"status" db:"status"`
	RowCount      int               `json:"row_count" db:"row_count"`
	ValidRowCount int               `json:"valid_row_count" db:"valid_row_count"`
	ErrorCount    int               `json:"error_count" db:"error_count"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
}

// ImportRowError records a per-row failure during staging or apply
type ImportRowError struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	BatchID   string    `json:"batch_id" db:"batch_id"`
	RowNumber int       `json:"row_number" db:"row_number"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StagedImportRow is one parsed upload row held until the batch commit.
// Payload is the row's column values; invalid rows keep their payload so the
// admin UI can show what was rejected.
type StagedImportRow struct {
	ID               string          `json:"id" db:"id"`
	TenantID         string          `json:"tenant_id" db:"tenant_id"`
	BatchID          string          `json:"batch_id" db:"batch_id"`
	ImportType       ImportType      `json:"import_type" db:"import_type"`
	RowNumber        int             `json:"row_number" db:"row_number"`
	Payload          json.RawMessage `json:"payload" db:"payload"`
	IsValid          bool            `json:"is_valid" db:"is_valid"`
	ValidationErrors *string         `json:"validation_errors,omitempty" db:"validation_errors"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}
