package models

import (
	"encoding/json"
	"time"
)

// Import message types on the ingestion topic
const (
	ImportMessageTypeRow    = "import.row"
	ImportMessageTypeCommit = "import.commit"
)

// ImportMessage is the wire format published by the admin import surface:
// one import.row message per parsed spreadsheet row, then one import.commit
// per batch once every row has been published.
type ImportMessage struct {
	Type       string          `json:"type"`
	TenantID   string          `json:"tenant_id"`
	BatchID    string          `json:"batch_id"`
	ImportType string          `json:"import_type"`
	RowNumber  int             `json:"row_number,omitempty"`
	RowCount   int             `json:"row_count,omitempty"` // commit only
	Row        json.RawMessage `json:"row,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// IsRow reports whether the message stages a single row
func (m *ImportMessage) IsRow() bool {
	return m.Type == ImportMessageTypeRow
}

// IsCommit reports whether the message closes a batch
func (m *ImportMessage) IsCommit() bool {
	return m.Type == ImportMessageTypeCommit
}
