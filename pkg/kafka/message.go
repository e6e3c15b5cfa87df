package kafka

import (
	"encoding/json"
	"time"

	"github.com/hotbray/briar/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string
	TraceState  string

	// Parsed content
	ImportMessage *models.ImportMessage
}

// ParseImportMessage parses the message value as an import pipeline message
func (m *IncomingMessage) ParseImportMessage() error {
	var msg models.ImportMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	m.ImportMessage = &msg
	return nil
}

// GetTenantID returns the tenant ID from the message body, falling back to
// the header
func (m *IncomingMessage) GetTenantID() string {
	if m.ImportMessage != nil && m.ImportMessage.TenantID != "" {
		return m.ImportMessage.TenantID
	}
	return m.Headers["tenant_id"]
}

// GetBatchID returns the import batch ID for this message
func (m *IncomingMessage) GetBatchID() string {
	if m.ImportMessage != nil {
		return m.ImportMessage.BatchID
	}
	return ""
}

// GetImportType returns the import type for this message
func (m *IncomingMessage) GetImportType() string {
	if m.ImportMessage != nil && m.ImportMessage.ImportType != "" {
		return m.ImportMessage.ImportType
	}
	return m.Headers["import_type"]
}

// IsRow reports whether this message stages one upload row
func (m *IncomingMessage) IsRow() bool {
	return m.ImportMessage != nil && m.ImportMessage.IsRow()
}

// IsCommit reports whether this message closes a batch
func (m *IncomingMessage) IsCommit() bool {
	return m.ImportMessage != nil && m.ImportMessage.IsCommit()
}
