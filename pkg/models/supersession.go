package models

import "time"

// SupersessionLink is a directed edge: the original part has been replaced
// by the replacement part. Unique per (tenant, original, replacement).
type SupersessionLink struct {
	ID                  string    `json:"id" db:"id"`
	TenantID            string    `json:"tenant_id" db:"tenant_id"`
	OriginalPartCode    string    `json:"original_part_code" db:"original_part_code"`
	ReplacementPartCode string    `json:"replacement_part_code" db:"replacement_part_code"`
	Note                *string   `json:"note,omitempty" db:"note"`
	SourceBatchID       *string   `json:"source_batch_id,omitempty" db:"source_batch_id"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// SupersessionResolved is one row of the derived resolution table: the final
// part reached from an original after following its chain. Rebuilt wholesale
// on every supersession import.
type SupersessionResolved struct {
	TenantID         string    `json:"tenant_id" db:"tenant_id"`
	OriginalPartCode string    `json:"original_part_code" db:"original_part_code"`
	LatestPartCode   string    `json:"latest_part_code" db:"latest_part_code"`
	ChainLength      int       `json:"chain_length" db:"chain_length"`
	HadLoop          bool      `json:"had_loop" db:"had_loop"`
	LoopPartCode     *string   `json:"loop_part_code,omitempty" db:"loop_part_code"`
	SourceBatchID    string    `json:"source_batch_id" db:"source_batch_id"`
	ComputedAt       time.Time `json:"computed_at" db:"computed_at"`
}

// SupersessionNotice renders the human-readable substitution message shown
// when a search or cart entry is silently redirected to the latest part.
// Looped chains get no notice: the original code is kept as-is.
func (r *SupersessionResolved) SupersessionNotice() string {
	if r.HadLoop || r.LatestPartCode == r.OriginalPartCode {
		return ""
	}
	return "Part " + r.OriginalPartCode + " has been superseded by " + r.LatestPartCode
}
