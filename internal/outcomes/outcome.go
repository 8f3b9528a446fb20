// Package outcomes implements the processing-history domain: one append-only
// record per pipeline attempt with token and cost accounting.
package outcomes

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Outcome is one processing attempt for a document. A document may appear in
// many rows (retries, manual re-triggers); rows are never updated.
type Outcome struct {
	ID         uuid.UUID `json:"id"`
	DocumentID int       `json:"document_id"`
	Title      string    `json:"title"`
	ModelTier  string    `json:"model_tier"`
	Level      string    `json:"level"`
	Status     string    `json:"status"`
	Score      float64   `json:"score"`

	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	CacheReadTokens  int64   `json:"cache_read_tokens"`
	CacheWriteTokens int64   `json:"cache_write_tokens"`
	CostUSD          float64 `json:"cost_usd"`

	DurationMS int64   `json:"duration_ms"`
	Error      *string `json:"error"`

	// Resolved holds the resolved classification, confidence breakdown, and
	// create candidates for review consumers. Null when no resolution ran.
	Resolved json.RawMessage `json:"resolved,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

// RecordCommand carries the data for one new outcome row.
type RecordCommand struct {
	DocumentID int
	Title      string
	ModelTier  string
	Level      string
	Status     string
	Score      float64

	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
	CostUSD          float64

	DurationMS int64
	Error      *string
	Resolved   json.RawMessage
	StartedAt  time.Time
}

// CostSummary aggregates spend for one calendar month.
type CostSummary struct {
	Month       string  `json:"month"`
	TotalUSD    float64 `json:"total_usd"`
	Requests    int     `json:"requests"`
	TotalTokens int64   `json:"total_tokens"`
}
