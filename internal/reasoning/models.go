// Package reasoning provides the Anthropic Messages API client that turns a
// document into a structured classification proposal.
package reasoning

import "time"

// ConfidenceLevel is the discrete confidence scale used both for the model's
// self-estimate and for the final decision level.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Anchor maps the level to a numeric score for confidence weighting.
// Unknown values are treated as low.
func (c ConfidenceLevel) Anchor() float64 {
	switch c {
	case ConfidenceHigh:
		return 1.0
	case ConfidenceMedium:
		return 0.6
	default:
		return 0.2
	}
}

// NewStoragePath is a storage path the model proposes to create.
type NewStoragePath struct {
	Name         string `json:"name"`
	PathTemplate string `json:"path_template"`
}

// CreateNew lists entities the model believes do not yet exist in the archive.
type CreateNew struct {
	Correspondents []string         `json:"correspondents"`
	Tags           []string         `json:"tags"`
	DocumentTypes  []string         `json:"document_types"`
	StoragePaths   []NewStoragePath `json:"storage_paths"`
}

// Empty reports whether no create candidates were proposed.
func (c *CreateNew) Empty() bool {
	return c == nil || (len(c.Correspondents) == 0 && len(c.Tags) == 0 &&
		len(c.DocumentTypes) == 0 && len(c.StoragePaths) == 0)
}

// Proposal is the model's raw classification output for one document.
// Core name fields are pointers: nil means the model declined to determine
// the field, which is scored differently from a named-but-unmatched value.
type Proposal struct {
	Title         string   `json:"title"`
	Correspondent *string  `json:"correspondent"`
	DocumentType  *string  `json:"document_type"`
	StoragePath   *string  `json:"storage_path"`
	Tags          []string `json:"tags"`
	Date          *string  `json:"date"`

	IsScannedDocument         bool             `json:"is_scanned_document"`
	PaginationStamp           *int             `json:"pagination_stamp"`
	PaginationStampConfidence *ConfidenceLevel `json:"pagination_stamp_confidence"`

	IsHouseFolderCandidate bool    `json:"is_house_folder_candidate"`
	HouseRegister          *string `json:"house_register"`
	HouseSequence          *int    `json:"house_sequence"`

	Person           *string          `json:"person"`
	PersonConfidence *ConfidenceLevel `json:"person_confidence"`
	PersonReasoning  *string          `json:"person_reasoning"`

	TaxRelevant bool `json:"tax_relevant"`
	TaxYear     *int `json:"tax_year"`

	Confidence ConfidenceLevel `json:"confidence"`
	Reasoning  string          `json:"reasoning"`

	CreateNew *CreateNew `json:"create_new"`
}

// TokenUsage records the token counts of one reasoning call.
type TokenUsage struct {
	InputTokens      int64 `json:"input_tokens"`
	OutputTokens     int64 `json:"output_tokens"`
	CacheReadTokens  int64 `json:"cache_read_tokens"`
	CacheWriteTokens int64 `json:"cache_write_tokens"`
}

// Response is the full result of one reasoning call: the parsed proposal plus
// the accounting data the outcome store persists.
type Response struct {
	Proposal Proposal
	Usage    TokenUsage
	Model    string
	CostUSD  float64
	Raw      string
	Duration time.Duration
}
