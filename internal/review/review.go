// Package review implements the human side of classification: listing
// documents the pipeline parked for review and applying corrected metadata
// with the same single-request contract the pipeline uses.
package review

import (
	"encoding/json"

	"github.com/wboerner/archivar/internal/archive"
	"github.com/wboerner/archivar/internal/outcomes"
)

// OptionalID distinguishes an absent JSON field from an explicit null.
// Absent leaves the archive value untouched; null clears it; a number sets it.
type OptionalID struct {
	Set   bool
	Value *int
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o OptionalID) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}

// FieldAssignment sets one custom field to a value the reviewer chose.
type FieldAssignment struct {
	Field int `json:"field"`
	Value any `json:"value"`
}

// ApplyCommand carries reviewer corrections. Every field is optional; an
// empty command only marks the document handled (status "manual", trigger
// tag removed).
type ApplyCommand struct {
	Title *string `json:"title,omitempty"`
	Date  *string `json:"date,omitempty"`

	Correspondent OptionalID `json:"correspondent,omitzero"`
	DocumentType  OptionalID `json:"document_type,omitzero"`
	StoragePath   OptionalID `json:"storage_path,omitzero"`

	Tags         []int             `json:"tags,omitempty"`
	Fields       []FieldAssignment `json:"fields,omitempty"`
	RemoveFields []int             `json:"remove_fields,omitempty"`
}

// Item pairs a pending outcome with the document's current archive state, so
// the reviewer sees both what the pipeline proposed and what is there now.
type Item struct {
	Document *archive.Document `json:"document"`
	Outcome  *outcomes.Outcome `json:"outcome"`
}
