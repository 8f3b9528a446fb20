// Package archive provides the client and entity cache for the document
// archive REST API (paperless-style).
package archive

// EntityKind identifies a category of archive entities. Values match the
// archive API resource paths.
type EntityKind string

const (
	KindTag           EntityKind = "tags"
	KindCorrespondent EntityKind = "correspondents"
	KindDocumentType  EntityKind = "document_types"
	KindStoragePath   EntityKind = "storage_paths"
)

// Kinds lists every entity kind in cache refresh order.
var Kinds = []EntityKind{KindTag, KindCorrespondent, KindDocumentType, KindStoragePath}

// Entity is a named archive entity (tag, correspondent, document type, or storage path).
type Entity struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SelectOption is one choice of a select-type custom field. Option IDs are
// opaque strings assigned by the archive.
type SelectOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// CustomField describes a custom field definition. Select options are only
// populated for fields with DataType "select".
type CustomField struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	DataType  string `json:"data_type"`
	ExtraData struct {
		SelectOptions []SelectOption `json:"select_options"`
	} `json:"extra_data"`
}

// CustomFieldValue is a field instance attached to a document.
type CustomFieldValue struct {
	Field int `json:"field"`
	Value any `json:"value"`
}

// Document is an archive document as returned by the documents endpoint.
type Document struct {
	ID            int                `json:"id"`
	Title         string             `json:"title"`
	Created       string             `json:"created"`
	Added         string             `json:"added"`
	Tags          []int              `json:"tags"`
	Correspondent *int               `json:"correspondent"`
	DocumentType  *int               `json:"document_type"`
	StoragePath   *int               `json:"storage_path"`
	CustomFields  []CustomFieldValue `json:"custom_fields"`
}

// HasTag reports whether the document carries the given tag.
func (d *Document) HasTag(id int) bool {
	for _, t := range d.Tags {
		if t == id {
			return true
		}
	}
	return false
}

// FieldValue returns the value of the given custom field, or nil when the
// field is not set on the document.
func (d *Document) FieldValue(fieldID int) any {
	for _, cf := range d.CustomFields {
		if cf.Field == fieldID {
			return cf.Value
		}
	}
	return nil
}

// DocumentPatch is the payload for a document update. Keys present with a nil
// value are sent as explicit JSON nulls, clearing the field in the archive.
type DocumentPatch map[string]any

// page is the archive's envelope for paginated list responses.
type page[T any] struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []T     `json:"results"`
}
