package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/wboerner/archivar/internal/archive"
	"github.com/wboerner/archivar/internal/classifier"
)

// Update describes one atomic document update: metadata, the full tag set,
// the full custom-field list, and the pipeline status, sent as a single
// request. Core fields distinguish "set to a value", "clear to null", and
// "leave untouched" via the Set flags.
type Update struct {
	Title *string
	Date  *string

	SetCorrespondent bool
	Correspondent    *int
	SetDocumentType  bool
	DocumentType     *int
	SetStoragePath   bool
	StoragePath      *int

	// Tags are merged into the document's current tags. The trigger tag is
	// always removed regardless of this list's contents.
	Tags []int

	Fields       []classifier.FieldValue
	RemoveFields []int

	Status string
}

// AtomicPatch builds the single-request payload for an Update against the
// document's current state. The payload always carries the full tag set with
// the trigger tag removed and the full custom-field list with the status
// field set; sequential partial updates are deliberately not supported
// because they open a window for concurrent writers to resurrect stale tags.
func AtomicPatch(
	doc *archive.Document,
	wellknown *archive.Wellknown,
	cache Cache,
	upd Update,
) (archive.DocumentPatch, error) {
	patch := archive.DocumentPatch{}

	tags := map[int]bool{}
	for _, t := range doc.Tags {
		tags[t] = true
	}
	delete(tags, wellknown.TriggerTag.ID)
	for _, t := range upd.Tags {
		if t != wellknown.TriggerTag.ID {
			tags[t] = true
		}
	}

	tagList := make([]int, 0, len(tags))
	for t := range tags {
		tagList = append(tagList, t)
	}
	sort.Ints(tagList)
	patch["tags"] = tagList

	fields := map[int]any{}
	for _, cf := range doc.CustomFields {
		fields[cf.Field] = cf.Value
	}

	option, ok := cache.Option(wellknown.StatusField.ID, upd.Status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStatusOption, upd.Status)
	}
	fields[wellknown.StatusField.ID] = option.ID

	for _, f := range upd.Fields {
		if f.Resolved && f.Value != nil {
			fields[f.FieldID] = f.Value
		}
	}
	for _, id := range upd.RemoveFields {
		delete(fields, id)
	}

	fieldList := make([]archive.CustomFieldValue, 0, len(fields))
	ids := make([]int, 0, len(fields))
	for id := range fields {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fieldList = append(fieldList, archive.CustomFieldValue{Field: id, Value: fields[id]})
	}
	patch["custom_fields"] = fieldList

	if upd.Title != nil && *upd.Title != "" {
		patch["title"] = *upd.Title
	}
	if upd.Date != nil && *upd.Date != "" {
		patch["created_date"] = *upd.Date
	}
	if upd.SetCorrespondent {
		patch["correspondent"] = upd.Correspondent
	}
	if upd.SetDocumentType {
		patch["document_type"] = upd.DocumentType
	}
	if upd.SetStoragePath {
		patch["storage_path"] = upd.StoragePath
	}

	return patch, nil
}

// applyNode sends exactly one update request carrying everything that
// changed. LOW confidence writes bookkeeping only: status and trigger-tag
// removal, with resolved fields left out.
func applyNode(rt *Runtime, r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		res := r.resolution
		eval := r.evaluation
		proposal := &r.response.Proposal

		upd := Update{Status: eval.Status()}

		if eval.ShouldApplyFields() {
			if res.Title != "" {
				title := res.Title
				upd.Title = &title
			}
			upd.Date = res.Date

			// A null core field clears the archive value explicitly: the
			// model's "no opinion" overrides an untrusted auto-match. A
			// named-but-unmatched field leaves the current value untouched.
			upd.SetCorrespondent, upd.Correspondent = coreField(res.Correspondent, res.CorrespondentID)
			upd.SetDocumentType, upd.DocumentType = coreField(res.DocumentType, res.DocumentTypeID)
			upd.SetStoragePath, upd.StoragePath = coreField(res.StoragePath, res.StoragePathID)

			upd.Tags = res.TagIDs
			upd.Fields = res.CustomFields
			upd.RemoveFields = staleFields(rt.Wellknown, proposal.IsScannedDocument, proposal.PaginationStamp)
		}

		patch, err := AtomicPatch(r.document, rt.Wellknown, rt.Cache, upd)
		if err != nil {
			return s, fmt.Errorf("apply: %w", err)
		}

		if err := rt.Archive.UpdateDocument(ctx, r.documentID, patch); err != nil {
			return s, fmt.Errorf("apply: update document %d: %w", r.documentID, err)
		}

		rt.Logger.InfoContext(ctx, "apply node complete",
			"document_id", r.documentID,
			"status", upd.Status,
			"fields_applied", eval.ShouldApplyFields(),
		)
		return s, nil
	})
}

// coreField translates a resolution match into the Update's set/clear/leave
// semantics.
func coreField(m *classifier.Match, id *int) (set bool, value *int) {
	if m == nil {
		return true, nil
	}
	if m.Resolved() {
		return true, id
	}
	return false, nil
}

// staleFields lists physical-filing fields to drop for documents that are
// not physical scans. Digital documents are never filed in the house folder,
// so pagination and house metadata on them is noise.
func staleFields(wellknown *archive.Wellknown, scanned bool, stamp *int) []int {
	var remove []int
	if !scanned && stamp == nil {
		remove = append(remove, wellknown.PaginationField.ID)
	}
	if !scanned {
		remove = append(remove,
			wellknown.HouseRegisterField.ID,
			wellknown.HouseSequenceField.ID,
		)
	}
	return remove
}

// markError sets the status field to "error" and removes the trigger tag in
// one best-effort request, so a permanently failed document neither loops
// nor blocks the queue. Retry is re-adding the trigger tag by hand.
func markError(ctx context.Context, rt *Runtime, r *run) {
	doc := r.document
	if doc == nil {
		var err error
		doc, err = rt.Archive.Document(ctx, r.documentID)
		if err != nil {
			rt.Logger.ErrorContext(ctx, "could not load document for error status",
				"document_id", r.documentID, "error", err,
			)
			return
		}
	}

	patch, err := AtomicPatch(doc, rt.Wellknown, rt.Cache, Update{Status: StatusError})
	if err != nil {
		rt.Logger.ErrorContext(ctx, "could not build error patch",
			"document_id", r.documentID, "error", err,
		)
		return
	}

	if err := rt.Archive.UpdateDocument(ctx, r.documentID, patch); err != nil {
		rt.Logger.ErrorContext(ctx, "could not write error status",
			"document_id", r.documentID, "error", err,
		)
		return
	}

	rt.Logger.InfoContext(ctx, "error status written", "document_id", r.documentID)
}
