package classifier_test

import (
	"reflect"
	"testing"

	"github.com/wboerner/archivar/internal/classifier"
	"github.com/wboerner/archivar/internal/reasoning"
)

func newResolver(t *testing.T) *classifier.Resolver {
	t.Helper()
	cache, wellknown := newCache(t, defaultFixture())
	return classifier.NewResolver(cache, wellknown, 0.85, "Steuer %d", discardLogger())
}

func TestResolveExactMatch(t *testing.T) {
	r := newResolver(t)

	p := &reasoning.Proposal{
		Title:         "Stromrechnung",
		Correspondent: strPtr("stadtwerke münchen"),
		DocumentType:  strPtr("Rechnung"),
		StoragePath:   strPtr("Haushalt"),
	}

	res := r.Resolve(p)

	if res.CorrespondentID == nil || *res.CorrespondentID != 10 {
		t.Errorf("correspondent id: got %v, want 10", res.CorrespondentID)
	}
	if res.Correspondent == nil || res.Correspondent.Type != classifier.MatchExact {
		t.Errorf("correspondent match: got %+v, want exact", res.Correspondent)
	}
	if res.DocumentTypeID == nil || *res.DocumentTypeID != 20 {
		t.Errorf("document type id: got %v, want 20", res.DocumentTypeID)
	}
	if res.StoragePathID == nil || *res.StoragePathID != 30 {
		t.Errorf("storage path id: got %v, want 30", res.StoragePathID)
	}
	if res.NullFieldCount != 0 {
		t.Errorf("null field count: got %d, want 0", res.NullFieldCount)
	}
}

func TestResolveNullFields(t *testing.T) {
	r := newResolver(t)

	p := &reasoning.Proposal{
		Title:         "Unbekannt",
		Correspondent: nil,
		DocumentType:  strPtr("  "),
		StoragePath:   nil,
	}

	res := r.Resolve(p)

	if res.NullFieldCount != 3 {
		t.Errorf("null field count: got %d, want 3", res.NullFieldCount)
	}
	if res.Correspondent != nil {
		t.Errorf("null correspondent should have no match, got %+v", res.Correspondent)
	}
	if res.CorrespondentID != nil {
		t.Errorf("null correspondent should have no id, got %v", res.CorrespondentID)
	}
	if len(res.Unresolved) != 0 {
		t.Errorf("null fields are not unresolved: got %v", res.Unresolved)
	}
}

func TestResolveFuzzyMatch(t *testing.T) {
	r := newResolver(t)

	p := &reasoning.Proposal{
		Title:         "Brief",
		Correspondent: strPtr("Stadtwerke Muenchen"),
	}

	res := r.Resolve(p)

	if res.Correspondent == nil {
		t.Fatal("expected correspondent match")
	}
	if res.Correspondent.Type != classifier.MatchFuzzy {
		t.Errorf("match type: got %s, want fuzzy", res.Correspondent.Type)
	}
	if res.Correspondent.MatchedName != "Stadtwerke München" {
		t.Errorf("matched name: got %s", res.Correspondent.MatchedName)
	}
	if res.CorrespondentID == nil || *res.CorrespondentID != 10 {
		t.Errorf("correspondent id: got %v, want 10", res.CorrespondentID)
	}
	if res.Correspondent.Score >= 1.0 || res.Correspondent.Score < 0.85 {
		t.Errorf("fuzzy score out of range: %v", res.Correspondent.Score)
	}
}

func TestResolveBelowThreshold(t *testing.T) {
	r := newResolver(t)

	p := &reasoning.Proposal{
		Title:         "Brief",
		Correspondent: strPtr("Zzzz Qqqq GmbH"),
	}

	res := r.Resolve(p)

	if res.Correspondent == nil {
		t.Fatal("expected correspondent match record")
	}
	if res.Correspondent.Type != classifier.MatchNone {
		t.Errorf("match type: got %s, want not_found", res.Correspondent.Type)
	}
	if res.CorrespondentID != nil {
		t.Errorf("unmatched correspondent should have no id, got %v", res.CorrespondentID)
	}
	if len(res.Unresolved) != 1 {
		t.Fatalf("unresolved: got %v, want one entry", res.Unresolved)
	}
	if !contains(res.CreateNew.Correspondents, "Zzzz Qqqq GmbH") {
		t.Errorf("create candidates missing unmatched correspondent: %v", res.CreateNew.Correspondents)
	}
}

func TestResolveTagsFiltersTrigger(t *testing.T) {
	r := newResolver(t)

	p := &reasoning.Proposal{
		Title: "Rechnung",
		Tags:  []string{"neu", "Rechnung", "NEU"},
	}

	res := r.Resolve(p)

	if !reflect.DeepEqual(res.TagIDs, []int{2}) {
		t.Errorf("tag ids: got %v, want [2]", res.TagIDs)
	}
	if len(res.TagMatches) != 1 {
		t.Errorf("tag matches: got %d, want 1 (trigger filtered)", len(res.TagMatches))
	}
}

func TestResolveUnmatchedTag(t *testing.T) {
	r := newResolver(t)

	p := &reasoning.Proposal{
		Title: "Rechnung",
		Tags:  []string{"Completely Unknown Tag"},
	}

	res := r.Resolve(p)

	if len(res.TagIDs) != 0 {
		t.Errorf("tag ids: got %v, want empty", res.TagIDs)
	}
	if !contains(res.CreateNew.Tags, "Completely Unknown Tag") {
		t.Errorf("create candidates missing unmatched tag: %v", res.CreateNew.Tags)
	}
}

func TestResolveTaxTag(t *testing.T) {
	r := newResolver(t)

	t.Run("existing tax year", func(t *testing.T) {
		p := &reasoning.Proposal{
			Title:       "Steuerbescheid",
			TaxRelevant: true,
			TaxYear:     intPtr(2023),
		}

		res := r.Resolve(p)

		if !reflect.DeepEqual(res.TagIDs, []int{3}) {
			t.Errorf("tag ids: got %v, want [3]", res.TagIDs)
		}
	})

	t.Run("missing tax year is not created", func(t *testing.T) {
		p := &reasoning.Proposal{
			Title:       "Steuerbescheid",
			TaxRelevant: true,
			TaxYear:     intPtr(1999),
		}

		res := r.Resolve(p)

		if len(res.TagIDs) != 0 {
			t.Errorf("tag ids: got %v, want empty", res.TagIDs)
		}
		if contains(res.CreateNew.Tags, "Steuer 1999") {
			t.Error("missing tax tag must not become a create candidate")
		}
	})

	t.Run("not tax relevant", func(t *testing.T) {
		p := &reasoning.Proposal{
			Title:   "Brief",
			TaxYear: intPtr(2023),
		}

		res := r.Resolve(p)

		if len(res.TagIDs) != 0 {
			t.Errorf("tag ids: got %v, want empty", res.TagIDs)
		}
	})

	t.Run("no duplicate when already tagged", func(t *testing.T) {
		p := &reasoning.Proposal{
			Title:       "Steuerbescheid",
			Tags:        []string{"Steuer 2023"},
			TaxRelevant: true,
			TaxYear:     intPtr(2023),
		}

		res := r.Resolve(p)

		if !reflect.DeepEqual(res.TagIDs, []int{3}) {
			t.Errorf("tag ids: got %v, want [3]", res.TagIDs)
		}
	})
}

func TestResolvePersonField(t *testing.T) {
	r := newResolver(t)

	t.Run("known option", func(t *testing.T) {
		p := &reasoning.Proposal{
			Title:  "Brief",
			Person: strPtr("Alice"),
		}

		res := r.Resolve(p)

		fv := fieldValue(res.CustomFields, 41)
		if fv == nil {
			t.Fatal("person field missing")
		}
		if !fv.Resolved {
			t.Error("person field should be resolved")
		}
		if fv.Value != "opt-alice" {
			t.Errorf("person value: got %v, want opt-alice", fv.Value)
		}
	})

	t.Run("unknown option kept unresolved", func(t *testing.T) {
		p := &reasoning.Proposal{
			Title:  "Brief",
			Person: strPtr("Mallory"),
		}

		res := r.Resolve(p)

		fv := fieldValue(res.CustomFields, 41)
		if fv == nil {
			t.Fatal("person field missing")
		}
		if fv.Resolved {
			t.Error("unknown person should not resolve")
		}
		if fv.Value != nil {
			t.Errorf("unknown person value must be nil, got %v", fv.Value)
		}
	})
}

func TestResolvePaginationStamp(t *testing.T) {
	r := newResolver(t)

	p := &reasoning.Proposal{
		Title:             "Scan",
		IsScannedDocument: true,
		PaginationStamp:   intPtr(142),
	}

	res := r.Resolve(p)

	fv := fieldValue(res.CustomFields, 42)
	if fv == nil {
		t.Fatal("pagination field missing")
	}
	if fv.Value != 142 {
		t.Errorf("pagination value: got %v, want 142", fv.Value)
	}
	if !fv.Resolved {
		t.Error("pagination stamp should be resolved")
	}
}

func TestResolveHouseFolderGuard(t *testing.T) {
	houseProposal := func(scanned bool, stamp *int) *reasoning.Proposal {
		return &reasoning.Proposal{
			Title:                  "Hausunterlagen",
			IsScannedDocument:      scanned,
			PaginationStamp:        stamp,
			IsHouseFolderCandidate: true,
			HouseRegister:          strPtr("A"),
			HouseSequence:          intPtr(7),
		}
	}

	t.Run("scanned without stamp applies", func(t *testing.T) {
		r := newResolver(t)
		res := r.Resolve(houseProposal(true, nil))

		if fv := fieldValue(res.CustomFields, 43); fv == nil || fv.Value != "opt-reg-a" {
			t.Errorf("house register: got %+v, want opt-reg-a", fv)
		}
		if fv := fieldValue(res.CustomFields, 44); fv == nil || fv.Value != 7 {
			t.Errorf("house sequence: got %+v, want 7", fv)
		}
	})

	t.Run("digital document discards house fields", func(t *testing.T) {
		r := newResolver(t)
		res := r.Resolve(houseProposal(false, nil))

		if fv := fieldValue(res.CustomFields, 43); fv != nil {
			t.Errorf("house register should be discarded, got %+v", fv)
		}
		if fv := fieldValue(res.CustomFields, 44); fv != nil {
			t.Errorf("house sequence should be discarded, got %+v", fv)
		}
	})

	t.Run("pagination stamp discards house fields", func(t *testing.T) {
		r := newResolver(t)
		res := r.Resolve(houseProposal(true, intPtr(3)))

		if fv := fieldValue(res.CustomFields, 43); fv != nil {
			t.Errorf("house register should be discarded, got %+v", fv)
		}
		if fv := fieldValue(res.CustomFields, 44); fv != nil {
			t.Errorf("house sequence should be discarded, got %+v", fv)
		}
	})
}

func TestResolveIdempotent(t *testing.T) {
	r := newResolver(t)

	p := &reasoning.Proposal{
		Title:         "Rechnung",
		Correspondent: strPtr("Allianz"),
		DocumentType:  strPtr("Rechnung"),
		Tags:          []string{"Rechnung", "Versicherung", "Unknown Tag"},
		TaxRelevant:   true,
		TaxYear:       intPtr(2023),
		Person:        strPtr("Bob"),
	}

	first := r.Resolve(p)
	second := r.Resolve(p)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("resolution not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestResolveMergesProposalCreateNew(t *testing.T) {
	r := newResolver(t)

	p := &reasoning.Proposal{
		Title:         "Brief",
		Correspondent: strPtr("Neue Firma AG"),
		CreateNew: &reasoning.CreateNew{
			Correspondents: []string{"neue firma ag"},
			Tags:           []string{"Projekt X"},
		},
	}

	res := r.Resolve(p)

	// Case-insensitive dedup: the unmatched name is already listed.
	if len(res.CreateNew.Correspondents) != 1 {
		t.Errorf("correspondent candidates: got %v, want single entry", res.CreateNew.Correspondents)
	}
	if !contains(res.CreateNew.Tags, "Projekt X") {
		t.Errorf("proposal tag candidates lost: %v", res.CreateNew.Tags)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func fieldValue(fields []classifier.FieldValue, fieldID int) *classifier.FieldValue {
	for i := range fields {
		if fields[i].FieldID == fieldID {
			return &fields[i]
		}
	}
	return nil
}
