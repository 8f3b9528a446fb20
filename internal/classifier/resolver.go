// Package classifier turns a classification proposal into archive-native
// identifiers and decides how trustworthy the result is.
package classifier

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/wboerner/archivar/internal/archive"
	"github.com/wboerner/archivar/internal/reasoning"
)

// MatchType records how a name was resolved to an archive entity.
type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchFuzzy MatchType = "fuzzy"
	MatchNone  MatchType = "not_found"
)

// Match is the resolution result for one name-valued field or tag.
type Match struct {
	Name        string    `json:"name"`
	ID          int       `json:"id,omitempty"`
	Type        MatchType `json:"type"`
	Score       float64   `json:"score"`
	MatchedName string    `json:"matched_name,omitempty"`
}

// Resolved reports whether the match produced an identifier.
func (m Match) Resolved() bool { return m.Type != MatchNone }

// FieldValue is a resolved custom-field value ready for the archive payload.
type FieldValue struct {
	FieldID  int    `json:"field_id"`
	Value    any    `json:"value"`
	Label    string `json:"label"`
	Resolved bool   `json:"resolved"`
}

// Resolution is the resolver's output: archive identifiers plus the
// bookkeeping the confidence evaluator needs. A nil core identifier with a
// nil Match means the proposal left the field null; a nil identifier with a
// MatchNone Match means the proposal named a value that could not be matched.
type Resolution struct {
	Title string  `json:"title"`
	Date  *string `json:"date,omitempty"`

	CorrespondentID *int  `json:"correspondent_id"`
	DocumentTypeID  *int  `json:"document_type_id"`
	StoragePathID   *int  `json:"storage_path_id"`
	TagIDs          []int `json:"tag_ids"`

	CustomFields []FieldValue `json:"custom_fields"`

	Correspondent *Match  `json:"correspondent,omitempty"`
	DocumentType  *Match  `json:"document_type,omitempty"`
	StoragePath   *Match  `json:"storage_path,omitempty"`
	TagMatches    []Match `json:"tag_matches,omitempty"`

	NullFieldCount int       `json:"null_field_count"`
	Unresolved     []string  `json:"unresolved,omitempty"`
	CreateNew      reasoning.CreateNew `json:"create_new"`
}

func (r *Resolution) coreMatches() []*Match {
	return []*Match{r.Correspondent, r.DocumentType, r.StoragePath}
}

// NamedFields counts the fields the proposal named, including tags.
func (r *Resolution) NamedFields() int {
	count := len(r.TagMatches)
	for _, m := range r.coreMatches() {
		if m != nil {
			count++
		}
	}
	return count
}

// ResolvedFields counts the named fields that resolved to an identifier.
func (r *Resolution) ResolvedFields() int {
	count := 0
	for _, m := range r.coreMatches() {
		if m != nil && m.Resolved() {
			count++
		}
	}
	for _, m := range r.TagMatches {
		if m.Resolved() {
			count++
		}
	}
	return count
}

// FuzzyQuality returns the average similarity of fuzzy matches, or 1.0 when
// every resolution was exact.
func (r *Resolution) FuzzyQuality() float64 {
	var sum float64
	var count int

	all := r.coreMatches()
	for i := range r.TagMatches {
		all = append(all, &r.TagMatches[i])
	}
	for _, m := range all {
		if m != nil && m.Type == MatchFuzzy {
			sum += m.Score
			count++
		}
	}

	if count == 0 {
		return 1.0
	}
	return sum / float64(count)
}

// Resolver maps proposal names to archive identifiers using exact
// case-insensitive matching with a fuzzy fallback.
type Resolver struct {
	cache         *archive.Cache
	wellknown     *archive.Wellknown
	threshold     float64
	taxTagPattern string
	logger        *slog.Logger
}

// NewResolver creates a Resolver. taxTagPattern is a fmt pattern taking the
// tax year, e.g. "Tax %d".
func NewResolver(
	cache *archive.Cache,
	wellknown *archive.Wellknown,
	threshold float64,
	taxTagPattern string,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		cache:         cache,
		wellknown:     wellknown,
		threshold:     threshold,
		taxTagPattern: taxTagPattern,
		logger:        logger.With("system", "resolver"),
	}
}

// Resolve maps every name in the proposal to archive identifiers. Resolving
// the same proposal twice against an unchanged cache yields the same result.
func (r *Resolver) Resolve(p *reasoning.Proposal) *Resolution {
	res := &Resolution{
		Title:  p.Title,
		Date:   p.Date,
		TagIDs: []int{},
	}

	res.CorrespondentID = r.resolveCore(p.Correspondent, archive.KindCorrespondent, "correspondent", res, &res.Correspondent)
	res.DocumentTypeID = r.resolveCore(p.DocumentType, archive.KindDocumentType, "document type", res, &res.DocumentType)
	res.StoragePathID = r.resolveCore(p.StoragePath, archive.KindStoragePath, "storage path", res, &res.StoragePath)

	r.resolveTags(p, res)
	r.resolveTaxTag(p, res)
	res.CustomFields = r.resolveCustomFields(p)

	r.mergeCreateCandidates(p, res)

	r.logger.Info("resolution complete",
		"named", res.NamedFields(),
		"resolved", res.ResolvedFields(),
		"null_fields", res.NullFieldCount,
		"unresolved", len(res.Unresolved),
	)
	return res
}

// resolveCore handles one name-valued core field. A null proposal value
// increments the null count and leaves both identifier and match nil.
func (r *Resolver) resolveCore(
	value *string,
	kind archive.EntityKind,
	label string,
	res *Resolution,
	target **Match,
) *int {
	if value == nil || strings.TrimSpace(*value) == "" {
		res.NullFieldCount++
		return nil
	}

	m := r.match(*value, kind)
	*target = &m

	if !m.Resolved() {
		res.Unresolved = append(res.Unresolved, fmt.Sprintf("%s: %s", label, *value))
		return nil
	}

	id := m.ID
	return &id
}

// resolveTags resolves every proposed tag name. The trigger tag is discarded
// before matching; it is a pipeline signal, not a classification output, and
// must not influence resolution counts.
func (r *Resolver) resolveTags(p *reasoning.Proposal, res *Resolution) {
	trigger := strings.ToLower(strings.TrimSpace(r.wellknown.TriggerTag.Name))

	for _, name := range p.Tags {
		if strings.ToLower(strings.TrimSpace(name)) == trigger {
			continue
		}

		m := r.match(name, archive.KindTag)
		if m.Resolved() && m.ID == r.wellknown.TriggerTag.ID {
			continue
		}

		res.TagMatches = append(res.TagMatches, m)
		if m.Resolved() {
			res.TagIDs = append(res.TagIDs, m.ID)
		} else {
			res.Unresolved = append(res.Unresolved, "tag: "+name)
		}
	}
}

// resolveTaxTag derives a tax tag from the tax-relevance flag and year.
// A missing tax tag is logged but not added to the create candidates; the
// tag set is curated by hand and years are created ahead of time.
func (r *Resolver) resolveTaxTag(p *reasoning.Proposal, res *Resolution) {
	if !p.TaxRelevant || p.TaxYear == nil {
		return
	}

	name := fmt.Sprintf(r.taxTagPattern, *p.TaxYear)
	tag, ok := r.cache.Lookup(archive.KindTag, name)
	if !ok {
		r.logger.Info("tax tag missing from archive", "tag", name)
		return
	}
	if tag.ID == r.wellknown.TriggerTag.ID {
		return
	}

	for _, id := range res.TagIDs {
		if id == tag.ID {
			return
		}
	}

	res.TagIDs = append(res.TagIDs, tag.ID)
	res.TagMatches = append(res.TagMatches, Match{
		Name:  name,
		ID:    tag.ID,
		Type:  MatchExact,
		Score: 1.0,
	})
	r.logger.Info("tax tag derived", "tag", name, "id", tag.ID)
}

// resolveCustomFields maps proposal values onto the wellknown custom fields.
// House-folder fields are honored only for physical scans without a
// pagination stamp; for anything else they are discarded regardless of the
// proposal's own flags.
func (r *Resolver) resolveCustomFields(p *reasoning.Proposal) []FieldValue {
	var fields []FieldValue

	if p.Person != nil && *p.Person != "" {
		fields = append(fields, r.resolveSelect(r.wellknown.PersonField, *p.Person))
	}

	if p.PaginationStamp != nil {
		fields = append(fields, FieldValue{
			FieldID:  r.wellknown.PaginationField.ID,
			Value:    *p.PaginationStamp,
			Label:    fmt.Sprintf("%d", *p.PaginationStamp),
			Resolved: true,
		})
	}

	houseEligible := p.IsScannedDocument && p.PaginationStamp == nil
	if p.IsHouseFolderCandidate && houseEligible {
		if p.HouseRegister != nil && *p.HouseRegister != "" {
			fields = append(fields, r.resolveSelect(r.wellknown.HouseRegisterField, *p.HouseRegister))
		}
		if p.HouseSequence != nil {
			fields = append(fields, FieldValue{
				FieldID:  r.wellknown.HouseSequenceField.ID,
				Value:    *p.HouseSequence,
				Label:    fmt.Sprintf("%d", *p.HouseSequence),
				Resolved: true,
			})
		}
	} else if p.IsHouseFolderCandidate {
		r.logger.Info("house folder fields discarded",
			"scanned", p.IsScannedDocument,
			"pagination_stamp", p.PaginationStamp != nil,
		)
	}

	return fields
}

// resolveSelect maps a textual value to a select option id. Unresolved
// values are kept with Resolved=false so they never reach the archive as
// raw text but remain visible for review.
func (r *Resolver) resolveSelect(field archive.CustomField, label string) FieldValue {
	if opt, ok := r.cache.Option(field.ID, label); ok {
		return FieldValue{FieldID: field.ID, Value: opt.ID, Label: label, Resolved: true}
	}

	r.logger.Warn("select option not found", "field", field.Name, "label", label)
	return FieldValue{FieldID: field.ID, Value: nil, Label: label, Resolved: false}
}

// mergeCreateCandidates combines the proposal's own create_new list with the
// named-but-unmatched fields discovered during resolution.
func (r *Resolver) mergeCreateCandidates(p *reasoning.Proposal, res *Resolution) {
	if p.CreateNew != nil {
		res.CreateNew = *p.CreateNew
	}

	appendUnique := func(list []string, name string) []string {
		for _, existing := range list {
			if strings.EqualFold(existing, name) {
				return list
			}
		}
		return append(list, name)
	}

	if res.Correspondent != nil && !res.Correspondent.Resolved() {
		res.CreateNew.Correspondents = appendUnique(res.CreateNew.Correspondents, res.Correspondent.Name)
	}
	if res.DocumentType != nil && !res.DocumentType.Resolved() {
		res.CreateNew.DocumentTypes = appendUnique(res.CreateNew.DocumentTypes, res.DocumentType.Name)
	}
	if res.StoragePath != nil && !res.StoragePath.Resolved() {
		found := false
		for _, sp := range res.CreateNew.StoragePaths {
			if strings.EqualFold(sp.Name, res.StoragePath.Name) {
				found = true
				break
			}
		}
		if !found {
			res.CreateNew.StoragePaths = append(res.CreateNew.StoragePaths, reasoning.NewStoragePath{
				Name: res.StoragePath.Name,
			})
		}
	}
	for _, m := range res.TagMatches {
		if !m.Resolved() {
			res.CreateNew.Tags = appendUnique(res.CreateNew.Tags, m.Name)
		}
	}
}

// match finds the best archive entity for a name: exact case-insensitive
// first, then the highest-similarity candidate at or above the threshold.
func (r *Resolver) match(name string, kind archive.EntityKind) Match {
	if e, ok := r.cache.Lookup(kind, name); ok {
		return Match{Name: name, ID: e.ID, Type: MatchExact, Score: 1.0}
	}

	lev := metrics.NewLevenshtein()
	needle := strings.ToLower(strings.TrimSpace(name))

	best := Match{Name: name, Type: MatchNone}
	for _, e := range r.cache.Entities(kind) {
		score := strutil.Similarity(needle, strings.ToLower(e.Name), lev)
		if score > best.Score {
			best.Score = score
			best.MatchedName = e.Name
			best.ID = e.ID
		}
	}

	if best.Score >= r.threshold && best.MatchedName != "" {
		best.Type = MatchFuzzy
		r.logger.Info("fuzzy match",
			"name", name,
			"matched", best.MatchedName,
			"score", best.Score,
		)
		return best
	}

	r.logger.Warn("name not resolved",
		"name", name,
		"kind", kind,
		"best_candidate", best.MatchedName,
		"best_score", best.Score,
	)
	return Match{Name: name, Type: MatchNone, Score: best.Score, MatchedName: best.MatchedName}
}
