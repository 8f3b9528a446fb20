package reasoning

import (
	"fmt"
	"strings"
	"sync"

	"github.com/wboerner/archivar/internal/archive"
)

// PromptBuilder composes the system prompt from cached archive entities.
// The rendered prompt is reused until the entity cache refreshes, keeping the
// prompt byte-identical between calls so server-side prompt caching applies.
type PromptBuilder struct {
	cache     *archive.Cache
	wellknown *archive.Wellknown

	mu      sync.Mutex
	prompt  string
	version uint64
}

// NewPromptBuilder creates a PromptBuilder over the given cache.
func NewPromptBuilder(cache *archive.Cache, wellknown *archive.Wellknown) *PromptBuilder {
	return &PromptBuilder{cache: cache, wellknown: wellknown}
}

// Prompt returns the system prompt, rebuilding it when the cache has
// refreshed since the last render.
func (b *PromptBuilder) Prompt() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	version := b.cache.Version()
	if b.prompt != "" && b.version == version {
		return b.prompt
	}

	b.prompt = b.render()
	b.version = version
	return b.prompt
}

func (b *PromptBuilder) render() string {
	var sb strings.Builder

	sb.WriteString(`You are a document classification assistant for a personal document archive.
Analyze the attached PDF and return a single JSON object describing it.

Respond with JSON only, no prose, matching this shape:
{
  "title": "short descriptive title",
  "correspondent": "sender name or null",
  "document_type": "type name or null",
  "storage_path": "storage path name or null",
  "tags": ["tag names"],
  "date": "YYYY-MM-DD or null",
  "is_scanned_document": false,
  "pagination_stamp": null,
  "pagination_stamp_confidence": null,
  "is_house_folder_candidate": false,
  "house_register": null,
  "house_sequence": null,
  "person": null,
  "person_confidence": null,
  "person_reasoning": null,
  "tax_relevant": false,
  "tax_year": null,
  "confidence": "high|medium|low",
  "reasoning": "one sentence",
  "create_new": {"correspondents": [], "tags": [], "document_types": [], "storage_paths": []}
}

Rules:
- Prefer existing names from the lists below. Use exact spelling.
- Set a core field to null when the document does not determine it; never guess.
- Names that clearly should exist but are missing from the lists belong in create_new.
- Set is_scanned_document when the document is a physical scan rather than digital-native.
- Report a pagination_stamp number only when a stamp is visibly printed on the page.
- house_register and house_sequence apply only to physically filed documents.
`)

	writeList(&sb, "Correspondents", b.cache.Names(archive.KindCorrespondent))
	writeList(&sb, "Document types", b.cache.Names(archive.KindDocumentType))
	writeList(&sb, "Tags", b.cache.Names(archive.KindTag))
	writeList(&sb, "Storage paths", b.cache.Names(archive.KindStoragePath))
	writeList(&sb, "Person options", b.cache.OptionLabels(b.wellknown.PersonField.ID))
	writeList(&sb, "House register options", b.cache.OptionLabels(b.wellknown.HouseRegisterField.ID))

	return sb.String()
}

func writeList(sb *strings.Builder, heading string, names []string) {
	fmt.Fprintf(sb, "\n%s:\n", heading)
	if len(names) == 0 {
		sb.WriteString("- (none)\n")
		return
	}
	for _, name := range names {
		fmt.Fprintf(sb, "- %s\n", name)
	}
}
