package poller_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wboerner/archivar/internal/archive"
	"github.com/wboerner/archivar/internal/classifier"
	"github.com/wboerner/archivar/internal/outcomes"
	"github.com/wboerner/archivar/internal/pipeline"
	"github.com/wboerner/archivar/internal/poller"
	"github.com/wboerner/archivar/internal/reasoning"
	"github.com/wboerner/archivar/pkg/pagination"
)

const (
	triggerTagID  = 1
	statusFieldID = 40
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

// minimalPDF assembles a one-page PDF with a correct xref table.
func minimalPDF() []byte {
	header := "%PDF-1.4\n"
	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n",
	}

	var body string
	offsets := make([]int, len(objects))
	pos := len(header)
	for i, obj := range objects {
		offsets[i] = pos
		body += obj
		pos += len(obj)
	}

	xrefPos := pos
	xref := "xref\n0 4\n0000000000 65535 f \n"
	for _, off := range offsets {
		xref += fmt.Sprintf("%010d 00000 n \n", off)
	}
	trailer := fmt.Sprintf("trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefPos)

	return []byte(header + body + xref + trailer)
}

// callLog records the interleaving of reasoning and archive calls across the
// fakes sharing it.
type callLog struct {
	mu     sync.Mutex
	events []string
}

func (l *callLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// fakeArchive implements pipeline.Archive and poller.Source.
type fakeArchive struct {
	mu        sync.Mutex
	documents map[int]*archive.Document
	order     []int
	pdf       []byte
	patches   []archive.DocumentPatch
	log       *callLog
}

func newFakeArchive(docs ...*archive.Document) *fakeArchive {
	fa := &fakeArchive{
		documents: map[int]*archive.Document{},
		pdf:       minimalPDF(),
	}
	for _, d := range docs {
		fa.documents[d.ID] = d
		fa.order = append(fa.order, d.ID)
	}
	return fa
}

func (f *fakeArchive) Document(_ context.Context, id int) (*archive.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, archive.ErrNotFound)
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeArchive) Download(_ context.Context, id int) ([]byte, error) {
	return f.pdf, nil
}

func (f *fakeArchive) UpdateDocument(_ context.Context, id int, patch archive.DocumentPatch) error {
	f.log.add(fmt.Sprintf("apply %d", id))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	return nil
}

func (f *fakeArchive) CreateEntity(_ context.Context, kind archive.EntityKind, name string) (*archive.Entity, error) {
	return &archive.Entity{ID: 9999, Name: name}, nil
}

func (f *fakeArchive) DocumentsByTag(_ context.Context, tagID int) ([]archive.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var docs []archive.Document
	for _, id := range f.order {
		doc := f.documents[id]
		if doc.HasTag(tagID) {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (f *fakeArchive) patchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patches)
}

type fakeReasoner struct {
	mu       sync.Mutex
	response *reasoning.Response
	err      error
	calls    int
	log      *callLog
}

func (f *fakeReasoner) Classify(_ context.Context, _ []byte, _, _ string) (*reasoning.Response, error) {
	f.log.add("classify")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeReasoner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeOutcomes struct {
	mu      sync.Mutex
	records []outcomes.RecordCommand
	monthly outcomes.CostSummary
}

func (f *fakeOutcomes) Handler() *outcomes.Handler { return nil }

func (f *fakeOutcomes) List(context.Context, pagination.PageRequest, outcomes.Filters) (*pagination.PageResult[outcomes.Outcome], error) {
	return nil, nil
}

func (f *fakeOutcomes) Find(context.Context, uuid.UUID) (*outcomes.Outcome, error) {
	return nil, outcomes.ErrNotFound
}

func (f *fakeOutcomes) Record(_ context.Context, cmd outcomes.RecordCommand) (*outcomes.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, cmd)
	return &outcomes.Outcome{ID: uuid.New(), DocumentID: cmd.DocumentID, Status: cmd.Status}, nil
}

func (f *fakeOutcomes) LatestForDocument(context.Context, int) (*outcomes.Outcome, error) {
	return nil, outcomes.ErrNotFound
}

func (f *fakeOutcomes) LatestByStatus(context.Context, string, pagination.PageRequest) (*pagination.PageResult[outcomes.Outcome], error) {
	return &pagination.PageResult[outcomes.Outcome]{}, nil
}

func (f *fakeOutcomes) MonthlyCost(context.Context, string) (*outcomes.CostSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	summary := f.monthly
	return &summary, nil
}

func writePage(w http.ResponseWriter, results any) {
	json.NewEncoder(w).Encode(map[string]any{
		"count": 0, "next": nil, "results": results,
	})
}

func newEntityCache(t *testing.T) (*archive.Cache, *archive.Wellknown) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []archive.Entity{
			{ID: triggerTagID, Name: "NEU"},
			{ID: 2, Name: "Rechnung"},
		})
	})
	mux.HandleFunc("GET /api/correspondents/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []archive.Entity{{ID: 11, Name: "Allianz"}})
	})
	mux.HandleFunc("GET /api/document_types/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []archive.Entity{{ID: 20, Name: "Rechnung"}})
	})
	mux.HandleFunc("GET /api/storage_paths/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []archive.Entity{{ID: 30, Name: "Haushalt"}})
	})
	mux.HandleFunc("GET /api/custom_fields/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []map[string]any{
			{"id": statusFieldID, "name": "KI-Status", "data_type": "select", "extra_data": map[string]any{
				"select_options": []archive.SelectOption{
					{ID: "opt-classified", Label: "classified"},
					{ID: "opt-review", Label: "review"},
					{ID: "opt-error", Label: "error"},
					{ID: "opt-manual", Label: "manual"},
				},
			}},
			{"id": 41, "name": "Person", "data_type": "select"},
			{"id": 42, "name": "Paginierung", "data_type": "integer"},
			{"id": 43, "name": "Haus-Register", "data_type": "select"},
			{"id": 44, "name": "Haus-Ordnungszahl", "data_type": "integer"},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := archive.NewClient(server.URL, "token", 5*time.Second, discardLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	cache := archive.NewCache(client, discardLogger())
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	wellknown, err := archive.ResolveWellknown(cache, archive.WellknownNames{
		TriggerTag:         "NEU",
		StatusField:        "KI-Status",
		PersonField:        "Person",
		PaginationField:    "Paginierung",
		HouseRegisterField: "Haus-Register",
		HouseSequenceField: "Haus-Ordnungszahl",
	})
	if err != nil {
		t.Fatalf("resolve wellknown: %v", err)
	}
	return cache, wellknown
}

type staticPrompt struct{}

func (staticPrompt) Prompt() string { return "system prompt" }

type fixture struct {
	poller   *poller.Poller
	archive  *fakeArchive
	reasoner *fakeReasoner
	outcomes *fakeOutcomes
	log      *callLog
}

func newFixture(t *testing.T, cfg poller.Config, docs ...*archive.Document) *fixture {
	t.Helper()

	cache, wellknown := newEntityCache(t)
	logger := discardLogger()

	log := &callLog{}
	fa := newFakeArchive(docs...)
	fa.log = log
	fr := &fakeReasoner{log: log}
	fo := &fakeOutcomes{}

	rt := &pipeline.Runtime{
		Archive:   fa,
		Cache:     cache,
		Wellknown: wellknown,
		Reasoner:  fr,
		Prompts:   staticPrompt{},
		Resolver:  classifier.NewResolver(cache, wellknown, 0.85, "Steuer %d", logger),
		Evaluator: classifier.NewEvaluator(classifier.DefaultWeights(), logger),
		Router:    classifier.NewRouter("capable-model", "fast-model", logger),
		Outcomes:  fo,
		Logger:    logger,
	}

	return &fixture{
		poller:   poller.New(rt, fa, cfg, logger),
		archive:  fa,
		reasoner: fr,
		outcomes: fo,
		log:      log,
	}
}

func classifiedResponse() *reasoning.Response {
	return &reasoning.Response{
		Proposal: reasoning.Proposal{
			Title:         "Beitragsrechnung",
			Correspondent: strPtr("Allianz"),
			DocumentType:  strPtr("Rechnung"),
			StoragePath:   strPtr("Haushalt"),
			Confidence:    reasoning.ConfidenceHigh,
		},
		Model:   "capable-model",
		CostUSD: 0.01,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(message)
}

func tagged(id int) *archive.Document {
	return &archive.Document{ID: id, Title: fmt.Sprintf("doc-%d", id), Tags: []int{triggerTagID}}
}

func testConfig() poller.Config {
	return poller.Config{
		Interval:      time.Hour,
		DocumentDelay: time.Millisecond,
	}
}
