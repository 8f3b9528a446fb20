package pipeline_test

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
	"github.com/wboerner/archivar/internal/reasoning"
	"github.com/wboerner/archivar/pkg/pagination"
)

const (
	capableModel = "claude-sonnet-4-5-20250929"
	fastModel    = "claude-haiku-4-5-20251001"

	triggerTagID      = 1
	statusFieldID     = 40
	personFieldID     = 41
	paginationFieldID = 42
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// minimalPDF assembles a one-page PDF with a correct xref table so the local
// analysis step can read a page count from it.
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

// fakeArchive implements pipeline.Archive in memory and records every patch.
type fakeArchive struct {
	mu        sync.Mutex
	documents map[int]*archive.Document
	pdf       []byte

	patches   []archive.DocumentPatch
	patchIDs  []int
	created   []archive.Entity
	nextID    int
	updateErr error
}

func newFakeArchive(docs ...*archive.Document) *fakeArchive {
	fa := &fakeArchive{
		documents: map[int]*archive.Document{},
		pdf:       minimalPDF(),
		nextID:    1000,
	}
	for _, d := range docs {
		fa.documents[d.ID] = d
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
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.documents[id]; !ok {
		return nil, fmt.Errorf("document %d: %w", id, archive.ErrNotFound)
	}
	return f.pdf, nil
}

func (f *fakeArchive) UpdateDocument(_ context.Context, id int, patch archive.DocumentPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.patches = append(f.patches, patch)
	f.patchIDs = append(f.patchIDs, id)
	return nil
}

func (f *fakeArchive) CreateEntity(_ context.Context, kind archive.EntityKind, name string) (*archive.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e := archive.Entity{ID: f.nextID, Name: name}
	f.created = append(f.created, e)
	return &e, nil
}

func (f *fakeArchive) patchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patches)
}

func (f *fakeArchive) lastPatch(t *testing.T) archive.DocumentPatch {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.patches) == 0 {
		t.Fatal("no patches recorded")
	}
	return f.patches[len(f.patches)-1]
}

// fakeReasoner returns a canned response or error.
type fakeReasoner struct {
	mu        sync.Mutex
	response  *reasoning.Response
	err       error
	calls     int
	lastModel string
}

func (f *fakeReasoner) Classify(_ context.Context, _ []byte, model, _ string) (*reasoning.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastModel = model
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

// fakeOutcomes records commands in memory.
type fakeOutcomes struct {
	mu       sync.Mutex
	records  []outcomes.RecordCommand
	monthly  outcomes.CostSummary
	costErr  error
	recorded []*outcomes.Outcome
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
	o := &outcomes.Outcome{
		ID:         uuid.New(),
		DocumentID: cmd.DocumentID,
		Title:      cmd.Title,
		ModelTier:  cmd.ModelTier,
		Level:      cmd.Level,
		Status:     cmd.Status,
		Score:      cmd.Score,
		Error:      cmd.Error,
		Resolved:   cmd.Resolved,
		StartedAt:  cmd.StartedAt,
	}
	f.recorded = append(f.recorded, o)
	return o, nil
}

func (f *fakeOutcomes) LatestForDocument(context.Context, int) (*outcomes.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.recorded) == 0 {
		return nil, outcomes.ErrNotFound
	}
	return f.recorded[len(f.recorded)-1], nil
}

func (f *fakeOutcomes) LatestByStatus(context.Context, string, pagination.PageRequest) (*pagination.PageResult[outcomes.Outcome], error) {
	return &pagination.PageResult[outcomes.Outcome]{}, nil
}

func (f *fakeOutcomes) MonthlyCost(context.Context, string) (*outcomes.CostSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.costErr != nil {
		return nil, f.costErr
	}
	summary := f.monthly
	return &summary, nil
}

func (f *fakeOutcomes) recordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeOutcomes) lastRecord(t *testing.T) outcomes.RecordCommand {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		t.Fatal("no outcome records")
	}
	return f.records[len(f.records)-1]
}

func writePage(w http.ResponseWriter, results any) {
	json.NewEncoder(w).Encode(map[string]any{
		"count":   0,
		"next":    nil,
		"results": results,
	})
}

// newEntityCache serves a fixed entity snapshot and returns the refreshed
// cache plus resolved wellknown entities.
func newEntityCache(t *testing.T) (*archive.Cache, *archive.Wellknown) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []archive.Entity{
			{ID: triggerTagID, Name: "NEU"},
			{ID: 2, Name: "Rechnung"},
			{ID: 3, Name: "Steuer 2023"},
			{ID: 4, Name: "Versicherung"},
		})
	})
	mux.HandleFunc("GET /api/correspondents/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []archive.Entity{
			{ID: 10, Name: "Stadtwerke München"},
			{ID: 11, Name: "Allianz"},
		})
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
			{"id": personFieldID, "name": "Person", "data_type": "select", "extra_data": map[string]any{
				"select_options": []archive.SelectOption{
					{ID: "opt-alice", Label: "Alice"},
				},
			}},
			{"id": paginationFieldID, "name": "Paginierung", "data_type": "integer"},
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
	rt       *pipeline.Runtime
	archive  *fakeArchive
	reasoner *fakeReasoner
	outcomes *fakeOutcomes
}

func newFixture(t *testing.T, docs ...*archive.Document) *fixture {
	t.Helper()

	cache, wellknown := newEntityCache(t)
	logger := discardLogger()

	fa := newFakeArchive(docs...)
	fr := &fakeReasoner{}
	fo := &fakeOutcomes{}

	rt := &pipeline.Runtime{
		Archive:   fa,
		Cache:     cache,
		Wellknown: wellknown,
		Reasoner:  fr,
		Prompts:   staticPrompt{},
		Resolver:  classifier.NewResolver(cache, wellknown, 0.85, "Steuer %d", logger),
		Evaluator: classifier.NewEvaluator(classifier.DefaultWeights(), logger),
		Router:    classifier.NewRouter(capableModel, fastModel, logger),
		Outcomes:  fo,
		Logger:    logger,
	}

	return &fixture{rt: rt, archive: fa, reasoner: fr, outcomes: fo}
}

func highConfidenceResponse() *reasoning.Response {
	return &reasoning.Response{
		Proposal: reasoning.Proposal{
			Title:         "Beitragsrechnung 2024",
			Correspondent: strPtr("Allianz"),
			DocumentType:  strPtr("Rechnung"),
			StoragePath:   strPtr("Haushalt"),
			Tags:          []string{"Rechnung"},
			Date:          strPtr("2024-03-01"),
			Confidence:    reasoning.ConfidenceHigh,
			Reasoning:     "clear invoice",
		},
		Usage:   reasoning.TokenUsage{InputTokens: 1200, OutputTokens: 300},
		Model:   capableModel,
		CostUSD: 0.0081,
	}
}
