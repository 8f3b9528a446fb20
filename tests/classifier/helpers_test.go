package classifier_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wboerner/archivar/internal/archive"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixtureField struct {
	ID       int
	Name     string
	DataType string
	Options  []archive.SelectOption
}

type fixture struct {
	Tags           []archive.Entity
	Correspondents []archive.Entity
	DocumentTypes  []archive.Entity
	StoragePaths   []archive.Entity
	Fields         []fixtureField
}

func defaultFixture() fixture {
	return fixture{
		Tags: []archive.Entity{
			{ID: 1, Name: "NEU"},
			{ID: 2, Name: "Rechnung"},
			{ID: 3, Name: "Steuer 2023"},
			{ID: 4, Name: "Versicherung"},
		},
		Correspondents: []archive.Entity{
			{ID: 10, Name: "Stadtwerke München"},
			{ID: 11, Name: "Allianz"},
		},
		DocumentTypes: []archive.Entity{
			{ID: 20, Name: "Rechnung"},
			{ID: 21, Name: "Brief"},
		},
		StoragePaths: []archive.Entity{
			{ID: 30, Name: "Haushalt"},
		},
		Fields: []fixtureField{
			{ID: 40, Name: "KI-Status", DataType: "select", Options: []archive.SelectOption{
				{ID: "opt-classified", Label: "classified"},
				{ID: "opt-review", Label: "review"},
				{ID: "opt-error", Label: "error"},
				{ID: "opt-manual", Label: "manual"},
			}},
			{ID: 41, Name: "Person", DataType: "select", Options: []archive.SelectOption{
				{ID: "opt-alice", Label: "Alice"},
				{ID: "opt-bob", Label: "Bob"},
			}},
			{ID: 42, Name: "Paginierung", DataType: "integer"},
			{ID: 43, Name: "Haus-Register", DataType: "select", Options: []archive.SelectOption{
				{ID: "opt-reg-a", Label: "A"},
				{ID: "opt-reg-b", Label: "B"},
			}},
			{ID: 44, Name: "Haus-Ordnungszahl", DataType: "integer"},
		},
	}
}

func writePage(w http.ResponseWriter, results any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":   0,
		"next":    nil,
		"results": results,
	})
}

// newArchiveServer serves the list endpoints the cache refresh hits.
func newArchiveServer(t *testing.T, fx fixture) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, fx.Tags)
	})
	mux.HandleFunc("GET /api/correspondents/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, fx.Correspondents)
	})
	mux.HandleFunc("GET /api/document_types/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, fx.DocumentTypes)
	})
	mux.HandleFunc("GET /api/storage_paths/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, fx.StoragePaths)
	})
	mux.HandleFunc("GET /api/custom_fields/", func(w http.ResponseWriter, r *http.Request) {
		fields := make([]map[string]any, 0, len(fx.Fields))
		for _, f := range fx.Fields {
			fields = append(fields, map[string]any{
				"id":        f.ID,
				"name":      f.Name,
				"data_type": f.DataType,
				"extra_data": map[string]any{
					"select_options": f.Options,
				},
			})
		}
		writePage(w, fields)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newCache(t *testing.T, fx fixture) (*archive.Cache, *archive.Wellknown) {
	t.Helper()

	server := newArchiveServer(t, fx)
	client, err := archive.NewClient(server.URL, "test-token", 5*time.Second, discardLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	cache := archive.NewCache(client, discardLogger())
	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("cache refresh: %v", err)
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

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
