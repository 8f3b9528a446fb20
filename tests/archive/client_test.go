package archive_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/wboerner/archivar/internal/archive"
)

func newClient(t *testing.T, handler http.Handler) *archive.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := archive.NewClient(server.URL, "secret-token", 5*time.Second, discardLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestClientAuthHeader(t *testing.T) {
	var gotAuth string
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(archive.Document{ID: 1})
	}))

	if _, err := client.Document(context.Background(), 1); err != nil {
		t.Fatalf("document: %v", err)
	}
	if gotAuth != "Token secret-token" {
		t.Errorf("authorization header: got %q", gotAuth)
	}
}

func TestClientDocumentNotFound(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Document(context.Background(), 99)
	if !errors.Is(err, archive.ErrNotFound) {
		t.Errorf("error: got %v, want ErrNotFound", err)
	}
}

func TestClientUnauthorized(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.Document(context.Background(), 1)
	if !errors.Is(err, archive.ErrUnauthorized) {
		t.Errorf("error: got %v, want ErrUnauthorized", err)
	}
}

func TestClientStatusError(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.Document(context.Background(), 1)
	var statusErr *archive.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error: got %v, want StatusError", err)
	}
	if statusErr.Status != http.StatusBadGateway {
		t.Errorf("status: got %d, want 502", statusErr.Status)
	}
}

func TestClientDocumentsByTagPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/documents/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tags__id__all") != "7" {
			t.Errorf("tag filter: got %q, want 7", r.URL.Query().Get("tags__id__all"))
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 1:
			next := "ignored"
			json.NewEncoder(w).Encode(map[string]any{
				"count":   3,
				"next":    next,
				"results": []archive.Document{{ID: 1}, {ID: 2}},
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{
				"count":   3,
				"next":    nil,
				"results": []archive.Document{{ID: 3}},
			})
		}
	})

	client := newClient(t, mux)

	docs, err := client.DocumentsByTag(context.Background(), 7)
	if err != nil {
		t.Fatalf("documents by tag: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("documents: got %d, want 3", len(docs))
	}
	for i, want := range []int{1, 2, 3} {
		if docs[i].ID != want {
			t.Errorf("document %d: got id %d, want %d", i, docs[i].ID, want)
		}
	}
}

func TestClientUpdateDocumentSendsNulls(t *testing.T) {
	var body map[string]json.RawMessage
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/documents/5/", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode patch: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	client := newClient(t, mux)

	patch := archive.DocumentPatch{
		"title":         "Neuer Titel",
		"correspondent": nil,
		"tags":          []int{2, 3},
	}
	if err := client.UpdateDocument(context.Background(), 5, patch); err != nil {
		t.Fatalf("update: %v", err)
	}

	raw, ok := body["correspondent"]
	if !ok {
		t.Fatal("patch must carry the correspondent key")
	}
	if string(raw) != "null" {
		t.Errorf("correspondent: got %s, want explicit null", raw)
	}
	if string(body["title"]) != `"Neuer Titel"` {
		t.Errorf("title: got %s", body["title"])
	}
}

func TestDocumentHelpers(t *testing.T) {
	doc := archive.Document{
		ID:   1,
		Tags: []int{1, 4},
		CustomFields: []archive.CustomFieldValue{
			{Field: 42, Value: float64(17)},
		},
	}

	if !doc.HasTag(4) {
		t.Error("HasTag(4) should be true")
	}
	if doc.HasTag(2) {
		t.Error("HasTag(2) should be false")
	}
	if v := doc.FieldValue(42); v != float64(17) {
		t.Errorf("FieldValue(42): got %v, want 17", v)
	}
	if v := doc.FieldValue(99); v != nil {
		t.Errorf("FieldValue(99): got %v, want nil", v)
	}
}

func TestWellknownResolution(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []archive.Entity{{ID: 9, Name: "NEU"}})
	})
	for _, path := range []string{"correspondents", "document_types", "storage_paths"} {
		mux.HandleFunc("GET /api/"+path+"/", func(w http.ResponseWriter, r *http.Request) {
			writePage(w, []any{})
		})
	}
	mux.HandleFunc("GET /api/custom_fields/", func(w http.ResponseWriter, r *http.Request) {
		fields := []map[string]any{}
		for i, name := range []string{"KI-Status", "Person", "Paginierung", "Haus-Register", "Haus-Ordnungszahl"} {
			fields = append(fields, map[string]any{
				"id": 40 + i, "name": name, "data_type": "string",
			})
		}
		writePage(w, fields)
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

	names := archive.WellknownNames{
		TriggerTag:         "NEU",
		StatusField:        "KI-Status",
		PersonField:        "Person",
		PaginationField:    "Paginierung",
		HouseRegisterField: "Haus-Register",
		HouseSequenceField: "Haus-Ordnungszahl",
	}

	w, err := archive.ResolveWellknown(cache, names)
	if err != nil {
		t.Fatalf("resolve wellknown: %v", err)
	}
	if w.TriggerTag.ID != 9 {
		t.Errorf("trigger tag id: got %d, want 9", w.TriggerTag.ID)
	}
	if w.StatusField.ID != 40 {
		t.Errorf("status field id: got %d, want 40", w.StatusField.ID)
	}

	names.TriggerTag = "missing"
	if _, err := archive.ResolveWellknown(cache, names); err == nil {
		t.Error("expected error for missing trigger tag")
	}
}
