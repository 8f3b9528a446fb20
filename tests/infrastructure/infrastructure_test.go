package infrastructure_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wboerner/archivar/internal/archive"
	"github.com/wboerner/archivar/internal/config"
	"github.com/wboerner/archivar/internal/infrastructure"
	"github.com/wboerner/archivar/pkg/database"
)

func writePage(w http.ResponseWriter, results any) {
	json.NewEncoder(w).Encode(map[string]any{
		"count": 0, "next": nil, "results": results,
	})
}

// archiveServer serves the entity list endpoints the cache loads at startup.
func archiveServer(t *testing.T, withTrigger bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tags/", func(w http.ResponseWriter, r *http.Request) {
		tags := []archive.Entity{{ID: 2, Name: "Rechnung"}}
		if withTrigger {
			tags = append(tags, archive.Entity{ID: 1, Name: "NEU"})
		}
		writePage(w, tags)
	})
	mux.HandleFunc("GET /api/correspondents/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []archive.Entity{})
	})
	mux.HandleFunc("GET /api/document_types/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []archive.Entity{})
	})
	mux.HandleFunc("GET /api/storage_paths/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []archive.Entity{})
	})
	mux.HandleFunc("GET /api/custom_fields/", func(w http.ResponseWriter, r *http.Request) {
		writePage(w, []map[string]any{
			{"id": 40, "name": "KI-Status", "data_type": "select"},
			{"id": 41, "name": "Person", "data_type": "select"},
			{"id": 42, "name": "Paginierung", "data_type": "integer"},
			{"id": 43, "name": "Haus-Register", "data_type": "select"},
			{"id": 44, "name": "Haus-Ordnungszahl", "data_type": "integer"},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func validConfig(archiveURL string) *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "archivar",
			User:            "archivar",
			Password:        "archivar",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Archive: config.ArchiveConfig{
			BaseURL:            archiveURL,
			Token:              "test-token",
			Timeout:            "5s",
			TriggerTag:         "NEU",
			StatusField:        "KI-Status",
			PersonField:        "Person",
			PaginationField:    "Paginierung",
			HouseRegisterField: "Haus-Register",
			HouseSequenceField: "Haus-Ordnungszahl",
		},
		Version: "0.1.0",
	}
}

func TestNew(t *testing.T) {
	server := archiveServer(t, true)

	infra, err := infrastructure.New(validConfig(server.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Database == nil {
		t.Error("Database is nil")
	}
	if infra.Archive == nil {
		t.Error("Archive is nil")
	}
	if infra.Cache == nil {
		t.Error("Cache is nil")
	}
	if infra.Wellknown == nil {
		t.Fatal("Wellknown is nil")
	}
	if infra.Wellknown.TriggerTag.ID != 1 {
		t.Errorf("trigger tag id: got %d, want 1", infra.Wellknown.TriggerTag.ID)
	}
	if infra.Wellknown.StatusField.ID != 40 {
		t.Errorf("status field id: got %d, want 40", infra.Wellknown.StatusField.ID)
	}
}

func TestNewDatabaseConnection(t *testing.T) {
	server := archiveServer(t, true)

	infra, err := infrastructure.New(validConfig(server.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	conn := infra.Database.Connection()
	if conn == nil {
		t.Fatal("Database.Connection() returned nil")
	}
	conn.Close()
}

func TestNewArchiveUnreachable(t *testing.T) {
	server := archiveServer(t, true)
	url := server.URL
	server.Close()

	_, err := infrastructure.New(validConfig(url))
	if err == nil {
		t.Fatal("expected error for unreachable archive")
	}
}

func TestNewMissingTriggerTag(t *testing.T) {
	server := archiveServer(t, false)

	_, err := infrastructure.New(validConfig(server.URL))
	if err == nil {
		t.Fatal("expected error when the trigger tag is missing from the archive")
	}
}
