package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rubiojr/meld/pkg/api"
	"github.com/rubiojr/meld/pkg/core"
)

func newMockBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	backend, err := NewBackend("test-remote", &Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewBackend failed: %v", err)
	}
	return backend.(*Backend)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func TestBackendValidation(t *testing.T) {
	if _, err := NewBackend("bad", &Config{}); err == nil {
		t.Error("expected error for empty base_url")
	}
	if _, err := NewBackend("bad", "not a config"); err == nil {
		t.Error("expected error for wrong config type")
	}
}

func TestSearchForwardsWindow(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search" {
			t.Errorf("path = %s, want /api/search", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "golang" || q.Get("offset") != "20" || q.Get("limit") != "10" {
			t.Errorf("query = %v, want q=golang offset=20 limit=10", q)
		}
		writeJSON(w, http.StatusOK, api.SearchResponse{
			Query:      "golang",
			Records:    []api.RecordResponse{{ID: "r1", Title: "T1", Text: "B1", Metadata: map[string]interface{}{"rank": 1.0}}},
			Count:      1,
			TotalCount: 57,
		})
	})

	results, err := backend.Search(context.Background(), core.NewQuery("golang"), 20, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results.Total() != 57 {
		t.Errorf("Total() = %d, want 57", results.Total())
	}
	if results.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", results.Len())
	}
	record := results.First()
	if record.ID() != "r1" || record.Source() != "test-remote" {
		t.Errorf("record = %s from %s, want r1 from test-remote", record.ID(), record.Source())
	}
}

func TestSearchRemoteError(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "Search failed", Message: "index offline"})
	})

	if _, err := backend.Search(context.Background(), core.NewQuery("x"), 0, 10); err == nil {
		t.Error("expected error from a 500 response")
	}
}

func TestRetrieve(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/records/doc1":
			writeJSON(w, http.StatusOK, api.RecordResponse{ID: "doc1", Title: "Doc"})
		case "/api/records/alice/httpd":
			writeJSON(w, http.StatusOK, api.RecordResponse{ID: "alice/httpd", Title: "Repo"})
		default:
			writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "Record not found"})
		}
	})

	found, err := backend.Retrieve(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if found.Len() != 1 || found.First().ID() != "doc1" {
		t.Fatalf("Retrieve returned %d records, want doc1", found.Len())
	}

	// slash ids must pass through unescaped path segments
	repo, err := backend.Retrieve(context.Background(), "alice/httpd")
	if err != nil {
		t.Fatalf("Retrieve of slash id failed: %v", err)
	}
	if repo.Len() != 1 {
		t.Errorf("slash id: Len() = %d, want 1", repo.Len())
	}

	missing, err := backend.Retrieve(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Retrieve of missing record failed: %v", err)
	}
	if missing.Len() != 0 {
		t.Errorf("missing record: Len() = %d, want 0", missing.Len())
	}
}

func TestRetrieveBatch(t *testing.T) {
	backend := newMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/records" {
			t.Errorf("path = %s, want /api/records", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "a,b,ghost" {
			t.Errorf("ids = %q, want a,b,ghost", got)
		}
		writeJSON(w, http.StatusOK, api.ListRecordsResponse{
			Records: []api.RecordResponse{{ID: "a"}, {ID: "b"}},
			Count:   2,
			Missing: []string{"ghost"},
		})
	})

	results, err := backend.RetrieveBatch(context.Background(), []string{"a", "b", "ghost"})
	if err != nil {
		t.Fatalf("RetrieveBatch failed: %v", err)
	}
	if results.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", results.Len())
	}

	empty, err := backend.RetrieveBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty batch failed: %v", err)
	}
	if empty.Len() != 0 {
		t.Errorf("empty batch: Len() = %d, want 0", empty.Len())
	}
}
