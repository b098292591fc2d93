package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/snackflow/snackflow/internal/handler"
	"github.com/snackflow/snackflow/internal/store"
)

// --- Mock store ---

type mockCollectionStore struct {
	collections map[string]store.Collection // keyed by name
}

func newMockCollectionStore() *mockCollectionStore {
	return &mockCollectionStore{collections: make(map[string]store.Collection)}
}

func (m *mockCollectionStore) CreateCollection(_ context.Context, c store.Collection) (store.Collection, error) {
	if _, ok := m.collections[c.Name]; ok {
		return store.Collection{}, store.ErrCollectionExists
	}
	c.ID = uuid.New()
	c.Created = time.Now()
	c.Updated = c.Created
	m.collections[c.Name] = c
	return c, nil
}

func (m *mockCollectionStore) GetCollectionByName(_ context.Context, name string) (store.Collection, error) {
	c, ok := m.collections[name]
	if !ok {
		return store.Collection{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockCollectionStore) ListCollections(_ context.Context) ([]store.Collection, error) {
	var result []store.Collection
	for _, c := range m.collections {
		result = append(result, c)
	}
	return result, nil
}

// --- Helpers ---

func setupCollectionRouter(store *mockCollectionStore) *chi.Mux {
	h := handler.NewCollectionHandler(store)
	r := chi.NewRouter()
	r.Route("/collections", h.RegisterRoutes)
	return r
}

func publicRule() *string {
	s := ""
	return &s
}

// --- Tests ---

func TestCollectionCreate_Success(t *testing.T) {
	store := newMockCollectionStore()
	router := setupCollectionRouter(store)

	rr := doRequest(t, router, "POST", "/collections", map[string]any{
		"name": "groups",
		"type": "base",
		"fields": []map[string]any{
			{"name": "name", "type": "text", "required": true},
			{"name": "icon", "type": "text"},
		},
		"listRule": "",
		"viewRule": "",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["name"] != "groups" {
		t.Errorf("name: got %v", resp["name"])
	}
	if resp["listRule"] != "" {
		t.Errorf("listRule: got %v, want empty string", resp["listRule"])
	}
	if resp["createRule"] != nil {
		t.Errorf("createRule: got %v, want null", resp["createRule"])
	}
}

func TestCollectionCreate_DuplicateName(t *testing.T) {
	st := newMockCollectionStore()
	st.collections["groups"] = store.Collection{ID: uuid.New(), Name: "groups"}
	router := setupCollectionRouter(st)

	rr := doRequest(t, router, "POST", "/collections", map[string]any{"name": "groups"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	resp := decodeResponse(t, rr)
	if resp["error"] != "collection name already exists" {
		t.Errorf("error message: got %v", resp["error"])
	}
}

func TestCollectionCreate_UnknownFieldType(t *testing.T) {
	store := newMockCollectionStore()
	router := setupCollectionRouter(store)

	rr := doRequest(t, router, "POST", "/collections", map[string]any{
		"name": "things",
		"fields": []map[string]any{
			{"name": "blob", "type": "binary"},
		},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCollectionCreate_SelectWithoutValues(t *testing.T) {
	store := newMockCollectionStore()
	router := setupCollectionRouter(store)

	rr := doRequest(t, router, "POST", "/collections", map[string]any{
		"name": "orders",
		"fields": []map[string]any{
			{"name": "status", "type": "select"},
		},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCollectionGet_NotFound(t *testing.T) {
	store := newMockCollectionStore()
	router := setupCollectionRouter(store)

	rr := doRequest(t, router, "GET", "/collections/groups", nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCollectionGet_Success(t *testing.T) {
	st := newMockCollectionStore()
	st.collections["products"] = store.Collection{
		ID:       uuid.New(),
		Name:     "products",
		Type:     "base",
		Fields:   []store.Field{{Name: "name", Type: "text", Required: true}},
		ListRule: publicRule(),
	}
	router := setupCollectionRouter(st)

	rr := doRequest(t, router, "GET", "/collections/products", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["name"] != "products" {
		t.Errorf("name: got %v", resp["name"])
	}
}
