package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/snackflow/snackflow/internal/store"
)

// CollectionStore defines the database methods needed by collection handlers.
// Satisfied by *store.Store; narrow interface for testability.
type CollectionStore interface {
	CreateCollection(ctx context.Context, c store.Collection) (store.Collection, error)
	GetCollectionByName(ctx context.Context, name string) (store.Collection, error)
	ListCollections(ctx context.Context) ([]store.Collection, error)
}

// CollectionHandler handles collection schema management. All routes are
// mounted behind the superuser middleware.
type CollectionHandler struct {
	store CollectionStore
}

// NewCollectionHandler creates a new CollectionHandler.
func NewCollectionHandler(store CollectionStore) *CollectionHandler {
	return &CollectionHandler{store: store}
}

// RegisterRoutes registers collection management endpoints on the given Chi router.
func (h *CollectionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{name}", h.Get)
}

// --- Request / Response types ---

type createCollectionRequest struct {
	Name       string        `json:"name"`
	Type       string        `json:"type"`
	Fields     []store.Field `json:"fields"`
	ListRule   *string       `json:"listRule"`
	ViewRule   *string       `json:"viewRule"`
	CreateRule *string       `json:"createRule"`
	UpdateRule *string       `json:"updateRule"`
	DeleteRule *string       `json:"deleteRule"`
}

type collectionResponse struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Type       string        `json:"type"`
	Fields     []store.Field `json:"fields"`
	ListRule   *string       `json:"listRule"`
	ViewRule   *string       `json:"viewRule"`
	CreateRule *string       `json:"createRule"`
	UpdateRule *string       `json:"updateRule"`
	DeleteRule *string       `json:"deleteRule"`
	Created    string        `json:"created"`
	Updated    string        `json:"updated"`
}

func toCollectionResponse(c store.Collection) collectionResponse {
	return collectionResponse{
		ID:         c.ID.String(),
		Name:       c.Name,
		Type:       c.Type,
		Fields:     c.Fields,
		ListRule:   c.ListRule,
		ViewRule:   c.ViewRule,
		CreateRule: c.CreateRule,
		UpdateRule: c.UpdateRule,
		DeleteRule: c.DeleteRule,
		Created:    c.Created.UTC().Format(timeLayout),
		Updated:    c.Updated.UTC().Format(timeLayout),
	}
}

// --- Handlers ---

// List returns every collection schema.
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	cols, err := h.store.ListCollections(r.Context())
	if err != nil {
		log.Printf("ERROR: list collections: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]collectionResponse, len(cols))
	for i, c := range cols {
		resp[i] = toCollectionResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create registers a new collection from a schema definition. A duplicate
// name returns 400 with a message callers can distinguish from a schema
// rejection.
func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Type == "" {
		req.Type = "base"
	}
	for _, f := range req.Fields {
		if f.Name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field name is required"})
			return
		}
		switch f.Type {
		case store.FieldText, store.FieldNumber, store.FieldBool, store.FieldJSON:
		case store.FieldSelect:
			if len(f.Options.Values) == 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "select field '" + f.Name + "' needs values"})
				return
			}
		case store.FieldRelation:
			if f.Options.Collection == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "relation field '" + f.Name + "' needs a target collection"})
				return
			}
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown field type '" + f.Type + "'"})
			return
		}
	}

	col, err := h.store.CreateCollection(r.Context(), store.Collection{
		Name:       req.Name,
		Type:       req.Type,
		Fields:     req.Fields,
		ListRule:   req.ListRule,
		ViewRule:   req.ViewRule,
		CreateRule: req.CreateRule,
		UpdateRule: req.UpdateRule,
		DeleteRule: req.DeleteRule,
	})
	if err != nil {
		if errors.Is(err, store.ErrCollectionExists) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "collection name already exists"})
			return
		}
		log.Printf("ERROR: create collection: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toCollectionResponse(col))
}

// Get fetches one collection schema by name.
func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	col, err := h.store.GetCollectionByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "collection not found"})
			return
		}
		log.Printf("ERROR: get collection: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCollectionResponse(col))
}
