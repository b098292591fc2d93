package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/snackflow/snackflow/internal/auth"
	"github.com/snackflow/snackflow/internal/filter"
	"github.com/snackflow/snackflow/internal/middleware"
	"github.com/snackflow/snackflow/internal/store"
	"github.com/snackflow/snackflow/internal/ws"
)

const (
	defaultPerPage = 30
	maxPerPage     = 500
)

// RecordStore defines the database methods needed by record handlers.
// Satisfied by *store.Store; narrow interface for testability.
type RecordStore interface {
	GetCollectionByName(ctx context.Context, name string) (store.Collection, error)
	ListRecords(ctx context.Context, collectionID uuid.UUID) ([]store.Record, error)
	GetRecord(ctx context.Context, collectionID, id uuid.UUID) (store.Record, error)
	CreateRecord(ctx context.Context, collectionID uuid.UUID, data map[string]any) (store.Record, error)
	UpdateRecord(ctx context.Context, collectionID, id uuid.UUID, data map[string]any) (store.Record, error)
	DeleteRecord(ctx context.Context, col store.Collection, id uuid.UUID) error
	RecordExists(ctx context.Context, collectionName string, id uuid.UUID) (bool, error)

	// The users collection lives on its own table.
	CreateUser(ctx context.Context, email, hashedPassword, name string) (store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
}

// Broadcaster pushes record change events to realtime subscribers.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(event ws.Event)
}

// RecordHandler handles record CRUD for dynamic collections.
type RecordHandler struct {
	store RecordStore
	hub   Broadcaster
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(store RecordStore, hub Broadcaster) *RecordHandler {
	return &RecordHandler{store: store, hub: hub}
}

// RegisterRoutes registers record endpoints on the given Chi router.
// Expected to be mounted at /collections/{name}/records.
func (h *RecordHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type listResponse struct {
	Page       int              `json:"page"`
	PerPage    int              `json:"perPage"`
	TotalItems int              `json:"totalItems"`
	Items      []map[string]any `json:"items"`
}

// ruleAllows reports whether the given access rule admits the caller.
// A nil rule is superuser-only; an empty rule is public.
func ruleAllows(rule *string, claims *auth.Claims) bool {
	if claims != nil && claims.Superuser {
		return true
	}
	return rule != nil && *rule == ""
}

// flattenRecord merges a record's data fields with its system fields, the
// shape clients see on the wire.
func flattenRecord(collectionName string, rec store.Record) map[string]any {
	out := make(map[string]any, len(rec.Data)+4)
	for k, v := range rec.Data {
		out[k] = v
	}
	out["id"] = rec.ID.String()
	out["collectionName"] = collectionName
	out["created"] = rec.Created.UTC().Format(timeLayout)
	out["updated"] = rec.Updated.UTC().Format(timeLayout)
	return out
}

// stripSystemFields removes the wire-only keys clients may echo back on
// writes. Mutates and returns data.
func stripSystemFields(data map[string]any) map[string]any {
	for _, k := range []string{"id", "created", "updated", "collectionId", "collectionName", "expand"} {
		delete(data, k)
	}
	return data
}

func (h *RecordHandler) collection(w http.ResponseWriter, r *http.Request) (store.Collection, bool) {
	name := chi.URLParam(r, "name")

	col, err := h.store.GetCollectionByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "collection not found"})
			return store.Collection{}, false
		}
		log.Printf("ERROR: get collection: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return store.Collection{}, false
	}
	return col, true
}

func denyRule(w http.ResponseWriter, claims *auth.Claims) {
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
}

// --- Handlers ---

// List returns a page of records matching the optional filter, ordered by the
// optional sort field (created ascending by default).
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	if chi.URLParam(r, "name") == "users" {
		h.listUsers(w, r, claims)
		return
	}

	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	if !ruleAllows(col.ListRule, claims) {
		denyRule(w, claims)
		return
	}

	var expr *filter.Expr
	if raw := r.URL.Query().Get("filter"); raw != "" {
		var err error
		expr, err = filter.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid filter: " + err.Error()})
			return
		}
	}
	sortSpec := filter.ParseSort(r.URL.Query().Get("sort"))

	records, err := h.store.ListRecords(r.Context(), col.ID)
	if err != nil {
		log.Printf("ERROR: list records: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		flat := flattenRecord(col.Name, rec)
		if expr != nil && !expr.Match(flat) {
			continue
		}
		items = append(items, flat)
	}

	// Stable for equal keys: ListRecords already orders by created, id.
	sortItems(items, sortSpec)

	page, perPage := pagination(r)
	total := len(items)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, listResponse{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		Items:      items[start:end],
	})
}

// Get fetches one record by id.
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	if !ruleAllows(col.ViewRule, claims) {
		denyRule(w, claims)
		return
	}

	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid record ID"})
		return
	}

	rec, err := h.store.GetRecord(r.Context(), col.ID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
			return
		}
		log.Printf("ERROR: get record: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, flattenRecord(col.Name, rec))
}

// Create inserts a record after schema validation.
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	if chi.URLParam(r, "name") == "users" {
		h.createUser(w, r, claims)
		return
	}

	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	if !ruleAllows(col.CreateRule, claims) {
		denyRule(w, claims)
		return
	}

	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	data = stripSystemFields(data)

	if err := store.ValidateData(r.Context(), col, data, h.store); err != nil {
		var ve *store.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error()})
			return
		}
		log.Printf("ERROR: validate record: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	rec, err := h.store.CreateRecord(r.Context(), col.ID, data)
	if err != nil {
		log.Printf("ERROR: create record: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	flat := flattenRecord(col.Name, rec)
	h.broadcast(col.Name, ws.ActionCreate, flat)
	writeJSON(w, http.StatusCreated, flat)
}

// Update applies a partial update: request fields are merged over the stored
// data, then the merged document is validated as a whole.
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	if !ruleAllows(col.UpdateRule, claims) {
		denyRule(w, claims)
		return
	}

	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid record ID"})
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	patch = stripSystemFields(patch)

	existing, err := h.store.GetRecord(r.Context(), col.ID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
			return
		}
		log.Printf("ERROR: get record: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	merged := make(map[string]any, len(existing.Data)+len(patch))
	for k, v := range existing.Data {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}

	if err := store.ValidateData(r.Context(), col, merged, h.store); err != nil {
		var ve *store.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error()})
			return
		}
		log.Printf("ERROR: validate record: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	rec, err := h.store.UpdateRecord(r.Context(), col.ID, id, merged)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
			return
		}
		log.Printf("ERROR: update record: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	flat := flattenRecord(col.Name, rec)
	h.broadcast(col.Name, ws.ActionUpdate, flat)
	writeJSON(w, http.StatusOK, flat)
}

// Delete removes a record, cascading through relations that request it.
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	if !ruleAllows(col.DeleteRule, claims) {
		denyRule(w, claims)
		return
	}

	id, err := parseID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid record ID"})
		return
	}

	rec, err := h.store.GetRecord(r.Context(), col.ID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
			return
		}
		log.Printf("ERROR: get record: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := h.store.DeleteRecord(r.Context(), col, id); err != nil {
		log.Printf("ERROR: delete record: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcast(col.Name, ws.ActionDelete, flattenRecord(col.Name, rec))
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordHandler) broadcast(collection, action string, flat map[string]any) {
	payload, err := json.Marshal(flat)
	if err != nil {
		log.Printf("ERROR: encode realtime event: %v", err)
		return
	}
	h.hub.Broadcast(ws.Event{Collection: collection, Action: action, Record: payload})
}

func pagination(r *http.Request) (page, perPage int) {
	page = 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	perPage = defaultPerPage
	if v, err := strconv.Atoi(r.URL.Query().Get("perPage")); err == nil && v > 0 {
		perPage = v
		if perPage > maxPerPage {
			perPage = maxPerPage
		}
	}
	return page, perPage
}

// sortItems keeps the incoming created, id order for equal keys.
func sortItems(items []map[string]any, s filter.Sort) {
	sort.SliceStable(items, func(i, j int) bool {
		return s.Less(items[i], items[j])
	})
}
