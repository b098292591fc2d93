package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/snackflow/snackflow/internal/auth"
	"github.com/snackflow/snackflow/internal/handler"
	mw "github.com/snackflow/snackflow/internal/middleware"
	"github.com/snackflow/snackflow/internal/store"
	"github.com/snackflow/snackflow/internal/ws"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockRecordStore struct {
	collections map[string]store.Collection  // keyed by name
	records     map[uuid.UUID][]store.Record // keyed by collection ID
	users       []store.User
}

func newMockRecordStore() *mockRecordStore {
	return &mockRecordStore{
		collections: make(map[string]store.Collection),
		records:     make(map[uuid.UUID][]store.Record),
	}
}

func (m *mockRecordStore) GetCollectionByName(_ context.Context, name string) (store.Collection, error) {
	c, ok := m.collections[name]
	if !ok {
		return store.Collection{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockRecordStore) ListRecords(_ context.Context, collectionID uuid.UUID) ([]store.Record, error) {
	return m.records[collectionID], nil
}

func (m *mockRecordStore) GetRecord(_ context.Context, collectionID, id uuid.UUID) (store.Record, error) {
	for _, rec := range m.records[collectionID] {
		if rec.ID == id {
			return rec, nil
		}
	}
	return store.Record{}, pgx.ErrNoRows
}

func (m *mockRecordStore) CreateRecord(_ context.Context, collectionID uuid.UUID, data map[string]any) (store.Record, error) {
	rec := store.Record{
		ID:           uuid.New(),
		CollectionID: collectionID,
		Data:         data,
		Created:      time.Now(),
		Updated:      time.Now(),
	}
	m.records[collectionID] = append(m.records[collectionID], rec)
	return rec, nil
}

func (m *mockRecordStore) UpdateRecord(_ context.Context, collectionID, id uuid.UUID, data map[string]any) (store.Record, error) {
	for i, rec := range m.records[collectionID] {
		if rec.ID == id {
			rec.Data = data
			rec.Updated = time.Now()
			m.records[collectionID][i] = rec
			return rec, nil
		}
	}
	return store.Record{}, pgx.ErrNoRows
}

func (m *mockRecordStore) DeleteRecord(_ context.Context, col store.Collection, id uuid.UUID) error {
	recs := m.records[col.ID]
	for i, rec := range recs {
		if rec.ID == id {
			m.records[col.ID] = append(recs[:i], recs[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *mockRecordStore) RecordExists(_ context.Context, collectionName string, id uuid.UUID) (bool, error) {
	col, ok := m.collections[collectionName]
	if !ok {
		return false, nil
	}
	for _, rec := range m.records[col.ID] {
		if rec.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRecordStore) CreateUser(_ context.Context, email, hashedPassword, name string) (store.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return store.User{}, store.ErrEmailExists
		}
	}
	u := store.User{ID: uuid.New(), Email: email, HashedPassword: hashedPassword, Name: name, Created: time.Now(), Updated: time.Now()}
	m.users = append(m.users, u)
	return u, nil
}

func (m *mockRecordStore) ListUsers(_ context.Context) ([]store.User, error) {
	return m.users, nil
}

// mockHub records broadcast events instead of pushing to websockets.
type mockHub struct {
	events []ws.Event
}

func (m *mockHub) Broadcast(event ws.Event) {
	m.events = append(m.events, event)
}

// --- Helpers ---

func nilRule() *string { return nil }

func (m *mockRecordStore) addCollection(name string, fields []store.Field, listRule, viewRule, createRule, updateRule, deleteRule *string) store.Collection {
	c := store.Collection{
		ID:         uuid.New(),
		Name:       name,
		Type:       "base",
		Fields:     fields,
		ListRule:   listRule,
		ViewRule:   viewRule,
		CreateRule: createRule,
		UpdateRule: updateRule,
		DeleteRule: deleteRule,
	}
	m.collections[name] = c
	return c
}

func (m *mockRecordStore) addRecord(col store.Collection, data map[string]any, created time.Time) store.Record {
	rec := store.Record{
		ID:           uuid.New(),
		CollectionID: col.ID,
		Data:         data,
		Created:      created,
		Updated:      created,
	}
	m.records[col.ID] = append(m.records[col.ID], rec)
	return rec
}

func setupRecordRouter(st *mockRecordStore, hub *mockHub) *chi.Mux {
	h := handler.NewRecordHandler(st, hub)
	r := chi.NewRouter()
	r.Use(mw.Authenticate(testJWTSecret))
	r.Route("/collections/{name}/records", h.RegisterRoutes)
	return r
}

func doAuthRequest(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func superuserToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(testJWTSecret, uuid.New(), "admin@example.com", true)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func decodeListResponse(t *testing.T, rr *httptest.ResponseRecorder) ([]map[string]interface{}, int) {
	t.Helper()
	var resp struct {
		Page       int                      `json:"page"`
		PerPage    int                      `json:"perPage"`
		TotalItems int                      `json:"totalItems"`
		Items      []map[string]interface{} `json:"items"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Items, resp.TotalItems
}

func publicCatalogStore() (*mockRecordStore, store.Collection) {
	st := newMockRecordStore()
	col := st.addCollection("groups", []store.Field{
		{Name: "name", Type: "text", Required: true},
		{Name: "icon", Type: "text"},
	}, publicRule(), publicRule(), nilRule(), nilRule(), nilRule())
	return st, col
}

// --- List tests ---

func TestRecordList_UnknownCollection(t *testing.T) {
	st := newMockRecordStore()
	router := setupRecordRouter(st, &mockHub{})

	rr := doRequest(t, router, "GET", "/collections/groups/records", nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestRecordList_PublicAnonymous(t *testing.T) {
	st, col := publicCatalogStore()
	st.addRecord(col, map[string]any{"name": "Lanches", "icon": "burger"}, time.Now())
	router := setupRecordRouter(st, &mockHub{})

	rr := doRequest(t, router, "GET", "/collections/groups/records", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	items, total := decodeListResponse(t, rr)
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected 1 item, got total=%d len=%d", total, len(items))
	}
	if items[0]["name"] != "Lanches" {
		t.Errorf("name: got %v", items[0]["name"])
	}
	if items[0]["collectionName"] != "groups" {
		t.Errorf("collectionName: got %v", items[0]["collectionName"])
	}
	if items[0]["id"] == "" || items[0]["created"] == "" {
		t.Error("expected flattened system fields id and created")
	}
}

func TestRecordList_ProtectedRequiresSuperuser(t *testing.T) {
	st := newMockRecordStore()
	st.addCollection("secrets", nil, nilRule(), nilRule(), nilRule(), nilRule(), nilRule())
	router := setupRecordRouter(st, &mockHub{})

	rr := doRequest(t, router, "GET", "/collections/secrets/records", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	rr = doAuthRequest(t, router, "GET", "/collections/secrets/records", superuserToken(t), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("superuser status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestRecordList_FilterAndSort(t *testing.T) {
	st := newMockRecordStore()
	col := st.addCollection("orders", []store.Field{
		{Name: "customer_name", Type: "text", Required: true},
		{Name: "status", Type: "select", Options: store.FieldOptions{
			Values: []string{"pending", "preparing", "ready", "delivered", "cancelled"},
		}},
		{Name: "total", Type: "number"},
	}, publicRule(), publicRule(), publicRule(), publicRule(), nilRule())

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	st.addRecord(col, map[string]any{"customer_name": "Ana", "status": "pending", "total": 10.0}, base)
	st.addRecord(col, map[string]any{"customer_name": "Bia", "status": "delivered", "total": 20.0}, base.Add(time.Minute))
	st.addRecord(col, map[string]any{"customer_name": "Caio", "status": "preparing", "total": 30.0}, base.Add(2*time.Minute))
	st.addRecord(col, map[string]any{"customer_name": "Duda", "status": "cancelled", "total": 40.0}, base.Add(3*time.Minute))

	router := setupRecordRouter(st, &mockHub{})

	// Active orders: exclude terminal statuses, newest first.
	path := `/collections/orders/records?filter=` +
		`status%20!%3D%20%22delivered%22%20%26%26%20status%20!%3D%20%22cancelled%22&sort=-created`
	rr := doRequest(t, router, "GET", path, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	items, total := decodeListResponse(t, rr)
	if total != 2 {
		t.Fatalf("total: got %d, want 2", total)
	}
	if items[0]["customer_name"] != "Caio" || items[1]["customer_name"] != "Ana" {
		t.Errorf("unexpected order: %v, %v", items[0]["customer_name"], items[1]["customer_name"])
	}
}

func TestRecordList_CreatedRangeFilter(t *testing.T) {
	st := newMockRecordStore()
	col := st.addCollection("orders", []store.Field{
		{Name: "customer_name", Type: "text"},
		{Name: "status", Type: "text"},
	}, publicRule(), publicRule(), publicRule(), publicRule(), nilRule())

	in := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	out := time.Date(2026, 9, 2, 8, 0, 0, 0, time.UTC)
	st.addRecord(col, map[string]any{"customer_name": "Ana", "status": "delivered"}, in)
	st.addRecord(col, map[string]any{"customer_name": "Bia", "status": "delivered"}, out)

	router := setupRecordRouter(st, &mockHub{})

	path := `/collections/orders/records?filter=` +
		`status%20%3D%20%22delivered%22%20%26%26%20created%20%3E%3D%20%222026-08-01%2000%3A00%3A00%22` +
		`%20%26%26%20created%20%3C%3D%20%222026-08-31%2023%3A59%3A59%22`
	rr := doRequest(t, router, "GET", path, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	items, total := decodeListResponse(t, rr)
	if total != 1 {
		t.Fatalf("total: got %d, want 1", total)
	}
	if items[0]["customer_name"] != "Ana" {
		t.Errorf("customer_name: got %v", items[0]["customer_name"])
	}
}

func TestRecordList_Pagination(t *testing.T) {
	st, col := publicCatalogStore()
	base := time.Now()
	for i := 0; i < 5; i++ {
		st.addRecord(col, map[string]any{"name": "G"}, base.Add(time.Duration(i)*time.Second))
	}
	router := setupRecordRouter(st, &mockHub{})

	rr := doRequest(t, router, "GET", "/collections/groups/records?page=2&perPage=2", nil)

	items, total := decodeListResponse(t, rr)
	if total != 5 {
		t.Errorf("total: got %d, want 5", total)
	}
	if len(items) != 2 {
		t.Errorf("page size: got %d, want 2", len(items))
	}
}

// --- Create tests ---

func TestRecordCreate_ValidatesSchema(t *testing.T) {
	st, _ := publicCatalogStore()
	col := st.collections["groups"]
	col.CreateRule = publicRule()
	st.collections["groups"] = col
	router := setupRecordRouter(st, &mockHub{})

	// Missing the required name field.
	rr := doRequest(t, router, "POST", "/collections/groups/records", map[string]any{"icon": "burger"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestRecordCreate_SuccessAndBroadcast(t *testing.T) {
	st, _ := publicCatalogStore()
	col := st.collections["groups"]
	col.CreateRule = publicRule()
	st.collections["groups"] = col
	hub := &mockHub{}
	router := setupRecordRouter(st, hub)

	rr := doRequest(t, router, "POST", "/collections/groups/records", map[string]any{
		"name": "Bebidas",
		"icon": "cup",
		// Wire-only keys clients echo back must be dropped, not stored.
		"id":             "stale-id",
		"collectionName": "groups",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["name"] != "Bebidas" {
		t.Errorf("name: got %v", resp["name"])
	}
	if resp["id"] == "stale-id" {
		t.Error("client-supplied id must not survive the write")
	}

	if len(hub.events) != 1 {
		t.Fatalf("broadcast events: got %d, want 1", len(hub.events))
	}
	if hub.events[0].Collection != "groups" || hub.events[0].Action != ws.ActionCreate {
		t.Errorf("event: got %s/%s", hub.events[0].Collection, hub.events[0].Action)
	}

	stored := st.records[col.ID][0]
	if _, ok := stored.Data["id"]; ok {
		t.Error("system fields must be stripped before storage")
	}
}

func TestRecordCreate_RelationMustExist(t *testing.T) {
	st := newMockRecordStore()
	groups := st.addCollection("groups", []store.Field{
		{Name: "name", Type: "text", Required: true},
	}, publicRule(), publicRule(), publicRule(), nilRule(), nilRule())
	st.addCollection("categories", []store.Field{
		{Name: "name", Type: "text", Required: true},
		{Name: "group", Type: "relation", Required: true, Options: store.FieldOptions{
			Collection: "groups", CascadeDelete: true,
		}},
	}, publicRule(), publicRule(), publicRule(), nilRule(), nilRule())

	router := setupRecordRouter(st, &mockHub{})

	rr := doRequest(t, router, "POST", "/collections/categories/records", map[string]any{
		"name":  "Sucos",
		"group": uuid.NewString(),
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("dangling relation status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}

	g := st.addRecord(groups, map[string]any{"name": "Bebidas"}, time.Now())
	rr = doRequest(t, router, "POST", "/collections/categories/records", map[string]any{
		"name":  "Sucos",
		"group": g.ID.String(),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("valid relation status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
}

// --- Update tests ---

func TestRecordUpdate_MergesPatch(t *testing.T) {
	st := newMockRecordStore()
	col := st.addCollection("orders", []store.Field{
		{Name: "customer_name", Type: "text", Required: true},
		{Name: "status", Type: "text"},
		{Name: "total", Type: "number"},
	}, publicRule(), publicRule(), publicRule(), publicRule(), nilRule())
	rec := st.addRecord(col, map[string]any{"customer_name": "Ana", "status": "pending", "total": 42.5}, time.Now())

	hub := &mockHub{}
	router := setupRecordRouter(st, hub)

	rr := doRequest(t, router, "PATCH", "/collections/orders/records/"+rec.ID.String(), map[string]any{
		"status": "preparing",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["status"] != "preparing" {
		t.Errorf("status: got %v", resp["status"])
	}
	if resp["customer_name"] != "Ana" {
		t.Error("patch must preserve fields it does not touch")
	}
	if resp["total"] != 42.5 {
		t.Errorf("total: got %v", resp["total"])
	}

	if len(hub.events) != 1 || hub.events[0].Action != ws.ActionUpdate {
		t.Fatalf("expected one update broadcast, got %+v", hub.events)
	}
}

func TestRecordUpdate_NotFound(t *testing.T) {
	st := newMockRecordStore()
	st.addCollection("orders", nil, publicRule(), publicRule(), publicRule(), publicRule(), nilRule())
	router := setupRecordRouter(st, &mockHub{})

	rr := doRequest(t, router, "PATCH", "/collections/orders/records/"+uuid.NewString(), map[string]any{"status": "ready"})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Delete tests ---

func TestRecordDelete_SuperuserOnlyByDefault(t *testing.T) {
	st, col := publicCatalogStore()
	rec := st.addRecord(col, map[string]any{"name": "Lanches"}, time.Now())
	hub := &mockHub{}
	router := setupRecordRouter(st, hub)

	rr := doRequest(t, router, "DELETE", "/collections/groups/records/"+rec.ID.String(), nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	rr = doAuthRequest(t, router, "DELETE", "/collections/groups/records/"+rec.ID.String(), superuserToken(t), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("superuser status: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}

	if len(st.records[col.ID]) != 0 {
		t.Error("record not deleted")
	}
	if len(hub.events) != 1 || hub.events[0].Action != ws.ActionDelete {
		t.Fatalf("expected one delete broadcast, got %+v", hub.events)
	}
}

// --- Users special-case tests ---

func TestUsers_SuperuserOnly(t *testing.T) {
	st := newMockRecordStore()
	router := setupRecordRouter(st, &mockHub{})

	rr := doRequest(t, router, "GET", "/collections/users/records", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	userToken, err := auth.GenerateToken(testJWTSecret, uuid.New(), "user@example.com", false)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	rr = doAuthRequest(t, router, "GET", "/collections/users/records", userToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("user list status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestUsers_CreateAndFilterByEmail(t *testing.T) {
	st := newMockRecordStore()
	router := setupRecordRouter(st, &mockHub{})
	token := superuserToken(t)

	rr := doAuthRequest(t, router, "POST", "/collections/users/records", token, map[string]string{
		"email":           "owner@example.com",
		"password":        "password123",
		"passwordConfirm": "password123",
		"name":            "Owner",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["email"] != "owner@example.com" {
		t.Errorf("email: got %v", resp["email"])
	}
	if _, ok := resp["password"]; ok {
		t.Error("password must not appear in the response")
	}

	// Stored password is hashed, never plaintext.
	if err := bcrypt.CompareHashAndPassword([]byte(st.users[0].HashedPassword), []byte("password123")); err != nil {
		t.Errorf("stored password is not a valid bcrypt hash of the input: %v", err)
	}

	rr = doAuthRequest(t, router, "GET",
		"/collections/users/records?filter=email%20%3D%20%22owner%40example.com%22", token, nil)
	items, total := decodeListResponse(t, rr)
	if total != 1 || len(items) != 1 {
		t.Fatalf("filtered list: total=%d len=%d, want 1/1", total, len(items))
	}

	rr = doAuthRequest(t, router, "GET",
		"/collections/users/records?filter=email%20%3D%20%22nobody%40example.com%22", token, nil)
	_, total = decodeListResponse(t, rr)
	if total != 0 {
		t.Fatalf("filtered list for unknown email: total=%d, want 0", total)
	}
}

func TestUsers_PasswordConfirmMismatch(t *testing.T) {
	st := newMockRecordStore()
	router := setupRecordRouter(st, &mockHub{})

	rr := doAuthRequest(t, router, "POST", "/collections/users/records", superuserToken(t), map[string]string{
		"email":           "owner@example.com",
		"password":        "password123",
		"passwordConfirm": "different456",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
