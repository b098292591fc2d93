package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/snackflow/snackflow/internal/auth"
	"github.com/snackflow/snackflow/internal/handler"
	"github.com/snackflow/snackflow/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret"

// --- Mock store ---

type mockAuthStore struct {
	users      map[string]store.User      // keyed by email
	superusers map[string]store.Superuser // keyed by email
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		users:      make(map[string]store.User),
		superusers: make(map[string]store.Superuser),
	}
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	u, ok := m.users[email]
	if !ok {
		return store.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockAuthStore) GetSuperuserByEmail(_ context.Context, email string) (store.Superuser, error) {
	su, ok := m.superusers[email]
	if !ok {
		return store.Superuser{}, pgx.ErrNoRows
	}
	return su, nil
}

func (m *mockAuthStore) addUser(t *testing.T, email, password, name string) store.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := store.User{ID: uuid.New(), Email: email, HashedPassword: string(hashed), Name: name}
	m.users[email] = u
	return u
}

func (m *mockAuthStore) addSuperuser(t *testing.T, email, password string) store.Superuser {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	su := store.Superuser{ID: uuid.New(), Email: email, HashedPassword: string(hashed)}
	m.superusers[email] = su
	return su
}

// --- Helpers ---

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
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
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// --- Login tests ---

func TestLogin_Success(t *testing.T) {
	store := newMockAuthStore()
	user := store.addUser(t, "owner@example.com", "password123", "Owner")
	router := setupAuthRouter(store)

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    "owner@example.com",
		"password": "password123",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatal("expected a token in the response")
	}

	claims, err := auth.ValidateToken(testJWTSecret, token)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.Superuser {
		t.Error("user token should not carry the superuser claim")
	}
	if claims.UserID != user.ID {
		t.Errorf("token user ID: got %s, want %s", claims.UserID, user.ID)
	}

	record, _ := resp["record"].(map[string]interface{})
	if record["email"] != "owner@example.com" {
		t.Errorf("record email: got %v", record["email"])
	}
	if record["collectionName"] != "users" {
		t.Errorf("record collectionName: got %v", record["collectionName"])
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMockAuthStore()
	store.addUser(t, "owner@example.com", "password123", "Owner")
	router := setupAuthRouter(store)

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    "owner@example.com",
		"password": "wrong",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	store := newMockAuthStore()
	router := setupAuthRouter(store)

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "password123",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	store := newMockAuthStore()
	router := setupAuthRouter(store)

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{"email": "owner@example.com"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Admin login tests ---

func TestAdminLogin_Success(t *testing.T) {
	store := newMockAuthStore()
	su := store.addSuperuser(t, "salvador@localhost.com", "SnackFlow2024!")
	router := setupAuthRouter(store)

	rr := doRequest(t, router, "POST", "/auth/admin/login", map[string]string{
		"email":    "salvador@localhost.com",
		"password": "SnackFlow2024!",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	claims, err := auth.ValidateToken(testJWTSecret, resp["token"].(string))
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if !claims.Superuser {
		t.Error("admin token should carry the superuser claim")
	}
	if claims.UserID != su.ID {
		t.Errorf("token user ID: got %s, want %s", claims.UserID, su.ID)
	}
}

func TestAdminLogin_UserCredentialsRejected(t *testing.T) {
	store := newMockAuthStore()
	store.addUser(t, "owner@example.com", "password123", "Owner")
	router := setupAuthRouter(store)

	// A regular user must not obtain a superuser token.
	rr := doRequest(t, router, "POST", "/auth/admin/login", map[string]string{
		"email":    "owner@example.com",
		"password": "password123",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
