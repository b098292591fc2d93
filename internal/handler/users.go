package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/snackflow/snackflow/internal/auth"
	"github.com/snackflow/snackflow/internal/filter"
	"github.com/snackflow/snackflow/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// The users collection is backed by its own table rather than the generic
// records store, so List/Create get dedicated paths. Both are superuser-only.

type createUserRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Name            string `json:"name"`
}

func (h *RecordHandler) listUsers(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	if claims == nil || !claims.Superuser {
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

	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("ERROR: list users: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items := make([]map[string]any, 0, len(users))
	for _, u := range users {
		flat := userRecord(u)
		if expr != nil && !expr.Match(flat) {
			continue
		}
		items = append(items, flat)
	}

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

func (h *RecordHandler) createUser(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	if claims == nil || !claims.Superuser {
		denyRule(w, claims)
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}
	if req.Password != req.PasswordConfirm {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "passwords do not match"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: hash password: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Email, string(hashed), req.Name)
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email already exists"})
			return
		}
		log.Printf("ERROR: create user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, userRecord(user))
}
