package router

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5"
	"github.com/snackflow/snackflow/internal/config"
	"github.com/snackflow/snackflow/internal/handler"
	mw "github.com/snackflow/snackflow/internal/middleware"
	"github.com/snackflow/snackflow/internal/store"
	"github.com/snackflow/snackflow/internal/ws"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, st *store.Store, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// The backend serves browser SPAs from arbitrary origins; access control
	// is rule/JWT based, not origin based.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/version.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"version":   config.Version,
			"buildTime": config.BuildTime,
			"type":      "server",
		})
	})

	// WebSocket change feed (handles auth internally via query param)
	r.Get("/api/realtime/{collection}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "collection")

		public := false
		if name == "users" {
			// users subscriptions stay superuser-only
		} else {
			col, err := st.GetCollectionByName(r.Context(), name)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					http.Error(w, "collection not found", http.StatusNotFound)
					return
				}
				log.Printf("ERROR: realtime collection lookup: %v", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			public = col.ListRule != nil && *col.ListRule == ""
		}

		ws.ServeWS(hub, cfg.JWTSecret, public, name, w, r)
	})

	r.Route("/api", func(r chi.Router) {
		// Auth routes (public)
		authHandler := handler.NewAuthHandler(st, cfg.JWTSecret)
		authHandler.RegisterRoutes(r)

		// Everything below resolves the optional bearer token; per-collection
		// rules decide what anonymous callers may do.
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))

			r.Route("/collections", func(r chi.Router) {
				// Schema management (superuser only)
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireSuperuser)
					collectionHandler := handler.NewCollectionHandler(st)
					collectionHandler.RegisterRoutes(r)
				})

				// Record CRUD (rule-gated per collection)
				recordHandler := handler.NewRecordHandler(st, hub)
				r.Route("/{name}/records", recordHandler.RegisterRoutes)
			})
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
