package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/snackflow/snackflow/internal/config"
	"github.com/snackflow/snackflow/internal/router"
	"github.com/snackflow/snackflow/internal/store"
	"github.com/snackflow/snackflow/internal/ws"
	"github.com/snackflow/snackflow/migrations"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	runMigrations(cfg.DatabaseURL)

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}
	log.Println("Connected to database")

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, store.New(pool), hub)

	log.Printf("Starting server on :%s (version %s)", cfg.Port, config.Version)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}

// runMigrations applies the embedded meta-schema migrations. The stdlib
// driver is only used here; everything else runs on pgx.
func runMigrations(databaseURL string) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("create migrate driver: %v", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		log.Fatalf("load embedded migrations: %v", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		log.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("run migrations: %v", err)
	}
	log.Println("Migrations applied")
}
