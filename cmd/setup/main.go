// The setup command runs the bootstrap reconciler against a backend and
// reports the terminal state. Useful for provisioning a server without
// starting the full application.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/snackflow/snackflow/internal/bootstrap"
	"github.com/snackflow/snackflow/internal/client"
	"github.com/snackflow/snackflow/internal/config"
)

func main() {
	host := flag.String("host", "", "Backend host (default: resolve automatically)")
	flag.Parse()

	cfg := config.Load()

	baseURL := cfg.ServerURL
	if baseURL == "" {
		baseURL = client.ResolveURL(*host)
	}
	log.Printf("Provisioning backend at %s", baseURL)

	backend := client.New(baseURL, nil)
	reconciler := bootstrap.New(backend, nil, bootstrap.Credentials{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})

	result := reconciler.Run(context.Background())
	switch result.Status {
	case bootstrap.StatusSuccess:
		log.Println("Setup complete: backend provisioned")
	case bootstrap.StatusAlreadySetup:
		log.Println("Nothing to do: backend already provisioned")
	case bootstrap.StatusManualSetup:
		log.Printf("Manual step required: %s", result.Message)
		log.Println("Run the seed command against the database, then retry")
		os.Exit(1)
	case bootstrap.StatusError:
		log.Printf("Setup failed: %s", result.Message)
		os.Exit(1)
	}
}
