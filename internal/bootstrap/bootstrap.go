// Package bootstrap provisions a fresh backend on first run: it probes for the
// catalog, authenticates with the built-in administrator credentials, creates
// the collection schemas, the default owner account, and the starter menu.
// Every step is idempotent, so a partially-completed earlier run is repaired
// simply by running again.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/snackflow/snackflow/internal/client"
)

// Status is the terminal state of a reconciler run.
type Status string

const (
	// StatusAlreadySetup means the catalog exists and has data; nothing to do.
	StatusAlreadySetup Status = "already_setup"
	// StatusManualSetup means no superuser session could be obtained. The
	// first superuser cannot be created through the API; someone must run
	// the seed command against the database.
	StatusManualSetup Status = "manual_setup"
	// StatusSuccess means the backend was provisioned (or topped up) this run.
	StatusSuccess Status = "success"
	// StatusError means provisioning failed partway; re-running retries it.
	StatusError Status = "error"
)

// Result is the outcome of a reconciler run.
type Result struct {
	Status  Status
	Message string
}

// CollectionOutcome distinguishes why a collection create call ended the way
// it did.
type CollectionOutcome int

const (
	// OutcomeCreated means the collection was created by this run.
	OutcomeCreated CollectionOutcome = iota
	// OutcomeExists means the collection was already there.
	OutcomeExists
	// OutcomeRejected means the backend refused the schema; the run aborts.
	OutcomeRejected
)

// Backend is the slice of the client wrapper the reconciler needs.
// Satisfied by *client.Client.
type Backend interface {
	List(ctx context.Context, collection string, opts client.ListOptions) (client.ListResult, error)
	Create(ctx context.Context, collection string, body map[string]any) (map[string]any, error)
	CreateCollection(ctx context.Context, schema client.CollectionSchema) error
	AuthAdminWithPassword(ctx context.Context, email, password string) error
	AuthStore() *client.AuthStore
}

// Credentials are the built-in administrator and default owner credentials.
type Credentials struct {
	Email    string
	Password string
}

// Reconciler drives a backend to the provisioned state. It must run on its
// own client so its privileged login never leaks into the UI session; the
// shared store is only consulted, and borrowed when it already holds a
// superuser session.
type Reconciler struct {
	backend Backend
	shared  *client.AuthStore // the application session, may be nil
	creds   Credentials

	ownSession bool
}

// New creates a Reconciler.
func New(backend Backend, shared *client.AuthStore, creds Credentials) *Reconciler {
	return &Reconciler{backend: backend, shared: shared, creds: creds}
}

type state int

const (
	stateProbe state = iota
	stateAuth
	stateReconcile
	stateDone
)

// Run executes the reconciliation state machine and returns its terminal
// state. It never panics the caller's session: whatever happens, a session
// this run opened is cleared before returning.
func (r *Reconciler) Run(ctx context.Context) (result Result) {
	defer func() {
		if r.ownSession {
			r.backend.AuthStore().Clear()
		}
	}()

	for s := stateProbe; s != stateDone; {
		var next state
		var done bool

		switch s {
		case stateProbe:
			next, result, done = r.probe(ctx)
		case stateAuth:
			next, result, done = r.auth(ctx)
		case stateReconcile:
			result = r.reconcile(ctx)
			done = true
		}

		if done {
			return result
		}
		s = next
	}
	return result
}

// probe checks whether the system already has data. An anonymous read of the
// catalog is enough: a populated groups collection means setup already
// happened, a 404 means the schema does not exist yet.
func (r *Reconciler) probe(ctx context.Context) (state, Result, bool) {
	result, err := r.backend.List(ctx, "groups", client.ListOptions{Page: 1, PerPage: 1})
	if err != nil {
		if client.IsNotFound(err) {
			return stateAuth, Result{}, false
		}
		return stateDone, Result{Status: StatusError, Message: fmt.Sprintf("probe failed: %v", err)}, true
	}
	if result.TotalItems > 0 {
		return stateDone, Result{Status: StatusAlreadySetup}, true
	}
	// Schema exists but the catalog is empty; reseed under privileges.
	return stateAuth, Result{}, false
}

// auth obtains a superuser session: the built-in credentials first, then the
// shared session if the user is already signed in as a superuser there.
func (r *Reconciler) auth(ctx context.Context) (state, Result, bool) {
	if r.backend.AuthStore().IsSuperuser() {
		return stateReconcile, Result{}, false
	}

	err := r.backend.AuthAdminWithPassword(ctx, r.creds.Email, r.creds.Password)
	if err == nil {
		r.ownSession = true
		return stateReconcile, Result{}, false
	}
	log.Printf("bootstrap: built-in admin login failed: %v", err)

	if r.shared != nil && r.shared.IsSuperuser() {
		// Borrow the user's own superuser session for this run.
		r.backend.AuthStore().Save(r.shared.Token(), r.shared.Record(), true)
		r.ownSession = true
		return stateReconcile, Result{}, false
	}

	return stateDone, Result{
		Status:  StatusManualSetup,
		Message: "no superuser session available; create the first superuser with the seed command",
	}, true
}

// reconcile converges the backend: schema, owner account, starter catalog.
// Every step tolerates work an earlier partial run already did, so a crashed
// run leaves nothing to undo.
func (r *Reconciler) reconcile(ctx context.Context) Result {
	log.Println("bootstrap: ensuring collection schemas")
	for _, schema := range collectionSchemas() {
		outcome, err := r.ensureCollection(ctx, schema)
		if outcome == OutcomeRejected {
			return Result{
				Status:  StatusError,
				Message: fmt.Sprintf("collection %q rejected: %v", schema.Name, err),
			}
		}
	}

	if err := r.ensureOwner(ctx); err != nil {
		return Result{Status: StatusError, Message: fmt.Sprintf("create owner user: %v", err)}
	}

	if err := r.populate(ctx); err != nil {
		return Result{Status: StatusError, Message: fmt.Sprintf("seed catalog: %v", err)}
	}

	return Result{Status: StatusSuccess, Message: "system provisioned"}
}

// ensureCollection creates one collection, tolerating a duplicate from an
// earlier partial run.
func (r *Reconciler) ensureCollection(ctx context.Context, schema client.CollectionSchema) (CollectionOutcome, error) {
	err := r.backend.CreateCollection(ctx, schema)
	if err == nil {
		return OutcomeCreated, nil
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "already exists") {
		return OutcomeExists, nil
	}
	return OutcomeRejected, err
}

// ensureOwner creates the default owner account in the users collection
// unless an account with that email is already there.
func (r *Reconciler) ensureOwner(ctx context.Context) error {
	existing, err := r.backend.List(ctx, "users", client.ListOptions{
		Page: 1, PerPage: 1,
		Filter: fmt.Sprintf("email = %q", r.creds.Email),
	})
	if err != nil {
		return err
	}
	if existing.TotalItems > 0 {
		return nil
	}

	log.Println("bootstrap: creating default owner user")
	_, err = r.backend.Create(ctx, "users", map[string]any{
		"email":           r.creds.Email,
		"password":        r.creds.Password,
		"passwordConfirm": r.creds.Password,
		"name":            "Proprietário",
	})
	return err
}

// populate writes the starter catalog, but only into an empty one.
func (r *Reconciler) populate(ctx context.Context) error {
	check, err := r.backend.List(ctx, "groups", client.ListOptions{Page: 1, PerPage: 1})
	if err != nil {
		return err
	}
	if check.TotalItems > 0 {
		return nil
	}

	log.Println("bootstrap: seeding starter catalog")
	for _, sg := range seedCatalog {
		group, err := r.backend.Create(ctx, "groups", map[string]any{
			"name": sg.Name,
			"icon": sg.Icon,
		})
		if err != nil {
			return fmt.Errorf("group %q: %w", sg.Name, err)
		}
		groupID, _ := group["id"].(string)

		for _, sc := range sg.Categories {
			category, err := r.backend.Create(ctx, "categories", map[string]any{
				"name":  sc.Name,
				"icon":  sc.Icon,
				"order": sc.Order,
				"group": groupID,
			})
			if err != nil {
				return fmt.Errorf("category %q: %w", sc.Name, err)
			}
			categoryID, _ := category["id"].(string)

			for _, sp := range sc.Products {
				_, err := r.backend.Create(ctx, "products", map[string]any{
					"name":        sp.Name,
					"description": sp.Description,
					"price":       sp.Price,
					"images":      sp.Images,
					"active":      true,
					"group":       groupID,
					"category":    categoryID,
				})
				if err != nil {
					return fmt.Errorf("product %q: %w", sp.Name, err)
				}
			}
		}
	}
	return nil
}
