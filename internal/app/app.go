// Package app holds the application state layer: catalog and order snapshots,
// session handling, first-run provisioning, and the update poller. Views read
// snapshots; everything that mutates goes through the methods here.
package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/snackflow/snackflow/internal/api"
	"github.com/snackflow/snackflow/internal/bootstrap"
	"github.com/snackflow/snackflow/internal/client"
)

// State is a point-in-time snapshot of everything the views render.
type State struct {
	Initializing    bool
	SetupRequired   bool
	UpdateAvailable bool

	// AutoLogout is raised when the session vanished without the user asking
	// for it (expired or rejected token). Cleared on the next login.
	AutoLogout bool

	User map[string]any

	Groups     []api.Group
	Categories []api.Category
	Products   []api.Product
	Orders     []api.Order
}

// Options wires an App. Backend and Auth are required; the rest defaults to
// production behavior when zero.
type Options struct {
	Backend api.Backend
	Auth    *client.AuthStore

	// Bootstrap runs first-time provisioning during Init.
	Bootstrap func(ctx context.Context) bootstrap.Result

	// FetchVersion feeds the update poller.
	FetchVersion func(ctx context.Context) (client.VersionInfo, error)

	// CurrentVersion is the build-time version compared against the backend.
	CurrentVersion string

	// LastOrders persists the customer's most recent order id. Nil disables
	// resume tracking.
	LastOrders *LastOrderStore
}

// App is the state layer.
type App struct {
	mu    sync.RWMutex
	state State

	menu   *api.MenuAPI
	orders *api.OrdersAPI
	admin  *api.AdminAPI

	auth           *client.AuthStore
	boot           func(ctx context.Context) bootstrap.Result
	fetchVersion   func(ctx context.Context) (client.VersionInfo, error)
	currentVersion string
	lastOrders     *LastOrderStore

	loggingOut bool

	sub *client.Subscription
}

// New creates an App. It registers itself on the auth store so a session
// change anywhere (login, logout, expiry handling) flows back into the state.
func New(opts Options) *App {
	a := &App{
		state:          State{Initializing: true},
		menu:           api.NewMenuAPI(opts.Backend),
		orders:         api.NewOrdersAPI(opts.Backend),
		admin:          api.NewAdminAPI(opts.Backend),
		auth:           opts.Auth,
		boot:           opts.Bootstrap,
		fetchVersion:   opts.FetchVersion,
		currentVersion: opts.CurrentVersion,
		lastOrders:     opts.LastOrders,
	}

	a.auth.OnChange(func() {
		record := a.auth.Record()
		a.mu.Lock()
		if record == nil && a.state.User != nil && !a.loggingOut {
			a.state.AutoLogout = true
		}
		if record != nil {
			a.state.AutoLogout = false
		}
		a.state.User = record
		a.mu.Unlock()
	})

	return a
}

// Snapshot returns a copy of the current state. Slices are shared but never
// mutated in place; every refresh swaps whole slices.
func (a *App) Snapshot() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Menu exposes the catalog read API.
func (a *App) Menu() *api.MenuAPI { return a.menu }

// Orders exposes the orders API.
func (a *App) Orders() *api.OrdersAPI { return a.orders }

// Admin exposes the catalog write API.
func (a *App) Admin() *api.AdminAPI { return a.admin }

// Init provisions the backend if needed, loads the initial snapshots, and
// subscribes to order changes. A manual_setup outcome stops early: the views
// show the setup screen and nothing else loads.
func (a *App) Init(ctx context.Context) error {
	defer func() {
		a.mu.Lock()
		a.state.Initializing = false
		a.mu.Unlock()
	}()

	if a.boot != nil {
		result := a.boot(ctx)
		log.Printf("bootstrap finished: %s %s", result.Status, result.Message)
		if result.Status == bootstrap.StatusManualSetup {
			a.mu.Lock()
			a.state.SetupRequired = true
			a.mu.Unlock()
			return nil
		}
	}

	if err := a.Refresh(ctx); err != nil {
		return err
	}

	sub, err := a.orders.Subscribe(ctx, func(client.Event) {
		// Any order change refetches the whole active list; there is no
		// delta merging to get wrong.
		if err := a.refreshOrders(context.Background()); err != nil {
			log.Printf("ERROR: refresh orders after change event: %v", err)
		}
	})
	if err != nil {
		log.Printf("ERROR: subscribe to order changes: %v", err)
		return nil // live updates are a degradation, not a failure
	}
	a.sub = sub
	return nil
}

// Refresh reloads every snapshot from the backend. The four collections load
// concurrently; the first error wins.
func (a *App) Refresh(ctx context.Context) error {
	var (
		wg         sync.WaitGroup
		groups     []api.Group
		categories []api.Category
		products   []api.Product
		orders     []api.Order

		mu       sync.Mutex
		firstErr error
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		var err error
		if groups, err = a.menu.Groups(ctx); err != nil {
			fail(err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if categories, err = a.menu.Categories(ctx); err != nil {
			fail(err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if products, err = a.menu.AllProducts(ctx); err != nil {
			fail(err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if orders, err = a.orders.Active(ctx); err != nil {
			fail(err)
		}
	}()
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	a.mu.Lock()
	a.state.Groups = groups
	a.state.Categories = categories
	a.state.Products = products
	a.state.Orders = orders
	a.mu.Unlock()
	return nil
}

func (a *App) refreshOrders(ctx context.Context) error {
	orders, err := a.orders.Active(ctx)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.state.Orders = orders
	a.mu.Unlock()
	return nil
}

// Logout clears the session. The auth observer wired in New resets the user
// snapshot; catalog snapshots stay, they are public data.
func (a *App) Logout() {
	a.mu.Lock()
	a.loggingOut = true
	a.mu.Unlock()

	a.auth.Clear()

	a.mu.Lock()
	a.loggingOut = false
	a.mu.Unlock()
}

// Close tears down the realtime subscription.
func (a *App) Close() {
	if a.sub != nil {
		a.sub.Unsubscribe()
	}
}

// TrackOrder remembers the customer's order for resume after a restart.
func (a *App) TrackOrder(order api.Order) {
	if a.lastOrders == nil {
		return
	}
	if err := a.lastOrders.Save(order.ID); err != nil {
		log.Printf("ERROR: save last order id: %v", err)
	}
}

// ResumeLastOrder fetches the persisted order, if any. Orders that finished
// (or disappeared) while the app was closed are forgotten.
func (a *App) ResumeLastOrder(ctx context.Context) (api.Order, bool, error) {
	if a.lastOrders == nil {
		return api.Order{}, false, nil
	}

	id, err := a.lastOrders.Load()
	if err != nil || id == "" {
		return api.Order{}, false, err
	}

	order, err := a.orders.GetOne(ctx, id)
	if err != nil {
		if client.IsNotFound(err) {
			_ = a.lastOrders.Clear()
			return api.Order{}, false, nil
		}
		return api.Order{}, false, err
	}

	if order.Status.Terminal() {
		_ = a.lastOrders.Clear()
		return api.Order{}, false, nil
	}
	return order, true, nil
}

// StartVersionPoller compares the backend's published version against this
// build once an hour and raises the update flag on mismatch. Stops with ctx.
func (a *App) StartVersionPoller(ctx context.Context) {
	go a.pollVersion(ctx, time.Hour)
}

func (a *App) pollVersion(ctx context.Context, interval time.Duration) {
	if a.fetchVersion == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.checkVersion(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) checkVersion(ctx context.Context) {
	info, err := a.fetchVersion(ctx)
	if err != nil {
		log.Printf("ERROR: fetch version: %v", err)
		return
	}
	if info.Version == "" || info.Version == a.currentVersion {
		return
	}

	a.mu.Lock()
	if !a.state.UpdateAvailable {
		log.Printf("update available: running %s, backend publishes %s", a.currentVersion, info.Version)
	}
	a.state.UpdateAvailable = true
	a.mu.Unlock()
}
