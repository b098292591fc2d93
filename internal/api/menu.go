package api

import (
	"context"

	"github.com/snackflow/snackflow/internal/client"
)

// MenuAPI reads the catalog collections.
type MenuAPI struct {
	backend Backend
}

// NewMenuAPI creates a MenuAPI over the given backend.
func NewMenuAPI(backend Backend) *MenuAPI {
	return &MenuAPI{backend: backend}
}

// Groups returns every menu group, sorted by name.
func (m *MenuAPI) Groups(ctx context.Context) ([]Group, error) {
	return fullListInto[Group](ctx, m.backend, CollectionGroups, client.ListOptions{Sort: "name"})
}

// Categories returns every category, sorted by its display order.
func (m *MenuAPI) Categories(ctx context.Context) ([]Category, error) {
	return fullListInto[Category](ctx, m.backend, CollectionCategories, client.ListOptions{Sort: "order"})
}

// Products returns the customer-facing catalog: active products only,
// sorted by name.
func (m *MenuAPI) Products(ctx context.Context) ([]Product, error) {
	return fullListInto[Product](ctx, m.backend, CollectionProducts, client.ListOptions{
		Filter: `active = true`,
		Sort:   "name",
	})
}

// AllProducts returns every product regardless of active state, for the
// owner's catalog management view.
func (m *MenuAPI) AllProducts(ctx context.Context) ([]Product, error) {
	return fullListInto[Product](ctx, m.backend, CollectionProducts, client.ListOptions{Sort: "name"})
}
