package api

import "context"

// AdminAPI mutates the catalog collections. All writes go through a
// superuser session.
type AdminAPI struct {
	backend Backend
}

// NewAdminAPI creates an AdminAPI over the given backend.
func NewAdminAPI(backend Backend) *AdminAPI {
	return &AdminAPI{backend: backend}
}

// save creates when id is empty, updates otherwise. The write body never
// carries backend-owned fields.
func (a *AdminAPI) save(ctx context.Context, collection, id string, v any) (map[string]any, error) {
	body, err := toRecord(v)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return a.backend.Create(ctx, collection, body)
	}
	return a.backend.Update(ctx, collection, id, body)
}

// SaveGroup upserts a menu group.
func (a *AdminAPI) SaveGroup(ctx context.Context, g Group) (Group, error) {
	record, err := a.save(ctx, CollectionGroups, g.ID, g)
	if err != nil {
		return Group{}, err
	}
	var saved Group
	if err := decodeInto(record, &saved); err != nil {
		return Group{}, err
	}
	return saved, nil
}

// SaveCategory upserts a category.
func (a *AdminAPI) SaveCategory(ctx context.Context, c Category) (Category, error) {
	record, err := a.save(ctx, CollectionCategories, c.ID, c)
	if err != nil {
		return Category{}, err
	}
	var saved Category
	if err := decodeInto(record, &saved); err != nil {
		return Category{}, err
	}
	return saved, nil
}

// SaveProduct upserts a product. Saved products always come out active; the
// owner deactivates separately when needed.
func (a *AdminAPI) SaveProduct(ctx context.Context, p Product) (Product, error) {
	p.Active = true
	record, err := a.save(ctx, CollectionProducts, p.ID, p)
	if err != nil {
		return Product{}, err
	}
	var saved Product
	if err := decodeInto(record, &saved); err != nil {
		return Product{}, err
	}
	return saved, nil
}

// DeleteGroup removes a group. The backend cascades the delete to categories
// that point at it.
func (a *AdminAPI) DeleteGroup(ctx context.Context, id string) error {
	return a.backend.Delete(ctx, CollectionGroups, id)
}

// DeleteCategory removes a category.
func (a *AdminAPI) DeleteCategory(ctx context.Context, id string) error {
	return a.backend.Delete(ctx, CollectionCategories, id)
}

// DeleteProduct removes a product.
func (a *AdminAPI) DeleteProduct(ctx context.Context, id string) error {
	return a.backend.Delete(ctx, CollectionProducts, id)
}
