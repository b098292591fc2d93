package api

import (
	"context"
	"fmt"
	"time"

	"github.com/snackflow/snackflow/internal/client"
)

// createdLayout is the backend's timestamp wire format, second granularity.
const createdLayout = "2006-01-02 15:04:05"

// ErrInvalidTransition rejects an illegal order status change.
type ErrInvalidTransition struct {
	From OrderStatus
	To   OrderStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// OrdersAPI reads and mutates the orders collection.
type OrdersAPI struct {
	backend Backend
}

// NewOrdersAPI creates an OrdersAPI over the given backend.
func NewOrdersAPI(backend Backend) *OrdersAPI {
	return &OrdersAPI{backend: backend}
}

// GetOne fetches a single order by id.
func (o *OrdersAPI) GetOne(ctx context.Context, id string) (Order, error) {
	record, err := o.backend.GetOne(ctx, CollectionOrders, id)
	if err != nil {
		return Order{}, err
	}
	var order Order
	if err := decodeInto(record, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

// Active returns every order still in the kitchen pipeline, newest first.
// Delivered and cancelled orders are excluded.
func (o *OrdersAPI) Active(ctx context.Context) ([]Order, error) {
	return fullListInto[Order](ctx, o.backend, CollectionOrders, client.ListOptions{
		Filter: `status != "delivered" && status != "cancelled"`,
		Sort:   "-created",
	})
}

// History returns delivered orders, newest first, optionally restricted to an
// inclusive created range. Range bounds are truncated to whole seconds to
// match the backend's timestamp granularity.
func (o *OrdersAPI) History(ctx context.Context, from, to *time.Time) ([]Order, error) {
	filter := `status = "delivered"`
	if from != nil {
		filter += ` && created >= "` + from.UTC().Format(createdLayout) + `"`
	}
	if to != nil {
		filter += ` && created <= "` + to.UTC().Format(createdLayout) + `"`
	}
	return fullListInto[Order](ctx, o.backend, CollectionOrders, client.ListOptions{
		Filter: filter,
		Sort:   "-created",
	})
}

// Create submits a new order.
func (o *OrdersAPI) Create(ctx context.Context, order Order) (Order, error) {
	body, err := toRecord(order)
	if err != nil {
		return Order{}, err
	}
	record, err := o.backend.Create(ctx, CollectionOrders, body)
	if err != nil {
		return Order{}, err
	}
	var created Order
	if err := decodeInto(record, &created); err != nil {
		return Order{}, err
	}
	return created, nil
}

// UpdateStatus moves an order through its lifecycle, rejecting transitions
// the lifecycle does not allow before anything reaches the backend.
func (o *OrdersAPI) UpdateStatus(ctx context.Context, id string, to OrderStatus) (Order, error) {
	current, err := o.GetOne(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(current.Status, to) {
		return Order{}, &ErrInvalidTransition{From: current.Status, To: to}
	}

	record, err := o.backend.Update(ctx, CollectionOrders, id, map[string]any{"status": string(to)})
	if err != nil {
		return Order{}, err
	}
	var updated Order
	if err := decodeInto(record, &updated); err != nil {
		return Order{}, err
	}
	return updated, nil
}

// MarkPaid records payment for an order.
func (o *OrdersAPI) MarkPaid(ctx context.Context, id string) (Order, error) {
	record, err := o.backend.Update(ctx, CollectionOrders, id, map[string]any{"is_paid": true})
	if err != nil {
		return Order{}, err
	}
	var updated Order
	if err := decodeInto(record, &updated); err != nil {
		return Order{}, err
	}
	return updated, nil
}

// Subscribe opens a realtime feed of order changes.
func (o *OrdersAPI) Subscribe(ctx context.Context, handler func(client.Event)) (*client.Subscription, error) {
	return o.backend.Subscribe(ctx, CollectionOrders, handler)
}
