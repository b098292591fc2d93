package api

import (
	"encoding/json"
	"fmt"
)

// Collection names on the backend.
const (
	CollectionGroups     = "groups"
	CollectionCategories = "categories"
	CollectionProducts   = "products"
	CollectionOrders     = "orders"
	CollectionUsers      = "users"
)

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// allowedTransitions is the forward lifecycle; cancelled is reachable from
// any non-terminal state.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusDelivered, StatusCancelled},
}

// CanTransition reports whether from → to is a legal status change.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentMethod is how an order was (or will be) paid.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentPix  PaymentMethod = "pix"
	PaymentNone PaymentMethod = "none"
)

// Group is a top-level menu section.
type Group struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Icon    string `json:"icon,omitempty"`
	Created string `json:"created,omitempty"`
	Updated string `json:"updated,omitempty"`
}

// Category is a menu subsection within a group.
type Category struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Icon    string `json:"icon,omitempty"`
	Order   int    `json:"order,omitempty"`
	Group   string `json:"group"`
	Created string `json:"created,omitempty"`
	Updated string `json:"updated,omitempty"`
}

// Product is a sellable menu item.
type Product struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Images      []string `json:"images,omitempty"`
	Active      bool     `json:"active"`
	Group       string   `json:"group,omitempty"`
	Category    string   `json:"category,omitempty"`
	Created     string   `json:"created,omitempty"`
	Updated     string   `json:"updated,omitempty"`
}

// OrderItem is a denormalized product snapshot inside an order. Orders keep
// their own copy of name and price so later catalog edits never rewrite
// history.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Notes     string  `json:"notes,omitempty"`
}

// Order is a customer order.
type Order struct {
	ID             string        `json:"id,omitempty"`
	CustomerName   string        `json:"customer_name"`
	Status         OrderStatus   `json:"status"`
	Total          float64       `json:"total"`
	Items          []OrderItem   `json:"items"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	ReceivedAmount float64       `json:"received_amount"`
	ChangeAmount   float64       `json:"change_amount"`
	IsPaid         bool          `json:"is_paid"`
	Created        string        `json:"created,omitempty"`
	Updated        string        `json:"updated,omitempty"`
}

// decodeInto converts a flattened backend record into a typed struct via its
// JSON tags.
func decodeInto(record map[string]any, v any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// toRecord converts a typed struct into a backend write body, dropping the
// read-only fields the backend owns.
func toRecord(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return cleanRecord(record), nil
}

// cleanRecord strips the backend-owned fields from a write body so stale
// copies of them never reach the server.
func cleanRecord(record map[string]any) map[string]any {
	for _, k := range []string{"id", "created", "updated", "collectionId", "collectionName", "expand"} {
		delete(record, k)
	}
	return record
}
