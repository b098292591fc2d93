package bootstrap

import "github.com/snackflow/snackflow/internal/client"

func rule(s string) *string { return &s }

// collectionSchemas defines the four collections the system runs on. The
// catalog is publicly readable; orders are additionally publicly writable so
// customers can place and follow them without accounts. Everything left nil
// stays superuser-only.
func collectionSchemas() []client.CollectionSchema {
	return []client.CollectionSchema{
		{
			Name: "groups",
			Type: "base",
			Fields: []client.SchemaField{
				{Name: "name", Type: "text", Required: true},
				{Name: "icon", Type: "text"},
			},
			ListRule: rule(""), ViewRule: rule(""),
		},
		{
			Name: "categories",
			Type: "base",
			Fields: []client.SchemaField{
				{Name: "name", Type: "text", Required: true},
				{Name: "icon", Type: "text"},
				{Name: "order", Type: "number"},
				{Name: "group", Type: "relation", Required: true, Options: client.SchemaFieldOptions{
					Collection: "groups", CascadeDelete: true,
				}},
			},
			ListRule: rule(""), ViewRule: rule(""),
		},
		{
			Name: "products",
			Type: "base",
			Fields: []client.SchemaField{
				{Name: "name", Type: "text", Required: true},
				{Name: "description", Type: "text"},
				{Name: "price", Type: "number", Required: true},
				{Name: "images", Type: "json"},
				{Name: "active", Type: "bool"},
				{Name: "group", Type: "relation", Required: true, Options: client.SchemaFieldOptions{
					Collection: "groups",
				}},
				{Name: "category", Type: "relation", Required: true, Options: client.SchemaFieldOptions{
					Collection: "categories",
				}},
			},
			ListRule: rule(""), ViewRule: rule(""),
		},
		{
			Name: "orders",
			Type: "base",
			Fields: []client.SchemaField{
				{Name: "customer_name", Type: "text", Required: true},
				{Name: "status", Type: "select", Options: client.SchemaFieldOptions{
					Values: []string{"pending", "preparing", "ready", "delivered", "cancelled"},
				}},
				{Name: "total", Type: "number"},
				{Name: "items", Type: "json"},
				{Name: "payment_method", Type: "text"},
				{Name: "received_amount", Type: "number"},
				{Name: "change_amount", Type: "number"},
				{Name: "is_paid", Type: "bool"},
			},
			ListRule: rule(""), ViewRule: rule(""), CreateRule: rule(""), UpdateRule: rule(""),
		},
	}
}
