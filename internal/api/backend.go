package api

import (
	"context"

	"github.com/snackflow/snackflow/internal/client"
)

// Backend is the slice of the client wrapper the domain layer needs.
// Satisfied by *client.Client; narrow interface for testability.
type Backend interface {
	List(ctx context.Context, collection string, opts client.ListOptions) (client.ListResult, error)
	FullList(ctx context.Context, collection string, opts client.ListOptions) ([]map[string]any, error)
	GetOne(ctx context.Context, collection, id string) (map[string]any, error)
	Create(ctx context.Context, collection string, body map[string]any) (map[string]any, error)
	Update(ctx context.Context, collection, id string, body map[string]any) (map[string]any, error)
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, collection string, handler func(client.Event)) (*client.Subscription, error)
}

func fullListInto[T any](ctx context.Context, b Backend, collection string, opts client.ListOptions) ([]T, error) {
	records, err := b.FullList(ctx, collection, opts)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, record := range records {
		var v T
		if err := decodeInto(record, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
