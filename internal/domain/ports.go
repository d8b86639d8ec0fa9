package domain

import "context"

// ReviewStore is the hosted data service's query/insert surface. Payloads
// are raw rows; mapping to domain types happens in the app layer.
type ReviewStore interface {
	ListComments(ctx context.Context) ([]map[string]any, error)
	GetProfile(ctx context.Context, id string) (map[string]any, error)
	ListProfiles(ctx context.Context, ids []string) ([]map[string]any, error)
	InsertComment(ctx context.Context, authorID string, rating int, comment string) (map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
