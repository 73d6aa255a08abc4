package core

import "context"

type PropertyStore interface {
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any) error
	SetMany(ctx context.Context, values map[string]any) error
	Delete(ctx context.Context, keys ...string) error
}
