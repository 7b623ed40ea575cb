package storage

import (
	"context"
	"errors"
	"fmt"

	"testmgr/internal/config"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store is closed")

// Store persists the serialized manager state under a key.
type Store interface {
	// Get returns the value under key. ok is false when nothing is stored.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open creates the Store selected by the configuration.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.GetStorePath()), nil
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.Store.RedisURL)
	case config.BackendMySQL:
		return NewMySQLStore(ctx, cfg.Store.MySQL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
