// Package store persists prefetched property identities so a later session
// for the same address can skip the primary lookup.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/property-report/internal/config"
	"github.com/sells-group/property-report/internal/model"
)

// Store is the identity cache. Keys are normalized addresses.
type Store interface {
	// GetIdentity returns nil, nil on a miss or an expired entry.
	GetIdentity(ctx context.Context, key string) (*model.PropertyIdentity, error)
	PutIdentity(ctx context.Context, key string, identity *model.PropertyIdentity, ttl time.Duration) error
	DeleteExpired(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver and runs its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns})
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}
