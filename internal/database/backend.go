package database

import (
	"context"
	"fmt"

	"github.com/nao1215/docredact/internal/config"
	"github.com/nao1215/docredact/internal/store"
)

// OpenBackend opens the backend selected by cfg.StoreDriver.
func OpenBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return store.NewMemory(), nil
	case config.DriverPostgres:
		p, err := OpenPostgres(ctx, cfg.StoreDSN, PostgresOptions{DialTimeout: cfg.IOTimeout})
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.DriverSQLite, "":
		opts := DefaultOptions()
		if cfg.IOTimeout > 0 {
			opts.BusyTimeout = cfg.IOTimeout
		}
		s, err := Open(cfg.DataDir, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidStoreDriver, cfg.StoreDriver)
	}
}
