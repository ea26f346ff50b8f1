package main

import (
	"context"
	"fmt"

	"github.com/mmynk/splitwiser/internal/config"
	"github.com/mmynk/splitwiser/internal/storage/postgres"
	"github.com/mmynk/splitwiser/internal/storage/sqlite"
	"github.com/mmynk/splitwiser/internal/storage/sqlstore"
)

// openStore connects to the configured database and applies its schema.
func openStore(ctx context.Context, sc config.StorageConfig) (*sqlstore.Store, error) {
	switch sc.Driver {
	case "sqlite":
		return sqlite.New(sc.DSN)
	case "postgres":
		return postgres.New(ctx, sc.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
}
