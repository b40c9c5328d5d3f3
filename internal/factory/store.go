// Package factory builds configured infrastructure components.
package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mediacatalog/catalog/internal/config"
	storepkg "github.com/mediacatalog/catalog/internal/store"
	storepg "github.com/mediacatalog/catalog/internal/store/postgres"
	storesqlite "github.com/mediacatalog/catalog/internal/store/sqlite"
)

// NewStore returns the store selected by cfg.DBDriver.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		st, err := storepg.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("driver", "postgres").Msg("store ready")
		return st, nil
	case "sqlite":
		st, err := storesqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("driver", "sqlite").Str("path", cfg.SQLitePath).Msg("store ready")
		return st, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
