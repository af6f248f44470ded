package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/config"
	"github.com/polyclinic/clinicdesk/internal/platform/db"
	"github.com/polyclinic/clinicdesk/internal/platform/session"
)

// OpenStore builds the session store selected by SESSION_STORE. The returned
// func releases any connection the store holds.
func OpenStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (session.Store, func(), error) {
	switch cfg.SessionStore {
	case config.StoreMemory:
		return session.NewMemoryStore(), func() {}, nil

	case config.StoreRedis:
		client, err := session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Msg("session store: redis")
		return session.NewRedisStore(client), func() { client.Close() }, nil

	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, err
		}
		store := session.NewPGStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info().Msg("session store: postgres")
		return store, pool.Close, nil

	case config.StoreFile, "":
		return session.NewFileStore(cfg.SessionFile), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
}
