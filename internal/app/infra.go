package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dantescur/msfback/internal/config"
	"github.com/Dantescur/msfback/internal/db"
	"github.com/Dantescur/msfback/internal/logger"
	"github.com/Dantescur/msfback/internal/redis"
	"github.com/Dantescur/msfback/internal/session"
	"github.com/Dantescur/msfback/internal/submission"
)

// Infra holds the external connections. DB and Redis are nil when the
// configuration does not call for them.
type Infra struct {
	DB    *db.DB
	Redis *redis.Client

	KV     session.KV
	Ledger submission.Repository
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	infra := &Infra{}

	switch cfg.StoreBackend {
	case "memory":
		infra.KV = session.NewMemoryKV()
		logger.Warn("using in-memory session store", nil)
	default:
		client, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		infra.Redis = client
		infra.KV = session.NewRedisKV(client.Client)
		logger.Info("redis ready", map[string]any{"addr": cfg.RedisAddr})
	}

	if cfg.DatabaseDSN == "" {
		infra.Ledger = submission.NewMemoryRepository()
		logger.Warn("DATABASE_DSN not set, submissions kept in memory", nil)
		return infra, nil
	}

	database, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		_ = infra.Close()
		return nil, fmt.Errorf("database: %w", err)
	}
	infra.DB = database
	infra.Ledger = submission.NewPostgresRepository(database.DB)
	logger.Info("database ready", nil)

	return infra, nil
}

// Close releases every connection that was opened.
func (i *Infra) Close() error {
	var errs []error
	if i.DB != nil {
		errs = append(errs, i.DB.Close())
	}
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	return errors.Join(errs...)
}
