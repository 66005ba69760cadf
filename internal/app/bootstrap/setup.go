package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/eitanMobb/marinus-sm/internal/config"
	"github.com/eitanMobb/marinus-sm/internal/database"
	"github.com/eitanMobb/marinus-sm/internal/domain"
	"github.com/eitanMobb/marinus-sm/internal/filter"
	"github.com/eitanMobb/marinus-sm/internal/geolite"
	"github.com/eitanMobb/marinus-sm/internal/support"
)

// Store is what the API needs from a storage backend.
type Store interface {
	Find(ctx context.Context, predicate filter.Predicate, page filter.Page) ([]domain.IPRecord, error)
	Count(ctx context.Context, predicate filter.Predicate) (int64, error)
	Ping(ctx context.Context) error
}

type Resources struct {
	Store Store
	Geo   *geolite.Reader

	// Set only when counts are cached.
	Cache *database.CountCache
	Redis *redis.Client

	closers []func(context.Context) error
}

// Close releases everything Setup opened, newest first.
func (r *Resources) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Setup connects the configured store and the optional count cache and
// country database.
func Setup(ctx context.Context, cfg config.Config) (*Resources, error) {
	res := &Resources{}

	store, err := openStore(ctx, cfg, res)
	if err != nil {
		_ = res.Close(ctx)
		return nil, err
	}
	res.Store = store

	if cfg.CountCacheEnabled() {
		client, err := support.GetRedisClient()
		if err != nil {
			log.Warn("count cache disabled", "error", err)
		} else {
			res.Cache = database.NewCountCache(store, client, cfg.CountCacheTTL)
			res.Redis = client
			res.Store = res.Cache
			res.closers = append(res.closers, func(context.Context) error {
				return support.CloseRedisClient()
			})
			log.Info("count cache enabled", "ttl", cfg.CountCacheTTL)
		}
	}

	if cfg.GeoLitePath != "" {
		reader, err := geolite.NewReader(cfg.GeoLitePath)
		if err != nil {
			log.Warn("country lookups disabled", "error", err)
		} else {
			res.Geo = reader
			res.closers = append(res.closers, func(context.Context) error {
				return reader.Close()
			})
			log.Info("GeoLite country database loaded", "path", cfg.GeoLitePath)
		}
	}

	return res, nil
}

func openStore(ctx context.Context, cfg config.Config, res *Resources) (Store, error) {
	switch cfg.Store {
	case config.StoreMongo:
		client, coll, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		res.closers = append(res.closers, client.Disconnect)
		return database.NewMongoStore(coll), nil
	case config.StorePostgres:
		db, err := database.SetupDB()
		if err != nil {
			return nil, fmt.Errorf("failed to set up database: %w", err)
		}
		res.closers = append(res.closers, func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		return database.NewGormStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}
