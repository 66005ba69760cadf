package config

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/eitanMobb/marinus-sm/internal/support"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Port       int
	Production bool

	Store         string
	MongoURI      string
	MongoDatabase string

	RedisURL          string
	CountCacheTTL     time.Duration
	CountWarmInterval time.Duration

	GeoLitePath string
}

var (
	configValue atomic.Value

	InProductionMode bool
)

func init() {
	configValue.Store(Config{})
}

// Load reads the service settings from the environment. Flags parsed by the
// caller override the returned values.
func Load() Config {
	store := strings.ToLower(strings.TrimSpace(support.GetEnv("STORE_BACKEND", "")))
	if store == "" {
		store = StorePostgres
	}

	return Config{
		Port:              support.GetEnvInt("PORT", 5656),
		Production:        support.GetEnvBool("PRODUCTION", false),
		Store:             store,
		MongoURI:          support.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     support.GetEnv("MONGO_DATABASE", "marinus"),
		RedisURL:          strings.TrimSpace(support.GetEnv("REDIS_URL", "")),
		CountCacheTTL:     support.GetEnvSeconds("COUNT_CACHE_TTL_SECONDS", 0),
		CountWarmInterval: support.GetEnvSeconds("COUNT_CACHE_WARM_INTERVAL_SECONDS", 0),
		GeoLitePath:       strings.TrimSpace(support.GetEnv("GEOLITE_DB_PATH", "")),
	}
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}

	switch c.Store {
	case StorePostgres:
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("config: MONGO_URI is required for the mongo store")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("config: MONGO_DATABASE is required for the mongo store")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store)
	}

	return nil
}

// CountCacheEnabled reports whether counts should be cached in Redis.
func (c Config) CountCacheEnabled() bool {
	return c.RedisURL != "" && c.CountCacheTTL > 0
}

func SetConfig(cfg Config) {
	configValue.Store(cfg)
}

func GetConfig() Config {
	return configValue.Load().(Config)
}

func SetProductionMode(productionMode bool) {
	InProductionMode = productionMode
}
