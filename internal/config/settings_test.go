package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "PRODUCTION", "STORE_BACKEND", "MONGO_URI", "MONGO_DATABASE", "REDIS_URL", "COUNT_CACHE_TTL_SECONDS", "COUNT_CACHE_WARM_INTERVAL_SECONDS", "GEOLITE_DB_PATH"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != 5656 {
		t.Fatalf("Port = %d, want 5656", cfg.Port)
	}
	if cfg.Store != StorePostgres {
		t.Fatalf("Store = %q, want %q", cfg.Store, StorePostgres)
	}
	if cfg.CountCacheEnabled() {
		t.Fatal("count cache should be disabled without REDIS_URL")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("PRODUCTION", "true")
	t.Setenv("STORE_BACKEND", " Mongo ")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("MONGO_DATABASE", "inventory")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("COUNT_CACHE_TTL_SECONDS", "45")
	t.Setenv("COUNT_CACHE_WARM_INTERVAL_SECONDS", "30")
	t.Setenv("GEOLITE_DB_PATH", "/data/GeoLite2-Country.mmdb")

	cfg := Load()

	if cfg.Port != 8080 || !cfg.Production {
		t.Fatalf("unexpected port/production: %d %v", cfg.Port, cfg.Production)
	}
	if cfg.Store != StoreMongo || cfg.MongoURI != "mongodb://db:27017" || cfg.MongoDatabase != "inventory" {
		t.Fatalf("unexpected mongo settings: %+v", cfg)
	}
	if cfg.CountCacheTTL != 45*time.Second || !cfg.CountCacheEnabled() {
		t.Fatalf("unexpected cache settings: ttl=%s enabled=%v", cfg.CountCacheTTL, cfg.CountCacheEnabled())
	}
	if cfg.CountWarmInterval != 30*time.Second {
		t.Fatalf("CountWarmInterval = %s, want 30s", cfg.CountWarmInterval)
	}
	if cfg.GeoLitePath != "/data/GeoLite2-Country.mmdb" {
		t.Fatalf("GeoLitePath = %q", cfg.GeoLitePath)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		cfg     Config
		wantErr bool
	}{
		"postgres":        {Config{Port: 5656, Store: StorePostgres}, false},
		"mongo":           {Config{Port: 5656, Store: StoreMongo, MongoURI: "mongodb://x", MongoDatabase: "m"}, false},
		"mongo no uri":    {Config{Port: 5656, Store: StoreMongo, MongoDatabase: "m"}, true},
		"mongo no db":     {Config{Port: 5656, Store: StoreMongo, MongoURI: "mongodb://x"}, true},
		"unknown backend": {Config{Port: 5656, Store: "cassandra"}, true},
		"bad port":        {Config{Port: 0, Store: StorePostgres}, true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected an error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSetConfig(t *testing.T) {
	orig := GetConfig()
	t.Cleanup(func() { SetConfig(orig) })

	SetConfig(Config{Port: 9000, Store: StoreMongo})

	if got := GetConfig(); got.Port != 9000 || got.Store != StoreMongo {
		t.Fatalf("GetConfig returned %+v", got)
	}
}
