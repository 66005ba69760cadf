package app

import (
	"testing"

	"github.com/eitanMobb/marinus-sm/internal/config"
)

func TestResolveConfig_EnvironmentDefaults(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("STORE_BACKEND", "mongo")

	cfg, err := resolveConfig(nil)
	if err != nil {
		t.Fatalf("resolveConfig returned error: %v", err)
	}
	if cfg.Port != 7070 || cfg.Store != config.StoreMongo {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestResolveConfig_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("STORE_BACKEND", "mongo")

	cfg, err := resolveConfig([]string{"-port", "9090", "-store", "postgres", "-production"})
	if err != nil {
		t.Fatalf("resolveConfig returned error: %v", err)
	}
	if cfg.Port != 9090 || cfg.Store != config.StorePostgres || !cfg.Production {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestResolveConfig_RejectsInvalidValues(t *testing.T) {
	tests := map[string][]string{
		"unknown store": {"-store", "cassandra"},
		"bad port":      {"-port", "0"},
		"unknown flag":  {"-frontend-port", "8084"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := resolveConfig(args); err == nil {
				t.Fatalf("expected an error for %v", args)
			}
		})
	}
}
