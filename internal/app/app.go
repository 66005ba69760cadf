package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/eitanMobb/marinus-sm/internal/app/bootstrap"
	"github.com/eitanMobb/marinus-sm/internal/app/server"
	"github.com/eitanMobb/marinus-sm/internal/config"
	jobruntime "github.com/eitanMobb/marinus-sm/internal/jobs/runtime"
	"github.com/eitanMobb/marinus-sm/internal/records"
)

const closeTimeout = 5 * time.Second

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	cfg, err := resolveConfig(os.Args[1:])
	if err != nil {
		return err
	}

	config.SetConfig(cfg)
	config.SetProductionMode(cfg.Production)
	if !cfg.Production {
		log.SetLevel(log.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := bootstrap.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := res.Close(closeCtx); err != nil {
			log.Warn("error releasing resources", "error", err)
		}
	}()

	if res.Cache != nil && cfg.CountWarmInterval > 0 {
		go jobruntime.StartCountWarmerRoutine(ctx, res.Redis, res.Cache, cfg.CountWarmInterval)
	}

	deps := server.Dependencies{
		Records: records.NewService(res.Store),
		Store:   res.Store,
	}
	if res.Geo != nil {
		deps.Geo = res.Geo
	}

	return server.OpenRoutes(ctx, cfg.Port, deps)
}

// resolveConfig layers command line flags over the environment.
func resolveConfig(args []string) (config.Config, error) {
	cfg := config.Load()

	fs := flag.NewFlagSet("marinus", flag.ContinueOnError)
	portFlag := fs.Int("port", cfg.Port, "Port for the API server")
	productionFlag := fs.Bool("production", cfg.Production, "Run in production mode")
	storeFlag := fs.String("store", cfg.Store, "Storage backend (postgres or mongo)")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg.Port = *portFlag
	cfg.Production = *productionFlag
	cfg.Store = *storeFlag

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
