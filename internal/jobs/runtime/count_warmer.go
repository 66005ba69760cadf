package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/eitanMobb/marinus-sm/internal/filter"
	"github.com/eitanMobb/marinus-sm/internal/support"
)

const countWarmLockKey = "marinus:leader:count_warm"

// CountRefresher recomputes and caches a single count.
type CountRefresher interface {
	Refresh(ctx context.Context, predicate filter.Predicate) (int64, error)
}

// WarmedPredicates are the parameterless counts every dashboard asks for.
var WarmedPredicates = []filter.Predicate{
	filter.All{},
	filter.Tracked{},
	filter.Managed{},
	filter.VersionEquals{Version: 4},
	filter.VersionEquals{Version: 6},
}

// StartCountWarmerRoutine keeps the cached collection counts fresh. Only the
// instance holding the leader lock does the work; it returns when ctx is done.
func StartCountWarmerRoutine(ctx context.Context, client *redis.Client, refresher CountRefresher, interval time.Duration) {
	if interval <= 0 {
		return
	}

	err := support.RunWithLeader(ctx, client, countWarmLockKey, support.DefaultLeadershipTTL, func(leaderCtx context.Context) {
		runCountWarmLoop(leaderCtx, refresher, interval)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Count warmer routine stopped", "error", err)
	}
}

func runCountWarmLoop(ctx context.Context, refresher CountRefresher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	warmOnce(ctx, refresher)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			warmOnce(ctx, refresher)
		}
	}
}

func warmOnce(ctx context.Context, refresher CountRefresher) {
	start := time.Now()
	warmed := 0

	for _, predicate := range WarmedPredicates {
		if ctx.Err() != nil {
			log.Info("Count warm canceled", "warmed", warmed, "duration", time.Since(start))
			return
		}
		if _, err := refresher.Refresh(ctx, predicate); err != nil {
			log.Warn("Count warm failed", "filter", predicate.Key(), "error", err)
			continue
		}
		warmed++
	}

	log.Debug("Count warm completed", "warmed", warmed, "duration", time.Since(start))
}
