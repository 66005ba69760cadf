package support

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLeadershipTTL = 45 * time.Second
	leadershipRetryDelay = time.Second
	renewalTimeout       = 5 * time.Second
	minRenewalInterval   = 100 * time.Millisecond
)

var (
	leaderCounter atomic.Uint64

	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)
)

// RunWithLeader blocks until this instance holds the lock at key, then calls
// run with a context that is cancelled once the lock is lost. After run
// returns the lock is released and acquisition starts over, until ctx is done.
func RunWithLeader(ctx context.Context, client *redis.Client, key string, ttl time.Duration, run func(context.Context)) error {
	if run == nil {
		return errors.New("support: leader run function cannot be nil")
	}
	if client == nil {
		return errors.New("support: leader lock needs a redis client")
	}
	if ttl <= 0 {
		ttl = DefaultLeadershipTTL
	}

	for {
		lock, err := acquireLeaderLock(ctx, client, key, ttl)
		if err != nil {
			return err
		}

		log.Debug("leader lock: acquired", "key", key)
		run(lock.ctx)
		lock.release()
		log.Debug("leader lock: released", "key", key)

		if err := sleepContext(ctx, leadershipRetryDelay); err != nil {
			return err
		}
	}
}

type leaderLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func acquireLeaderLock(ctx context.Context, client *redis.Client, key string, ttl time.Duration) (*leaderLock, error) {
	token := newLeaderToken()

	for {
		ok, err := client.SetNX(ctx, key, token, ttl).Result()
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			log.Warn("leader lock: setnx failed", "key", key, "error", err)
		case ok:
			lockCtx, cancel := context.WithCancel(ctx)
			lock := &leaderLock{
				client: client,
				key:    key,
				token:  token,
				ttl:    ttl,
				ctx:    lockCtx,
				cancel: cancel,
				done:   make(chan struct{}),
			}
			go lock.keepAlive()
			return lock, nil
		}

		if err := sleepContext(ctx, leadershipRetryDelay); err != nil {
			return nil, err
		}
	}
}

func (l *leaderLock) keepAlive() {
	interval := l.ttl / 3
	if interval < minRenewalInterval {
		interval = minRenewalInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			if err := l.renew(); err != nil {
				log.Warn("leader lock: renewal failed", "key", l.key, "error", err)
				l.cancel()
				return
			}
		}
	}
}

func (l *leaderLock) renew() error {
	ctx, cancel := context.WithTimeout(context.Background(), renewalTimeout)
	defer cancel()

	res, err := renewScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if res == 0 {
		return errors.New("lock lost")
	}
	return nil
}

func (l *leaderLock) release() {
	l.once.Do(func() {
		close(l.done)
		l.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), renewalTimeout)
		defer cancel()

		err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Warn("leader lock: release failed", "key", l.key, "error", err)
		}
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func newLeaderToken() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s-%d-%d-%d", host, os.Getpid(), time.Now().UnixNano(), leaderCounter.Add(1))
}
