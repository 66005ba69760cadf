package support

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLeadershipClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRunWithLeader_HoldsLockWhileRunning(t *testing.T) {
	client, mr := newLeadershipClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- RunWithLeader(ctx, client, "marinus:leader:test", time.Second, func(leaderCtx context.Context) {
			if !mr.Exists("marinus:leader:test") {
				t.Error("lock key should exist while leading")
			}
			close(ran)
			cancel()
			<-leaderCtx.Done()
		})
	}()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("leader function was never invoked")
	}

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mr.Exists("marinus:leader:test") {
		t.Fatal("lock should be released after run returns")
	}
}

func TestRunWithLeader_WaitsForExistingHolder(t *testing.T) {
	client, mr := newLeadershipClient(t)
	if err := mr.Set("marinus:leader:busy", "someone-else"); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	called := false
	err := RunWithLeader(ctx, client, "marinus:leader:busy", time.Second, func(context.Context) {
		called = true
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if called {
		t.Fatal("run must not be called while another instance holds the lock")
	}
	if got, _ := mr.Get("marinus:leader:busy"); got != "someone-else" {
		t.Fatalf("foreign lock was modified: %q", got)
	}
}

func TestRunWithLeader_RequiresArguments(t *testing.T) {
	client, _ := newLeadershipClient(t)

	if err := RunWithLeader(context.Background(), client, "k", time.Second, nil); err == nil {
		t.Fatal("expected an error for a nil run function")
	}
	if err := RunWithLeader(context.Background(), nil, "k", time.Second, func(context.Context) {}); err == nil {
		t.Fatal("expected an error for a nil client")
	}
}
