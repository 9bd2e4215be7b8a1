package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeWindowEvaler struct {
	keys  []string
	args  []interface{}
	reply []interface{}
	err   error
}

func (f *fakeWindowEvaler) Eval(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	f.keys = keys
	f.args = args
	cmd := redis.NewCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	cmd.SetVal(f.reply)
	return cmd
}

func TestMemoryRefreshLimiterFixedWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := newMemoryRefreshLimiter(time.Minute, 2)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow(ctx, "u1"); !ok {
			t.Fatalf("refresh %d should be allowed", i+1)
		}
		now = now.Add(10 * time.Second)
	}

	ok, retry := l.Allow(ctx, "u1")
	if ok {
		t.Fatalf("third refresh inside the window must be refused")
	}
	if retry != 40*time.Second {
		t.Fatalf("expected retry when the window that opened at the first refresh closes, got %v", retry)
	}
	if ok, _ := l.Allow(ctx, "u2"); !ok {
		t.Fatalf("other users keep their own window")
	}

	now = now.Add(retry)
	if ok, _ := l.Allow(ctx, "u1"); !ok {
		t.Fatalf("expected a fresh window once the previous one closed")
	}
}

func TestMemoryRefreshLimiterBlankUser(t *testing.T) {
	if ok, _ := NewRefreshLimiter(time.Minute, 3).Allow(context.Background(), "  "); ok {
		t.Fatalf("blank user ids are never refreshed")
	}
}

func TestMemoryRefreshLimiterDropsExpiredWindows(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := newMemoryRefreshLimiter(time.Minute, 3)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		l.Allow(ctx, fmt.Sprintf("user-%d", i))
	}
	if len(l.windows) != 10000 {
		t.Fatalf("expected one window per user, got %d", len(l.windows))
	}

	now = now.Add(24 * time.Hour)
	l.Allow(ctx, "late")
	if len(l.windows) != 1 {
		t.Fatalf("expected expired windows dropped, %d retained", len(l.windows))
	}
}

func TestRedisRefreshLimiterAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("within limit", func(t *testing.T) {
		f := &fakeWindowEvaler{reply: []interface{}{int64(2), int64(45000)}}
		l := newRedisRefreshLimiter(f, 2*time.Minute, 3)
		if ok, _ := l.Allow(ctx, " u1 "); !ok {
			t.Fatalf("second refresh of three should pass")
		}
		if len(f.keys) != 1 || f.keys[0] != "embeds:refresh:u1" {
			t.Fatalf("unexpected key %v", f.keys)
		}
		if len(f.args) != 1 || f.args[0] != int64(120000) {
			t.Fatalf("expected window in milliseconds, got %v", f.args)
		}
	})

	t.Run("over limit reports remaining window", func(t *testing.T) {
		f := &fakeWindowEvaler{reply: []interface{}{int64(4), int64(1500)}}
		ok, retry := newRedisRefreshLimiter(f, time.Minute, 3).Allow(ctx, "u1")
		if ok {
			t.Fatalf("fourth refresh must be refused")
		}
		if retry != 1500*time.Millisecond {
			t.Fatalf("expected 1.5s retry, got %v", retry)
		}
	})

	t.Run("redis down lets the refresh through", func(t *testing.T) {
		f := &fakeWindowEvaler{err: errors.New("redis down")}
		if ok, _ := newRedisRefreshLimiter(f, time.Minute, 3).Allow(ctx, "u1"); !ok {
			t.Fatalf("expected refresh allowed when redis is unreachable")
		}
	})

	t.Run("blank user", func(t *testing.T) {
		f := &fakeWindowEvaler{reply: []interface{}{int64(1), int64(60000)}}
		if ok, _ := newRedisRefreshLimiter(f, time.Minute, 3).Allow(ctx, ""); ok {
			t.Fatalf("blank user ids are never refreshed")
		}
		if f.keys != nil {
			t.Fatalf("redis must not be called for a blank id")
		}
	})
}

func TestNewRedisRefreshLimiterWithoutClient(t *testing.T) {
	if l := NewRedisRefreshLimiter(nil, time.Minute, 3); l != nil {
		t.Fatalf("expected nil limiter without redis client")
	}
}
