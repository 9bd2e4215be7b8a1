package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// refreshWindowScript cuenta el recálculo y devuelve {conteo, ms restantes de la ventana}.
// La ventana arranca con el primer recálculo y no se extiende con los siguientes.
const refreshWindowScript = `
local count = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

const redisRefreshTimeout = 500 * time.Millisecond

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisRefreshLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

// NewRedisRefreshLimiter comparte el límite entre réplicas. Devuelve nil si no hay cliente.
func NewRedisRefreshLimiter(client *redis.Client, window time.Duration, max int) RefreshLimiter {
	if client == nil {
		return nil
	}
	return newRedisRefreshLimiter(client, window, max)
}

func newRedisRefreshLimiter(client redisEvaler, window time.Duration, max int) *redisRefreshLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisRefreshLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "embeds:refresh:",
	}
}

// Allow falla abierto: si Redis no responde, el recálculo se permite.
func (l *redisRefreshLimiter) Allow(ctx context.Context, userID string) (bool, time.Duration) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, 0
	}

	ctx, cancel := context.WithTimeout(ctx, redisRefreshTimeout)
	defer cancel()

	res, err := l.client.Eval(ctx, refreshWindowScript, []string{l.prefix + userID}, l.window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		return true, 0
	}
	if res[0] > int64(l.max) {
		return false, time.Duration(res[1]) * time.Millisecond
	}
	return true, 0
}
