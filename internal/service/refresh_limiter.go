package service

import (
	"context"
	"strings"
	"sync"
	"time"
)

// RefreshLimiter acota los recálculos forzados de un usuario a max por ventana fija.
// Si niega, devuelve cuánto falta para que la ventana se reinicie.
type RefreshLimiter interface {
	Allow(ctx context.Context, userID string) (bool, time.Duration)
}

type refreshWindow struct {
	start time.Time
	count int
}

type memoryRefreshLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	windows   map[string]refreshWindow
	lastSweep time.Time
	now       func() time.Time
}

// NewRefreshLimiter crea el limitador en memoria, válido para una sola réplica.
// Usa la misma ventana fija que NewRedisRefreshLimiter.
func NewRefreshLimiter(window time.Duration, max int) RefreshLimiter {
	return newMemoryRefreshLimiter(window, max)
}

func newMemoryRefreshLimiter(window time.Duration, max int) *memoryRefreshLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &memoryRefreshLimiter{
		window:  window,
		max:     max,
		windows: make(map[string]refreshWindow),
		now:     time.Now,
	}
}

func (l *memoryRefreshLimiter) Allow(_ context.Context, userID string) (bool, time.Duration) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.windows[userID]
	if !ok || !now.Before(w.start.Add(l.window)) {
		w = refreshWindow{start: now}
	}
	if w.count >= l.max {
		return false, w.start.Add(l.window).Sub(now)
	}
	w.count++
	l.windows[userID] = w
	return true, 0
}

// sweep elimina ventanas vencidas, como mucho una vez por ventana.
func (l *memoryRefreshLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for id, w := range l.windows {
		if !now.Before(w.start.Add(l.window)) {
			delete(l.windows, id)
		}
	}
}
