package cache

import (
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const sweepInterval = time.Minute

// Cooldown tracks keys that were used recently. A zero window disables it.
type Cooldown struct {
	c      *gocache.Cache
	window time.Duration
	stop   chan struct{}
	once   sync.Once
}

// NewCooldown returns a cooldown holding each key for window. Call Stop to
// end the expired-entry sweep.
func NewCooldown(window time.Duration) *Cooldown {
	if window <= 0 {
		return &Cooldown{}
	}
	cd := &Cooldown{
		c:      gocache.New(window, 0),
		window: window,
		stop:   make(chan struct{}),
	}
	go cd.sweep(sweepInterval)
	return cd
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (cd *Cooldown) Stop() {
	if cd == nil || cd.stop == nil {
		return
	}
	cd.once.Do(func() { close(cd.stop) })
}

func (cd *Cooldown) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-cd.stop:
			return
		case <-t.C:
			cd.c.DeleteExpired()
		}
	}
}

// Reserve claims key for one window. It returns false if key is already held.
func (cd *Cooldown) Reserve(key string) bool {
	if cd == nil || cd.c == nil {
		return true
	}
	return cd.c.Add(normalize(key), struct{}{}, cd.window) == nil
}

// Release drops a reservation so the key can be claimed again immediately.
func (cd *Cooldown) Release(key string) {
	if cd == nil || cd.c == nil {
		return
	}
	cd.c.Delete(normalize(key))
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
