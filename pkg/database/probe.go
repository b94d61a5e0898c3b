package database

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// Probe reports whether the backing store is reachable. The result is cached
// for a short interval so workflows can consult it without re-pinging on every
// call. Constructed once and injected, never a package-level flag, so the
// check stays mockable.
type Probe struct {
	db       *sqlx.DB
	interval time.Duration

	mu        sync.Mutex
	ready     bool
	checkedAt time.Time
}

// NewProbe builds a probe around the database handle.
func NewProbe(db *sqlx.DB, interval time.Duration) *Probe {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Probe{db: db, interval: interval}
}

// Ready pings the store, caching the outcome for the configured interval.
func (p *Probe) Ready(ctx context.Context) bool {
	if p == nil || p.db == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.checkedAt) < p.interval {
		return p.ready
	}

	p.ready = p.db.PingContext(ctx) == nil
	p.checkedAt = time.Now()
	return p.ready
}

// Invalidate drops the cached result so the next call re-probes.
func (p *Probe) Invalidate() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.checkedAt = time.Time{}
	p.mu.Unlock()
}
