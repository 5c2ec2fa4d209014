package httpserver

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = time.Minute
	limiterMaxEntries = 10000
)

// playerLimiter keeps one token bucket per player id. Buckets idle long
// enough to have refilled are dropped, since a fresh bucket behaves the same.
type playerLimiter struct {
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	idle      time.Duration
	m         map[int64]*playerBucket
	lastSweep time.Time
	now       func() time.Time
}

type playerBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newPlayerLimiter(perSecond float64, burst int) *playerLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 5
	}
	idle := time.Duration(float64(burst) / perSecond * float64(time.Second))
	if idle < time.Minute {
		idle = time.Minute
	}
	return &playerLimiter{
		rate:  rate.Limit(perSecond),
		burst: burst,
		idle:  idle,
		m:     make(map[int64]*playerBucket),
		now:   time.Now,
	}
}

func (p *playerLimiter) allow(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if now.Sub(p.lastSweep) >= limiterSweepEvery || len(p.m) >= limiterMaxEntries {
		p.sweep(now)
	}
	b, ok := p.m[id]
	if !ok {
		b = &playerBucket{lim: rate.NewLimiter(p.rate, p.burst)}
		p.m[id] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// sweep drops buckets not used within the idle window. Caller holds p.mu.
func (p *playerLimiter) sweep(now time.Time) {
	p.lastSweep = now
	for id, b := range p.m {
		if now.Sub(b.seen) >= p.idle {
			delete(p.m, id)
		}
	}
}

func (p *playerLimiter) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}
