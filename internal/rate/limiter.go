// Package rate throttles attempts per route and caller. Each route has its
// own policy; attempts are counted in fixed windows.
package rate

import (
	"sync"
	"time"
)

// Policy allows Limit attempts per Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one attempt. RetryAfter is set only when the
// attempt was refused.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type slot struct {
	route  string
	caller string
}

type tally struct {
	used   int
	opened time.Time
}

type Limiter struct {
	mu        sync.Mutex
	policies  map[string]Policy
	tallies   map[slot]tally
	sweepAt   time.Time
	sweepStep time.Duration
	now       func() time.Time
}

// NewLimiter copies policies. Routes without a policy are never throttled.
func NewLimiter(policies map[string]Policy) *Limiter {
	l := &Limiter{
		policies: make(map[string]Policy, len(policies)),
		tallies:  map[slot]tally{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for route, p := range policies {
		if p.Limit <= 0 || p.Window <= 0 {
			continue
		}
		l.policies[route] = p
		if p.Window > l.sweepStep {
			l.sweepStep = p.Window
		}
	}
	l.sweepAt = l.now().Add(l.sweepStep)
	return l
}

// Take records one attempt by caller on route.
func (l *Limiter) Take(route, caller string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.policies[route]
	if !ok {
		return Decision{Allowed: true, Remaining: -1}
	}
	now := l.now()
	if !now.Before(l.sweepAt) {
		l.sweep(now)
	}
	k := slot{route: route, caller: caller}
	t, ok := l.tallies[k]
	if !ok || !now.Before(t.opened.Add(p.Window)) {
		t = tally{opened: now}
	}
	if t.used >= p.Limit {
		return Decision{RetryAfter: t.opened.Add(p.Window).Sub(now)}
	}
	t.used++
	l.tallies[k] = t
	return Decision{Allowed: true, Remaining: p.Limit - t.used}
}

// Reset clears caller's attempts on route, e.g. after a successful sign-in.
func (l *Limiter) Reset(route, caller string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.tallies, slot{route: route, caller: caller})
}

// sweep drops tallies whose window has closed. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	for k, t := range l.tallies {
		if !now.Before(t.opened.Add(l.policies[k.route].Window)) {
			delete(l.tallies, k)
		}
	}
	l.sweepAt = now.Add(l.sweepStep)
}

func (l *Limiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tallies)
}
