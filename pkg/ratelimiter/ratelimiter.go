package ratelimiter

import (
	"math"
	"strings"
	"sync"
	"time"
)

// Policy caps a namespace at Max hits per sliding Window.
type Policy struct {
	Max    int
	Window time.Duration
}

// RateLimiter is a sliding-window limiter keyed by namespace and caller key
// (client IP for the public write endpoints).
//
//	rl := ratelimiter.NewRateLimiter()
//	rl.SetPolicy("subscribe", 5, time.Minute)
//	if !rl.Allow("subscribe", ip) { ... }
type RateLimiter struct {
	mu       sync.Mutex
	hits     map[string][]time.Time
	policies map[string]Policy
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		hits:     make(map[string][]time.Time),
		policies: make(map[string]Policy),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go rl.janitor(time.Minute)
	return rl
}

func (rl *RateLimiter) SetPolicy(namespace string, max int, window time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.policies[namespace] = Policy{Max: max, Window: window}
}

// Allow records a hit and reports whether it fits the namespace policy.
// Namespaces without a policy are denied.
func (rl *RateLimiter) Allow(namespace, key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	policy, ok := rl.policies[namespace]
	if !ok {
		return false
	}

	now := rl.now()
	k := namespace + ":" + key
	recent := prune(rl.hits[k], now.Add(-policy.Window))
	if len(recent) >= policy.Max {
		rl.hits[k] = recent
		return false
	}
	rl.hits[k] = append(recent, now)
	return true
}

// RetryAfter returns the whole seconds until the oldest hit in the window expires.
func (rl *RateLimiter) RetryAfter(namespace, key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	policy, ok := rl.policies[namespace]
	if !ok {
		return 0
	}
	now := rl.now()
	recent := prune(rl.hits[namespace+":"+key], now.Add(-policy.Window))
	if len(recent) == 0 {
		return 0
	}
	wait := recent[0].Add(policy.Window).Sub(now)
	if wait <= 0 {
		return 0
	}
	return int(math.Ceil(wait.Seconds()))
}

func (rl *RateLimiter) Reset(namespace, key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.hits, namespace+":"+key)
}

// Stop ends the janitor goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// prune keeps the hits after cutoff. Hits are appended in time order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

func (rl *RateLimiter) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for k, hits := range rl.hits {
		ns, _, _ := strings.Cut(k, ":")
		policy, ok := rl.policies[ns]
		if !ok {
			delete(rl.hits, k)
			continue
		}
		if len(prune(hits, now.Add(-policy.Window))) == 0 {
			delete(rl.hits, k)
		}
	}
}
