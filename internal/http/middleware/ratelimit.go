// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a lightweight, in-memory, token-bucket rate limiter
// with per-identity buckets and opportunistic garbage collection. Partner
// terminals identify themselves with the X-Terminal-ID header; anything
// else is keyed by client IP.
//
// The limiter is process-local. For horizontally scaled deployments a
// distributed limiter would be needed to enforce global limits; here it
// serves as edge-level abuse control in front of the coupon endpoints, not
// as an authorization mechanism.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// HeaderTerminalID identifies the partner terminal issuing a request. It is
// self-reported and used only for rate-limit keying and log correlation.
const HeaderTerminalID = "X-Terminal-ID"

// keyFunc selects the identity used to key a rate-limit bucket.
//
// Implementations should return a stable string for the duration of a
// request (e.g., "terminal:<id>" or "ip:<addr>").
type keyFunc func(*gin.Context) string

// KeyByTerminalOrIP returns a keyFunc that prefers the self-reported
// terminal identity and falls back to the client IP address. Keys are
// prefixed to keep the two namespaces from colliding.
func KeyByTerminalOrIP() keyFunc {
	return func(c *gin.Context) string {
		if id := c.GetHeader(HeaderTerminalID); id != "" {
			return "terminal:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

// visitor holds a single rate limiter and the last time it was seen.
// Used to opportunistically evict idle buckets.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements a per-key token-bucket rate limiter.
//
// Buckets are created on demand and stored in an internal map guarded by a
// mutex. Idle buckets are evicted after a TTL via opportunistic cleanup
// during lookups to keep memory usage bounded.
//
// This type is safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter constructs a RateLimiter with the given tokens-per-second
// and burst size, keyed by keyFn. An rps of 0 disables limiting entirely.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// Handler returns the Gin middleware enforcing the limit. Requests that
// exceed their bucket receive a 429 with the standard error envelope.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rps <= 0 {
			c.Next()
			return
		}
		if !rl.allow(rl.keyFn(c)) {
			rid, _ := c.Get(requestIDKey)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"request_id": asString(rid),
				"code":       "too_many_requests",
				"message":    "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// allow reserves one token from the bucket for key, creating the bucket on
// first sight. Every 256 lookups the map is swept for idle buckets.
func (rl *RateLimiter) allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	rl.cleanupN++
	if rl.cleanupN%256 == 0 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) > rl.ttl {
				delete(rl.visitors, k)
			}
		}
	}
	rl.mu.Unlock()

	return v.limiter.Allow()
}
