package middleware

import (
	"net/http"
	"sync"
	"time"
)

// Webhook rate limits. Twilio retries on 429, so a throttled burst is
// delivered late rather than dropped.
const (
	webhookRatePerSecond = 5
	webhookBurst         = 10

	staleBucketAfter = 10 * time.Minute
	evictEvery       = 5 * time.Minute
)

// ipLimiter tracks a token bucket per client IP.
type ipLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	rate    float64
	burst   float64
}

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

func newIPLimiter(rate float64, burst int) *ipLimiter {
	l := &ipLimiter{
		buckets: make(map[string]*tokenBucket),
		rate:    rate,
		burst:   float64(burst),
	}
	go l.evictLoop()
	return l
}

// allow refills the caller's bucket for the elapsed time and takes one token.
func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[ip]
	if !ok {
		b = &tokenBucket{tokens: l.burst, seen: now}
		l.buckets[ip] = b
	}

	b.tokens += now.Sub(b.seen).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// evictLoop drops buckets for IPs that went quiet, bounding memory.
func (l *ipLimiter) evictLoop() {
	ticker := time.NewTicker(evictEvery)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-staleBucketAfter)
		l.mu.Lock()
		for ip, b := range l.buckets {
			if b.seen.Before(cutoff) {
				delete(l.buckets, ip)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit rejects requests over rate req/sec per IP with 429.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := newIPLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			// Prefer the address resolved by chi's RealIP middleware.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			if !limiter.allow(ip) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WebhookRateLimit is the RateLimit configuration applied to the inbound
// SMS webhook.
func WebhookRateLimit() func(http.Handler) http.Handler {
	return RateLimit(webhookRatePerSecond, webhookBurst)
}
