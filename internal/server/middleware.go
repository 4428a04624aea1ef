package server

import (
	"container/list"
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SecurityHeadersMiddleware adds security headers to all responses.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			// connect-src 'self' covers the same-origin websocket.
			w.Header().Set("Content-Security-Policy",
				"default-src 'self'; "+
					"script-src 'self'; "+
					"style-src 'self' 'unsafe-inline'; "+
					"img-src 'self' data: https:; "+
					"connect-src 'self'; "+
					"frame-ancestors 'none'")

			next.ServeHTTP(w, r)
		})
	}
}

// evictionLogInterval is the minimum time between eviction log messages.
const evictionLogInterval = 30 * time.Second

// ipLimiter tracks a per-IP token bucket and its position in the LRU list.
type ipLimiter struct {
	ip       string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one token bucket per client IP, evicting the least
// recently used IP once maxIPs are tracked.
type limiterPool struct {
	mu     sync.Mutex
	rps    rate.Limit
	burst  int
	maxIPs int
	items  map[string]*list.Element
	order  *list.List // front = most recent, back = oldest

	lastEvictLog time.Time
	evictCount   int
}

func newLimiterPool(rps float64, burst, maxIPs int) *limiterPool {
	if maxIPs <= 0 {
		maxIPs = 10000
	}
	return &limiterPool{
		rps:    rate.Limit(rps),
		burst:  burst,
		maxIPs: maxIPs,
		items:  make(map[string]*list.Element),
		order:  list.New(),
	}
}

// get returns the bucket for ip, creating it if needed.
func (p *limiterPool) get(ip string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if elem, ok := p.items[ip]; ok {
		p.order.MoveToFront(elem)
		lim := elem.Value.(*ipLimiter)
		lim.lastSeen = time.Now()
		return lim.limiter
	}

	if p.order.Len() >= p.maxIPs {
		if back := p.order.Back(); back != nil {
			p.order.Remove(back)
			delete(p.items, back.Value.(*ipLimiter).ip)
			p.evictCount++
			if time.Since(p.lastEvictLog) >= evictionLogInterval {
				log.Printf("[RateLimit] Evicted %d least-recent IP(s) (at capacity: %d IPs)", p.evictCount, p.maxIPs)
				p.lastEvictLog = time.Now()
				p.evictCount = 0
			}
		}
	}

	lim := &ipLimiter{
		ip:       ip,
		limiter:  rate.NewLimiter(p.rps, p.burst),
		lastSeen: time.Now(),
	}
	p.items[ip] = p.order.PushFront(lim)
	return lim.limiter
}

// sweep drops buckets idle for longer than idle. LRU order tracks access, not
// lastSeen, so the whole list is walked.
func (p *limiterPool) sweep(idle time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for e := p.order.Back(); e != nil; {
		prev := e.Prev()
		if lim := e.Value.(*ipLimiter); now.Sub(lim.lastSeen) > idle {
			p.order.Remove(e)
			delete(p.items, lim.ip)
		}
		e = prev
	}
}

// len returns the number of tracked IPs.
func (p *limiterPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.order.Len()
}

// run sweeps idle buckets until ctx is cancelled, then closes the returned
// channel.
func (p *limiterPool) run(ctx context.Context, every, idle time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.sweep(idle)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}

// RateLimitMiddleware limits requests using a token bucket per client IP.
// The cleanup goroutine lives until ctx is cancelled; the returned channel is
// closed when it exits.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, maxIPs int) (func(http.Handler) http.Handler, <-chan struct{}) {
	pool := newLimiterPool(rps, burst, maxIPs)
	done := pool.run(ctx, 5*time.Minute, 10*time.Minute)

	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !pool.get(getClientIP(r)).Allow() {
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	return middleware, done
}

// getClientIP extracts the client IP from the request.
// It only trusts X-Forwarded-For / X-Real-IP when the immediate peer is a
// loopback or private address (i.e., behind a reverse proxy).
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	peerIP := net.ParseIP(host)
	trustedProxy := peerIP != nil && (peerIP.IsLoopback() || peerIP.IsPrivate())

	if trustedProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	if peerIP != nil {
		return peerIP.String()
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
