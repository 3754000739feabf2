package http

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const rateLimitedMessage = "Too many requests from this IP, please try again later."

type visitor struct {
	limiter     *rate.Limiter
	windowStart time.Time
	lastSeen    time.Time
}

// IPRateLimiter allows each client IP at most `requests` per fixed `window`,
// counted from the client's first request in that window.
type IPRateLimiter struct {
	mutex      sync.Mutex
	visitors   map[string]*visitor
	requests   int
	window     time.Duration
	lastSweep  time.Time
	trustProxy bool
	now        func() time.Time
}

func NewIPRateLimiter(requests int, window time.Duration, trustProxy bool) *IPRateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	return &IPRateLimiter{
		visitors:   make(map[string]*visitor),
		requests:   requests,
		window:     window,
		trustProxy: trustProxy,
		now:        time.Now,
	}
}

// Allow reports whether one more request from ip fits in its budget.
func (l *IPRateLimiter) Allow(ip string) bool {
	now := l.now()

	l.mutex.Lock()
	defer l.mutex.Unlock()

	if now.Sub(l.lastSweep) > l.window {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.window {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok || now.Sub(v.windowStart) >= l.window {
		// a full bucket that refills only once per window, replaced when the window ends
		v = &visitor{
			limiter:     rate.NewLimiter(rate.Every(l.window), l.requests),
			windowStart: now,
		}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

func (l *IPRateLimiter) clientIP(r *http.Request) string {
	if l.trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			return strings.TrimSpace(strings.Split(fwd, ",")[0])
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
