package api

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ClientLimiter keeps one token bucket per client address. Idle buckets
// expire after ten minutes.
type ClientLimiter struct {
	limit rate.Limit
	burst int
	log   *slog.Logger

	mu      sync.Mutex
	clients *cache.Cache
}

// NewClientLimiter allows perSecond requests per client with the given burst.
func NewClientLimiter(perSecond float64, burst int, log *slog.Logger) *ClientLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &ClientLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		log:     log,
		clients: cache.New(10*time.Minute, 20*time.Minute),
	}
}

// Allow reports whether key may make a request now.
func (l *ClientLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lim *rate.Limiter
	if v, ok := l.clients.Get(key); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	l.clients.Set(key, lim, cache.DefaultExpiration)
	return lim.Allow()
}

func (l *ClientLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !l.Allow(key) {
			l.log.Warn("rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"client", key,
			)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
