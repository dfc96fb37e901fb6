package httpserver

import (
	"log/slog"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"authgate/internal/httpx"
)

const maxTrackedClients = 10000

// LoginLimiter throttles login attempts per client address.
type LoginLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*rate.Limiter
}

// NewLoginLimiter returns nil when rps is not positive, which disables
// throttling.
func NewLoginLimiter(rps float64, burst int) *LoginLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &LoginLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*rate.Limiter),
	}
}

func (l *LoginLimiter) Allow(client string) bool {
	l.mu.Lock()
	lim, ok := l.clients[client]
	if !ok {
		if len(l.clients) >= maxTrackedClients {
			l.clients = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.rps, l.burst)
		l.clients[client] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// Wrap rejects requests over the limit with 429. A nil limiter passes
// everything through.
func (l *LoginLimiter) Wrap(next http.Handler, logger *slog.Logger) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)
		if !l.Allow(client) {
			logger.Warn("login rate limit exceeded", "client", client)
			httpx.WriteError(w, httpx.ErrorParams{
				Code:    http.StatusTooManyRequests,
				ErrCode: "rate_limited",
				Message: "too many login attempts",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
