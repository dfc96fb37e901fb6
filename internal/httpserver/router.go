package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"

	"authgate/internal/auth"
	"authgate/internal/httpx"
	"authgate/internal/metrics"
	"authgate/internal/proxy"
	"authgate/internal/users"
)

type Deps struct {
	Logger *slog.Logger
	Issuer *auth.Issuer
	Gate   *auth.Gate
	Users  users.Repository
	// Proxy is nil when proxy routes are disabled.
	Proxy *proxy.Forwarder
	// Metrics is nil when /metrics is disabled.
	Metrics *metrics.Metrics
	// LoginLimiter is nil when login throttling is off.
	LoginLimiter *LoginLimiter
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	// Auth
	login := d.LoginLimiter.Wrap(loginHandler(d.Issuer, d.Metrics, logger), logger)
	mux.Handle("POST /login", login)
	mux.Handle("POST /User/login", login)

	secured := auth.JWTMiddleware(d.Gate, logger)
	fullAccess := func(h http.HandlerFunc) http.Handler {
		return secured(auth.RequireTier(h, auth.TierFull))
	}

	// Users
	uh := &users.Handlers{Repo: d.Users, Logger: logger}
	mux.Handle("GET /User/users", secured(http.HandlerFunc(uh.List)))
	mux.Handle("GET /User/{id}", secured(http.HandlerFunc(uh.Get)))
	for _, p := range []string{"POST /User/users", "POST /User/create"} {
		mux.Handle(p, fullAccess(uh.Create))
	}
	for _, p := range []string{"PUT /User/users/{id}", "PUT /User/update/{id}"} {
		mux.Handle(p, fullAccess(uh.Update))
	}
	for _, p := range []string{"DELETE /User/users/{id}", "DELETE /User/delete/{id}"} {
		mux.Handle(p, fullAccess(uh.Delete))
	}

	mux.Handle("GET /admin-manager-only", fullAccess(func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.PrincipalFromContext(r.Context())
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Hello %s, this page is only open to Admin and Manager roles.", p.Username),
		})
	}))

	// Proxy: the forwarder applies the role check itself.
	if d.Proxy != nil {
		for _, rt := range proxy.DefaultRoutes {
			mux.Handle("GET "+rt.Path, secured(d.Proxy.Handler(rt.Downstream)))
		}
	}

	return RequestID(Recover(logger)(Logging(logger, d.Metrics)(mux)))
}
