// Package proxy relays selected admin requests to the downstream health
// service and streams the answer back.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"authgate/internal/auth"
	"authgate/internal/httpx"
	"authgate/internal/metrics"
)

// Route maps an inbound path onto a downstream path.
type Route struct {
	Path       string
	Downstream string
}

// DefaultRoutes are the health endpoints exposed to Admin and Manager.
var DefaultRoutes = []Route{
	{Path: "/admin/health/proxy", Downstream: "/health"},
	{Path: "/admin/health/details-proxy", Downstream: "/health/details"},
}

const copyBufferSize = 32 * 1024

type Config struct {
	BaseURL string
	// Timeout bounds dialing and waiting for response headers. It does not
	// bound the body, so long streams are not cut off.
	Timeout             time.Duration
	MaxIdleConnsPerHost int
}

// NewTransport returns a pooled keep-alive transport for the downstream host.
func NewTransport(cfg Config) *http.Transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	idle := cfg.MaxIdleConnsPerHost
	if idle <= 0 {
		idle = 100
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	t.TLSHandshakeTimeout = timeout
	t.ResponseHeaderTimeout = timeout
	t.MaxIdleConns = idle
	t.MaxIdleConnsPerHost = idle
	t.IdleConnTimeout = 90 * time.Second
	return t
}

type Forwarder struct {
	base    *url.URL
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Forwarder)

func WithClient(c *http.Client) Option {
	return func(f *Forwarder) { f.client = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Forwarder) { f.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Forwarder) { f.metrics = m }
}

func New(cfg Config, opts ...Option) (*Forwarder, error) {
	base, err := ParseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	f := &Forwarder{
		base:   base,
		client: &http.Client{Transport: NewTransport(cfg)},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// ParseBaseURL accepts only absolute http or https URLs.
func ParseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidBaseURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidBaseURL, raw)
	}
	return u, nil
}

// Handler returns a handler relaying to downstreamPath.
func (f *Forwarder) Handler(downstreamPath string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.Forward(w, r, downstreamPath)
	})
}

// Forward re-checks the caller, then relays a GET for downstreamPath. The
// downstream is never contacted for unauthenticated or restricted callers.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, downstreamPath string) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	if err := auth.Permit(p, auth.TierFull); err != nil {
		auth.WriteAuthError(w, err)
		return
	}

	start := time.Now()
	code, err := f.relay(w, r, downstreamPath)
	defer func() { f.metrics.ObserveProxy(downstreamPath, code, time.Since(start)) }()
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		f.logger.Debug("proxy client went away", "path", downstreamPath, "user", p.Username)
	case code == 0:
		code = http.StatusBadGateway
		f.logger.Warn("proxy downstream unavailable", "path", downstreamPath, "err", err)
		httpx.WriteError(w, httpx.ErrorParams{
			Code:    code,
			ErrCode: "bad_gateway",
			Message: "downstream service unavailable",
		})
	default:
		// Headers are already sent; the truncated body is all the caller gets.
		f.logger.Warn("proxy stream interrupted", "path", downstreamPath, "status", code, "err", err)
	}
}

// relay returns the status written to w, or 0 if nothing was written.
func (f *Forwarder) relay(w http.ResponseWriter, r *http.Request, downstreamPath string) (int, error) {
	target := f.base.JoinPath(downstreamPath).String()
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		return 0, &DownstreamError{Op: "build_request", Target: target, Cause: err}
	}
	if authz := r.Header.Get("Authorization"); authz != "" {
		req.Header.Set("Authorization", authz)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, &DownstreamError{Op: "round_trip", Target: target, Cause: err}
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		// A nil entry stops net/http from sniffing one.
		w.Header()["Content-Type"] = nil
	}
	w.WriteHeader(resp.StatusCode)

	fw := flushWriter{w: w, rc: http.NewResponseController(w)}
	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(fw, resp.Body, buf); err != nil {
		return resp.StatusCode, &DownstreamError{Op: "copy_body", Target: target, Cause: err}
	}
	return resp.StatusCode, nil
}

// flushWriter pushes every chunk to the client as soon as it is written.
type flushWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err == nil {
		_ = fw.rc.Flush()
	}
	return n, err
}
