package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"authgate/internal/httpx"
)

type contextKey string

const principalContextKey contextKey = "authgate_principal"

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok && p != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// JWTMiddleware authenticates every request and stores the principal in the
// request context. Bad or missing tokens get 401, unknown roles get 403.
func JWTMiddleware(gate *Gate, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				httpx.Unauthorized(w)
				return
			}
			p, err := gate.Authenticate(token)
			if err != nil {
				WriteAuthError(w, err)
				if logger != nil {
					logger.Debug("token rejected", "path", r.URL.Path, "err", err)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireTier admits only principals whose role falls in one of tiers.
func RequireTier(next http.Handler, tiers ...Tier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			httpx.Unauthorized(w)
			return
		}
		if err := Permit(p, tiers...); err != nil {
			WriteAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WriteAuthError maps the auth error taxonomy onto HTTP responses.
func WriteAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		httpx.WriteError(w, httpx.ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "invalid_credentials",
			Message: "invalid username or password",
		})
	case errors.Is(err, ErrForbidden):
		httpx.Forbidden(w)
	case errors.Is(err, ErrUnauthenticated):
		httpx.Unauthorized(w)
	default:
		httpx.WriteError(w, httpx.ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal"})
	}
}
