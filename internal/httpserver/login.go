package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"authgate/internal/auth"
	"authgate/internal/httpx"
	"authgate/internal/metrics"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func loginHandler(issuer *auth.Issuer, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !httpx.DecodeJSON(w, r, &req) {
			return
		}
		token, err := issuer.IssueToken(r.Context(), req.Username, req.Password)
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			m.ObserveLogin(metrics.LoginInvalid)
			auth.WriteAuthError(w, err)
			return
		case err != nil:
			m.ObserveLogin(metrics.LoginError)
			logger.Error("issue token", "err", err)
			httpx.WriteError(w, httpx.ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal"})
			return
		}
		m.ObserveLogin(metrics.LoginSuccess)
		httpx.WriteJSON(w, http.StatusOK, loginResponse{Token: token})
	})
}
