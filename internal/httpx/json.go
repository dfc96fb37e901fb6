// Package httpx holds the JSON response helpers shared by every handler.
package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// DecodeJSON decodes the request body into dst. On failure a 400 response has
// already been written and false is returned.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Message: "request body is not valid JSON"})
		return false
	}
	return true
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

type ErrorParams struct {
	Code    int
	ErrCode string
	Message string
}

func WriteError(w http.ResponseWriter, p ErrorParams) {
	msg := p.Message
	if msg == "" {
		msg = http.StatusText(p.Code)
	}
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": msg})
}

func Unauthorized(w http.ResponseWriter) {
	WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Message: "authentication required"})
}

func Forbidden(w http.ResponseWriter) {
	WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "insufficient_permissions", Message: "insufficient permissions"})
}
