package users

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"authgate/internal/auth"
	"authgate/internal/httpx"
)

// View is the public shape of a user; the stored secret never leaves the store.
type View struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
	Email    *string   `json:"email"`
	Phone    *string   `json:"phone"`
}

func NewView(u auth.User) View {
	v := View{ID: u.ID, Username: u.Username, Role: u.Role}
	if u.Email != "" {
		v.Email = &u.Email
	}
	if u.Phone != "" {
		v.Phone = &u.Phone
	}
	return v
}

// Handlers serves the user resource. Every route sits behind
// auth.JWTMiddleware; mutating routes also re-check the role here.
type Handlers struct {
	Repo   Repository
	Logger *slog.Logger
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// List returns every user to full-access roles and only Staff users to
// restricted roles.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	scope, err := auth.ListingScope(p.Role)
	if err != nil {
		auth.WriteAuthError(w, err)
		return
	}
	list, err := h.Repo.List(r.Context(), ListFilter{Role: scope})
	if err != nil {
		h.writeError(w, err)
		return
	}
	views := make([]View, 0, len(list))
	for _, u := range list {
		views = append(views, NewView(u))
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
		httpx.Unauthorized(w)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := h.Repo.FindByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, NewView(*u))
}

type createRequest struct {
	Username string  `json:"username"`
	Password *string `json:"password"`
	Role     string  `json:"role"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	if !h.canMutate(w, r) {
		return
	}
	var req createRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		badRequest(w, "username is required")
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	nu := NewUser{Username: req.Username, Role: role}
	if req.Password != nil {
		nu.Password = *req.Password
	}
	if req.Email != nil {
		nu.Email = *req.Email
	}
	if req.Phone != nil {
		nu.Phone = *req.Phone
	}

	u, err := h.Repo.Create(r.Context(), nu)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger().Info("user created", "id", u.ID, "role", u.Role)
	w.Header().Set("Location", fmt.Sprintf("/User/%d", u.ID))
	httpx.WriteJSON(w, http.StatusCreated, NewView(*u))
}

type updateRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
}

// Update applies a partial change. Blank username or password values are
// ignored; email and phone are replaced whenever present, even if empty.
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	if !h.canMutate(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	up := Update{Email: req.Email, Phone: req.Phone}
	if req.Username != nil && strings.TrimSpace(*req.Username) != "" {
		up.Username = req.Username
	}
	if req.Password != nil && strings.TrimSpace(*req.Password) != "" {
		up.Password = req.Password
	}
	if req.Role != nil {
		role, err := auth.ParseRole(*req.Role)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		up.Role = &role
	}

	if err := h.Repo.Update(r.Context(), id, up); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.canMutate(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.logger().Info("user deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) canMutate(w http.ResponseWriter, r *http.Request) bool {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return false
	}
	if err := auth.RequireMutation(p.Role); err != nil {
		auth.WriteAuthError(w, err)
		return false
	}
	return true
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		httpx.WriteError(w, httpx.ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Message: "user not found"})
	case errors.Is(err, ErrUsernameTaken):
		httpx.WriteError(w, httpx.ErrorParams{Code: http.StatusBadRequest, ErrCode: "conflict", Message: "username already exists"})
	case errors.Is(err, ErrInvalidUser):
		badRequest(w, err.Error())
	default:
		h.logger().Error("user store", "err", err)
		httpx.WriteError(w, httpx.ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal"})
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid user id")
		return 0, false
	}
	return id, true
}

func badRequest(w http.ResponseWriter, msg string) {
	httpx.WriteError(w, httpx.ErrorParams{Code: http.StatusBadRequest, ErrCode: "bad_request", Message: msg})
}
