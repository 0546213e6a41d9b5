package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/middleware"
	"github.com/stacklight/identity-server-go/internal/service"
)

type UserHandler struct {
	userService *service.UserService
	auth        *middleware.AuthMiddleware
}

func NewUserHandler(userService *service.UserService, auth *middleware.AuthMiddleware) *UserHandler {
	return &UserHandler{
		userService: userService,
		auth:        auth,
	}
}

func (h *UserHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(h.auth.Handler, h.auth.RequireAdmin)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/role", h.UpdateRole)
	r.Put("/{id}/active", h.UpdateActive)

	return r
}

// GET /v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageWindow(r)

	users, err := h.userService.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// GET /v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type roleBody struct {
	IsAdmin bool `json:"isAdmin"`
}

// PUT /v1/users/{id}/role
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req roleBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.userService.UpdateRole(r.Context(), id, req.IsAdmin); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Role updated"})
}

type activeBody struct {
	Active bool `json:"active"`
}

// PUT /v1/users/{id}/active
func (h *UserHandler) UpdateActive(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req activeBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.userService.UpdateActive(r.Context(), id, req.Active); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Account status updated"})
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput("id", "must be an integer")
	}
	return id, nil
}
