package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/middleware"
	"github.com/stacklight/identity-server-go/internal/service"
)

type InvitationHandler struct {
	invitationService *service.InvitationService
	auth              *middleware.AuthMiddleware
}

func NewInvitationHandler(invitationService *service.InvitationService, auth *middleware.AuthMiddleware) *InvitationHandler {
	return &InvitationHandler{
		invitationService: invitationService,
		auth:              auth,
	}
}

func (h *InvitationHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Self-service flow, no authentication
	r.Get("/self-service", h.SelfService)
	r.Post("/request", h.RequestForSelf)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Handler, h.auth.RequireAdmin)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Delete("/{id}", h.Delete)
	})

	return r
}

type invitationBody struct {
	Email string `json:"email"`
}

// GET /v1/invitations
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageWindow(r)

	invitations, err := h.invitationService.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"invitations": invitations})
}

// POST /v1/invitations
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req invitationBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	invitation, err := h.invitationService.Create(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, invitation)
}

// DELETE /v1/invitations/{id}
func (h *InvitationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, apperrors.InvalidInput("id", "must be an integer"))
		return
	}

	if err := h.invitationService.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Invitation deleted"})
}

// GET /v1/invitations/self-service
func (h *InvitationHandler) SelfService(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.invitationService.SelfServiceEnabled(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

// POST /v1/invitations/request
func (h *InvitationHandler) RequestForSelf(w http.ResponseWriter, r *http.Request) {
	var req invitationBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.invitationService.RequestForSelf(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Invitation email sent",
	})
}
