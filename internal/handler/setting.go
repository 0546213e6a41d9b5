package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklight/identity-server-go/internal/middleware"
	"github.com/stacklight/identity-server-go/internal/model"
	"github.com/stacklight/identity-server-go/internal/service"
)

type SettingHandler struct {
	settingService *service.SettingService
	auth           *middleware.AuthMiddleware
}

func NewSettingHandler(settingService *service.SettingService, auth *middleware.AuthMiddleware) *SettingHandler {
	return &SettingHandler{
		settingService: settingService,
		auth:           auth,
	}
}

func (h *SettingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(h.auth.Handler, h.auth.RequireAdmin)
	r.Get("/security", h.GetSecurity)
	r.Put("/security", h.UpdateSecurity)
	r.Put("/oauth/{provider}", h.UpsertOAuthCredential)
	r.Delete("/oauth/{provider}", h.DeleteOAuthCredential)

	return r
}

// GET /v1/settings/security
func (h *SettingHandler) GetSecurity(w http.ResponseWriter, r *http.Request) {
	setting, err := h.settingService.GetSecurity(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, setting)
}

type securitySettingBody struct {
	AllowedRegisterDomains *string `json:"allowedRegisterDomains,omitempty"`
	DisableInvitationCheck *bool   `json:"disableInvitationCheck,omitempty"`
}

// PUT /v1/settings/security
func (h *SettingHandler) UpdateSecurity(w http.ResponseWriter, r *http.Request) {
	var req securitySettingBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	setting, err := h.settingService.UpdateSecurity(r.Context(), model.UpdateSecuritySettingParams{
		AllowedRegisterDomains: req.AllowedRegisterDomains,
		DisableInvitationCheck: req.DisableInvitationCheck,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, setting)
}

type oauthCredentialBody struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// PUT /v1/settings/oauth/{provider}
func (h *SettingHandler) UpsertOAuthCredential(w http.ResponseWriter, r *http.Request) {
	var req oauthCredentialBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	cred, err := h.settingService.UpsertOAuthCredential(r.Context(), chi.URLParam(r, "provider"), req.ClientID, req.ClientSecret)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cred)
}

// DELETE /v1/settings/oauth/{provider}
func (h *SettingHandler) DeleteOAuthCredential(w http.ResponseWriter, r *http.Request) {
	if err := h.settingService.DeleteOAuthCredential(r.Context(), chi.URLParam(r, "provider")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Credential removed"})
}
