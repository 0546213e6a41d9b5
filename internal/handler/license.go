package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/license"
	"github.com/stacklight/identity-server-go/internal/middleware"
)

// Certificates are short JWTs; anything bigger is garbage.
const maxCertificateBytes = 64 * 1024

type LicenseHandler struct {
	licenseService *license.Service
	auth           *middleware.AuthMiddleware
}

func NewLicenseHandler(licenseService *license.Service, auth *middleware.AuthMiddleware) *LicenseHandler {
	return &LicenseHandler{
		licenseService: licenseService,
		auth:           auth,
	}
}

func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(h.auth.Handler)
	r.Get("/", h.Get)
	r.With(h.auth.RequireAdmin).Put("/", h.Update)

	return r
}

// GET /v1/license
func (h *LicenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.licenseService.Read(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if info == nil {
		writeJSON(w, http.StatusOK, map[string]any{"license": nil})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"license": info})
}

// PUT /v1/license
//
// The body is the raw certificate text.
func (h *LicenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCertificateBytes))
	if err != nil {
		writeError(w, apperrors.InvalidInput("body", "could not be read"))
		return
	}

	certText := strings.TrimSpace(string(body))
	if certText == "" {
		writeError(w, apperrors.MissingRequired("certificate"))
		return
	}

	if err := h.licenseService.Update(r.Context(), certText); err != nil {
		writeError(w, err)
		return
	}

	info, err := h.licenseService.Read(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"license": info})
}
