package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/service"
	"github.com/stacklight/identity-server-go/internal/util"
)

type OAuthHandler struct {
	oauthService *service.OAuthService
}

func NewOAuthHandler(oauthService *service.OAuthService) *OAuthHandler {
	return &OAuthHandler{oauthService: oauthService}
}

func (h *OAuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{provider}", h.Redirect)
	r.Get("/{provider}/callback", h.Callback)

	return r
}

// GET /v1/auth/oauth/{provider}
//
// Redirects the browser to the provider's consent page. The state value
// is an opaque nonce echoed back by the provider; the token exchange
// itself is what authenticates the callback.
func (h *OAuthHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	state, err := util.GenerateToken()
	if err != nil {
		writeError(w, apperrors.Internal("Failed to generate state").WithCause(err))
		return
	}

	authURL, err := h.oauthService.AuthURL(r.Context(), provider, state)
	if err != nil {
		writeError(w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// GET /v1/auth/oauth/{provider}/callback
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		log.Warn().Str("provider", provider).Str("error", errParam).Msg("oauth consent denied")
		writeError(w, apperrors.BadCredentials())
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperrors.MissingRequired("code"))
		return
	}

	pair, err := h.oauthService.Signin(r.Context(), provider, code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}
