package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/middleware"
	"github.com/stacklight/identity-server-go/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	userService *service.UserService
	auth        *middleware.AuthMiddleware
	limiter     *middleware.RedisRateLimiter
	loginLimit  int
	resetLimit  int
}

func NewAuthHandler(
	authService *service.AuthService,
	userService *service.UserService,
	auth *middleware.AuthMiddleware,
	limiter *middleware.RedisRateLimiter,
	loginLimit, resetLimit int,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		auth:        auth,
		limiter:     limiter,
		loginLimit:  loginLimit,
		resetLimit:  resetLimit,
	}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.With(h.limiter.LimitByIP("login", h.loginLimit)).Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.With(h.limiter.LimitByIP("reset", h.resetLimit)).Post("/password-reset/request", h.RequestPasswordReset)
	r.Post("/password-reset", h.ResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Handler)
		r.Get("/me", h.Me)
		r.Post("/auth-token/reset", h.ResetAuthToken)
	})

	return r
}

type registerRequest struct {
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	InvitationCode *string `json:"invitationCode,omitempty"`
}

// POST /v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	pair, err := h.authService.Register(r.Context(), req.Email, req.Password, req.InvitationCode)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pair)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	pair, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// POST /v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RefreshToken == "" {
		writeError(w, apperrors.MissingRequired("refreshToken"))
		return
	}

	pair, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

type passwordResetRequestBody struct {
	Email string `json:"email"`
}

// POST /v1/auth/password-reset/request
//
// Answers 202 whether or not the email has an account; only a repeat
// request inside the cooldown window surfaces an error.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequestBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" {
		writeError(w, apperrors.MissingRequired("email"))
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "If the account exists, a reset email has been sent",
	})
}

type passwordResetBody struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

// POST /v1/auth/password-reset
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordResetBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Code == "" {
		writeError(w, apperrors.MissingRequired("code"))
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Code, req.Password); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// GET /v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	user, err := h.userService.GetByEmail(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// POST /v1/auth/auth-token/reset
func (h *AuthHandler) ResetAuthToken(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	if err := h.authService.ResetUserAuthToken(r.Context(), claims.Subject); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Auth token rotated"})
}
