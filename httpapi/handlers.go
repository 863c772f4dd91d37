// Package httpapi exposes the authentication service over HTTP. Handlers
// decode requests, call the service, and map its error taxonomy to status
// codes; all authentication decisions live in the service and the
// middleware filter.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	authd "github.com/blogforge/authd"
	"github.com/blogforge/authd/middleware"
	"github.com/blogforge/authd/session"
)

// Handler serves the /auth/* routes.
type Handler struct {
	svc    *authd.Service
	logger *slog.Logger
}

// NewHandler returns a Handler over svc. A nil logger falls back to
// [slog.Default].
func NewHandler(svc *authd.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the auth routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/signup", h.signup)
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("POST /auth/refresh", h.refresh)
	mux.HandleFunc("POST /auth/logout", h.logout)
	mux.HandleFunc("GET /auth/oauth-success", h.oauthSuccess)
	mux.HandleFunc("GET /auth/user", h.currentUser)
}

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// userResponse is the sanitized account view. It never carries the
// password hash.
type userResponse struct {
	ID            string   `json:"id"`
	Username      string   `json:"username,omitempty"`
	DisplayName   string   `json:"displayName,omitempty"`
	Email         string   `json:"email,omitempty"`
	Roles         []string `json:"roles"`
	OAuthProvider string   `json:"oauthProvider,omitempty"`
	ProfileImage  string   `json:"profileImage,omitempty"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if _, err := h.svc.Signup(r.Context(), authd.SignupRequest{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	}); err != nil {
		if errors.Is(err, authd.ErrDuplicateUsername) {
			writeError(w, http.StatusBadRequest, "username already registered")
			return
		}
		h.serviceError(w, r, "signup", err)
		return
	}

	// The account record is not echoed back; GET /auth/user serves it once
	// the client holds a token.
	writeJSON(w, http.StatusCreated, messageResponse{Message: "signup successful"})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	pair, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		// Unknown handle and wrong password are indistinguishable to the
		// client.
		if errors.Is(err, authd.ErrUserNotFound) || errors.Is(err, authd.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "credentials do not match")
			return
		}
		h.serviceError(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	access, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrUnavailable) {
			h.serviceError(w, r, "refresh", err)
			return
		}
		// Every refresh rejection reads the same to the client; the reason
		// goes to the log.
		h.logger.InfoContext(r.Context(), "refresh rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "refresh token rejected")
		return
	}

	writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: access})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.svc.Logout(r.Context(), principal.Subject); err != nil {
		if errors.Is(err, authd.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h.serviceError(w, r, "logout", err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "logout successful"})
}

// oauthSuccess completes a federated login: the frontend finishes the
// provider flow and presents the provider access token as a bearer
// credential here. The route is on the filter's bypass list, so the token
// reaches the handler unparsed.
func (h *Handler) oauthSuccess(w http.ResponseWriter, r *http.Request) {
	providerToken, ok := middleware.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "provider token required")
		return
	}

	pair, err := h.svc.ExchangeProviderToken(r.Context(), providerToken)
	if err != nil {
		switch {
		case errors.Is(err, authd.ErrProviderTokenInvalid):
			writeError(w, http.StatusUnauthorized, "provider token rejected")
		case errors.Is(err, authd.ErrProviderUnavailable):
			h.logger.ErrorContext(r.Context(), "federated provider unavailable", "error", err)
			writeError(w, http.StatusBadGateway, "provider unavailable")
		default:
			h.serviceError(w, r, "oauth-success", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || principal.User == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, sanitizeUser(principal.User))
}

func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), op+" failed", "error", err)
	if errors.Is(err, session.ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func sanitizeUser(u *authd.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		Email:         u.Email,
		Roles:         u.Roles,
		OAuthProvider: u.OAuthProvider,
		ProfileImage:  u.ProfileImage,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
