package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dstrelow/gallerygate/internal/auth"
	"github.com/dstrelow/gallerygate/internal/models"
	pkghttp "github.com/dstrelow/gallerygate/pkg/http"
)

// AuthServiceInterface defines the interface for the login/logout flows
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password, address, userAgent string) (*models.Session, error)
	Logout(ctx context.Context, session *models.Session) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{service: service, ipConfig: ipConfig}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required"`
}

// SessionResponse represents an issued or inspected session
type SessionResponse struct {
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
}

// Login authenticates credentials and issues a session token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))

	address := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	session, err := h.service.Login(r.Context(), req.Username, req.Password, address, userAgent)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidLogin):
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		case errors.Is(err, models.ErrLoginLocked):
			pkghttp.WriteTooManyRequests(w, "Too many failed login attempts. Please try again later.")
		case errors.Is(err, models.ErrClientBanned):
			pkghttp.WriteForbidden(w, "Access denied")
		case errors.Is(err, models.ErrInvalidInput):
			pkghttp.WriteBadRequest(w, "Invalid username or address")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		Token:     session.Code,
		ExpiresAt: session.ExpiresAt,
		Username:  session.Account.Username,
		FullName:  session.Account.FullName,
	})
}

// Logout revokes the authenticated session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := auth.RequireSession(r.Context())
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), session); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Session returns a summary of the authenticated principal
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		ExpiresAt: principal.Session.ExpiresAt,
		Username:  principal.Account.Username,
		FullName:  principal.Account.FullName,
	})
}
