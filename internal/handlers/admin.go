package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dstrelow/gallerygate/internal/models"
	pkghttp "github.com/dstrelow/gallerygate/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// LogEntryReader serves audit log inspection queries
type LogEntryReader interface {
	GetBySeverity(ctx context.Context, severity string, limit, offset int) ([]*models.LogEntry, error)
	GetByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*models.LogEntry, error)
}

// AccountReader resolves accounts for admin lookups
type AccountReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// SessionReader lists sessions for admin inspection
type SessionReader interface {
	FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Session, error)
}

// BanReader lists ban history for a client
type BanReader interface {
	BanEntries(ctx context.Context, id uuid.UUID) ([]*models.BanEntry, error)
}

// AdminHandler serves the privileged inspection endpoints
type AdminHandler struct {
	logs     LogEntryReader
	accounts AccountReader
	sessions SessionReader
	clients  BanReader
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(logs LogEntryReader, accounts AccountReader, sessions SessionReader, clients BanReader) *AdminHandler {
	return &AdminHandler{
		logs:     logs,
		accounts: accounts,
		sessions: sessions,
		clients:  clients,
	}
}

// LogEntryResponse is the admin view of one audit log entry
type LogEntryResponse struct {
	ID                uuid.UUID `json:"id"`
	Severity          string    `json:"severity"`
	Source            string    `json:"source"`
	Method            string    `json:"method"`
	Action            string    `json:"action"`
	RequesterUsername *string   `json:"requester_username,omitempty"`
	Address           *string   `json:"address,omitempty"`
	UserAgent         *string   `json:"user_agent,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// SessionSummaryResponse is the admin view of one session
type SessionSummaryResponse struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BanEntryResponse is the admin view of one ban record
type BanEntryResponse struct {
	ID        uuid.UUID `json:"id"`
	ClientID  uuid.UUID `json:"client_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Logs lists audit log entries filtered by severity
func (h *AdminHandler) Logs(w http.ResponseWriter, r *http.Request) {
	severity := r.URL.Query().Get("severity")
	switch severity {
	case models.SeverityDebug, models.SeverityInfo, models.SeveritySuspicious, models.SeverityError:
	default:
		pkghttp.WriteBadRequest(w, "Unknown severity")
		return
	}

	limit, offset := paginationParams(r)

	entries, err := h.logs.GetBySeverity(r.Context(), severity, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toLogEntryResponses(entries))
}

// RequesterLogs lists audit log entries recorded for one account
func (h *AdminHandler) RequesterLogs(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid account id")
		return
	}

	if _, err := h.accounts.FindByID(r.Context(), accountID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	limit, offset := paginationParams(r)

	entries, err := h.logs.GetByRequester(r.Context(), accountID, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, toLogEntryResponses(entries))
}

// AccountSessions lists the live sessions held by one account
func (h *AdminHandler) AccountSessions(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid account id")
		return
	}

	sessions, err := h.sessions.FindByAccount(r.Context(), accountID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	out := make([]SessionSummaryResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionSummaryResponse{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}

	pkghttp.WriteJSON(w, http.StatusOK, out)
}

// ClientBans lists the ban history of one client
func (h *AdminHandler) ClientBans(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid client id")
		return
	}

	bans, err := h.clients.BanEntries(r.Context(), clientID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	out := make([]BanEntryResponse, 0, len(bans))
	for _, b := range bans {
		out = append(out, BanEntryResponse{
			ID:        b.ID,
			ClientID:  b.ClientID,
			Reason:    b.Reason,
			CreatedAt: b.CreatedAt,
		})
	}

	pkghttp.WriteJSON(w, http.StatusOK, out)
}

func paginationParams(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

func toLogEntryResponses(entries []*models.LogEntry) []LogEntryResponse {
	out := make([]LogEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LogEntryResponse{
			ID:                e.ID,
			Severity:          e.Severity,
			Source:            e.Source,
			Method:            e.Method,
			Action:            e.Action,
			RequesterUsername: e.RequesterUsername,
			Address:           e.Address,
			UserAgent:         e.UserAgent,
			CreatedAt:         e.CreatedAt,
		})
	}
	return out
}
