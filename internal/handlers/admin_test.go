package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dstrelow/gallerygate/internal/handlers"
	"github.com/dstrelow/gallerygate/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockLogReader scripts audit log queries
type MockLogReader struct {
	entries      []*models.LogEntry
	lastSeverity string
	lastLimit    int
}

func (m *MockLogReader) GetBySeverity(ctx context.Context, severity string, limit, offset int) ([]*models.LogEntry, error) {
	m.lastSeverity = severity
	m.lastLimit = limit
	return m.entries, nil
}

func (m *MockLogReader) GetByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*models.LogEntry, error) {
	return m.entries, nil
}

type MockAccountReader struct {
	account *models.Account
}

func (m *MockAccountReader) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if m.account == nil {
		return nil, models.ErrNotFound
	}
	return m.account, nil
}

type MockSessionReader struct {
	sessions []*models.Session
}

func (m *MockSessionReader) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Session, error) {
	return m.sessions, nil
}

type MockBanReader struct {
	bans []*models.BanEntry
}

func (m *MockBanReader) BanEntries(ctx context.Context, id uuid.UUID) ([]*models.BanEntry, error) {
	return m.bans, nil
}

func adminRouter(logs *MockLogReader, accounts *MockAccountReader, sessions *MockSessionReader, bans *MockBanReader) http.Handler {
	handler := handlers.NewAdminHandler(logs, accounts, sessions, bans)

	r := chi.NewRouter()
	r.Get("/admin/logs", handler.Logs)
	r.Get("/admin/accounts/{id}/logs", handler.RequesterLogs)
	r.Get("/admin/accounts/{id}/sessions", handler.AccountSessions)
	r.Get("/admin/clients/{id}/bans", handler.ClientBans)
	return r
}

func TestAdminLogs_BySeverity(t *testing.T) {
	username := "ansel"
	logs := &MockLogReader{entries: []*models.LogEntry{
		{
			ID:                uuid.New(),
			Severity:          models.SeveritySuspicious,
			Source:            models.SourceExternal,
			Action:            "login failed",
			RequesterUsername: &username,
			CreatedAt:         time.Now(),
		},
	}}
	router := adminRouter(logs, &MockAccountReader{}, &MockSessionReader{}, &MockBanReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/logs?severity=suspicious&limit=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SeveritySuspicious, logs.lastSeverity)
	assert.Equal(t, 10, logs.lastLimit)

	var out []handlers.LogEntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "login failed", out[0].Action)
	assert.Equal(t, "ansel", *out[0].RequesterUsername)
}

func TestAdminLogs_RejectsUnknownSeverity(t *testing.T) {
	router := adminRouter(&MockLogReader{}, &MockAccountReader{}, &MockSessionReader{}, &MockBanReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/logs?severity=catastrophic", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRequesterLogs_UnknownAccount(t *testing.T) {
	router := adminRouter(&MockLogReader{}, &MockAccountReader{}, &MockSessionReader{}, &MockBanReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/accounts/"+uuid.NewString()+"/logs", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRequesterLogs_InvalidID(t *testing.T) {
	router := adminRouter(&MockLogReader{}, &MockAccountReader{}, &MockSessionReader{}, &MockBanReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/accounts/not-a-uuid/logs", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminAccountSessions(t *testing.T) {
	sessions := &MockSessionReader{sessions: []*models.Session{
		{ID: uuid.New(), CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)},
		{ID: uuid.New(), CreatedAt: time.Now(), ExpiresAt: time.Now().Add(2 * time.Hour)},
	}}
	router := adminRouter(&MockLogReader{}, &MockAccountReader{}, sessions, &MockBanReader{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/accounts/"+uuid.NewString()+"/sessions", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var out []handlers.SessionSummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out, 2)
}

func TestAdminClientBans(t *testing.T) {
	clientID := uuid.New()
	bans := &MockBanReader{bans: []*models.BanEntry{
		{ID: uuid.New(), ClientID: clientID, Reason: "excessive failed login attempts", CreatedAt: time.Now()},
	}}
	router := adminRouter(&MockLogReader{}, &MockAccountReader{}, &MockSessionReader{}, bans)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/clients/"+clientID.String()+"/bans", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var out []handlers.BanEntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "excessive failed login attempts", out[0].Reason)
}
