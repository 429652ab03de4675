package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dstrelow/gallerygate/internal/auth"
	"github.com/dstrelow/gallerygate/internal/handlers"
	"github.com/dstrelow/gallerygate/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAuthService scripts login/logout outcomes
type MockAuthService struct {
	loginErr    error
	session     *models.Session
	loggedOut   []uuid.UUID
	lastAddress string
	lastAgent   string
}

func (m *MockAuthService) Login(ctx context.Context, username, password, address, userAgent string) (*models.Session, error) {
	m.lastAddress = address
	m.lastAgent = userAgent
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.session, nil
}

func (m *MockAuthService) Logout(ctx context.Context, session *models.Session) error {
	m.loggedOut = append(m.loggedOut, session.ID)
	return nil
}

func sampleSession() *models.Session {
	account := &models.Account{ID: uuid.New(), Username: "ansel", FullName: "Ansel Adams"}
	client := &models.Client{ID: uuid.New(), Address: "10.0.0.7"}
	now := time.Now()
	return &models.Session{
		ID:        uuid.New(),
		Code:      "0123456789abcdef",
		AccountID: account.ID,
		ClientID:  client.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
		Account:   account,
		Client:    client,
	}
}

func loginRequest(t *testing.T, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	return req
}

func TestLoginHandler_Success(t *testing.T) {
	service := &MockAuthService{session: sampleSession()}
	handler := handlers.NewAuthHandler(service, nil)

	rec := httptest.NewRecorder()
	handler.Login(rec, loginRequest(t, map[string]string{"username": "Ansel", "password": "opensesame"}))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "0123456789abcdef", resp.Token)
	assert.Equal(t, "ansel", resp.Username)
	assert.Equal(t, "Mozilla/5.0", service.lastAgent)
}

func TestLoginHandler_InvalidBody(t *testing.T) {
	handler := handlers.NewAuthHandler(&MockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_MissingFields(t *testing.T) {
	handler := handlers.NewAuthHandler(&MockAuthService{}, nil)

	rec := httptest.NewRecorder()
	handler.Login(rec, loginRequest(t, map[string]string{"username": "ansel"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid credentials", models.ErrInvalidLogin, http.StatusUnauthorized},
		{"attempt limit", models.ErrLoginLocked, http.StatusTooManyRequests},
		{"banned client", models.ErrClientBanned, http.StatusForbidden},
		{"bad cache key", models.ErrInvalidInput, http.StatusBadRequest},
		{"store outage", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := handlers.NewAuthHandler(&MockAuthService{loginErr: tt.err}, nil)

			rec := httptest.NewRecorder()
			handler.Login(rec, loginRequest(t, map[string]string{"username": "ansel", "password": "x"}))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestLogoutHandler_RequiresPrincipal(t *testing.T) {
	handler := handlers.NewAuthHandler(&MockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutHandler_DeletesSession(t *testing.T) {
	service := &MockAuthService{}
	handler := handlers.NewAuthHandler(service, nil)

	session := sampleSession()
	ctx := auth.WithPrincipal(context.Background(), &auth.Principal{
		Account: session.Account,
		Session: session,
		Client:  session.Client,
		Token:   session.Code,
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, service.loggedOut, 1)
	assert.Equal(t, session.ID, service.loggedOut[0])
}

func TestSessionHandler_ReturnsPrincipalSummary(t *testing.T) {
	handler := handlers.NewAuthHandler(&MockAuthService{}, nil)

	session := sampleSession()
	ctx := auth.WithPrincipal(context.Background(), &auth.Principal{
		Account: session.Account,
		Session: session,
		Client:  session.Client,
		Token:   session.Code,
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.Session(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ansel", resp.Username)
	assert.Empty(t, resp.Token, "session inspection never echoes the token")
}
