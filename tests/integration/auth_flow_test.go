package integration

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstrelow/gallerygate/internal/models"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	if os.Getenv("SKIP_INTEGRATION") != "" {
		os.Exit(0)
	}

	ctx := context.Background()

	var err error
	testDB, err = SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up test database: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	testDB.Teardown(ctx)
	os.Exit(code)
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
}

func TestLoginFlow_Success(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.CleanupTables(ctx))

	account, err := SeedAccount(ctx, testDB.Pool, "alice", "CorrectHorse1!")
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	resp, err := ts.PostJSON("/auth/login", map[string]string{
		"username": "alice",
		"password": "CorrectHorse1!",
	}, "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session sessionResponse
	require.NoError(t, DecodeJSON(resp, &session))

	assert.Len(t, session.Token, 64)
	assert.Equal(t, account.Username, session.Username)
	// Login arrived with a user agent, so the long expiry applies
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), session.ExpiresAt, time.Minute)

	// The issued token passes the gate
	sessResp, err := ts.Get("/auth/session", session.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, sessResp.StatusCode)

	var summary sessionResponse
	require.NoError(t, DecodeJSON(sessResp, &summary))
	assert.Equal(t, "alice", summary.Username)
	assert.Empty(t, summary.Token, "session summary must not echo the token")
}

func TestLoginFlow_WrongPassword(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.CleanupTables(ctx))

	_, err := SeedAccount(ctx, testDB.Pool, "bob", "RightPassword1!")
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	resp, err := ts.PostJSON("/auth/login", map[string]string{
		"username": "bob",
		"password": "WrongPassword1!",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// The failed attempt lands in the client's counters
	var failedLogins int
	err = testDB.Pool.QueryRow(ctx,
		`SELECT failed_logins FROM clients LIMIT 1`).Scan(&failedLogins)
	require.NoError(t, err)
	assert.Equal(t, 1, failedLogins)
}

func TestLoginFlow_UnknownUserIndistinguishable(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.CleanupTables(ctx))

	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	resp, err := ts.PostJSON("/auth/login", map[string]string{
		"username": "nobody",
		"password": "Whatever1!",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginFlow_LockoutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.CleanupTables(ctx))

	_, err := SeedAccount(ctx, testDB.Pool, "carol", "RightPassword1!")
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	for i := 0; i < ts.Config.Auth.MaxFailedAttempts; i++ {
		resp, err := ts.PostJSON("/auth/login", map[string]string{
			"username": "carol",
			"password": "WrongPassword1!",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}

	// Correct credentials are refused while the lock holds
	resp, err := ts.PostJSON("/auth/login", map[string]string{
		"username": "carol",
		"password": "RightPassword1!",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()

	// Clearing the attempt cache lifts the lock
	ts.AttemptCache.Clear()

	resp, err = ts.PostJSON("/auth/login", map[string]string{
		"username": "carol",
		"password": "RightPassword1!",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestGate_RejectsMissingAndExpiredTokens(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.CleanupTables(ctx))

	account, err := SeedAccount(ctx, testDB.Pool, "dave", "Password1!")
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	// No token at all
	resp, err := ts.Get("/auth/session", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Unknown token
	resp, err = ts.Get("/auth/session", "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Expired token
	loginResp, err := ts.PostJSON("/auth/login", map[string]string{
		"username": "dave",
		"password": "Password1!",
	}, "")
	require.NoError(t, err)
	var session sessionResponse
	require.NoError(t, DecodeJSON(loginResp, &session))

	var clientID string
	require.NoError(t, testDB.Pool.QueryRow(ctx, `SELECT id FROM clients LIMIT 1`).Scan(&clientID))

	expiredCode := "0000000000000000000000000000000000000000000000000000000000000000"
	_, err = testDB.Pool.Exec(ctx, `
		INSERT INTO sessions (code, account_id, client_id, created_at, expires_at)
		VALUES ($1, $2, $3::uuid, NOW() - INTERVAL '2 hours', NOW() - INTERVAL '1 hour')`,
		expiredCode, account.ID, clientID)
	require.NoError(t, err)

	resp, err = ts.Get("/auth/session", expiredCode)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestLogout_RevokesSession(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.CleanupTables(ctx))

	_, err := SeedAccount(ctx, testDB.Pool, "erin", "Password1!")
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	loginResp, err := ts.PostJSON("/auth/login", map[string]string{
		"username": "erin",
		"password": "Password1!",
	}, "")
	require.NoError(t, err)
	var session sessionResponse
	require.NoError(t, DecodeJSON(loginResp, &session))

	resp, err := ts.PostJSON("/auth/logout", struct{}{}, session.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// The revoked token no longer passes the gate
	resp, err = ts.Get("/auth/session", session.Token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminEndpoints_PrivilegeGated(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.CleanupTables(ctx))

	_, err := SeedAccountWithPrivileges(ctx, testDB.Pool, "root", "Password1!",
		models.PrivilegeViewer|models.PrivilegeAdmin)
	require.NoError(t, err)
	_, err = SeedAccount(ctx, testDB.Pool, "plain", "Password1!")
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	login := func(username string) string {
		resp, err := ts.PostJSON("/auth/login", map[string]string{
			"username": username,
			"password": "Password1!",
		}, "")
		require.NoError(t, err)
		var session sessionResponse
		require.NoError(t, DecodeJSON(resp, &session))
		return session.Token
	}

	adminToken := login("root")
	plainToken := login("plain")

	resp, err := ts.Get("/admin/logs?severity=info", adminToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = ts.Get("/admin/logs?severity=info", plainToken)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestAuditTrail_PersistedPerRequest(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.CleanupTables(ctx))

	_, err := SeedAccount(ctx, testDB.Pool, "frank", "Password1!")
	require.NoError(t, err)

	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	resp, err := ts.PostJSON("/auth/login", map[string]string{
		"username": "frank",
		"password": "WrongPassword1!",
	}, "")
	require.NoError(t, err)
	resp.Body.Close()

	// The batch flushes when the request finishes; poll for it
	assert.Eventually(t, func() bool {
		var count int
		if err := testDB.Pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM log_entries WHERE severity = 'suspicious'`).Scan(&count); err != nil {
			return false
		}
		return count >= 1
	}, 5*time.Second, 50*time.Millisecond)

	var action string
	require.NoError(t, testDB.Pool.QueryRow(ctx,
		`SELECT action FROM log_entries WHERE severity = 'suspicious' LIMIT 1`).Scan(&action))
	assert.Contains(t, action, "frank")
}
