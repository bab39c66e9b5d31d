package api

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskfolio/taskfolio/pkg/auth"
)

func TestProtectedRoutesRequireAuthentication(t *testing.T) {
	server, _ := newMockServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/me"},
		{http.MethodGet, "/api/v1/projects"},
		{http.MethodGet, "/api/v1/team/members"},
		{http.MethodPost, "/api/v1/invitations/some-token/accept"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			req := httptest.NewRequest(p.method, p.path, nil)
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

// TestFullChain exercises the whole middleware chain for one request: token
// authentication, role resolution, and the handler.
func TestFullChain(t *testing.T) {
	server, mock := newMockServer(t)

	token, tokenHash, tokenPrefix, err := auth.NewTokenGenerator().GenerateToken()
	require.NoError(t, err)

	tokenColumns := []string{
		"id", "user_id", "token_prefix", "name", "expires_at", "last_used_at",
		"created_at", "revoked_at", "email", "full_name", "is_active", "u_created_at",
	}
	mock.ExpectQuery(`FROM api_tokens t\s+JOIN users u ON u\.id = t\.user_id`).
		WithArgs(tokenHash).
		WillReturnRows(sqlmock.NewRows(tokenColumns).AddRow(
			7, ownerID, tokenPrefix, "ci", nil, nil,
			time.Now(), nil, "owner@example.com", "Owner", true, time.Now(),
		))
	mock.ExpectExec(`UPDATE api_tokens SET last_used_at = NOW\(\)`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Role resolution: owns a project, so the membership lookup for account
	// scope finds nothing and the scope stays the caller's own id.
	mock.ExpectQuery(ownershipQuery).WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(membershipQuery).WithArgs(ownerID).
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Role      string `json:"role"`
		AccountID int64  `json:"account_id"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "owner", resp.Role)
	assert.Equal(t, ownerID, resp.AccountID)
	require.NoError(t, mock.ExpectationsWereMet())
}
