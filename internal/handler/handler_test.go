package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dakghar-dev/postal-portal/backend/internal/config"
	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
	"github.com/dakghar-dev/postal-portal/backend/internal/repository"
	"github.com/dakghar-dev/postal-portal/backend/internal/token"
)

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.Environment = "test"
	cfg.Database.QueryTimeout = 5
	cfg.JWT.AccessSecret = "test-access-secret"
	cfg.JWT.RefreshSecret = "test-refresh-secret"
	cfg.JWT.AccessExpiration = 900
	cfg.JWT.RefreshExpiration = 604800
	cfg.Metrics.LockCutoff = "23:59"
	cfg.Metrics.Timezone = "UTC"
	cfg.Audit.RetentionDays = 365

	repo := repository.NewRepository(cfg, db)
	h, err := NewHandler(cfg, repo, token.NewService(cfg), nil, nil)
	require.NoError(t, err)
	h.RegisterRoutes()

	return h, mock
}

func accessCookie(t *testing.T, h *Handler, roles ...domain.Role) *http.Cookie {
	t.Helper()

	assignments := make([]domain.RoleAssignment, 0, len(roles))
	for _, role := range roles {
		assignments = append(assignments, domain.RoleAssignment{
			Role:      role,
			IsActive:  true,
			ValidFrom: time.Now().Add(-time.Hour),
		})
	}
	user := &domain.User{ID: 42, Email: "clerk@indiapost.gov.in", IsActive: true, Roles: assignments}

	access, _, err := h.tokens.IssuePair(user)
	require.NoError(t, err)

	return &http.Cookie{Name: "accessToken", Value: access}
}

// expectCurrentUser queues the two lookups the heavy verification path makes
// for the token subject: the user row and its role assignments.
func expectCurrentUser(mock sqlmock.Sqlmock, role domain.Role) {
	now := time.Now()
	mock.ExpectQuery("FROM users").
		WillReturnRows(sqlmock.NewRows([]string{
			"email", "employee_id", "first_name", "last_name", "phone", "department", "password_hash",
			"is_active", "email_verified", "last_login_at", "created_at", "updated_at", "version",
		}).AddRow("clerk@indiapost.gov.in", "EMP000042", "Asha", "Verma", "", "Counter Services", "not-a-real-hash",
			true, true, nil, now, now, 1))
	mock.ExpectQuery("FROM user_roles").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "role", "office_id", "delivery_center_id", "permissions", "is_active", "valid_from", "valid_until",
		}).AddRow(1, string(role), nil, nil, []byte(`[]`), true, now.Add(-time.Hour), nil))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAuthGateRejectsMissingToken(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeUnauthorized, resp.Error.Code)
}

func TestAuthGateRedirectsBrowsers(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login?from=%2Faudit", rec.Header().Get("Location"))
}

func TestAuthGateRedirectKeepsQueryString(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/audit?page=2&action=LOGIN", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login?from=%2Faudit%3Fpage%3D2%26action%3DLOGIN", rec.Header().Get("Location"))
}

func TestAuthGateRejectsTamperedToken(t *testing.T) {
	h, _ := newTestHandler(t)

	cookie := accessCookie(t, h, domain.RoleAdmin)
	cookie.Value += "x"

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequiredRoleForbidsNonAdmins(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	req.AddCookie(accessCookie(t, h, domain.RoleOfficeUser))
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeForbidden, resp.Error.Code)
}

func TestGetAuditLogs(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("FROM audit_logs").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "entity_type", "entity_id", "action", "user_id", "user_email",
			"changes", "ip_address", "request_id", "endpoint", "method", "retention_date", "created_at",
		}).AddRow(1, "User", "42", "LOGIN", 42, "clerk@indiapost.gov.in",
			[]byte(`[]`), "127.0.0.1:1234", "req-1", "/auth/login", "POST", time.Now(), time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	req.AddCookie(accessCookie(t, h, domain.RoleAdmin))
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateUser(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	body := `{
		"firstName": "Asha",
		"lastName": "Verma",
		"email": "clerk@indiapost.gov.in",
		"employeeId": "EMP000042",
		"department": "Counter Services",
		"password": "changeme123"
	}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeUserExists, resp.Error.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownEmail(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery("FROM users").
		WillReturnError(sql.ErrNoRows)

	body := `{"email":"ghost@indiapost.gov.in","password":"whatever123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidCredentials, resp.Error.Code)
}

func TestLoginValidationError(t *testing.T) {
	h, _ := newTestHandler(t)

	body := `{"email":"not-an-email","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeValidationError, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Details)
}

func TestLogoutWithoutSession(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	// logout never fails, even with no session at all
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if c.Name == "accessToken" || c.Name == "refreshToken" {
			assert.Empty(t, c.Value)
			cleared++
		}
	}
	assert.Equal(t, 2, cleared)
}

func TestHealthDatabaseDown(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "disconnected", data["database"])
}

func TestHealthDatabaseUp(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectPing()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "connected", data["database"])
}
