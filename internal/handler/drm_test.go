package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
)

func drmEntryRow(status domain.DRMStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "entry_number", "office_id", "name", "month", "year", "title", "description",
		"category", "amount", "currency", "status",
		"created_by", "created_at",
		"submitted_by", "submitted_at",
		"scrutinized_by", "scrutinized_at",
		"finalized_by", "finalized_at",
		"rejected_by", "rejected_at", "rejection_reason",
		"updated_at", "version",
	}).AddRow(9, "DRM-2026-000009", 3, "Chennai GPO", 3, 2026, "March revenue reconciliation", "Counter revenue for March",
		"revenue", 125000.0, "INR", string(status),
		42, now,
		nil, nil,
		nil, nil,
		nil, nil,
		nil, nil, nil,
		now, 1)
}

func TestCreateAndGetDRMEntry(t *testing.T) {
	h, mock := newTestHandler(t)
	now := time.Now()

	expectCurrentUser(mock, domain.RoleAdmin)
	mock.ExpectQuery("INSERT INTO drm_entries").
		WillReturnRows(sqlmock.NewRows([]string{"id", "entry_number", "status", "created_at", "updated_at", "version"}).
			AddRow(9, "DRM-2026-000009", "Draft", now, now, 1))
	mock.ExpectQuery("INSERT INTO audit_logs").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))

	body := `{
		"officeId": 3,
		"month": 3,
		"year": 2026,
		"title": "March revenue reconciliation",
		"description": "Counter revenue for March",
		"category": "revenue",
		"amount": 125000
	}`
	req := httptest.NewRequest(http.MethodPost, "/drm", strings.NewReader(body))
	req.AddCookie(accessCookie(t, h, domain.RoleAdmin))
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	created, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "DRM-2026-000009", created["entryNumber"])
	assert.Equal(t, "Draft", created["status"])

	// fetch it back by id
	expectCurrentUser(mock, domain.RoleAdmin)
	mock.ExpectQuery("FROM drm_entries").
		WillReturnRows(drmEntryRow(domain.DRMStatusDraft))

	req = httptest.NewRequest(http.MethodGet, "/drm/9", nil)
	req.AddCookie(accessCookie(t, h, domain.RoleAdmin))
	rec = httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp = decodeResponse(t, rec)
	assert.True(t, resp.Success)

	fetched, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "DRM-2026-000009", fetched["entryNumber"])
	assert.Equal(t, "March revenue reconciliation", fetched["title"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewDRMEntryInvalidTransition(t *testing.T) {
	h, mock := newTestHandler(t)

	expectCurrentUser(mock, domain.RoleAdmin)
	// a Draft cannot be approved, it was never submitted
	mock.ExpectQuery("FROM drm_entries").
		WillReturnRows(drmEntryRow(domain.DRMStatusDraft))

	body := `{"action": "approve"}`
	req := httptest.NewRequest(http.MethodPost, "/drm/9/review", strings.NewReader(body))
	req.AddCookie(accessCookie(t, h, domain.RoleAdmin))
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeValidationError, resp.Error.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDRMEntryStaleVersion(t *testing.T) {
	h, mock := newTestHandler(t)

	expectCurrentUser(mock, domain.RoleAdmin)
	mock.ExpectQuery("FROM drm_entries").
		WillReturnRows(drmEntryRow(domain.DRMStatusDraft))
	mock.ExpectQuery("UPDATE drm_entries").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}))

	body := `{"title": "Amended March reconciliation"}`
	req := httptest.NewRequest(http.MethodPatch, "/drm/9", strings.NewReader(body))
	req.AddCookie(accessCookie(t, h, domain.RoleAdmin))
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeVersionConflict, resp.Error.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
