package handler

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
)

func dailyMetricRow(date time.Time, locked bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "office_id", "name", "metric_date",
		"letters_delivered", "parcels_delivered", "speed_post_items", "money_orders",
		"revenue_collected", "savings_accounts", "insurance_policies",
		"is_locked", "locked_at", "locked_by", "submission_type",
		"created_by", "created_at", "updated_at", "version",
	}).AddRow(7, 3, "Chennai GPO", date,
		120, 40, 15, 5,
		12500.75, 3, 1,
		locked, nil, nil, "manual",
		42, now, now, 1)
}

func submitMetricsRequest(t *testing.T, h *Handler, date string) *http.Request {
	t.Helper()

	body := fmt.Sprintf(`{"officeId":3,"date":%q,"metrics":{"lettersDelivered":130,"parcelsDelivered":41,"revenueCollected":13000.50}}`, date)
	req := httptest.NewRequest(http.MethodPost, "/metrics/daily", strings.NewReader(body))
	req.AddCookie(accessCookie(t, h, domain.RoleAdmin))
	return req
}

func TestSubmitDailyMetricsLockedDate(t *testing.T) {
	h, mock := newTestHandler(t)

	today := time.Now().UTC().Format("2006-01-02")
	date, err := time.Parse("2006-01-02", today)
	require.NoError(t, err)

	expectCurrentUser(mock, domain.RoleAdmin)
	mock.ExpectQuery("FROM daily_metrics").
		WillReturnRows(dailyMetricRow(date, true))

	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, submitMetricsRequest(t, h, today))

	assert.Equal(t, http.StatusLocked, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMetricsLocked, resp.Error.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitDailyMetricsConcurrentInsert(t *testing.T) {
	h, mock := newTestHandler(t)

	today := time.Now().UTC().Format("2006-01-02")

	expectCurrentUser(mock, domain.RoleAdmin)
	mock.ExpectQuery("FROM daily_metrics").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO daily_metrics").
		WillReturnError(&pgconn.PgError{
			Code:           "23505",
			ConstraintName: "daily_metrics_office_id_metric_date_key",
		})

	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, submitMetricsRequest(t, h, today))

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeDuplicateEntry, resp.Error.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitDailyMetricsStaleVersion(t *testing.T) {
	h, mock := newTestHandler(t)

	today := time.Now().UTC().Format("2006-01-02")
	date, err := time.Parse("2006-01-02", today)
	require.NoError(t, err)

	expectCurrentUser(mock, domain.RoleAdmin)
	mock.ExpectQuery("FROM daily_metrics").
		WillReturnRows(dailyMetricRow(date, false))
	// a concurrent writer bumped the version, so the guarded update hits no rows
	mock.ExpectQuery("UPDATE daily_metrics").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}))

	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, submitMetricsRequest(t, h, today))

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeVersionConflict, resp.Error.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportMetricsCSV(t *testing.T) {
	h, mock := newTestHandler(t)

	expectCurrentUser(mock, domain.RoleAdmin)
	mock.ExpectQuery("FROM daily_metrics").
		WillReturnRows(dailyMetricRow(time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), true))

	req := httptest.NewRequest(http.MethodGet, "/metrics/export?officeId=3&startDate=2026-08-01&endDate=2026-08-31", nil)
	req.AddCookie(accessCookie(t, h, domain.RoleAdmin))
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "office_id,date,letters,parcels,speed_post,money_orders,revenue,savings,insurance", lines[0])
	assert.Equal(t, "3,2026-08-28,120,40,15,5,12500.75,3,1", lines[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseMetricsRow(t *testing.T) {
	record := []string{"3", "2026-08-28", "120", "40", "15", "5", "12500.75", "3", "1"}

	officeID, date, counters, err := parseMetricsRow(record, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, int64(3), officeID)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), date)
	assert.Equal(t, int64(120), counters.LettersDelivered)
	assert.Equal(t, int64(40), counters.ParcelsDelivered)
	assert.Equal(t, int64(15), counters.SpeedPostItems)
	assert.Equal(t, int64(5), counters.MoneyOrders)
	assert.Equal(t, 12500.75, counters.RevenueCollected)
	assert.Equal(t, int64(3), counters.SavingsAccounts)
	assert.Equal(t, int64(1), counters.InsurancePolicies)
}

func TestParseMetricsRowErrors(t *testing.T) {
	valid := []string{"3", "2026-08-28", "120", "40", "15", "5", "12500.75", "3", "1"}

	cases := map[string]struct {
		column int
		value  string
	}{
		"bad office id":    {0, "abc"},
		"bad date":         {1, "28-08-2026"},
		"negative counter": {2, "-5"},
		"bad revenue":      {6, "lots"},
		"negative revenue": {6, "-1.5"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			record := append([]string{}, valid...)
			record[tc.column] = tc.value

			_, _, _, err := parseMetricsRow(record, time.UTC)
			assert.Error(t, err)
		})
	}
}
