package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dakghar-dev/postal-portal/backend/internal/config"
	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
)

func newTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 5
	cfg.Audit.RetentionDays = 365

	return NewRepository(cfg, db), mock
}

func TestCreateDailyMetric(t *testing.T) {
	repo, mock := newTestRepository(t)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO daily_metrics").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_locked", "created_at", "updated_at", "version"}).
			AddRow(7, false, now, now, 1))

	m := &domain.DailyMetric{
		OfficeID:       1,
		Date:           time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Metrics:        domain.MetricCounters{LettersDelivered: 120, RevenueCollected: 4500.50},
		SubmissionType: domain.SubmissionManual,
		CreatedBy:      3,
	}
	require.NoError(t, repo.CreateDailyMetric(m))

	assert.Equal(t, int64(7), m.ID)
	assert.False(t, m.IsLocked)
	assert.Equal(t, int32(1), m.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDailyMetricCountersStaleVersion(t *testing.T) {
	repo, mock := newTestRepository(t)

	// a stale version (or a locked row) matches nothing, which surfaces as
	// sql.ErrNoRows from the RETURNING scan
	mock.ExpectQuery("UPDATE daily_metrics").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}))

	m := &domain.DailyMetric{ID: 7, Version: 1}
	err := repo.UpdateDailyMetricCounters(m)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDailyMetricCounters(t *testing.T) {
	repo, mock := newTestRepository(t)

	now := time.Now()
	mock.ExpectQuery("UPDATE daily_metrics").
		WithArgs(
			int64(200), int64(40), int64(15), int64(5),
			12000.0, int64(3), int64(1),
			domain.SubmissionManual, int64(7), int32(1),
		).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}).AddRow(now, 2))

	m := &domain.DailyMetric{
		ID:      7,
		Version: 1,
		Metrics: domain.MetricCounters{
			LettersDelivered: 200, ParcelsDelivered: 40, SpeedPostItems: 15, MoneyOrders: 5,
			RevenueCollected: 12000.0, SavingsAccounts: 3, InsurancePolicies: 1,
		},
		SubmissionType: domain.SubmissionManual,
	}
	require.NoError(t, repo.UpdateDailyMetricCounters(m))

	assert.Equal(t, int32(2), m.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockMetricsBefore(t *testing.T) {
	repo, mock := newTestRepository(t)

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE daily_metrics").
		WithArgs(day).
		WillReturnResult(sqlmock.NewResult(0, 4))

	locked, err := repo.LockMetricsBefore(day)
	require.NoError(t, err)
	assert.Equal(t, int64(4), locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
