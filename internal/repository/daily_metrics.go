package repository

import (
	"time"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
)

// CreateDailyMetric inserts the first submission for (office, date). A
// concurrent duplicate loses on the unique key and surfaces as a
// *pgconn.PgError that the handler maps to "already submitted".
func (r *Repository) CreateDailyMetric(m *domain.DailyMetric) error {
	query := `
		INSERT INTO daily_metrics (
			office_id, metric_date,
			letters_delivered, parcels_delivered, speed_post_items, money_orders,
			revenue_collected, savings_accounts, insurance_policies,
			submission_type, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, is_locked, created_at, updated_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{
		m.OfficeID, m.Date,
		m.Metrics.LettersDelivered, m.Metrics.ParcelsDelivered, m.Metrics.SpeedPostItems, m.Metrics.MoneyOrders,
		m.Metrics.RevenueCollected, m.Metrics.SavingsAccounts, m.Metrics.InsurancePolicies,
		m.SubmissionType, m.CreatedBy,
	}
	dst := []any{&m.ID, &m.IsLocked, &m.CreatedAt, &m.UpdatedAt, &m.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

const dailyMetricColumns = `
	m.id, m.office_id, o.name, m.metric_date,
	m.letters_delivered, m.parcels_delivered, m.speed_post_items, m.money_orders,
	m.revenue_collected, m.savings_accounts, m.insurance_policies,
	m.is_locked, m.locked_at, m.locked_by, m.submission_type,
	m.created_by, m.created_at, m.updated_at, m.version
`

func scanDailyMetric(scan func(dst ...any) error) (*domain.DailyMetric, error) {
	m := &domain.DailyMetric{}
	dst := []any{
		&m.ID, &m.OfficeID, &m.OfficeName, &m.Date,
		&m.Metrics.LettersDelivered, &m.Metrics.ParcelsDelivered, &m.Metrics.SpeedPostItems, &m.Metrics.MoneyOrders,
		&m.Metrics.RevenueCollected, &m.Metrics.SavingsAccounts, &m.Metrics.InsurancePolicies,
		&m.IsLocked, &m.LockedAt, &m.LockedBy, &m.SubmissionType,
		&m.CreatedBy, &m.CreatedAt, &m.UpdatedAt, &m.Version,
	}
	if err := scan(dst...); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Repository) GetDailyMetricByID(id int64) (*domain.DailyMetric, error) {
	query := `
		SELECT ` + dailyMetricColumns + `
		FROM daily_metrics m
		JOIN offices o ON o.id = m.office_id
		WHERE m.id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	row := r.dbpool.QueryRowContext(ctx, query, id)
	return scanDailyMetric(row.Scan)
}

func (r *Repository) GetDailyMetric(officeID int64, date time.Time) (*domain.DailyMetric, error) {
	query := `
		SELECT ` + dailyMetricColumns + `
		FROM daily_metrics m
		JOIN offices o ON o.id = m.office_id
		WHERE m.office_id = $1 AND m.metric_date = $2
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	row := r.dbpool.QueryRowContext(ctx, query, officeID, date)
	return scanDailyMetric(row.Scan)
}

func (r *Repository) GetDailyMetricsHistory(officeID int64, start, end time.Time) ([]*domain.DailyMetric, error) {
	query := `
		SELECT ` + dailyMetricColumns + `
		FROM daily_metrics m
		JOIN offices o ON o.id = m.office_id
		WHERE m.office_id = $1 AND m.metric_date BETWEEN $2 AND $3
		ORDER BY m.metric_date
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, officeID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := make([]*domain.DailyMetric, 0)
	for rows.Next() {
		m, err := scanDailyMetric(rows.Scan)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return metrics, nil
}

// UpdateDailyMetricCounters rewrites the counters under the optimistic version
// check. The is_locked guard in the WHERE clause is the last line of defense:
// even a caller that skipped the lock manager cannot alter a locked row.
func (r *Repository) UpdateDailyMetricCounters(m *domain.DailyMetric) error {
	query := `
		UPDATE daily_metrics
		SET
			letters_delivered = $1,
			parcels_delivered = $2,
			speed_post_items = $3,
			money_orders = $4,
			revenue_collected = $5,
			savings_accounts = $6,
			insurance_policies = $7,
			submission_type = $8,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $9 AND version = $10 AND is_locked = FALSE
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{
		m.Metrics.LettersDelivered, m.Metrics.ParcelsDelivered, m.Metrics.SpeedPostItems, m.Metrics.MoneyOrders,
		m.Metrics.RevenueCollected, m.Metrics.SavingsAccounts, m.Metrics.InsurancePolicies,
		m.SubmissionType, m.ID, m.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&m.UpdatedAt, &m.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) SetDailyMetricLock(id int64, locked bool, actorID *int64) error {
	query := `
		UPDATE daily_metrics
		SET
			is_locked = $1,
			locked_at = CASE WHEN $1 THEN NOW() ELSE NULL END,
			locked_by = CASE WHEN $1 THEN $2 ELSE NULL END,
			version = version + 1
		WHERE id = $3
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, locked, actorID, id); err != nil {
		return err
	}

	return nil
}

// LockMetricsBefore locks every unlocked row dated before the given day. The
// nightly sweep calls it just after midnight; locked_by stays NULL to mark a
// system lock.
func (r *Repository) LockMetricsBefore(day time.Time) (int64, error) {
	query := `
		UPDATE daily_metrics
		SET is_locked = TRUE, locked_at = NOW(), version = version + 1
		WHERE is_locked = FALSE AND metric_date < $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, day)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// GetMetricsTotalsForDate sums every office's counters for one day (dashboard).
func (r *Repository) GetMetricsTotalsForDate(date time.Time, officeID *int64) (*domain.MetricCounters, error) {
	query := `
		SELECT
			COALESCE(SUM(letters_delivered), 0),
			COALESCE(SUM(parcels_delivered), 0),
			COALESCE(SUM(speed_post_items), 0),
			COALESCE(SUM(money_orders), 0),
			COALESCE(SUM(revenue_collected), 0),
			COALESCE(SUM(savings_accounts), 0),
			COALESCE(SUM(insurance_policies), 0)
		FROM daily_metrics
		WHERE metric_date = $1
	`
	args := []any{date}
	if officeID != nil {
		query += ` AND office_id = $2`
		args = append(args, *officeID)
	}

	ctx, cancel := r.queryContext()
	defer cancel()

	totals := &domain.MetricCounters{}
	dst := []any{
		&totals.LettersDelivered, &totals.ParcelsDelivered, &totals.SpeedPostItems, &totals.MoneyOrders,
		&totals.RevenueCollected, &totals.SavingsAccounts, &totals.InsurancePolicies,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return nil, err
	}

	return totals, nil
}
