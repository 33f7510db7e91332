package seed

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
	"github.com/dakghar-dev/postal-portal/backend/internal/repository"
	"github.com/dakghar-dev/postal-portal/backend/internal/utils"
)

var offices = []domain.Office{
	{Name: "Mumbai GPO", Code: "MH-MUM-001", Street: "Walchand Hirachand Marg", City: "Mumbai", State: "Maharashtra", Pincode: "400001", Region: "Western", DivisionCode: "MUM-C"},
	{Name: "Delhi GPO", Code: "DL-DEL-001", Street: "Gole Dak Khana", City: "New Delhi", State: "Delhi", Pincode: "110001", Region: "Northern", DivisionCode: "DEL-C"},
	{Name: "Chennai GPO", Code: "TN-CHE-001", Street: "Rajaji Salai", City: "Chennai", State: "Tamil Nadu", Pincode: "600001", Region: "Southern", DivisionCode: "CHE-C"},
	{Name: "Kolkata GPO", Code: "WB-KOL-001", Street: "Netaji Subhas Road", City: "Kolkata", State: "West Bengal", Pincode: "700001", Region: "Eastern", DivisionCode: "KOL-C"},
	{Name: "Bengaluru City SO", Code: "KA-BLR-014", Street: "Raj Bhavan Road", City: "Bengaluru", State: "Karnataka", Pincode: "560001", Region: "Southern", DivisionCode: "BLR-E"},
	{Name: "Pune Camp DC", Code: "MH-PUN-207", Street: "Sadhu Vaswani Road", City: "Pune", State: "Maharashtra", Pincode: "411001", Region: "Western", DivisionCode: "PUN-S"},
}

// SeedOffices inserts the demo office list, skipping codes that already exist.
func SeedOffices(r *repository.Repository) []domain.Office {
	created := make([]domain.Office, 0, len(offices))
	for _, o := range offices {
		office := o
		if err := r.CreateOffice(&office); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.ConstraintName == "offices_code_key" {
				continue
			}
			slog.Error("failed to insert office", "code", office.Code, "error", err)
			continue
		}
		created = append(created, office)
	}
	slog.Info("seeded offices", "count", len(created))
	return created
}

// SeedUsers creates n active staff accounts, each assigned to one of the
// given offices in round-robin order.
func SeedUsers(r *repository.Repository, n int, password string, emailDomain string, officeIDs []int64) {
	if len(officeIDs) == 0 {
		slog.Error("no offices to assign users to")
		return
	}

	cnt := 0
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(password, emailDomain)
		if err != nil {
			slog.Error("failed to generate user", "error", err)
			continue
		}
		user.IsActive = true

		if err := r.CreateUser(user); err != nil {
			slog.Error("failed to insert user", "error", err)
			continue
		}

		officeID := officeIDs[i%len(officeIDs)]
		roles := []domain.RoleAssignment{{
			Role:      domain.RoleOfficeUser,
			OfficeID:  &officeID,
			IsActive:  true,
			ValidFrom: time.Now(),
		}}
		if err := r.ReplaceUserRoles(user.ID, roles); err != nil {
			slog.Error("failed to assign role", "userId", user.ID, "error", err)
			continue
		}

		cnt++
	}

	slog.Info("seeded users", "count", cnt)
}

// SeedMetricsHistory backfills the past `days` days of counters for every
// office. Rows older than today are locked the way the nightly sweep would
// have left them.
func SeedMetricsHistory(r *repository.Repository, officeIDs []int64, days int, createdBy int64) {
	cnt := 0
	now := time.Now()

	for _, officeID := range officeIDs {
		for d := 1; d <= days; d++ {
			date := now.AddDate(0, 0, -d)
			metric := &domain.DailyMetric{
				OfficeID:       officeID,
				Date:           time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
				Metrics:        utils.GenerateRandomCounters(),
				SubmissionType: domain.SubmissionManual,
				CreatedBy:      createdBy,
			}

			if err := r.CreateDailyMetric(metric); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.ConstraintName == "daily_metrics_office_id_metric_date_key" {
					continue
				}
				slog.Error("failed to insert metric", "officeId", officeID, "error", err)
				continue
			}

			if err := r.SetDailyMetricLock(metric.ID, true, nil); err != nil {
				slog.Error("failed to lock metric", "id", metric.ID, "error", err)
			}

			cnt++
		}
	}

	slog.Info("seeded metrics history", "count", cnt)
}

// SeedTargets sets a default target sheet for each office for the current
// financial year.
func SeedTargets(r *repository.Repository, officeIDs []int64, financialYear string, setBy int64) {
	targets := map[string]domain.TargetValue{
		"revenueCollected":  {Target: 1500000, Unit: "INR", Priority: "high"},
		"savingsAccounts":   {Target: 300, Unit: "accounts", Priority: "medium"},
		"insurancePolicies": {Target: 120, Unit: "policies", Priority: "medium"},
		"speedPostItems":    {Target: 9000, Unit: "items", Priority: "low"},
	}

	cnt := 0
	for _, officeID := range officeIDs {
		target := &domain.Target{
			OfficeID:      officeID,
			FinancialYear: financialYear,
			Targets:       targets,
			Status:        domain.TargetStatusActive,
			SetBy:         setBy,
			Notes:         "Seeded default targets",
		}

		if err := r.CreateTarget(target); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.ConstraintName == "targets_office_id_financial_year_key" {
				continue
			}
			slog.Error("failed to insert target", "officeId", officeID, "error", err)
			continue
		}

		cnt++
	}

	slog.Info("seeded targets", "count", cnt)
}
