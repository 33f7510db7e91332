package handler

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const metricDateLayout = "2006-01-02"

// SubmitDailyMetrics records one office's counters for a day. The first
// submission for (office, date) inserts a row; later submissions for the same
// day overwrite the counters as long as the row is not locked.
func (h *Handler) SubmitDailyMetrics(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OfficeID int64                 `json:"officeId" validate:"required"`
		Date     string                `json:"date" validate:"required,datetime=2006-01-02"`
		Metrics  domain.MetricCounters `json:"metrics" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	date, err := time.ParseInLocation(metricDateLayout, req.Date, h.cutoff.Location)
	if err != nil {
		h.badRequest(w, r, errors.New("invalid date"))
		return
	}

	user := h.currentUserFrom(r)
	now := time.Now()
	if !user.CanActOnOffice(now, req.OfficeID, domain.RoleAdmin, domain.RoleOfficeUser, domain.RoleDeliveryCenterUser) {
		h.forbidden(w, r)
		return
	}

	metric, err := h.upsertDailyMetric(req.OfficeID, date, req.Metrics, domain.SubmissionManual, user.ID, now)
	if err != nil {
		h.metricWriteError(w, r, err)
		return
	}

	h.writeAudit(r, "DailyMetric", fmt.Sprint(metric.ID), domain.AuditActionUpdate, user.ID, user.Email, []domain.FieldChange{
		{Field: "metrics", OldValue: nil, NewValue: metric.Metrics},
	})

	h.successResponse(w, r, http.StatusOK, metric)
}

// upsertDailyMetric applies the lock rules and writes the counters, inserting
// the row on first submission. Callers translate the returned domain and
// database errors.
func (h *Handler) upsertDailyMetric(officeID int64, date time.Time, counters domain.MetricCounters, submission domain.SubmissionType, actorID int64, now time.Time) (*domain.DailyMetric, error) {
	existing, err := h.repository.GetDailyMetric(officeID, date)
	switch {
	case err == nil:
		if err := h.cutoff.Writable(existing, now); err != nil {
			return nil, err
		}
		existing.Metrics = counters
		existing.SubmissionType = submission
		if err := h.repository.UpdateDailyMetricCounters(existing); err != nil {
			return nil, err
		}
		return existing, nil
	case errors.Is(err, sql.ErrNoRows):
		metric := &domain.DailyMetric{
			OfficeID:       officeID,
			Date:           date,
			Metrics:        counters,
			SubmissionType: submission,
			CreatedBy:      actorID,
		}
		if err := h.cutoff.Writable(metric, now); err != nil {
			return nil, err
		}
		if err := h.repository.CreateDailyMetric(metric); err != nil {
			return nil, err
		}
		return metric, nil
	default:
		return nil, err
	}
}

func (h *Handler) metricWriteError(w http.ResponseWriter, r *http.Request, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, domain.ErrFutureMetricsDate):
		h.badRequest(w, r, err)
	case errors.Is(err, domain.ErrMetricsLocked):
		h.locked(w, r, "Metrics for this date are locked")
	case errors.Is(err, sql.ErrNoRows):
		h.conflict(w, r, CodeVersionConflict, "Metrics were modified concurrently, please retry")
	case errors.As(err, &pgErr) && pgErr.ConstraintName == "daily_metrics_office_id_metric_date_key":
		h.conflict(w, r, CodeDuplicateEntry, "Metrics for this date were submitted concurrently, please retry")
	default:
		h.internalServerError(w, r, err)
	}
}

func (h *Handler) GetMetricsHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	officeID, err := strconv.ParseInt(q.Get("officeId"), 10, 64)
	if err != nil {
		h.badRequest(w, r, errors.New("officeId is required"))
		return
	}

	now := time.Now().In(h.cutoff.Location)
	end := now
	start := now.AddDate(0, 0, -30)
	if v := q.Get("startDate"); v != "" {
		if start, err = time.ParseInLocation(metricDateLayout, v, h.cutoff.Location); err != nil {
			h.badRequest(w, r, errors.New("invalid startDate"))
			return
		}
	}
	if v := q.Get("endDate"); v != "" {
		if end, err = time.ParseInLocation(metricDateLayout, v, h.cutoff.Location); err != nil {
			h.badRequest(w, r, errors.New("invalid endDate"))
			return
		}
	}
	if end.Before(start) {
		h.badRequest(w, r, errors.New("endDate must not be before startDate"))
		return
	}

	user := h.currentUserFrom(r)
	if !user.CanActOnOffice(now, officeID, domain.RoleAdmin, domain.RoleSupervisor, domain.RoleOfficeUser, domain.RoleDeliveryCenterUser) {
		h.forbidden(w, r)
		return
	}

	metrics, err := h.repository.GetDailyMetricsHistory(officeID, start, end)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	totals := domain.MetricCounters{}
	for _, m := range metrics {
		totals.LettersDelivered += m.Metrics.LettersDelivered
		totals.ParcelsDelivered += m.Metrics.ParcelsDelivered
		totals.SpeedPostItems += m.Metrics.SpeedPostItems
		totals.MoneyOrders += m.Metrics.MoneyOrders
		totals.RevenueCollected += m.Metrics.RevenueCollected
		totals.SavingsAccounts += m.Metrics.SavingsAccounts
		totals.InsurancePolicies += m.Metrics.InsurancePolicies
	}

	summary := map[string]any{
		"days":   len(metrics),
		"totals": totals,
	}
	if len(metrics) > 0 {
		summary["averageRevenue"] = totals.RevenueCollected / float64(len(metrics))
	}

	h.successResponse(w, r, http.StatusOK, map[string]any{
		"metrics": metrics,
		"summary": summary,
	})
}

// ExportMetricsCSV streams a date range as CSV, using the same column layout
// the import endpoint accepts so an export can be re-imported unchanged.
func (h *Handler) ExportMetricsCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	officeID, err := strconv.ParseInt(q.Get("officeId"), 10, 64)
	if err != nil {
		h.badRequest(w, r, errors.New("officeId is required"))
		return
	}

	now := time.Now().In(h.cutoff.Location)
	end := now
	start := now.AddDate(0, 0, -30)
	if v := q.Get("startDate"); v != "" {
		if start, err = time.ParseInLocation(metricDateLayout, v, h.cutoff.Location); err != nil {
			h.badRequest(w, r, errors.New("invalid startDate"))
			return
		}
	}
	if v := q.Get("endDate"); v != "" {
		if end, err = time.ParseInLocation(metricDateLayout, v, h.cutoff.Location); err != nil {
			h.badRequest(w, r, errors.New("invalid endDate"))
			return
		}
	}
	if end.Before(start) {
		h.badRequest(w, r, errors.New("endDate must not be before startDate"))
		return
	}

	user := h.currentUserFrom(r)
	if !user.CanActOnOffice(now, officeID, domain.RoleAdmin, domain.RoleSupervisor, domain.RoleOfficeUser, domain.RoleDeliveryCenterUser) {
		h.forbidden(w, r)
		return
	}

	metrics, err := h.repository.GetDailyMetricsHistory(officeID, start, end)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="metrics_%d.csv"`, officeID))

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"office_id", "date", "letters", "parcels", "speed_post", "money_orders", "revenue", "savings", "insurance"})
	for _, m := range metrics {
		_ = writer.Write([]string{
			strconv.FormatInt(m.OfficeID, 10),
			m.Date.In(h.cutoff.Location).Format(metricDateLayout),
			strconv.FormatInt(m.Metrics.LettersDelivered, 10),
			strconv.FormatInt(m.Metrics.ParcelsDelivered, 10),
			strconv.FormatInt(m.Metrics.SpeedPostItems, 10),
			strconv.FormatInt(m.Metrics.MoneyOrders, 10),
			strconv.FormatFloat(m.Metrics.RevenueCollected, 'f', 2, 64),
			strconv.FormatInt(m.Metrics.SavingsAccounts, 10),
			strconv.FormatInt(m.Metrics.InsurancePolicies, 10),
		})
	}
	writer.Flush()
}

// ImportMetricsCSV bulk-loads counters from an uploaded CSV. Rows are applied
// independently; one bad row does not abort the rest, and the response carries
// a per-row verdict.
func (h *Handler) ImportMetricsCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(5 << 20); err != nil {
		h.badRequest(w, r, errors.New("expected multipart form with a csv file"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.badRequest(w, r, errors.New("missing csv file"))
		return
	}
	defer file.Close()

	user := h.currentUserFrom(r)
	now := time.Now()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 9

	// header row: office_id,date,letters,parcels,speed_post,money_orders,revenue,savings,insurance
	if _, err := reader.Read(); err != nil {
		h.badRequest(w, r, errors.New("csv file is empty"))
		return
	}

	type rowResult struct {
		Row     int    `json:"row"`
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}

	results := []rowResult{}
	imported := 0
	for rowNum := 2; ; rowNum++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			results = append(results, rowResult{Row: rowNum, Success: false, Error: "malformed csv row"})
			continue
		}

		officeID, date, counters, err := parseMetricsRow(record, h.cutoff.Location)
		if err != nil {
			results = append(results, rowResult{Row: rowNum, Success: false, Error: err.Error()})
			continue
		}

		if !user.CanActOnOffice(now, officeID, domain.RoleAdmin, domain.RoleSupervisor) {
			results = append(results, rowResult{Row: rowNum, Success: false, Error: "not allowed for this office"})
			continue
		}

		if _, err := h.upsertDailyMetric(officeID, date, counters, domain.SubmissionCSVImport, user.ID, now); err != nil {
			results = append(results, rowResult{Row: rowNum, Success: false, Error: importRowError(err)})
			continue
		}

		results = append(results, rowResult{Row: rowNum, Success: true})
		imported++
	}

	h.writeAudit(r, "DailyMetric", "csv_import", domain.AuditActionImport, user.ID, user.Email, []domain.FieldChange{
		{Field: "rowsImported", OldValue: nil, NewValue: imported},
		{Field: "rowsFailed", OldValue: nil, NewValue: len(results) - imported},
	})

	h.successResponse(w, r, http.StatusOK, map[string]any{
		"imported": imported,
		"failed":   len(results) - imported,
		"results":  results,
	})
}

func parseMetricsRow(record []string, loc *time.Location) (int64, time.Time, domain.MetricCounters, error) {
	counters := domain.MetricCounters{}

	officeID, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return 0, time.Time{}, counters, errors.New("invalid office id")
	}
	date, err := time.ParseInLocation(metricDateLayout, record[1], loc)
	if err != nil {
		return 0, time.Time{}, counters, errors.New("invalid date, expected YYYY-MM-DD")
	}

	ints := []*int64{
		&counters.LettersDelivered, &counters.ParcelsDelivered, &counters.SpeedPostItems,
		&counters.MoneyOrders,
	}
	for i, dst := range ints {
		v, err := strconv.ParseInt(record[2+i], 10, 64)
		if err != nil || v < 0 {
			return 0, time.Time{}, counters, fmt.Errorf("invalid counter in column %d", 3+i)
		}
		*dst = v
	}

	revenue, err := strconv.ParseFloat(record[6], 64)
	if err != nil || revenue < 0 {
		return 0, time.Time{}, counters, errors.New("invalid revenue")
	}
	counters.RevenueCollected = revenue

	for i, dst := range []*int64{&counters.SavingsAccounts, &counters.InsurancePolicies} {
		v, err := strconv.ParseInt(record[7+i], 10, 64)
		if err != nil || v < 0 {
			return 0, time.Time{}, counters, fmt.Errorf("invalid counter in column %d", 8+i)
		}
		*dst = v
	}

	return officeID, date, counters, nil
}

func importRowError(err error) string {
	switch {
	case errors.Is(err, domain.ErrFutureMetricsDate):
		return "date is in the future"
	case errors.Is(err, domain.ErrMetricsLocked):
		return "metrics for this date are locked"
	default:
		return "failed to save row"
	}
}

func (h *Handler) LockDailyMetric(w http.ResponseWriter, r *http.Request) {
	h.setMetricLock(w, r, true)
}

func (h *Handler) UnlockDailyMetric(w http.ResponseWriter, r *http.Request) {
	h.setMetricLock(w, r, false)
}

func (h *Handler) setMetricLock(w http.ResponseWriter, r *http.Request, locked bool) {
	metric := r.Context().Value(DailyMetricCtx).(*domain.DailyMetric)
	user := h.currentUserFrom(r)

	if metric.IsLocked == locked {
		h.successResponse(w, r, http.StatusOK, metric)
		return
	}

	if err := h.repository.SetDailyMetricLock(metric.ID, locked, &user.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	updated, err := h.repository.GetDailyMetricByID(metric.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	action := domain.AuditActionLock
	if !locked {
		action = domain.AuditActionUnlock
	}
	h.writeAudit(r, "DailyMetric", fmt.Sprint(metric.ID), action, user.ID, user.Email, []domain.FieldChange{
		{Field: "isLocked", OldValue: metric.IsLocked, NewValue: locked},
	})

	h.successResponse(w, r, http.StatusOK, updated)
}
