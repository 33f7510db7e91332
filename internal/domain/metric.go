package domain

import (
	"errors"
	"fmt"
	"time"
)

type SubmissionType string

const (
	SubmissionManual    SubmissionType = "manual"
	SubmissionCSVImport SubmissionType = "csv_import"
	SubmissionAPI       SubmissionType = "api"
)

var (
	ErrMetricsLocked     = errors.New("metrics for this date are locked")
	ErrFutureMetricsDate = errors.New("metrics cannot be submitted for a future date")
)

// MetricCounters are one office's per-day operational counters.
type MetricCounters struct {
	LettersDelivered  int64   `json:"lettersDelivered"`
	ParcelsDelivered  int64   `json:"parcelsDelivered"`
	SpeedPostItems    int64   `json:"speedPostItems"`
	MoneyOrders       int64   `json:"moneyOrders"`
	RevenueCollected  float64 `json:"revenueCollected"`
	SavingsAccounts   int64   `json:"savingsAccounts"`
	InsurancePolicies int64   `json:"insurancePolicies"`
}

type DailyMetric struct {
	ID             int64          `json:"id"`
	OfficeID       int64          `json:"officeId"`
	OfficeName     string         `json:"officeName,omitempty"`
	Date           time.Time      `json:"date"`
	Metrics        MetricCounters `json:"metrics"`
	IsLocked       bool           `json:"isLocked"`
	LockedAt       *time.Time     `json:"lockedAt,omitempty"`
	LockedBy       *int64         `json:"lockedBy,omitempty"`
	SubmissionType SubmissionType `json:"submissionType"`
	CreatedBy      int64          `json:"createdBy"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	Version        int32          `json:"-"`
}

// LockCutoff is the wall-clock time of day after which the current date's
// metrics freeze. Past dates are always locked; future dates are never
// submittable in the first place.
type LockCutoff struct {
	Hour     int
	Minute   int
	Location *time.Location
}

func ParseLockCutoff(value string, tz string) (LockCutoff, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return LockCutoff{}, fmt.Errorf("invalid metrics timezone %q: %w", tz, err)
	}
	t, err := time.Parse("15:04", value)
	if err != nil {
		return LockCutoff{}, fmt.Errorf("invalid metrics lock cutoff %q: %w", value, err)
	}
	return LockCutoff{Hour: t.Hour(), Minute: t.Minute(), Location: loc}, nil
}

func (c LockCutoff) dayOf(t time.Time) time.Time {
	local := t.In(c.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location)
}

// DateLocked reports whether the cutoff has passed for the given metric date.
func (c LockCutoff) DateLocked(date time.Time, now time.Time) bool {
	day := c.dayOf(date)
	today := c.dayOf(now)

	if day.Before(today) {
		return true
	}
	if day.After(today) {
		return false
	}

	cutoff := day.Add(time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute)
	return !now.In(c.Location).Before(cutoff)
}

// DateInFuture reports whether the metric date lies past today.
func (c LockCutoff) DateInFuture(date time.Time, now time.Time) bool {
	return c.dayOf(date).After(c.dayOf(now))
}

// Writable validates a submission against the lock rules: future dates are
// rejected outright, then the stored lock flag and the time-based cutoff are
// checked in turn.
func (c LockCutoff) Writable(m *DailyMetric, now time.Time) error {
	if c.DateInFuture(m.Date, now) {
		return ErrFutureMetricsDate
	}
	if m.IsLocked || c.DateLocked(m.Date, now) {
		return ErrMetricsLocked
	}
	return nil
}
