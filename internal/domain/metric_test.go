package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLockCutoff(t *testing.T) {
	cutoff, err := ParseLockCutoff("23:59", "Asia/Kolkata")
	require.NoError(t, err)
	assert.Equal(t, 23, cutoff.Hour)
	assert.Equal(t, 59, cutoff.Minute)

	_, err = ParseLockCutoff("25:00", "Asia/Kolkata")
	assert.Error(t, err)

	_, err = ParseLockCutoff("23:59", "Not/AZone")
	assert.Error(t, err)
}

func TestLockCutoffDateLocked(t *testing.T) {
	cutoff := LockCutoff{Hour: 18, Minute: 0, Location: time.UTC}

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	today := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	assert.True(t, cutoff.DateLocked(yesterday, now), "past dates are always locked")
	assert.False(t, cutoff.DateLocked(today, now), "today stays open before the cutoff")
	assert.False(t, cutoff.DateLocked(tomorrow, now))

	afterCutoff := time.Date(2026, 8, 29, 18, 0, 0, 0, time.UTC)
	assert.True(t, cutoff.DateLocked(today, afterCutoff), "today locks at the cutoff")

	justBefore := time.Date(2026, 8, 29, 17, 59, 59, 0, time.UTC)
	assert.False(t, cutoff.DateLocked(today, justBefore))
}

func TestLockCutoffDateInFuture(t *testing.T) {
	cutoff := LockCutoff{Hour: 23, Minute: 59, Location: time.UTC}
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	assert.True(t, cutoff.DateInFuture(now.AddDate(0, 0, 1), now))
	assert.False(t, cutoff.DateInFuture(now, now))
	assert.False(t, cutoff.DateInFuture(now.AddDate(0, 0, -1), now))
}

func TestLockCutoffWritable(t *testing.T) {
	cutoff := LockCutoff{Hour: 18, Minute: 0, Location: time.UTC}
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	today := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	m := &DailyMetric{OfficeID: 1, Date: today}
	assert.NoError(t, cutoff.Writable(m, now))

	m.Date = today.AddDate(0, 0, 1)
	assert.ErrorIs(t, cutoff.Writable(m, now), ErrFutureMetricsDate)

	m.Date = today.AddDate(0, 0, -1)
	assert.ErrorIs(t, cutoff.Writable(m, now), ErrMetricsLocked)

	// an explicit lock wins even before the cutoff
	m.Date = today
	m.IsLocked = true
	assert.ErrorIs(t, cutoff.Writable(m, now), ErrMetricsLocked)
}
