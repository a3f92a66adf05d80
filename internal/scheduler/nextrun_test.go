package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photobackup/engine/internal/domain"
)

func TestNextRunTime_OneTimeReturnsNil(t *testing.T) {
	next := nextRunTime(domain.ScheduleType{Kind: domain.ScheduleOneTime}, time.Now())
	assert.Nil(t, next)
}

func TestNextRunTime_IntervalAddsSeconds(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	next := nextRunTime(domain.ScheduleType{Kind: domain.ScheduleInterval, IntervalSecs: 3600}, now)
	require.NotNil(t, next)
	assert.Equal(t, now.Add(time.Hour), *next)
}

func TestNextRunTime_DailyRollsToTomorrowWhenPassed(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	next := nextRunTime(domain.ScheduleType{Kind: domain.ScheduleDaily, Hour: 9, Minute: 0}, now)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), *next)
}

func TestNextRunTime_DailyStaysTodayWhenStillAhead(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	next := nextRunTime(domain.ScheduleType{Kind: domain.ScheduleDaily, Hour: 9, Minute: 0}, now)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), *next)
}

func TestNextRunTime_WeeklyPicksNextMatchingWeekday(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) // Monday
	next := nextRunTime(domain.ScheduleType{Kind: domain.ScheduleWeekly, Weekday: time.Friday, Hour: 6, Minute: 0}, now)
	require.NotNil(t, next)
	assert.Equal(t, time.Friday, next.Weekday())
	assert.True(t, next.After(now))
	assert.True(t, next.Before(now.AddDate(0, 0, 7)))
}

func TestNextRunTime_WeeklyRollsOverWhenTodayAlreadyPassed(t *testing.T) {
	now := time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC) // Friday, after 6:00
	next := nextRunTime(domain.ScheduleType{Kind: domain.ScheduleWeekly, Weekday: time.Friday, Hour: 6, Minute: 0}, now)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 3, 13, 6, 0, 0, 0, time.UTC), *next)
}

func TestNextRunTime_MonthlyClampsFebruary(t *testing.T) {
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	next := nextRunTime(domain.ScheduleType{Kind: domain.ScheduleMonthly, DayOfMonth: 31, Hour: 9, Minute: 0}, now)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC), *next)
}

func TestNextRunTime_MonthlyRollsToNextMonthWhenPassed(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	next := nextRunTime(domain.ScheduleType{Kind: domain.ScheduleMonthly, DayOfMonth: 15, Hour: 9, Minute: 0}, now)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC), *next)
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 28, daysInMonth(2026, time.February))
	assert.Equal(t, 29, daysInMonth(2024, time.February))
	assert.Equal(t, 31, daysInMonth(2026, time.January))
	assert.Equal(t, 30, daysInMonth(2026, time.April))
}
