package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
)

func record(student, date string, sessionName *string, status models.AttendanceStatus) models.AttendanceRecord {
	return models.AttendanceRecord{
		ID:           fmt.Sprintf("%s-%s-%v", student, date, sessionName),
		StudentEmail: student,
		Code:         models.ManualCode,
		Status:       status,
		Date:         date,
		SessionName:  sessionName,
	}
}

func TestStatsSessionsUniverse(t *testing.T) {
	svc := NewStatsService()
	evening := "Evening"
	records := []models.AttendanceRecord{
		record("a@academy.io", "2026-08-26", nil, models.StatusPresent),
		record("b@academy.io", "2026-08-26", nil, models.StatusLeave),
		record("a@academy.io", "2026-08-27", nil, models.StatusPresent),
		record("a@academy.io", "2026-08-27", &evening, models.StatusPresent),
	}

	sessions := svc.SessionsUniverse(records)
	require.Len(t, sessions, 3)
	assert.Equal(t, models.SessionKey{Date: "2026-08-27"}, sessions[0])
	assert.Equal(t, models.SessionKey{Date: "2026-08-27", SessionName: "Evening"}, sessions[1])
	assert.Equal(t, models.SessionKey{Date: "2026-08-26"}, sessions[2])
}

func TestStatsSessionsUniverseEmpty(t *testing.T) {
	svc := NewStatsService()
	assert.Empty(t, svc.SessionsUniverse(nil))
}

func TestStatsRecordsForStudentCoversUniverse(t *testing.T) {
	svc := NewStatsService()
	records := []models.AttendanceRecord{
		record("a@academy.io", "2026-08-26", nil, models.StatusPresent),
		record("b@academy.io", "2026-08-27", nil, models.StatusPresent),
		record("a@academy.io", "2026-08-28", nil, models.StatusLeave),
	}

	views := svc.RecordsForStudent("a@academy.io", records)
	require.Len(t, views, 3)

	// Newest first, with the 27th present only for the other student.
	assert.Equal(t, "2026-08-28", views[0].Date)
	assert.False(t, views[0].Present)
	assert.True(t, views[0].Leave)

	assert.Equal(t, "2026-08-27", views[1].Date)
	assert.False(t, views[1].Present)
	assert.False(t, views[1].Leave)

	assert.Equal(t, "2026-08-26", views[2].Date)
	assert.True(t, views[2].Present)
	assert.False(t, views[2].Leave)
}

func TestStatsStudentPercentageExcludesLeaves(t *testing.T) {
	svc := NewStatsService()

	// Ten sessions total: the student attended six, took leave on two and
	// missed the rest. Leaves shrink the denominator: 6 of 8 is 75%.
	var records []models.AttendanceRecord
	for day := 1; day <= 10; day++ {
		date := fmt.Sprintf("2026-08-%02d", day)
		records = append(records, record("other@academy.io", date, nil, models.StatusPresent))
	}
	for day := 1; day <= 6; day++ {
		date := fmt.Sprintf("2026-08-%02d", day)
		records = append(records, record("a@academy.io", date, nil, models.StatusPresent))
	}
	for day := 7; day <= 8; day++ {
		date := fmt.Sprintf("2026-08-%02d", day)
		records = append(records, record("a@academy.io", date, nil, models.StatusLeave))
	}

	stats := svc.StudentStats("a@academy.io", records)
	assert.Equal(t, 10, stats.TotalSessions)
	assert.Equal(t, 6, stats.Attended)
	assert.Equal(t, 2, stats.Leaves)
	assert.Equal(t, 75, stats.Percentage)
}

func TestStatsStudentPercentageGuards(t *testing.T) {
	svc := NewStatsService()

	stats := svc.StudentStats("a@academy.io", nil)
	assert.Equal(t, 0, stats.Percentage)
	assert.Equal(t, 0, stats.TotalSessions)

	// All sessions on leave: the countable denominator hits zero.
	records := []models.AttendanceRecord{
		record("a@academy.io", "2026-08-27", nil, models.StatusLeave),
		record("a@academy.io", "2026-08-28", nil, models.StatusLeave),
	}
	stats = svc.StudentStats("a@academy.io", records)
	assert.Equal(t, 2, stats.Leaves)
	assert.Equal(t, 0, stats.Percentage)
}

func TestStatsOverallIsUnweightedMean(t *testing.T) {
	svc := NewStatsService()
	records := []models.AttendanceRecord{
		record("a@academy.io", "2026-08-27", nil, models.StatusPresent),
		record("a@academy.io", "2026-08-28", nil, models.StatusPresent),
		record("b@academy.io", "2026-08-27", nil, models.StatusPresent),
	}

	// a attends 2 of 2 (100%), b attends 1 of 2 (50%): mean is 75.
	overall := svc.OverallStats([]string{"a@academy.io", "b@academy.io"}, records)
	assert.Equal(t, 75, overall.AverageAttendance)
	assert.Equal(t, 2, overall.TotalSessions)
	assert.Equal(t, 2, overall.StudentsCount)
}

func TestStatsOverallEmptyRoster(t *testing.T) {
	svc := NewStatsService()
	overall := svc.OverallStats(nil, nil)
	assert.Equal(t, models.OverallStats{}, overall)
}

func TestStatsSessionsOnDate(t *testing.T) {
	svc := NewStatsService()
	evening := "Evening"
	records := []models.AttendanceRecord{
		record("a@academy.io", "2026-08-28", nil, models.StatusPresent),
		record("b@academy.io", "2026-08-28", nil, models.StatusPresent),
		record("a@academy.io", "2026-08-28", &evening, models.StatusPresent),
		record("a@academy.io", "2026-08-27", nil, models.StatusPresent),
	}

	labels := svc.SessionsOnDate("2026-08-28", records)
	assert.Equal(t, []string{"Evening", models.DefaultSessionName}, labels)

	assert.Empty(t, svc.SessionsOnDate("2026-01-01", records))
}

func TestStatsDaysWithSessions(t *testing.T) {
	svc := NewStatsService()
	records := []models.AttendanceRecord{
		record("a@academy.io", "2026-08-28", nil, models.StatusPresent),
		record("a@academy.io", "2026-08-26", nil, models.StatusPresent),
		record("b@academy.io", "2026-08-28", nil, models.StatusLeave),
		record("a@academy.io", "2026-08-27", nil, models.StatusPresent),
	}

	days := svc.DaysWithSessions(records)
	assert.Equal(t, []string{"2026-08-26", "2026-08-27", "2026-08-28"}, days)
}
