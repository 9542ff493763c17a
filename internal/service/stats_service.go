package service

import (
	"math"
	"sort"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
)

// StatsService derives attendance statistics and session indexes from a
// ledger snapshot. Every method is a pure function over its inputs; the
// service never mutates the ledger and holds no state, so results are
// recomputed on each call.
type StatsService struct{}

// NewStatsService constructs the aggregator.
func NewStatsService() *StatsService {
	return &StatsService{}
}

// SessionsUniverse returns the distinct session keys observed in the ledger,
// ignoring which student they belong to. This defines "total sessions" for
// cohort-wide calculations. Sorted newest date first.
func (s *StatsService) SessionsUniverse(records []models.AttendanceRecord) []models.SessionKey {
	seen := make(map[models.SessionKey]struct{})
	sessions := make([]models.SessionKey, 0)
	for i := range records {
		key := records[i].Session()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sessions = append(sessions, key)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Date != sessions[j].Date {
			return sessions[i].Date > sessions[j].Date
		}
		return sessions[i].SessionName < sessions[j].SessionName
	})
	return sessions
}

// RecordsForStudent produces one view row per session in the universe: a
// session with no matching record (or one marked absent) renders as neither
// present nor leave. Sorted newest date first.
func (s *StatsService) RecordsForStudent(studentEmail string, records []models.AttendanceRecord) []models.AttendanceRecordView {
	byKey := make(map[models.SessionKey]models.AttendanceStatus)
	for i := range records {
		if records[i].StudentEmail == studentEmail {
			byKey[records[i].Session()] = records[i].Status
		}
	}

	sessions := s.SessionsUniverse(records)
	views := make([]models.AttendanceRecordView, 0, len(sessions))
	for _, key := range sessions {
		status := byKey[key]
		views = append(views, models.AttendanceRecordView{
			Date:        key.Date,
			SessionName: key.SessionName,
			Present:     status == models.StatusPresent,
			Leave:       status == models.StatusLeave,
		})
	}
	return views
}

// StudentStats summarises one student's attendance. Leave sessions count in
// neither the numerator nor the denominator of the percentage.
func (s *StatsService) StudentStats(studentEmail string, records []models.AttendanceRecord) models.StudentStats {
	views := s.RecordsForStudent(studentEmail, records)
	stats := models.StudentStats{
		TotalSessions: len(views),
		Records:       views,
	}
	for _, view := range views {
		if view.Present {
			stats.Attended++
		}
		if view.Leave {
			stats.Leaves++
		}
	}
	stats.Percentage = attendancePercentage(stats.Attended, stats.TotalSessions, stats.Leaves)
	return stats
}

// OverallStats aggregates across a roster. AverageAttendance is the
// unweighted mean of each student's percentage rather than a pooled ratio,
// so a small cohort member weighs as much as a regular.
func (s *StatsService) OverallStats(studentEmails []string, records []models.AttendanceRecord) models.OverallStats {
	if len(studentEmails) == 0 {
		return models.OverallStats{}
	}
	sum := 0
	for _, email := range studentEmails {
		sum += s.StudentStats(email, records).Percentage
	}
	return models.OverallStats{
		AverageAttendance: int(math.Round(float64(sum) / float64(len(studentEmails)))),
		TotalSessions:     len(s.SessionsUniverse(records)),
		StudentsCount:     len(studentEmails),
	}
}

// SessionsOnDate lists the distinct session labels occurring on a date,
// defaulting unnamed sessions to the regular label.
func (s *StatsService) SessionsOnDate(date string, records []models.AttendanceRecord) []string {
	seen := make(map[string]struct{})
	labels := make([]string, 0)
	for i := range records {
		if records[i].Date != date {
			continue
		}
		label := records[i].Session().Label()
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// DaysWithSessions returns the distinct dates carrying any record, sorted
// ascending, for calendar highlighting.
func (s *StatsService) DaysWithSessions(records []models.AttendanceRecord) []string {
	seen := make(map[string]struct{})
	days := make([]string, 0)
	for i := range records {
		if _, ok := seen[records[i].Date]; ok {
			continue
		}
		seen[records[i].Date] = struct{}{}
		days = append(days, records[i].Date)
	}
	sort.Strings(days)
	return days
}

func attendancePercentage(attended, totalSessions, leaves int) int {
	countable := totalSessions - leaves
	if totalSessions == 0 || countable <= 0 {
		return 0
	}
	return int(math.Round(float64(attended) / float64(countable) * 100))
}
