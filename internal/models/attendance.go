package models

import "time"

// DateLayout is the calendar-date format used for session identity.
const DateLayout = "2006-01-02"

// ManualCode marks records entered by an instructor instead of a student
// submitting a session code.
const ManualCode = "MANUAL"

// DefaultSessionName labels sessions that were created without an explicit
// session name.
const DefaultSessionName = "Regular Session"

// AttendanceStatus is the tri-state outcome for a student's session slot.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusLeave   AttendanceStatus = "leave"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLeave:
		return true
	default:
		return false
	}
}

// SessionCode is the single time-bound code students submit to mark
// themselves present. At most one code is active at a time; issuing a new
// one replaces the previous row.
type SessionCode struct {
	Code        string  `db:"code" json:"code"`
	Date        string  `db:"date" json:"date"`
	SessionName *string `db:"session_name" json:"session_name,omitempty"`
	ExpiresAt   int64   `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the code's validity window has passed.
func (c *SessionCode) Expired(now time.Time) bool {
	return now.UnixMilli() >= c.ExpiresAt
}

// Session returns the session key the code belongs to.
func (c *SessionCode) Session() SessionKey {
	return NewSessionKey(c.Date, c.SessionName)
}

// SessionKey identifies one class session: a calendar date plus an optional
// session name for days with multiple sessions.
type SessionKey struct {
	Date        string `json:"date"`
	SessionName string `json:"session_name"`
}

// NewSessionKey normalises an optional session name into a key.
func NewSessionKey(date string, sessionName *string) SessionKey {
	key := SessionKey{Date: date}
	if sessionName != nil {
		key.SessionName = *sessionName
	}
	return key
}

// Label returns the display name of the session, defaulting unnamed sessions.
func (k SessionKey) Label() string {
	if k.SessionName == "" {
		return DefaultSessionName
	}
	return k.SessionName
}

// AttendanceRecord is one ledger entry: a student's stored outcome for one
// session. Absence is canonically the lack of a record, so stored rows only
// ever carry present or leave.
type AttendanceRecord struct {
	ID           string           `db:"id" json:"id"`
	StudentEmail string           `db:"student_email" json:"student_email"`
	Code         string           `db:"code" json:"code"`
	Status       AttendanceStatus `db:"status" json:"status"`
	Date         string           `db:"date" json:"date"`
	SessionName  *string          `db:"session_name" json:"session_name,omitempty"`
	SubmittedAt  time.Time        `db:"submitted_at" json:"submitted_at"`
}

// Session returns the session key of the record.
func (r *AttendanceRecord) Session() SessionKey {
	return NewSessionKey(r.Date, r.SessionName)
}

// CodeCountdown is the remaining validity of the active code.
type CodeCountdown struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// AttendanceRecordView is one row of a student's per-session view: every
// session in the universe appears exactly once, with the student's outcome.
type AttendanceRecordView struct {
	Date        string `json:"date"`
	SessionName string `json:"session_name"`
	Present     bool   `json:"present"`
	Leave       bool   `json:"leave"`
}

// StudentStats summarises a single student's attendance.
type StudentStats struct {
	TotalSessions int                    `json:"total_sessions"`
	Attended      int                    `json:"attended"`
	Leaves        int                    `json:"leaves"`
	Percentage    int                    `json:"percentage"`
	Records       []AttendanceRecordView `json:"records"`
}

// OverallStats summarises a cohort. AverageAttendance is the unweighted mean
// of per-student percentages, not a pooled ratio.
type OverallStats struct {
	AverageAttendance int `json:"average_attendance"`
	TotalSessions     int `json:"total_sessions"`
	StudentsCount     int `json:"students_count"`
}
