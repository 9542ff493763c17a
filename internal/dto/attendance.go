package dto

import "github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"

// IssueCodeRequest asks for a new session code.
type IssueCodeRequest struct {
	Date        string  `json:"date"`
	SessionName *string `json:"session_name"`
}

// ActiveCodeResponse describes the currently valid code, if any.
type ActiveCodeResponse struct {
	Active    bool                  `json:"active"`
	Code      *models.SessionCode   `json:"code,omitempty"`
	Remaining *models.CodeCountdown `json:"remaining,omitempty"`
}

// SubmitRequest is a student's code submission. The student identity comes
// from the authenticated session, not the payload.
type SubmitRequest struct {
	Code string `json:"code"`
}

// ManualMarkRequest marks one student's slot for a session.
type ManualMarkRequest struct {
	StudentEmail string  `json:"student_email"`
	Date         string  `json:"date"`
	SessionName  *string `json:"session_name"`
	Status       string  `json:"status"`
}

// EditRecordRequest changes an existing record's status. Date and session
// name give the fallback context when the id no longer exists.
type EditRecordRequest struct {
	StudentEmail string  `json:"student_email"`
	Date         string  `json:"date"`
	SessionName  *string `json:"session_name"`
	Status       string  `json:"status"`
}

// ExportQueuedResponse reports where a background export will land.
type ExportQueuedResponse struct {
	FileName string `json:"file_name"`
}
