package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/dto"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/middleware"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/service"
	appErrors "github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/errors"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/response"
)

type codeIssuer interface {
	Issue(ctx context.Context, date string, sessionName *string) (*models.SessionCode, error)
	Current(ctx context.Context) (*models.SessionCode, error)
	Remaining(ctx context.Context) (*models.CodeCountdown, error)
}

type attendanceLedger interface {
	Submit(ctx context.Context, studentEmail, submittedCode string) (*models.AttendanceRecord, error)
	ManualMark(ctx context.Context, actor *models.JWTClaims, studentEmail, date string, sessionName *string, status models.AttendanceStatus) (*models.AttendanceRecord, error)
	Edit(ctx context.Context, actor *models.JWTClaims, recordID, studentEmail, date string, sessionName *string, status models.AttendanceStatus) (*models.AttendanceRecord, error)
	Delete(ctx context.Context, actor *models.JWTClaims, recordID string) error
}

type attendanceDashboard interface {
	StudentStats(ctx context.Context, studentEmail string) (*models.StudentStats, bool, error)
	Overview(ctx context.Context) (*models.OverallStats, bool, error)
	StudentRecords(ctx context.Context, studentEmail string) ([]models.AttendanceRecordView, error)
	CalendarDays(ctx context.Context) ([]string, error)
	SessionsOnDate(ctx context.Context, date string) ([]string, error)
}

type attendanceExporter interface {
	StudentSheet(ctx context.Context, studentEmail, format string) ([]byte, string, error)
	EnqueueStudentSheet(ctx context.Context, studentEmail, format string) (string, error)
}

// AttendanceHandler wires the attendance services to HTTP endpoints.
type AttendanceHandler struct {
	codes     codeIssuer
	ledger    attendanceLedger
	dashboard attendanceDashboard
	exporter  attendanceExporter
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(codes codeIssuer, ledger attendanceLedger, dashboard attendanceDashboard, exporter attendanceExporter) *AttendanceHandler {
	return &AttendanceHandler{codes: codes, ledger: ledger, dashboard: dashboard, exporter: exporter}
}

// IssueCode godoc
// @Summary Issue attendance code
// @Description Generate a short-lived session code for the given date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.IssueCodeRequest true "Session context"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/codes [post]
func (h *AttendanceHandler) IssueCode(c *gin.Context) {
	var req dto.IssueCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid code payload"))
		return
	}

	code, err := h.codes.Issue(c.Request.Context(), req.Date, req.SessionName)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, code)
}

// CurrentCode godoc
// @Summary Current attendance code
// @Description Return the active code and its remaining lifetime, if any
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/codes/current [get]
func (h *AttendanceHandler) CurrentCode(c *gin.Context) {
	code, err := h.codes.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	res := dto.ActiveCodeResponse{Active: code != nil, Code: code}
	if code != nil {
		remaining, err := h.codes.Remaining(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		res.Remaining = remaining
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Submit godoc
// @Summary Submit attendance code
// @Description Record the authenticated student as present for the active session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.SubmitRequest true "Submitted code"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /attendance/submissions [post]
func (h *AttendanceHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}

	record, err := h.ledger.Submit(c.Request.Context(), claims.Email, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, record)
}

// ManualMark godoc
// @Summary Manually mark attendance
// @Description Set one student's status for a session without a code
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.ManualMarkRequest true "Mark payload"
// @Success 200 {object} response.Envelope
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/records [post]
func (h *AttendanceHandler) ManualMark(c *gin.Context) {
	claims := claimsFromContext(c)

	var req dto.ManualMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mark payload"))
		return
	}

	status := models.AttendanceStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	record, err := h.ledger.ManualMark(c.Request.Context(), claims, req.StudentEmail, req.Date, req.SessionName, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	if record == nil {
		response.NoContent(c)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// EditRecord godoc
// @Summary Edit attendance record
// @Description Change the status of an existing attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body dto.EditRecordRequest true "Edit payload"
// @Success 200 {object} response.Envelope
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/records/{id} [patch]
func (h *AttendanceHandler) EditRecord(c *gin.Context) {
	claims := claimsFromContext(c)
	recordID := c.Param("id")

	var req dto.EditRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid edit payload"))
		return
	}

	status := models.AttendanceStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	record, err := h.ledger.Edit(c.Request.Context(), claims, recordID, req.StudentEmail, req.Date, req.SessionName, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	if record == nil {
		response.NoContent(c)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// DeleteRecord godoc
// @Summary Delete attendance record
// @Description Remove an attendance record entirely
// @Tags Attendance
// @Produce json
// @Param id path string true "Record ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/records/{id} [delete]
func (h *AttendanceHandler) DeleteRecord(c *gin.Context) {
	claims := claimsFromContext(c)

	if err := h.ledger.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// StudentRecords godoc
// @Summary Student attendance history
// @Description List one student's per-session attendance, newest first
// @Tags Attendance
// @Produce json
// @Param email path string true "Student email"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/students/{email}/records [get]
func (h *AttendanceHandler) StudentRecords(c *gin.Context) {
	records, err := h.dashboard.StudentRecords(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, records, nil)
}

// StudentStats godoc
// @Summary Student attendance statistics
// @Description Attendance counts and percentage for one student
// @Tags Attendance
// @Produce json
// @Param email path string true "Student email"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/students/{email}/stats [get]
func (h *AttendanceHandler) StudentStats(c *gin.Context) {
	start := time.Now()
	stats, cacheHit, err := h.dashboard.StudentStats(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, stats, nil, meta)
}

// Overview godoc
// @Summary Class attendance overview
// @Description Average attendance across all enrolled students
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /attendance/overview [get]
func (h *AttendanceHandler) Overview(c *gin.Context) {
	start := time.Now()
	overview, cacheHit, err := h.dashboard.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, overview, nil, meta)
}

// CalendarDays godoc
// @Summary Days with attendance activity
// @Description Sorted list of dates that have at least one record
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/calendar/days [get]
func (h *AttendanceHandler) CalendarDays(c *gin.Context) {
	days, err := h.dashboard.CalendarDays(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, days, nil)
}

// SessionsOnDate godoc
// @Summary Sessions held on a date
// @Description Distinct session labels recorded for the given date
// @Tags Attendance
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/calendar/{date}/sessions [get]
func (h *AttendanceHandler) SessionsOnDate(c *gin.Context) {
	sessions, err := h.dashboard.SessionsOnDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, sessions, nil)
}

// Export godoc
// @Summary Export student attendance
// @Description Produce a CSV or PDF attendance sheet for one student
// @Tags Attendance
// @Produce json
// @Param student query string true "Student email"
// @Param format query string false "csv or pdf (default csv)"
// @Param async query bool false "Queue the export instead of streaming it"
// @Success 200 {file} binary
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exports are disabled"))
		return
	}

	studentEmail := strings.TrimSpace(c.Query("student"))
	if studentEmail == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student is required"))
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", service.ExportFormatCSV)))

	if c.Query("async") == "true" {
		fileName, err := h.exporter.EnqueueStudentSheet(c.Request.Context(), studentEmail, format)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusAccepted, dto.ExportQueuedResponse{FileName: fileName}, nil)
		return
	}

	payload, fileName, err := h.exporter.StudentSheet(c.Request.Context(), studentEmail, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := "text/csv"
	if format == service.ExportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
