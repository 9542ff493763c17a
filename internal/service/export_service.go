package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/internal/models"
	appErrors "github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/errors"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/export"
	"github.com/PiyushChaturvedii/login-leaf-saver-sub000/pkg/jobs"
)

const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type exportStatsProvider interface {
	StudentStats(ctx context.Context, studentEmail string) (*models.StudentStats, bool, error)
}

// ExportConfig tunes attendance sheet generation.
type ExportConfig struct {
	StorageDir        string
	WorkerConcurrency int
	WorkerRetries     int
}

// ExportService renders attendance sheets. Inline rendering serves direct
// downloads; larger jobs go through a background queue that writes files
// under the storage directory.
type ExportService struct {
	stats      exportStatsProvider
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	queue      *jobs.Queue
	storageDir string
	logger     *zap.Logger
}

type exportJobPayload struct {
	StudentEmail string
	Format       string
	FileName     string
}

// NewExportService constructs the export service.
func NewExportService(stats exportStatsProvider, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = "./exports"
	}
	s := &ExportService{
		stats:      stats,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		storageDir: cfg.StorageDir,
		logger:     logger,
	}
	s.queue = jobs.NewQueue("attendance-exports", s.processJob, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the background export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the background export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// StudentSheet renders a student's attendance sheet inline and returns the
// bytes together with a suggested file name.
func (s *ExportService) StudentSheet(ctx context.Context, studentEmail, format string) ([]byte, string, error) {
	sheet, err := s.buildSheet(ctx, studentEmail)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.render(sheet, format)
	if err != nil {
		return nil, "", err
	}
	name := fmt.Sprintf("attendance-%s-%s.%s", sanitizeFileName(studentEmail), time.Now().UTC().Format(models.DateLayout), format)
	return payload, name, nil
}

// EnqueueStudentSheet schedules background generation of a student's sheet
// and returns the file name it will be written under.
func (s *ExportService) EnqueueStudentSheet(ctx context.Context, studentEmail, format string) (string, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	jobID := uuid.NewString()
	fileName := fmt.Sprintf("%s.%s", jobID, format)
	err := s.queue.Enqueue(jobs.Job{
		ID:   jobID,
		Type: "student-sheet",
		Payload: exportJobPayload{
			StudentEmail: studentEmail,
			Format:       format,
			FileName:     fileName,
		},
	})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export")
	}
	return fileName, nil
}

func (s *ExportService) processJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportJobPayload)
	if !ok {
		s.logger.Error("unexpected export payload", zap.String("job_id", job.ID))
		return nil
	}
	sheet, err := s.buildSheet(ctx, payload.StudentEmail)
	if err != nil {
		return err
	}
	rendered, err := s.render(sheet, payload.Format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.storageDir, payload.FileName)
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	s.logger.Info("attendance sheet exported",
		zap.String("student", payload.StudentEmail),
		zap.String("path", path),
	)
	return nil
}

func (s *ExportService) buildSheet(ctx context.Context, studentEmail string) (export.Sheet, error) {
	stats, _, err := s.stats.StudentStats(ctx, studentEmail)
	if err != nil {
		return export.Sheet{}, err
	}

	rows := make([][]string, 0, len(stats.Records))
	for _, view := range stats.Records {
		session := view.SessionName
		if session == "" {
			session = models.DefaultSessionName
		}
		rows = append(rows, []string{view.Date, session, statusLabel(view)})
	}

	return export.Sheet{
		Title: "Attendance Report",
		Summary: []string{
			fmt.Sprintf("Student: %s", studentEmail),
			fmt.Sprintf("Sessions: %d", stats.TotalSessions),
			fmt.Sprintf("Attended: %d", stats.Attended),
			fmt.Sprintf("Leaves: %d", stats.Leaves),
			fmt.Sprintf("Attendance: %d%%", stats.Percentage),
		},
		Headers: []string{"Date", "Session", "Status"},
		Rows:    rows,
	}, nil
}

func (s *ExportService) render(sheet export.Sheet, format string) ([]byte, error) {
	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(sheet)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, nil
	case ExportFormatPDF:
		payload, err := s.pdf.Render(sheet)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func statusLabel(view models.AttendanceRecordView) string {
	switch {
	case view.Present:
		return "Present"
	case view.Leave:
		return "Leave"
	default:
		return "Absent"
	}
}

func sanitizeFileName(raw string) string {
	replacer := strings.NewReplacer("@", "_at_", "/", "_", "\\", "_", " ", "_")
	return replacer.Replace(raw)
}
