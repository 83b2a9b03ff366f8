package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/psychedhire/psychedhire-api/internal/models"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
	"github.com/psychedhire/psychedhire-api/pkg/export"
	"github.com/psychedhire/psychedhire-api/pkg/jobs"
	"github.com/psychedhire/psychedhire-api/pkg/storage"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	ListByRequester(ctx context.Context, userID string, limit int) ([]models.ReportJob, error)
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, filePath string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// CreateReportRequest holds payload for requesting an export.
type CreateReportRequest struct {
	Dataset models.ReportDataset `json:"dataset" validate:"required,oneof=students evaluations approvals"`
	Format  models.ReportFormat  `json:"format" validate:"required,oneof=csv pdf"`
}

// ReportServiceConfig governs export retention and worker behaviour.
type ReportServiceConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// ReportService orchestrates async dataset exports. Jobs are queued,
// rendered by a worker, stored on local disk, and downloaded through
// short-lived signed URLs.
type ReportService struct {
	repo        reportJobStore
	students    studentRepository
	evaluations evaluationRepository
	analytics   analyticsRepository
	queue       jobDispatcher
	storage     fileStorage
	signer      *storage.SignedURLSigner
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
	cfg         ReportServiceConfig
}

// NewReportService constructs the report service.
func NewReportService(
	repo reportJobStore,
	students studentRepository,
	evaluations evaluationRepository,
	analytics analyticsRepository,
	queue jobDispatcher,
	store fileStorage,
	signer *storage.SignedURLSigner,
	logger *zap.Logger,
	cfg ReportServiceConfig,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ReportService{
		repo:        repo,
		students:    students,
		evaluations: evaluations,
		analytics:   analytics,
		queue:       queue,
		storage:     store,
		signer:      signer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
		cfg:         cfg,
	}
}

// CreateJob validates the request, persists the job, and enqueues it.
// Districts may only export their own students and evaluations; the
// approvals dataset is admin only.
func (s *ReportService) CreateJob(ctx context.Context, requestedBy string, role models.UserRole, districtID string, req CreateReportRequest) (*models.ReportJob, error) {
	switch req.Dataset {
	case models.ReportDatasetStudents, models.ReportDatasetEvaluations:
		if role == models.RoleDistrict && districtID == "" {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "district profile required")
		}
	case models.ReportDatasetApprovals:
		if role != models.RoleAdmin {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "approvals export is admin only")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported dataset")
	}
	if req.Format != models.ReportFormatCSV && req.Format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported format")
	}

	job := &models.ReportJob{
		RequestedBy: requestedBy,
		DistrictID:  districtID,
		Dataset:     req.Dataset,
		Format:      req.Format,
		Status:      models.ReportJobStatusQueued,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Dataset)}); err != nil {
		if markErr := s.repo.MarkFailed(ctx, job.ID, "failed to enqueue job"); markErr != nil {
			s.logger.Warn("failed to mark report job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// GetStatus exposes job metadata, enforcing ownership for non-admins. A
// completed job carries a freshly signed download URL.
func (s *ReportService) GetStatus(ctx context.Context, id, actorID string, role models.UserRole) (*models.ReportJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if role != models.RoleAdmin && job.RequestedBy != actorID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	if job.Status == models.ReportJobStatusCompleted && job.FilePath != "" {
		token, _, err := s.signer.Generate(job.ID, job.FilePath)
		if err != nil {
			s.logger.Warn("failed to sign download url", zap.String("job_id", job.ID), zap.Error(err))
		} else {
			job.DownloadURL = s.downloadURL(token)
		}
	}
	return job, nil
}

// List returns the caller's recent report jobs.
func (s *ReportService) List(ctx context.Context, userID string, limit int) ([]models.ReportJob, error) {
	jobsList, err := s.repo.ListByRequester(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report jobs")
	}
	return jobsList, nil
}

// ResolveDownload validates a signed token and opens the stored file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.Status != models.ReportJobStatusCompleted || job.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
				} else if len(removed) > 0 {
					s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()
}

// Handle processes one queued report job. It is registered as the queue
// handler; returning an error lets the queue retry, and the final attempt
// marks the job FAILED.
func (s *ReportService) Handle(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.FindByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkRunning(ctx, record.ID); err != nil {
		return err
	}

	dataset, title, err := s.buildDataset(ctx, record)
	if err != nil {
		return s.handleGenerateError(ctx, job, err)
	}

	var payload []byte
	switch record.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", record.Format)
	}
	if err != nil {
		return s.handleGenerateError(ctx, job, err)
	}

	filename := fmt.Sprintf("%s_%s_%d.%s", record.Dataset, record.ID, time.Now().UTC().Unix(), record.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return s.handleGenerateError(ctx, job, err)
	}

	if err := s.repo.MarkCompleted(ctx, record.ID, relPath); err != nil {
		s.logger.Warn("failed to mark report completed", zap.String("job_id", record.ID), zap.Error(err))
		return err
	}
	return nil
}

func (s *ReportService) handleGenerateError(ctx context.Context, job jobs.Job, cause error) error {
	if job.Attempt >= s.cfg.MaxRetries {
		if err := s.repo.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
			s.logger.Warn("failed to mark report failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return cause
}

func (s *ReportService) downloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/reports/download/%s", prefix, token)
}

func (s *ReportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Dataset {
	case models.ReportDatasetStudents:
		return s.buildStudentDataset(ctx, job.DistrictID)
	case models.ReportDatasetEvaluations:
		return s.buildEvaluationDataset(ctx, job.DistrictID)
	case models.ReportDatasetApprovals:
		return s.buildApprovalDataset(ctx)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported dataset %s", job.Dataset)
	}
}

func (s *ReportService) buildStudentDataset(ctx context.Context, districtID string) (export.Dataset, string, error) {
	students, _, err := s.students.List(ctx, models.StudentFilter{DistrictID: districtID, PageSize: 100})
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataset := export.Dataset{Headers: []string{"ID", "First Name", "Last Name", "Grade", "Guardian", "Guardian Email"}}
	for _, st := range students {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":             st.ID,
			"First Name":     st.FirstName,
			"Last Name":      st.LastName,
			"Grade":          st.Grade,
			"Guardian":       st.GuardianName,
			"Guardian Email": st.GuardianEmail,
		})
	}
	return dataset, "Student Roster", nil
}

func (s *ReportService) buildEvaluationDataset(ctx context.Context, districtID string) (export.Dataset, string, error) {
	evaluations, _, err := s.evaluations.List(ctx, models.EvaluationFilter{DistrictID: districtID, PageSize: 100})
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataset := export.Dataset{Headers: []string{"ID", "Student", "Service Type", "Payment", "Status", "Created"}}
	for _, ev := range evaluations {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":           ev.ID,
			"Student":      ev.LegalName,
			"Service Type": ev.ServiceType,
			"Payment":      strconv.FormatFloat(ev.PaymentAmount, 'f', 2, 64),
			"Status":       string(ev.Status),
			"Created":      ev.CreatedAt.Format(time.RFC3339),
		})
	}
	return dataset, "Evaluation Requests", nil
}

func (s *ReportService) buildApprovalDataset(ctx context.Context) (export.Dataset, string, error) {
	dataset := export.Dataset{Headers: []string{"Entity", "Status", "Count"}}
	for _, table := range []string{"districts", "psychologists", "jobs", "evaluation_requests"} {
		counts, err := s.analytics.CountByStatus(ctx, table)
		if err != nil {
			return export.Dataset{}, "", err
		}
		for _, c := range counts {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Entity": table,
				"Status": c.Status,
				"Count":  strconv.Itoa(c.Count),
			})
		}
	}
	return dataset, "Approval Pipeline", nil
}
