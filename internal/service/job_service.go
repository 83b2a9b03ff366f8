package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/psychedhire/psychedhire-api/internal/models"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
)

type jobRepository interface {
	List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error)
	FindByID(ctx context.Context, id string) (*models.Job, error)
	Create(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, job *models.Job) error
	UpdateStatus(ctx context.Context, districtID, id string, status models.JobStatus) error
	Delete(ctx context.Context, districtID, id string) error
}

// JobRequest holds payload for creating or updating a job posting.
type JobRequest struct {
	SchoolID          *string  `json:"school_id"`
	Title             string   `json:"title" validate:"required,min=2"`
	Description       string   `json:"description" validate:"required,min=10"`
	City              string   `json:"city"`
	State             string   `json:"state"`
	Salary            float64  `json:"salary" validate:"gte=0"`
	Qualifications    []string `json:"qualifications"`
	DocumentsRequired []string `json:"documents_required"`
}

// JobService handles job posting use-cases. New postings start PENDING and
// only go live through the admin review workflow.
type JobService struct {
	repo      jobRepository
	events    eventRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewJobService constructs the job service.
func NewJobService(repo jobRepository, events eventRecorder, validate *validator.Validate, logger *zap.Logger) *JobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{repo: repo, events: events, validator: validate, logger: logger}
}

// List returns jobs and pagination metadata.
func (s *JobService) List(ctx context.Context, filter models.JobFilter) ([]models.Job, *models.Pagination, error) {
	jobs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list jobs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return jobs, pagination, nil
}

// Get returns a job by ID.
func (s *JobService) Get(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load job")
	}
	return job, nil
}

// Create registers a new PENDING job posting under the district.
func (s *JobService) Create(ctx context.Context, districtID, userID string, req JobRequest) (*models.Job, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid job payload")
	}
	job := &models.Job{
		DistrictID:        districtID,
		SchoolID:          req.SchoolID,
		Title:             req.Title,
		Description:       req.Description,
		City:              req.City,
		State:             req.State,
		Salary:            req.Salary,
		Qualifications:    pq.StringArray(req.Qualifications),
		DocumentsRequired: pq.StringArray(req.DocumentsRequired),
		Status:            models.JobStatusPending,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create job")
	}
	if s.events != nil {
		s.events.Record(ctx, "job_posted", &userID, map[string]string{"job_id": job.ID})
	}
	return job, nil
}

// Update modifies a job the district owns. Status is untouched here.
func (s *JobService) Update(ctx context.Context, districtID, id string, req JobRequest) (*models.Job, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid job payload")
	}
	job := &models.Job{
		ID:                id,
		DistrictID:        districtID,
		SchoolID:          req.SchoolID,
		Title:             req.Title,
		Description:       req.Description,
		City:              req.City,
		State:             req.State,
		Salary:            req.Salary,
		Qualifications:    pq.StringArray(req.Qualifications),
		DocumentsRequired: pq.StringArray(req.DocumentsRequired),
	}
	if err := s.repo.Update(ctx, job); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update job")
	}
	return s.Get(ctx, id)
}

// SetActive toggles a live posting between ACTIVE and INACTIVE. Districts
// may only toggle jobs that have passed review.
func (s *JobService) SetActive(ctx context.Context, districtID, id string, active bool) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.DistrictID != districtID {
		return appErrors.Clone(appErrors.ErrNotFound, "job not found")
	}
	if job.Status != models.JobStatusActive && job.Status != models.JobStatusInactive {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "job has not passed review")
	}
	target := models.JobStatusInactive
	if active {
		target = models.JobStatusActive
	}
	if job.Status == target {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, districtID, id, target); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update job status")
	}
	return nil
}

// Delete removes a job the district owns.
func (s *JobService) Delete(ctx context.Context, districtID, id string) error {
	if err := s.repo.Delete(ctx, districtID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete job")
	}
	return nil
}
