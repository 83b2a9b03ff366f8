package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/psychedhire/psychedhire-api/internal/models"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
)

type applicationRepository interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ApplicationDetail, error)
	ExistsByJobAndPsychologist(ctx context.Context, jobID, psychologistID string) (bool, error)
	Create(ctx context.Context, app *models.Application) error
	UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus) error
}

type applicationJobRepository interface {
	FindByID(ctx context.Context, id string) (*models.Job, error)
}

type applicationPsychologistRepository interface {
	FindByID(ctx context.Context, id string) (*models.Psychologist, error)
}

type applicationDistrictRepository interface {
	FindByID(ctx context.Context, id string) (*models.District, error)
}

// ApplyRequest holds payload for submitting a job application.
type ApplyRequest struct {
	JobID       string   `json:"job_id" validate:"required"`
	Notes       string   `json:"notes"`
	DocumentIDs []string `json:"document_ids"`
}

// ReviewApplicationRequest moves an application through the review states.
type ReviewApplicationRequest struct {
	Status models.ApplicationStatus `json:"status" validate:"required,oneof=UNDER_REVIEW APPROVED REJECTED"`
	Notes  string                   `json:"notes"`
}

// ApplicationService handles job application use-cases. A psychologist may
// apply to an active job at most once; reviews follow the transition table.
type ApplicationService struct {
	repo          applicationRepository
	jobs          applicationJobRepository
	psychologists applicationPsychologistRepository
	districts     applicationDistrictRepository
	notifications *NotificationService
	events        eventRecorder
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewApplicationService constructs the application service.
func NewApplicationService(
	repo applicationRepository,
	jobs applicationJobRepository,
	psychologists applicationPsychologistRepository,
	districts applicationDistrictRepository,
	notifications *NotificationService,
	events eventRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{
		repo:          repo,
		jobs:          jobs,
		psychologists: psychologists,
		districts:     districts,
		notifications: notifications,
		events:        events,
		validator:     validate,
		logger:        logger,
	}
}

// List returns applications and pagination metadata.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	applications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
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
	return applications, pagination, nil
}

// Get returns an application visible to either the applying psychologist or
// the district that owns the job.
func (s *ApplicationService) Get(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return detail, nil
}

// Apply submits an application for an active job. Applying twice to the
// same job is a conflict regardless of the first application's status.
func (s *ApplicationService) Apply(ctx context.Context, psychologistID, userID string, req ApplyRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	job, err := s.jobs.FindByID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load job")
	}
	if job.Status != models.JobStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "job is not accepting applications")
	}

	exists, err := s.repo.ExistsByJobAndPsychologist(ctx, req.JobID, psychologistID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prior application")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyApplied, "application already submitted for this job")
	}

	app := &models.Application{
		JobID:          req.JobID,
		PsychologistID: psychologistID,
		Status:         models.ApplicationStatusSubmitted,
		Notes:          req.Notes,
		DocumentIDs:    pq.StringArray(req.DocumentIDs),
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}

	if district, err := s.districts.FindByID(ctx, job.DistrictID); err == nil {
		s.notifications.Notify(ctx, district.UserID,
			fmt.Sprintf("New application received for %q.", job.Title),
			models.NotificationTypeApplicationStatus, &app.ID)
	} else {
		s.logger.Warn("failed to resolve district for application notification", zap.Error(err))
	}

	if s.events != nil {
		s.events.Record(ctx, "application_submitted", &userID, map[string]string{"job_id": job.ID, "application_id": app.ID})
	}

	return app, nil
}

// Review moves an application to a new status on behalf of the district
// that owns the job. Invalid transitions are conflicts, and a concurrent
// decision surfaces the same way.
func (s *ApplicationService) Review(ctx context.Context, districtID, applicationID, reviewerUserID string, req ReviewApplicationRequest) (*models.ApplicationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	detail, err := s.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if detail.DistrictID != districtID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	if !models.CanTransitionApplication(detail.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move application from %s to %s", detail.Status, req.Status))
	}

	if err := s.repo.UpdateStatus(ctx, applicationID, detail.Status, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyReviewed, "application status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application")
	}

	if psych, err := s.psychologists.FindByID(ctx, detail.PsychologistID); err == nil {
		s.notifications.Notify(ctx, psych.UserID,
			fmt.Sprintf("Your application for %q is now %s.", detail.JobTitle, req.Status),
			models.NotificationTypeApplicationStatus, &detail.ID)
	} else {
		s.logger.Warn("failed to resolve psychologist for application notification", zap.Error(err))
	}

	if s.events != nil {
		s.events.Record(ctx, "application_reviewed", &reviewerUserID, map[string]string{
			"application_id": detail.ID,
			"status":         string(req.Status),
		})
	}

	detail.Status = req.Status
	return detail, nil
}
