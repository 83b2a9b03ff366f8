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

type psychologistRepository interface {
	List(ctx context.Context, filter models.PsychologistFilter) ([]models.Psychologist, int, error)
	FindByID(ctx context.Context, id string) (*models.Psychologist, error)
	FindByUserID(ctx context.Context, userID string) (*models.Psychologist, error)
	Update(ctx context.Context, psych *models.Psychologist) error
}

// SignupStepRequest submits one step of the signup wizard. Steps must be
// completed in order; resubmitting a finished step updates it in place.
type SignupStepRequest struct {
	Step            int      `json:"step" validate:"required,min=1,max=5"`
	Education       string   `json:"education"`
	ExperienceYears int      `json:"experience_years" validate:"gte=0"`
	Specialties     []string `json:"specialties"`
	Certifications  []string `json:"certifications"`
}

// PsychologistService handles psychologist profile use-cases including the
// staged signup wizard.
type PsychologistService struct {
	repo      psychologistRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPsychologistService constructs the psychologist service.
func NewPsychologistService(repo psychologistRepository, validate *validator.Validate, logger *zap.Logger) *PsychologistService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PsychologistService{repo: repo, validator: validate, logger: logger}
}

// List returns psychologists and pagination metadata.
func (s *PsychologistService) List(ctx context.Context, filter models.PsychologistFilter) ([]models.Psychologist, *models.Pagination, error) {
	psychologists, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list psychologists")
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
	return psychologists, pagination, nil
}

// Get returns a psychologist by ID.
func (s *PsychologistService) Get(ctx context.Context, id string) (*models.Psychologist, error) {
	psych, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "psychologist not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load psychologist")
	}
	return psych, nil
}

// GetByUser returns the psychologist profile owned by the given user.
func (s *PsychologistService) GetByUser(ctx context.Context, userID string) (*models.Psychologist, error) {
	psych, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "psychologist profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load psychologist profile")
	}
	return psych, nil
}

// RequireApproved loads the caller's psychologist profile and fails unless
// it has been approved.
func (s *PsychologistService) RequireApproved(ctx context.Context, userID string) (*models.Psychologist, error) {
	psych, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if psych.Status != models.ApprovalStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "psychologist profile is not approved")
	}
	return psych, nil
}

// SubmitStep advances the signup wizard. A step may only be submitted when
// every earlier step is done; finishing the last step marks the profile
// complete, which places it in the admin review queue.
func (s *PsychologistService) SubmitStep(ctx context.Context, userID string, req SignupStepRequest) (*models.Psychologist, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup step payload")
	}

	psych, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if psych.SignupCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "signup already completed")
	}
	if req.Step > psych.SignupProgress+1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("step %d is not reachable yet, current progress is %d", req.Step, psych.SignupProgress))
	}

	// Steps carry cumulative profile fields; later steps overwrite what
	// they own and leave the rest untouched.
	switch req.Step {
	case 1, 2:
		psych.Education = req.Education
		psych.ExperienceYears = req.ExperienceYears
	case 3:
		psych.Specialties = pq.StringArray(req.Specialties)
	case 4:
		psych.Certifications = pq.StringArray(req.Certifications)
	}

	if req.Step > psych.SignupProgress {
		psych.SignupProgress = req.Step
	}
	if psych.SignupProgress >= models.SignupStepMax {
		psych.SignupCompleted = true
	}

	if err := s.repo.Update(ctx, psych); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "psychologist not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save signup step")
	}

	s.logger.Info("signup step saved",
		zap.String("user_id", userID),
		zap.Int("step", req.Step),
		zap.Bool("completed", psych.SignupCompleted))

	return psych, nil
}
