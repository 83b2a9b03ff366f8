package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/psychedhire/psychedhire-api/internal/models"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
)

type evaluationRepository interface {
	List(ctx context.Context, filter models.EvaluationFilter) ([]models.EvaluationRequest, int, error)
	FindByID(ctx context.Context, id string) (*models.EvaluationRequest, error)
	Create(ctx context.Context, eval *models.EvaluationRequest) error
	Update(ctx context.Context, eval *models.EvaluationRequest) error
	UpdateStatus(ctx context.Context, id string, from, to models.EvaluationStatus) error
	Delete(ctx context.Context, districtID, id string) error
	Offer(ctx context.Context, id, psychologistID string) error
	Release(ctx context.Context, id string) error
}

// EvaluationRequestPayload holds payload for creating or updating an
// evaluation request.
type EvaluationRequestPayload struct {
	SchoolID      string  `json:"school_id" validate:"required"`
	StudentID     *string `json:"student_id"`
	LegalName     string  `json:"legal_name" validate:"required"`
	ServiceType   string  `json:"service_type" validate:"required"`
	PaymentAmount float64 `json:"payment_amount" validate:"gte=0"`
}

// EvaluationService handles the evaluation request lifecycle. Requests go
// live through admin review; assignment then moves OFFERED, ACCEPTED,
// IN_PROGRESS, COMPLETED with every step guarded by the transition table.
type EvaluationService struct {
	repo          evaluationRepository
	schools       studentSchoolRepository
	psychologists applicationPsychologistRepository
	districts     applicationDistrictRepository
	notifications *NotificationService
	events        eventRecorder
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewEvaluationService constructs the evaluation service.
func NewEvaluationService(
	repo evaluationRepository,
	schools studentSchoolRepository,
	psychologists applicationPsychologistRepository,
	districts applicationDistrictRepository,
	notifications *NotificationService,
	events eventRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
) *EvaluationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationService{
		repo:          repo,
		schools:       schools,
		psychologists: psychologists,
		districts:     districts,
		notifications: notifications,
		events:        events,
		validator:     validate,
		logger:        logger,
	}
}

// List returns evaluation requests and pagination metadata.
func (s *EvaluationService) List(ctx context.Context, filter models.EvaluationFilter) ([]models.EvaluationRequest, *models.Pagination, error) {
	evaluations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
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
	return evaluations, pagination, nil
}

// Get returns an evaluation request by ID.
func (s *EvaluationService) Get(ctx context.Context, id string) (*models.EvaluationRequest, error) {
	eval, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	return eval, nil
}

// Create registers a new PENDING evaluation request under the district. The
// referenced school must belong to the district.
func (s *EvaluationService) Create(ctx context.Context, districtID, userID string, req EvaluationRequestPayload) (*models.EvaluationRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	if err := s.checkSchool(ctx, districtID, req.SchoolID); err != nil {
		return nil, err
	}
	eval := &models.EvaluationRequest{
		DistrictID:    districtID,
		SchoolID:      req.SchoolID,
		StudentID:     req.StudentID,
		LegalName:     req.LegalName,
		ServiceType:   req.ServiceType,
		PaymentAmount: req.PaymentAmount,
		Status:        models.EvaluationStatusPending,
	}
	if err := s.repo.Create(ctx, eval); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create evaluation")
	}
	if s.events != nil {
		s.events.Record(ctx, "evaluation_requested", &userID, map[string]string{"evaluation_id": eval.ID})
	}
	return eval, nil
}

// Update modifies a PENDING evaluation the district owns. Once a request
// has been reviewed it is read-only to the district.
func (s *EvaluationService) Update(ctx context.Context, districtID, id string, req EvaluationRequestPayload) (*models.EvaluationRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	if err := s.checkSchool(ctx, districtID, req.SchoolID); err != nil {
		return nil, err
	}
	eval := &models.EvaluationRequest{
		ID:            id,
		DistrictID:    districtID,
		SchoolID:      req.SchoolID,
		StudentID:     req.StudentID,
		LegalName:     req.LegalName,
		ServiceType:   req.ServiceType,
		PaymentAmount: req.PaymentAmount,
	}
	if err := s.repo.Update(ctx, eval); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "evaluation is not editable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update evaluation")
	}
	return s.Get(ctx, id)
}

// Delete removes a PENDING evaluation the district owns. Reviewed requests
// cannot be deleted.
func (s *EvaluationService) Delete(ctx context.Context, districtID, id string) error {
	if err := s.repo.Delete(ctx, districtID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "evaluation is not deletable")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete evaluation")
	}
	return nil
}

// Offer assigns an ACTIVE unassigned evaluation to a psychologist and
// notifies them.
func (s *EvaluationService) Offer(ctx context.Context, districtID, id, psychologistID string) (*models.EvaluationRequest, error) {
	eval, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if eval.DistrictID != districtID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
	}

	psych, err := s.psychologists.FindByID(ctx, psychologistID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "psychologist not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load psychologist")
	}
	if psych.Status != models.ApprovalStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrValidation, "psychologist is not approved")
	}

	if err := s.repo.Offer(ctx, id, psychologistID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "evaluation is not open for assignment")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to offer evaluation")
	}

	s.notifications.Notify(ctx, psych.UserID,
		fmt.Sprintf("You have been offered the evaluation %q.", eval.LegalName),
		models.NotificationTypeEvaluationOffered, &eval.ID)

	return s.Get(ctx, id)
}

// Respond records the assigned psychologist's answer to an offer. Accepting
// moves the request to ACCEPTED and notifies the district; declining
// releases the assignment back to ACTIVE.
func (s *EvaluationService) Respond(ctx context.Context, psychologistID, id string, accept bool) (*models.EvaluationRequest, error) {
	eval, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if eval.PsychologistID == nil || *eval.PsychologistID != psychologistID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
	}
	if eval.Status != models.EvaluationStatusOffered {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "evaluation has no open offer")
	}

	if accept {
		if err := s.repo.UpdateStatus(ctx, id, models.EvaluationStatusOffered, models.EvaluationStatusAccepted); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "evaluation status changed concurrently")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept evaluation")
		}
		if district, derr := s.districts.FindByID(ctx, eval.DistrictID); derr == nil {
			s.notifications.Notify(ctx, district.UserID,
				fmt.Sprintf("Evaluation %q has been accepted.", eval.LegalName),
				models.NotificationTypeEvaluationAccepted, &eval.ID)
		} else {
			s.logger.Warn("failed to resolve district for evaluation notification", zap.Error(derr))
		}
	} else {
		if err := s.repo.Release(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "evaluation status changed concurrently")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decline evaluation")
		}
	}

	return s.Get(ctx, id)
}

// Advance moves an accepted evaluation through IN_PROGRESS and COMPLETED on
// behalf of the assigned psychologist.
func (s *EvaluationService) Advance(ctx context.Context, psychologistID, id string, target models.EvaluationStatus) (*models.EvaluationRequest, error) {
	eval, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if eval.PsychologistID == nil || *eval.PsychologistID != psychologistID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
	}
	if target != models.EvaluationStatusInProgress && target != models.EvaluationStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target status must be IN_PROGRESS or COMPLETED")
	}
	if !models.CanTransitionEvaluation(eval.Status, target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move evaluation from %s to %s", eval.Status, target))
	}

	if err := s.repo.UpdateStatus(ctx, id, eval.Status, target); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "evaluation status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance evaluation")
	}

	if s.events != nil && target == models.EvaluationStatusCompleted {
		s.events.Record(ctx, "evaluation_completed", nil, map[string]string{"evaluation_id": eval.ID})
	}

	return s.Get(ctx, id)
}

func (s *EvaluationService) checkSchool(ctx context.Context, districtID, schoolID string) error {
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "school not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate school")
	}
	if school.DistrictID != districtID {
		return appErrors.Clone(appErrors.ErrValidation, "school belongs to another district")
	}
	return nil
}
