package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/psychedhire/psychedhire-api/internal/models"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, districtID, id string) error
}

type studentSchoolRepository interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

// StudentRequest holds payload for creating or updating a student.
type StudentRequest struct {
	SchoolID      *string `json:"school_id"`
	FirstName     string  `json:"first_name" validate:"required"`
	LastName      string  `json:"last_name" validate:"required"`
	Grade         string  `json:"grade" validate:"required"`
	GuardianName  string  `json:"guardian_name"`
	GuardianEmail string  `json:"guardian_email" validate:"omitempty,email"`
	GuardianPhone string  `json:"guardian_phone"`
}

// StudentService handles student record use-cases, always scoped to the
// owning district.
type StudentService struct {
	repo      studentRepository
	schools   studentSchoolRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, schools studentSchoolRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, schools: schools, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
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
	return students, pagination, nil
}

// Get returns a student belonging to the given district.
func (s *StudentService) Get(ctx context.Context, districtID, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.DistrictID != districtID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// Create registers a new student under the district. When a school is
// given it must belong to the same district.
func (s *StudentService) Create(ctx context.Context, districtID string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.checkSchool(ctx, districtID, req.SchoolID); err != nil {
		return nil, err
	}
	student := &models.Student{
		DistrictID:    districtID,
		SchoolID:      req.SchoolID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Grade:         req.Grade,
		GuardianName:  req.GuardianName,
		GuardianEmail: req.GuardianEmail,
		GuardianPhone: req.GuardianPhone,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies a student the district owns.
func (s *StudentService) Update(ctx context.Context, districtID, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.checkSchool(ctx, districtID, req.SchoolID); err != nil {
		return nil, err
	}
	student := &models.Student{
		ID:            id,
		DistrictID:    districtID,
		SchoolID:      req.SchoolID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Grade:         req.Grade,
		GuardianName:  req.GuardianName,
		GuardianEmail: req.GuardianEmail,
		GuardianPhone: req.GuardianPhone,
	}
	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student the district owns.
func (s *StudentService) Delete(ctx context.Context, districtID, id string) error {
	if err := s.repo.Delete(ctx, districtID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

func (s *StudentService) checkSchool(ctx context.Context, districtID string, schoolID *string) error {
	if schoolID == nil || *schoolID == "" {
		return nil
	}
	school, err := s.schools.FindByID(ctx, *schoolID)
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
