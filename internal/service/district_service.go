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

type districtRepository interface {
	List(ctx context.Context, filter models.DistrictFilter) ([]models.District, int, error)
	FindByID(ctx context.Context, id string) (*models.District, error)
	FindByUserID(ctx context.Context, userID string) (*models.District, error)
	Update(ctx context.Context, district *models.District) error
}

// UpdateDistrictRequest holds payload for updating a district profile.
type UpdateDistrictRequest struct {
	Name         string `json:"name" validate:"required"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone"`
	Location     string `json:"location"`
	State        string `json:"state"`
}

// DistrictService handles district profile use-cases.
type DistrictService struct {
	repo      districtRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDistrictService constructs the district service.
func NewDistrictService(repo districtRepository, validate *validator.Validate, logger *zap.Logger) *DistrictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DistrictService{repo: repo, validator: validate, logger: logger}
}

// List returns districts and pagination metadata.
func (s *DistrictService) List(ctx context.Context, filter models.DistrictFilter) ([]models.District, *models.Pagination, error) {
	districts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list districts")
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
	return districts, pagination, nil
}

// Get returns a district by ID.
func (s *DistrictService) Get(ctx context.Context, id string) (*models.District, error) {
	district, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "district not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load district")
	}
	return district, nil
}

// GetByUser returns the district profile owned by the given user.
func (s *DistrictService) GetByUser(ctx context.Context, userID string) (*models.District, error) {
	district, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "district profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load district profile")
	}
	return district, nil
}

// RequireApproved loads the caller's district profile and fails unless it
// has been approved. Entity operations are gated on this.
func (s *DistrictService) RequireApproved(ctx context.Context, userID string) (*models.District, error) {
	district, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if district.Status != models.ApprovalStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "district account is not approved")
	}
	return district, nil
}

// UpdateByUser updates the caller's own district profile. Approval status
// is untouched; only admins move it through the review workflow.
func (s *DistrictService) UpdateByUser(ctx context.Context, userID string, req UpdateDistrictRequest) (*models.District, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid district payload")
	}
	district, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	district.Name = req.Name
	district.ContactEmail = req.ContactEmail
	district.ContactPhone = req.ContactPhone
	district.Location = req.Location
	district.State = req.State
	if err := s.repo.Update(ctx, district); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "district not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update district")
	}
	return district, nil
}
