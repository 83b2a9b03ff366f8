package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psychedhire/psychedhire-api/internal/models"
	"github.com/psychedhire/psychedhire-api/internal/service"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
	"github.com/psychedhire/psychedhire-api/pkg/response"
)

// ApplicationHandler exposes job application endpoints.
type ApplicationHandler struct {
	applications  *service.ApplicationService
	districts     *service.DistrictService
	psychologists *service.PsychologistService
}

// NewApplicationHandler constructs ApplicationHandler.
func NewApplicationHandler(applications *service.ApplicationService, districts *service.DistrictService, psychologists *service.PsychologistService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, districts: districts, psychologists: psychologists}
}

// List godoc
// @Summary List applications
// @Description Psychologists see their own applications, districts see applications to their jobs
// @Tags Applications
// @Produce json
// @Param jobId query string false "Filter by job"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.ApplicationFilter
	filter.JobID = c.Query("jobId")
	if raw := c.Query("status"); raw != "" {
		status := models.ApplicationStatus(raw)
		filter.Status = &status
	}
	filter.Page, filter.PageSize = pageQuery(c)

	switch claims.Role {
	case models.RolePsychologist:
		psychologist, err := h.psychologists.GetByUser(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.PsychologistID = psychologist.ID
	case models.RoleDistrict:
		district, err := h.districts.RequireApproved(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.DistrictID = district.ID
	}

	applications, pagination, err := h.applications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applications, pagination)
}

// Get godoc
// @Summary Get application detail
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.applications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	// Non-admins only see applications on their side of the exchange.
	switch claims.Role {
	case models.RolePsychologist:
		psychologist, err := h.psychologists.GetByUser(c.Request.Context(), claims.UserID)
		if err != nil || detail.PsychologistID != psychologist.ID {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "application not found"))
			return
		}
	case models.RoleDistrict:
		district, err := h.districts.GetByUser(c.Request.Context(), claims.UserID)
		if err != nil || detail.DistrictID != district.ID {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "application not found"))
			return
		}
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Apply godoc
// @Summary Apply to a job
// @Description One application per psychologist per job; the job must be ACTIVE
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body service.ApplyRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	psychologist, err := h.psychologists.RequireApproved(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	application, err := h.applications.Apply(c.Request.Context(), psychologist.ID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, application)
}

// Review godoc
// @Summary Review an application
// @Description Move an application to UNDER_REVIEW, APPROVED, or REJECTED
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body service.ReviewApplicationRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /applications/{id}/review [post]
func (h *ApplicationHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	district, err := h.districts.RequireApproved(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.ReviewApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.applications.Review(c.Request.Context(), district.ID, c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
