package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psychedhire/psychedhire-api/internal/models"
	"github.com/psychedhire/psychedhire-api/internal/service"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
	"github.com/psychedhire/psychedhire-api/pkg/response"
)

// JobHandler exposes job posting endpoints. Districts manage their own
// postings, psychologists browse active ones, admins see everything.
type JobHandler struct {
	jobs          *service.JobService
	districts     *service.DistrictService
	psychologists *service.PsychologistService
}

// NewJobHandler constructs JobHandler.
func NewJobHandler(jobs *service.JobService, districts *service.DistrictService, psychologists *service.PsychologistService) *JobHandler {
	return &JobHandler{jobs: jobs, districts: districts, psychologists: psychologists}
}

// List godoc
// @Summary List jobs
// @Description Districts see their own postings, psychologists see active ones. available=true hides jobs already applied to.
// @Tags Jobs
// @Produce json
// @Param status query string false "Filter by status (admin and district)"
// @Param state query string false "Filter by state"
// @Param search query string false "Search by title"
// @Param available query bool false "Only jobs not yet applied to (psychologist)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.JobFilter
	filter.State = c.Query("state")
	filter.Search = searchQuery(c)
	filter.Page, filter.PageSize = pageQuery(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	switch claims.Role {
	case models.RoleDistrict:
		district, err := h.districts.RequireApproved(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.DistrictID = district.ID
		if raw := c.Query("status"); raw != "" {
			status := models.JobStatus(raw)
			filter.Status = &status
		}
	case models.RolePsychologist:
		psychologist, err := h.psychologists.RequireApproved(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if c.Query("available") == "true" {
			filter.AvailableFor = psychologist.ID
		} else {
			status := models.JobStatusActive
			filter.Status = &status
		}
	default:
		filter.DistrictID = c.Query("districtId")
		if raw := c.Query("status"); raw != "" {
			status := models.JobStatus(raw)
			filter.Status = &status
		}
	}

	jobs, pagination, err := h.jobs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, pagination)
}

// Get godoc
// @Summary Get job detail
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Create godoc
// @Summary Create job posting
// @Description New postings enter the PENDING admin review queue
// @Tags Jobs
// @Accept json
// @Produce json
// @Param payload body service.JobRequest true "Job payload"
// @Success 201 {object} response.Envelope
// @Router /jobs [post]
func (h *JobHandler) Create(c *gin.Context) {
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
	var req service.JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.jobs.Create(c.Request.Context(), district.ID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// Update godoc
// @Summary Update job posting
// @Tags Jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param payload body service.JobRequest true "Job payload"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id} [put]
func (h *JobHandler) Update(c *gin.Context) {
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
	var req service.JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.jobs.Update(c.Request.Context(), district.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// SetActive godoc
// @Summary Activate or deactivate a reviewed job
// @Tags Jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param payload body map[string]bool true "Active flag"
// @Success 204 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /jobs/{id}/active [patch]
func (h *JobHandler) SetActive(c *gin.Context) {
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
	var payload struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "active flag required"))
		return
	}
	if err := h.jobs.SetActive(c.Request.Context(), district.ID, c.Param("id"), *payload.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete job posting
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 204 {object} response.Envelope
// @Router /jobs/{id} [delete]
func (h *JobHandler) Delete(c *gin.Context) {
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
	if err := h.jobs.Delete(c.Request.Context(), district.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
