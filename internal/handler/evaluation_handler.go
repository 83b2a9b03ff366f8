package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psychedhire/psychedhire-api/internal/models"
	"github.com/psychedhire/psychedhire-api/internal/service"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
	"github.com/psychedhire/psychedhire-api/pkg/response"
)

// EvaluationHandler exposes evaluation request endpoints. Districts create
// and offer, psychologists respond and advance, admins observe everything.
type EvaluationHandler struct {
	evaluations   *service.EvaluationService
	districts     *service.DistrictService
	psychologists *service.PsychologistService
}

// NewEvaluationHandler constructs EvaluationHandler.
func NewEvaluationHandler(evaluations *service.EvaluationService, districts *service.DistrictService, psychologists *service.PsychologistService) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations, districts: districts, psychologists: psychologists}
}

// List godoc
// @Summary List evaluation requests
// @Description Districts see their own requests; psychologists see assigned ones, or open ones with available=true
// @Tags Evaluations
// @Produce json
// @Param status query string false "Filter by status"
// @Param serviceType query string false "Filter by service type"
// @Param search query string false "Search by student legal name"
// @Param available query bool false "Only open unassigned requests (psychologist)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /evaluations [get]
func (h *EvaluationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.EvaluationFilter
	filter.ServiceType = c.Query("serviceType")
	filter.Search = searchQuery(c)
	filter.Page, filter.PageSize = pageQuery(c)
	if raw := c.Query("status"); raw != "" {
		status := models.EvaluationStatus(raw)
		filter.Status = &status
	}

	switch claims.Role {
	case models.RoleDistrict:
		district, err := h.districts.RequireApproved(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.DistrictID = district.ID
	case models.RolePsychologist:
		psychologist, err := h.psychologists.RequireApproved(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if c.Query("available") == "true" {
			filter.AvailableOnly = true
		} else {
			filter.PsychologistID = psychologist.ID
		}
	default:
		filter.DistrictID = c.Query("districtId")
	}

	evaluations, pagination, err := h.evaluations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluations, pagination)
}

// Get godoc
// @Summary Get evaluation request detail
// @Tags Evaluations
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id} [get]
func (h *EvaluationHandler) Get(c *gin.Context) {
	evaluation, err := h.evaluations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}

// Create godoc
// @Summary Create evaluation request
// @Description New requests enter the PENDING admin review queue
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param payload body service.EvaluationRequestPayload true "Evaluation payload"
// @Success 201 {object} response.Envelope
// @Router /evaluations [post]
func (h *EvaluationHandler) Create(c *gin.Context) {
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
	var req service.EvaluationRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	evaluation, err := h.evaluations.Create(c.Request.Context(), district.ID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, evaluation)
}

// Update godoc
// @Summary Update evaluation request
// @Description Only PENDING requests are editable
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param payload body service.EvaluationRequestPayload true "Evaluation payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /evaluations/{id} [put]
func (h *EvaluationHandler) Update(c *gin.Context) {
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
	var req service.EvaluationRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	evaluation, err := h.evaluations.Update(c.Request.Context(), district.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}

// Delete godoc
// @Summary Delete evaluation request
// @Description Only PENDING requests can be deleted
// @Tags Evaluations
// @Param id path string true "Evaluation ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /evaluations/{id} [delete]
func (h *EvaluationHandler) Delete(c *gin.Context) {
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
	if err := h.evaluations.Delete(c.Request.Context(), district.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Offer godoc
// @Summary Offer an evaluation to a psychologist
// @Description The request must be ACTIVE and unassigned; the psychologist must be APPROVED
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param payload body map[string]string true "Psychologist ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /evaluations/{id}/offer [post]
func (h *EvaluationHandler) Offer(c *gin.Context) {
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
		PsychologistID string `json:"psychologist_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "psychologist_id required"))
		return
	}
	evaluation, err := h.evaluations.Offer(c.Request.Context(), district.ID, c.Param("id"), payload.PsychologistID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}

// Respond godoc
// @Summary Accept or decline an offered evaluation
// @Description Declining releases the request back to the open pool
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param payload body map[string]bool true "Accept flag"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /evaluations/{id}/respond [post]
func (h *EvaluationHandler) Respond(c *gin.Context) {
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
	var payload struct {
		Accept *bool `json:"accept" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "accept flag required"))
		return
	}
	evaluation, err := h.evaluations.Respond(c.Request.Context(), psychologist.ID, c.Param("id"), *payload.Accept)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}

// Advance godoc
// @Summary Advance an accepted evaluation
// @Description Move the assigned evaluation to IN_PROGRESS or COMPLETED
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param payload body map[string]string true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /evaluations/{id}/status [patch]
func (h *EvaluationHandler) Advance(c *gin.Context) {
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
	var payload struct {
		Status models.EvaluationStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status required"))
		return
	}
	evaluation, err := h.evaluations.Advance(c.Request.Context(), psychologist.ID, c.Param("id"), payload.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}
