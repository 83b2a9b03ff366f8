package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/psychedhire/psychedhire-api/internal/models"
	"github.com/psychedhire/psychedhire-api/internal/service"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
	"github.com/psychedhire/psychedhire-api/pkg/response"
)

// PsychologistHandler exposes psychologist profile endpoints.
type PsychologistHandler struct {
	psychologists *service.PsychologistService
}

// NewPsychologistHandler constructs PsychologistHandler.
func NewPsychologistHandler(psychologists *service.PsychologistService) *PsychologistHandler {
	return &PsychologistHandler{psychologists: psychologists}
}

// List godoc
// @Summary List psychologists
// @Tags Psychologists
// @Produce json
// @Param status query string false "Filter by approval status"
// @Param specialty query string false "Filter by specialty"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /psychologists [get]
func (h *PsychologistHandler) List(c *gin.Context) {
	var filter models.PsychologistFilter
	if raw := c.Query("status"); raw != "" {
		status := models.ApprovalStatus(raw)
		filter.Status = &status
	}
	filter.Specialty = c.Query("specialty")
	filter.Search = searchQuery(c)
	filter.Page, filter.PageSize = pageQuery(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	psychologists, pagination, err := h.psychologists.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, psychologists, pagination)
}

// Get godoc
// @Summary Get psychologist detail
// @Tags Psychologists
// @Produce json
// @Param id path string true "Psychologist ID"
// @Success 200 {object} response.Envelope
// @Router /psychologists/{id} [get]
func (h *PsychologistHandler) Get(c *gin.Context) {
	psychologist, err := h.psychologists.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, psychologist, nil)
}

// GetMine godoc
// @Summary Get own psychologist profile
// @Tags Psychologists
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /psychologists/me [get]
func (h *PsychologistHandler) GetMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	psychologist, err := h.psychologists.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, psychologist, nil)
}

// SubmitStep godoc
// @Summary Submit signup wizard step
// @Description Advance the multi-step signup; completing the last step submits the profile for review
// @Tags Psychologists
// @Accept json
// @Produce json
// @Param step path int true "Wizard step (1-5)"
// @Param payload body service.SignupStepRequest true "Step payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /psychologists/me/signup/{step} [put]
func (h *PsychologistHandler) SubmitStep(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "step must be a number"))
		return
	}
	var req service.SignupStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid step payload"))
		return
	}
	req.Step = step
	psychologist, err := h.psychologists.SubmitStep(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, psychologist, nil)
}
