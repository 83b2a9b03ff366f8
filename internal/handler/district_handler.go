package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psychedhire/psychedhire-api/internal/models"
	"github.com/psychedhire/psychedhire-api/internal/service"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
	"github.com/psychedhire/psychedhire-api/pkg/response"
)

// DistrictHandler exposes district profile endpoints.
type DistrictHandler struct {
	districts *service.DistrictService
}

// NewDistrictHandler constructs DistrictHandler.
func NewDistrictHandler(districts *service.DistrictService) *DistrictHandler {
	return &DistrictHandler{districts: districts}
}

// List godoc
// @Summary List districts
// @Tags Districts
// @Produce json
// @Param status query string false "Filter by approval status"
// @Param state query string false "Filter by state"
// @Param search query string false "Search by name or location"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /districts [get]
func (h *DistrictHandler) List(c *gin.Context) {
	var filter models.DistrictFilter
	if raw := c.Query("status"); raw != "" {
		status := models.ApprovalStatus(raw)
		filter.Status = &status
	}
	filter.State = c.Query("state")
	filter.Search = searchQuery(c)
	filter.Page, filter.PageSize = pageQuery(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	districts, pagination, err := h.districts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, districts, pagination)
}

// Get godoc
// @Summary Get district detail
// @Tags Districts
// @Produce json
// @Param id path string true "District ID"
// @Success 200 {object} response.Envelope
// @Router /districts/{id} [get]
func (h *DistrictHandler) Get(c *gin.Context) {
	district, err := h.districts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, district, nil)
}

// GetMine godoc
// @Summary Get own district profile
// @Tags Districts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /districts/me [get]
func (h *DistrictHandler) GetMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	district, err := h.districts.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, district, nil)
}

// UpdateMine godoc
// @Summary Update own district profile
// @Tags Districts
// @Accept json
// @Produce json
// @Param payload body service.UpdateDistrictRequest true "District payload"
// @Success 200 {object} response.Envelope
// @Router /districts/me [put]
func (h *DistrictHandler) UpdateMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateDistrictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	district, err := h.districts.UpdateByUser(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, district, nil)
}
