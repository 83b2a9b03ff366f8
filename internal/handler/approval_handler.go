package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psychedhire/psychedhire-api/internal/models"
	"github.com/psychedhire/psychedhire-api/internal/service"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
	"github.com/psychedhire/psychedhire-api/pkg/response"
)

// ApprovalHandler exposes the admin review queue.
type ApprovalHandler struct {
	approvals *service.ApprovalService
}

// NewApprovalHandler constructs ApprovalHandler.
func NewApprovalHandler(approvals *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals}
}

func approvalEntity(c *gin.Context) (models.ApprovalEntity, bool) {
	entity, ok := models.ParseApprovalEntity(c.Param("entity"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown approval entity"))
		return "", false
	}
	return entity, true
}

// ListPending godoc
// @Summary List pending records
// @Description Oldest-first review queue for one entity kind
// @Tags Approvals
// @Produce json
// @Param entity path string true "Entity kind (DISTRICT, PSYCHOLOGIST, JOB, EVALUATION)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /approvals/{entity} [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	entity, ok := approvalEntity(c)
	if !ok {
		return
	}
	page, size := pageQuery(c)

	records, total, err := h.approvals.ListPending(c.Request.Context(), entity, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, &models.Pagination{Page: page, PageSize: size, TotalCount: total})
}

// Approve godoc
// @Summary Approve a pending record
// @Description Flips the record to its live status, notifies the owner, and records an analytics event atomically
// @Tags Approvals
// @Produce json
// @Param entity path string true "Entity kind"
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /approvals/{entity}/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	entity, ok := approvalEntity(c)
	if !ok {
		return
	}
	decision, err := h.approvals.Approve(c.Request.Context(), entity, c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}

// Reject godoc
// @Summary Reject a pending record
// @Description Rejection requires a reason; the reason is delivered to the owner verbatim
// @Tags Approvals
// @Accept json
// @Produce json
// @Param entity path string true "Entity kind"
// @Param id path string true "Record ID"
// @Param payload body map[string]string true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /approvals/{entity}/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	entity, ok := approvalEntity(c)
	if !ok {
		return
	}
	var payload struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "rejection reason required"))
		return
	}
	decision, err := h.approvals.Reject(c.Request.Context(), entity, c.Param("id"), claims.UserID, payload.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decision, nil)
}
