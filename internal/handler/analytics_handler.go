package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/psychedhire/psychedhire-api/internal/models"
	"github.com/psychedhire/psychedhire-api/internal/service"
	"github.com/psychedhire/psychedhire-api/pkg/response"
)

// AnalyticsHandler exposes admin analytics endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Summary godoc
// @Summary Platform summary
// @Description Status breakdowns per entity plus recent event volume; cached briefly
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/summary [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	summary, err := h.analytics.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Events godoc
// @Summary List analytics events
// @Tags Analytics
// @Produce json
// @Param type query string false "Filter by event type"
// @Param userId query string false "Filter by user"
// @Param from query string false "From date (RFC3339)"
// @Param to query string false "To date (RFC3339)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /analytics/events [get]
func (h *AnalyticsHandler) Events(c *gin.Context) {
	var filter models.AnalyticsEventFilter
	filter.EventType = c.Query("type")
	filter.UserID = c.Query("userId")
	if raw := c.Query("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.DateFrom = &t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.DateTo = &t
		}
	}
	filter.Page, filter.PageSize = pageQuery(c)

	events, total, err := h.analytics.ListEvents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total})
}

// SystemMetrics godoc
// @Summary In-process counters snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) SystemMetrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.analytics.SystemMetrics(), nil)
}
