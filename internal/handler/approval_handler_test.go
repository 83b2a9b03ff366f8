package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/psychedhire/psychedhire-api/internal/middleware"
	"github.com/psychedhire/psychedhire-api/internal/models"
	"github.com/psychedhire/psychedhire-api/internal/repository"
	"github.com/psychedhire/psychedhire-api/internal/service"
)

type approvalRepoStub struct {
	pending map[string]*models.PendingRecord
	reviews []repository.ReviewParams
}

func (s *approvalRepoStub) ListPending(ctx context.Context, entity models.ApprovalEntity, page, size int) ([]models.PendingRecord, int, error) {
	var out []models.PendingRecord
	for _, r := range s.pending {
		if r.Entity == entity {
			out = append(out, *r)
		}
	}
	return out, len(out), nil
}

func (s *approvalRepoStub) FindPending(ctx context.Context, entity models.ApprovalEntity, id string) (*models.PendingRecord, error) {
	if r, ok := s.pending[id]; ok && r.Entity == entity {
		cp := *r
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *approvalRepoStub) Review(ctx context.Context, params repository.ReviewParams) error {
	s.reviews = append(s.reviews, params)
	return nil
}

type auditorStub struct{}

func (auditorStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error { return nil }

type analyticsRepoStub struct{}

func (analyticsRepoStub) CreateEvent(ctx context.Context, event *models.AnalyticsEvent) error {
	return nil
}

func (analyticsRepoStub) ListEvents(ctx context.Context, filter models.AnalyticsEventFilter) ([]models.AnalyticsEvent, int, error) {
	return nil, 0, nil
}

func (analyticsRepoStub) CountByStatus(ctx context.Context, table string) ([]models.StatusCount, error) {
	return nil, nil
}

func (analyticsRepoStub) CountEventsByType(ctx context.Context, since time.Time) ([]models.EventTypeCount, error) {
	return nil, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func newApprovalHandler(repo *approvalRepoStub) *ApprovalHandler {
	cache := service.NewCacheService(nil, nil, time.Minute, nil, false)
	analytics := service.NewAnalyticsService(analyticsRepoStub{}, cache, nil, nil, time.Minute, true)
	approvals := service.NewApprovalService(repo, auditorStub{}, analytics, nil, nil)
	return NewApprovalHandler(approvals)
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestApprovalHandlerListPending(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &approvalRepoStub{pending: map[string]*models.PendingRecord{
		"d1": {ID: "d1", Entity: models.ApprovalEntityDistrict, Name: "Springfield USD", OwnerUserID: "u1"},
	}}
	handler := newApprovalHandler(repo)

	c, w := newGinContext(http.MethodGet, "/approvals/DISTRICT", nil)
	c.Params = gin.Params{{Key: "entity", Value: "DISTRICT"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.ListPending(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestApprovalHandlerUnknownEntity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newApprovalHandler(&approvalRepoStub{pending: map[string]*models.PendingRecord{}})

	c, w := newGinContext(http.MethodGet, "/approvals/widgets", nil)
	c.Params = gin.Params{{Key: "entity", Value: "widgets"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.ListPending(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApprovalHandlerApprove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &approvalRepoStub{pending: map[string]*models.PendingRecord{
		"d1": {ID: "d1", Entity: models.ApprovalEntityDistrict, Name: "Springfield USD", OwnerUserID: "u1"},
	}}
	handler := newApprovalHandler(repo)

	c, w := newGinContext(http.MethodPost, "/approvals/DISTRICT/d1/approve", nil)
	c.Params = gin.Params{{Key: "entity", Value: "DISTRICT"}, {Key: "id", Value: "d1"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.reviews, 1)
	require.Equal(t, string(models.ApprovalStatusApproved), repo.reviews[0].NewStatus)
}

func TestApprovalHandlerRejectRequiresReason(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &approvalRepoStub{pending: map[string]*models.PendingRecord{
		"d1": {ID: "d1", Entity: models.ApprovalEntityDistrict, Name: "Springfield USD", OwnerUserID: "u1"},
	}}
	handler := newApprovalHandler(repo)

	c, w := newGinContext(http.MethodPost, "/approvals/DISTRICT/d1/reject", []byte(`{}`))
	c.Params = gin.Params{{Key: "entity", Value: "DISTRICT"}, {Key: "id", Value: "d1"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.Reject(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, repo.reviews)
}

func TestApprovalHandlerApproveMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newApprovalHandler(&approvalRepoStub{pending: map[string]*models.PendingRecord{}})

	c, w := newGinContext(http.MethodPost, "/approvals/DISTRICT/nope/approve", nil)
	c.Params = gin.Params{{Key: "entity", Value: "DISTRICT"}, {Key: "id", Value: "nope"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	handler.Approve(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
