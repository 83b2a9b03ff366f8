package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/psychedhire/psychedhire-api/internal/models"
	"github.com/psychedhire/psychedhire-api/internal/repository"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
)

type mockApprovalRepo struct {
	pending   map[string]*models.PendingRecord
	reviewErr error
	reviews   []repository.ReviewParams
}

func (m *mockApprovalRepo) ListPending(ctx context.Context, entity models.ApprovalEntity, page, size int) ([]models.PendingRecord, int, error) {
	var records []models.PendingRecord
	for _, r := range m.pending {
		records = append(records, *r)
	}
	return records, len(records), nil
}

func (m *mockApprovalRepo) FindPending(ctx context.Context, entity models.ApprovalEntity, id string) (*models.PendingRecord, error) {
	if record, ok := m.pending[id]; ok {
		cp := *record
		cp.Entity = entity
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApprovalRepo) Review(ctx context.Context, params repository.ReviewParams) error {
	if m.reviewErr != nil {
		return m.reviewErr
	}
	m.reviews = append(m.reviews, params)
	return nil
}

type mockAuditor struct {
	logs []models.AuditLog
}

func (m *mockAuditor) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func newApprovalService(repo *mockApprovalRepo, audit *mockAuditor) *ApprovalService {
	return NewApprovalService(repo, audit, newTestAnalytics(), nil, zap.NewNop())
}

func TestApprovalServiceApprove(t *testing.T) {
	repo := &mockApprovalRepo{pending: map[string]*models.PendingRecord{
		"d1": {ID: "d1", Name: "Springfield USD", OwnerUserID: "u1"},
	}}
	audit := &mockAuditor{}
	svc := newApprovalService(repo, audit)

	decision, err := svc.Approve(context.Background(), models.ApprovalEntityDistrict, "d1", "admin1")
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", decision.NewStatus)
	assert.Equal(t, "Springfield USD", decision.EntityName)

	require.Len(t, repo.reviews, 1)
	params := repo.reviews[0]
	assert.Equal(t, "APPROVED", params.NewStatus)
	require.NotNil(t, params.Notification)
	assert.Equal(t, "u1", params.Notification.UserID)
	require.NotNil(t, params.Event)
	assert.Equal(t, "district_approved", params.Event.EventType)
	assert.Len(t, audit.logs, 1)
}

func TestApprovalServiceApproveJobGoesActive(t *testing.T) {
	repo := &mockApprovalRepo{pending: map[string]*models.PendingRecord{
		"j1": {ID: "j1", Name: "School Psychologist", OwnerUserID: "u2"},
	}}
	svc := newApprovalService(repo, &mockAuditor{})

	decision, err := svc.Approve(context.Background(), models.ApprovalEntityJob, "j1", "admin1")
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", decision.NewStatus)
}

func TestApprovalServiceRejectRequiresReason(t *testing.T) {
	repo := &mockApprovalRepo{pending: map[string]*models.PendingRecord{
		"d1": {ID: "d1", Name: "Springfield USD", OwnerUserID: "u1"},
	}}
	svc := newApprovalService(repo, &mockAuditor{})

	_, err := svc.Reject(context.Background(), models.ApprovalEntityDistrict, "d1", "admin1", "   ")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.reviews)
}

func TestApprovalServiceRejectCarriesReason(t *testing.T) {
	repo := &mockApprovalRepo{pending: map[string]*models.PendingRecord{
		"p1": {ID: "p1", Name: "Dr. Smith", OwnerUserID: "u3"},
	}}
	svc := newApprovalService(repo, &mockAuditor{})

	decision, err := svc.Reject(context.Background(), models.ApprovalEntityPsychologist, "p1", "admin1", "license expired")
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", decision.NewStatus)
	assert.Equal(t, "license expired", decision.Reason)

	require.Len(t, repo.reviews, 1)
	assert.Contains(t, repo.reviews[0].Notification.Message, "license expired")
}

func TestApprovalServiceEventDataCarriesDecision(t *testing.T) {
	repo := &mockApprovalRepo{pending: map[string]*models.PendingRecord{
		"j1": {ID: "j1", Name: "School Psychologist", OwnerUserID: "u2"},
	}}
	svc := newApprovalService(repo, &mockAuditor{})

	_, err := svc.Reject(context.Background(), models.ApprovalEntityJob, "j1", "admin1", "duplicate posting")
	require.NoError(t, err)

	require.Len(t, repo.reviews, 1)
	var payload struct {
		EntityID   string    `json:"entity_id"`
		EntityName string    `json:"entity_name"`
		Reason     string    `json:"reason"`
		Timestamp  time.Time `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(repo.reviews[0].Event.EventData, &payload))
	assert.Equal(t, "j1", payload.EntityID)
	assert.Equal(t, "School Psychologist", payload.EntityName)
	assert.Equal(t, "duplicate posting", payload.Reason)
	assert.False(t, payload.Timestamp.IsZero())

	_, err = svc.Approve(context.Background(), models.ApprovalEntityJob, "j1", "admin1")
	require.NoError(t, err)
	require.Len(t, repo.reviews, 2)
	assert.NotContains(t, string(repo.reviews[1].Event.EventData), "reason")
	assert.Contains(t, string(repo.reviews[1].Event.EventData), `"entity_name":"School Psychologist"`)
}

func TestApprovalServiceNotFound(t *testing.T) {
	svc := newApprovalService(&mockApprovalRepo{}, &mockAuditor{})

	_, err := svc.Approve(context.Background(), models.ApprovalEntityDistrict, "missing", "admin1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApprovalServiceConcurrentReview(t *testing.T) {
	repo := &mockApprovalRepo{
		pending: map[string]*models.PendingRecord{
			"d1": {ID: "d1", Name: "Springfield USD", OwnerUserID: "u1"},
		},
		reviewErr: sql.ErrNoRows,
	}
	svc := newApprovalService(repo, &mockAuditor{})

	_, err := svc.Approve(context.Background(), models.ApprovalEntityDistrict, "d1", "admin1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyReviewed.Code, appErrors.FromError(err).Code)
}
