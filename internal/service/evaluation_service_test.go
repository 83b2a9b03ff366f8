package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/psychedhire/psychedhire-api/internal/models"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
)

type mockEvaluationRepo struct {
	items map[string]*models.EvaluationRequest
}

func (m *mockEvaluationRepo) List(ctx context.Context, filter models.EvaluationFilter) ([]models.EvaluationRequest, int, error) {
	var out []models.EvaluationRequest
	for _, e := range m.items {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (m *mockEvaluationRepo) FindByID(ctx context.Context, id string) (*models.EvaluationRequest, error) {
	if e, ok := m.items[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEvaluationRepo) Create(ctx context.Context, eval *models.EvaluationRequest) error {
	if eval.ID == "" {
		eval.ID = "generated"
	}
	cp := *eval
	m.items[eval.ID] = &cp
	return nil
}

func (m *mockEvaluationRepo) Update(ctx context.Context, eval *models.EvaluationRequest) error {
	existing, ok := m.items[eval.ID]
	if !ok || existing.Status != models.EvaluationStatusPending {
		return sql.ErrNoRows
	}
	cp := *eval
	m.items[eval.ID] = &cp
	return nil
}

func (m *mockEvaluationRepo) Delete(ctx context.Context, districtID, id string) error {
	e, ok := m.items[id]
	if !ok || e.DistrictID != districtID || e.Status != models.EvaluationStatusPending {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func (m *mockEvaluationRepo) UpdateStatus(ctx context.Context, id string, from, to models.EvaluationStatus) error {
	e, ok := m.items[id]
	if !ok || e.Status != from {
		return sql.ErrNoRows
	}
	e.Status = to
	return nil
}

func (m *mockEvaluationRepo) Offer(ctx context.Context, id, psychologistID string) error {
	e, ok := m.items[id]
	if !ok || e.Status != models.EvaluationStatusActive || e.PsychologistID != nil {
		return sql.ErrNoRows
	}
	e.Status = models.EvaluationStatusOffered
	pid := psychologistID
	e.PsychologistID = &pid
	return nil
}

func (m *mockEvaluationRepo) Release(ctx context.Context, id string) error {
	e, ok := m.items[id]
	if !ok || e.Status != models.EvaluationStatusOffered {
		return sql.ErrNoRows
	}
	e.Status = models.EvaluationStatusActive
	e.PsychologistID = nil
	return nil
}

type mockSchoolLookup struct {
	items map[string]*models.School
}

func (m *mockSchoolLookup) FindByID(ctx context.Context, id string) (*models.School, error) {
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newEvaluationFixture(repo *mockEvaluationRepo, notifRepo *stubNotificationRepo) *EvaluationService {
	return NewEvaluationService(
		repo,
		&mockSchoolLookup{items: map[string]*models.School{
			"s1": {ID: "s1", DistrictID: "dist1"},
		}},
		&mockPsychologistLookup{items: map[string]*models.Psychologist{
			"p1": {ID: "p1", UserID: "pu1", Status: models.ApprovalStatusApproved},
			"p2": {ID: "p2", UserID: "pu2", Status: models.ApprovalStatusPending},
		}},
		&mockDistrictLookup{items: map[string]*models.District{
			"dist1": {ID: "dist1", UserID: "du1"},
		}},
		newTestNotifications(notifRepo),
		&recorderStub{},
		validator.New(),
		zap.NewNop(),
	)
}

func activeEvaluation() *models.EvaluationRequest {
	return &models.EvaluationRequest{
		ID:         "e1",
		DistrictID: "dist1",
		SchoolID:   "s1",
		LegalName:  "Jane Doe",
		Status:     models.EvaluationStatusActive,
	}
}

func TestEvaluationOffer(t *testing.T) {
	repo := &mockEvaluationRepo{items: map[string]*models.EvaluationRequest{"e1": activeEvaluation()}}
	notifRepo := &stubNotificationRepo{}
	svc := newEvaluationFixture(repo, notifRepo)

	eval, err := svc.Offer(context.Background(), "dist1", "e1", "p1")
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationStatusOffered, eval.Status)
	require.NotNil(t, eval.PsychologistID)
	assert.Equal(t, "p1", *eval.PsychologistID)

	require.Len(t, notifRepo.created, 1)
	assert.Equal(t, "pu1", notifRepo.created[0].UserID)
}

func TestEvaluationOfferUnapprovedPsychologist(t *testing.T) {
	repo := &mockEvaluationRepo{items: map[string]*models.EvaluationRequest{"e1": activeEvaluation()}}
	svc := newEvaluationFixture(repo, &stubNotificationRepo{})

	_, err := svc.Offer(context.Background(), "dist1", "e1", "p2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEvaluationOfferAlreadyAssigned(t *testing.T) {
	eval := activeEvaluation()
	pid := "p1"
	eval.Status = models.EvaluationStatusOffered
	eval.PsychologistID = &pid
	repo := &mockEvaluationRepo{items: map[string]*models.EvaluationRequest{"e1": eval}}
	svc := newEvaluationFixture(repo, &stubNotificationRepo{})

	_, err := svc.Offer(context.Background(), "dist1", "e1", "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestEvaluationAccept(t *testing.T) {
	eval := activeEvaluation()
	pid := "p1"
	eval.Status = models.EvaluationStatusOffered
	eval.PsychologistID = &pid
	repo := &mockEvaluationRepo{items: map[string]*models.EvaluationRequest{"e1": eval}}
	notifRepo := &stubNotificationRepo{}
	svc := newEvaluationFixture(repo, notifRepo)

	updated, err := svc.Respond(context.Background(), "p1", "e1", true)
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationStatusAccepted, updated.Status)

	// District hears about the acceptance.
	require.Len(t, notifRepo.created, 1)
	assert.Equal(t, "du1", notifRepo.created[0].UserID)
}

func TestEvaluationDeclineReleases(t *testing.T) {
	eval := activeEvaluation()
	pid := "p1"
	eval.Status = models.EvaluationStatusOffered
	eval.PsychologistID = &pid
	repo := &mockEvaluationRepo{items: map[string]*models.EvaluationRequest{"e1": eval}}
	svc := newEvaluationFixture(repo, &stubNotificationRepo{})

	updated, err := svc.Respond(context.Background(), "p1", "e1", false)
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationStatusActive, updated.Status)
	assert.Nil(t, updated.PsychologistID)
}

func TestEvaluationRespondWrongAssignee(t *testing.T) {
	eval := activeEvaluation()
	pid := "p1"
	eval.Status = models.EvaluationStatusOffered
	eval.PsychologistID = &pid
	repo := &mockEvaluationRepo{items: map[string]*models.EvaluationRequest{"e1": eval}}
	svc := newEvaluationFixture(repo, &stubNotificationRepo{})

	_, err := svc.Respond(context.Background(), "p2", "e1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEvaluationAdvanceLifecycle(t *testing.T) {
	eval := activeEvaluation()
	pid := "p1"
	eval.Status = models.EvaluationStatusAccepted
	eval.PsychologistID = &pid
	repo := &mockEvaluationRepo{items: map[string]*models.EvaluationRequest{"e1": eval}}
	svc := newEvaluationFixture(repo, &stubNotificationRepo{})

	updated, err := svc.Advance(context.Background(), "p1", "e1", models.EvaluationStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationStatusInProgress, updated.Status)

	updated, err = svc.Advance(context.Background(), "p1", "e1", models.EvaluationStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationStatusCompleted, updated.Status)
}

func TestEvaluationAdvanceCannotSkipInProgress(t *testing.T) {
	eval := activeEvaluation()
	pid := "p1"
	eval.Status = models.EvaluationStatusAccepted
	eval.PsychologistID = &pid
	repo := &mockEvaluationRepo{items: map[string]*models.EvaluationRequest{"e1": eval}}
	svc := newEvaluationFixture(repo, &stubNotificationRepo{})

	_, err := svc.Advance(context.Background(), "p1", "e1", models.EvaluationStatusCompleted)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestEvaluationUpdateOnlyWhilePending(t *testing.T) {
	eval := activeEvaluation()
	repo := &mockEvaluationRepo{items: map[string]*models.EvaluationRequest{"e1": eval}}
	svc := newEvaluationFixture(repo, &stubNotificationRepo{})

	_, err := svc.Update(context.Background(), "dist1", "e1", EvaluationRequestPayload{
		SchoolID:    "s1",
		LegalName:   "Jane Doe",
		ServiceType: "Initial Evaluation",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEvaluationDeletePending(t *testing.T) {
	eval := activeEvaluation()
	eval.Status = models.EvaluationStatusPending
	repo := &mockEvaluationRepo{items: map[string]*models.EvaluationRequest{"e1": eval}}
	svc := newEvaluationFixture(repo, &stubNotificationRepo{})

	require.NoError(t, svc.Delete(context.Background(), "dist1", "e1"))
	assert.Empty(t, repo.items)
}

func TestEvaluationDeleteOnlyWhilePending(t *testing.T) {
	eval := activeEvaluation()
	repo := &mockEvaluationRepo{items: map[string]*models.EvaluationRequest{"e1": eval}}
	svc := newEvaluationFixture(repo, &stubNotificationRepo{})

	err := svc.Delete(context.Background(), "dist1", "e1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Contains(t, repo.items, "e1")
}
