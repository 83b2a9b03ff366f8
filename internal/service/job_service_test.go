package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psychedhire/psychedhire-api/internal/models"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
)

type mockJobRepo struct {
	items         map[string]*models.Job
	createCalls   int
	statusUpdates int
}

func (m *mockJobRepo) List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error) {
	var out []models.Job
	for _, j := range m.items {
		out = append(out, *j)
	}
	return out, len(out), nil
}

func (m *mockJobRepo) FindByID(ctx context.Context, id string) (*models.Job, error) {
	if j, ok := m.items[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockJobRepo) Create(ctx context.Context, job *models.Job) error {
	m.createCalls++
	if job.ID == "" {
		job.ID = "generated"
	}
	cp := *job
	m.items[job.ID] = &cp
	return nil
}

func (m *mockJobRepo) Update(ctx context.Context, job *models.Job) error {
	existing, ok := m.items[job.ID]
	if !ok || existing.DistrictID != job.DistrictID {
		return sql.ErrNoRows
	}
	job.Status = existing.Status
	cp := *job
	m.items[job.ID] = &cp
	return nil
}

func (m *mockJobRepo) UpdateStatus(ctx context.Context, districtID, id string, status models.JobStatus) error {
	m.statusUpdates++
	j, ok := m.items[id]
	if !ok || j.DistrictID != districtID {
		return sql.ErrNoRows
	}
	j.Status = status
	return nil
}

func (m *mockJobRepo) Delete(ctx context.Context, districtID, id string) error {
	j, ok := m.items[id]
	if !ok || j.DistrictID != districtID {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func validJobRequest() JobRequest {
	return JobRequest{
		Title:       "School Psychologist",
		Description: "Full-time psychoeducational evaluations across the district.",
		City:        "Springfield",
		State:       "IL",
		Salary:      82000,
	}
}

func TestJobCreateEntersReviewQueue(t *testing.T) {
	repo := &mockJobRepo{items: map[string]*models.Job{}}
	events := &recorderStub{}
	svc := NewJobService(repo, events, nil, nil)

	job, err := svc.Create(context.Background(), "dist1", "du1", validJobRequest())
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, "dist1", job.DistrictID)
	assert.Contains(t, events.events, "job_posted")
}

func TestJobCreateTitleTooShort(t *testing.T) {
	repo := &mockJobRepo{items: map[string]*models.Job{}}
	svc := NewJobService(repo, nil, nil, nil)

	req := validJobRequest()
	req.Title = "A"
	_, err := svc.Create(context.Background(), "dist1", "du1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.createCalls)
}

func TestJobCreateDescriptionTooShort(t *testing.T) {
	repo := &mockJobRepo{items: map[string]*models.Job{}}
	svc := NewJobService(repo, nil, nil, nil)

	req := validJobRequest()
	req.Description = "too short"
	_, err := svc.Create(context.Background(), "dist1", "du1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.createCalls)
}

func TestJobSetActiveToggles(t *testing.T) {
	repo := &mockJobRepo{items: map[string]*models.Job{
		"j1": {ID: "j1", DistrictID: "dist1", Status: models.JobStatusActive},
	}}
	svc := NewJobService(repo, nil, nil, nil)

	require.NoError(t, svc.SetActive(context.Background(), "dist1", "j1", false))
	assert.Equal(t, models.JobStatusInactive, repo.items["j1"].Status)

	require.NoError(t, svc.SetActive(context.Background(), "dist1", "j1", true))
	assert.Equal(t, models.JobStatusActive, repo.items["j1"].Status)
}

func TestJobSetActiveNoopWhenUnchanged(t *testing.T) {
	repo := &mockJobRepo{items: map[string]*models.Job{
		"j1": {ID: "j1", DistrictID: "dist1", Status: models.JobStatusActive},
	}}
	svc := NewJobService(repo, nil, nil, nil)

	require.NoError(t, svc.SetActive(context.Background(), "dist1", "j1", true))
	assert.Zero(t, repo.statusUpdates)
}

func TestJobSetActiveRequiresReview(t *testing.T) {
	repo := &mockJobRepo{items: map[string]*models.Job{
		"j1": {ID: "j1", DistrictID: "dist1", Status: models.JobStatusPending},
	}}
	svc := NewJobService(repo, nil, nil, nil)

	err := svc.SetActive(context.Background(), "dist1", "j1", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestJobSetActiveForeignDistrict(t *testing.T) {
	repo := &mockJobRepo{items: map[string]*models.Job{
		"j1": {ID: "j1", DistrictID: "dist1", Status: models.JobStatusActive},
	}}
	svc := NewJobService(repo, nil, nil, nil)

	err := svc.SetActive(context.Background(), "dist2", "j1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestJobDeleteForeignDistrict(t *testing.T) {
	repo := &mockJobRepo{items: map[string]*models.Job{
		"j1": {ID: "j1", DistrictID: "dist1", Status: models.JobStatusActive},
	}}
	svc := NewJobService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), "dist2", "j1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Contains(t, repo.items, "j1")
}
