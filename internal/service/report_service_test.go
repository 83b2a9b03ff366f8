package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/psychedhire/psychedhire-api/internal/models"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
	"github.com/psychedhire/psychedhire-api/pkg/jobs"
	"github.com/psychedhire/psychedhire-api/pkg/storage"
)

type mockReportStore struct {
	items map[string]*models.ReportJob
	seq   int
}

func (m *mockReportStore) Create(ctx context.Context, job *models.ReportJob) error {
	m.seq++
	job.ID = fmt.Sprintf("job-%d", m.seq)
	job.CreatedAt = time.Now().UTC()
	cp := *job
	m.items[job.ID] = &cp
	return nil
}

func (m *mockReportStore) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	if j, ok := m.items[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportStore) ListByRequester(ctx context.Context, userID string, limit int) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, j := range m.items {
		if j.RequestedBy == userID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *mockReportStore) MarkRunning(ctx context.Context, id string) error {
	j, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	j.Status = models.ReportJobStatusRunning
	return nil
}

func (m *mockReportStore) MarkCompleted(ctx context.Context, id, filePath string) error {
	j, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	j.Status = models.ReportJobStatusCompleted
	j.FilePath = filePath
	j.CompletedAt = &now
	return nil
}

func (m *mockReportStore) MarkFailed(ctx context.Context, id, reason string) error {
	j, ok := m.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	j.Status = models.ReportJobStatusFailed
	j.Error = reason
	return nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockStudentRepo struct {
	students []models.Student
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return m.students, len(m.students), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error { return nil }

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error { return nil }

func (m *mockStudentRepo) Delete(ctx context.Context, districtID, id string) error { return nil }

type reportFixture struct {
	svc    *ReportService
	store  *mockReportStore
	queue  *mockDispatcher
	signer *storage.SignedURLSigner
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	store := &mockReportStore{items: map[string]*models.ReportJob{}}
	queue := &mockDispatcher{}
	svc := NewReportService(
		store,
		&mockStudentRepo{students: []models.Student{
			{ID: "st1", FirstName: "Lisa", LastName: "Simpson", Grade: "4", GuardianName: "Marge Simpson"},
		}},
		&mockEvaluationRepo{items: map[string]*models.EvaluationRequest{}},
		&stubAnalyticsRepo{},
		queue,
		files,
		signer,
		zap.NewNop(),
		ReportServiceConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour, MaxRetries: 3},
	)
	return &reportFixture{svc: svc, store: store, queue: queue, signer: signer}
}

func TestReportCreateJob(t *testing.T) {
	fix := newReportFixture(t)

	job, err := fix.svc.CreateJob(context.Background(), "du1", models.RoleDistrict, "dist1", CreateReportRequest{
		Dataset: models.ReportDatasetStudents,
		Format:  models.ReportFormatCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportJobStatusQueued, job.Status)
	assert.Equal(t, "dist1", job.DistrictID)

	require.Len(t, fix.queue.enqueued, 1)
	assert.Equal(t, job.ID, fix.queue.enqueued[0].ID)
	assert.Equal(t, "students", fix.queue.enqueued[0].Type)
}

func TestReportCreateJobApprovalsAdminOnly(t *testing.T) {
	fix := newReportFixture(t)

	_, err := fix.svc.CreateJob(context.Background(), "du1", models.RoleDistrict, "dist1", CreateReportRequest{
		Dataset: models.ReportDatasetApprovals,
		Format:  models.ReportFormatCSV,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportCreateJobDistrictProfileRequired(t *testing.T) {
	fix := newReportFixture(t)

	_, err := fix.svc.CreateJob(context.Background(), "du1", models.RoleDistrict, "", CreateReportRequest{
		Dataset: models.ReportDatasetStudents,
		Format:  models.ReportFormatCSV,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportCreateJobEnqueueFailure(t *testing.T) {
	fix := newReportFixture(t)
	fix.queue.err = errors.New("queue is full")

	_, err := fix.svc.CreateJob(context.Background(), "admin", models.RoleAdmin, "", CreateReportRequest{
		Dataset: models.ReportDatasetApprovals,
		Format:  models.ReportFormatCSV,
	})
	require.Error(t, err)
	require.Len(t, fix.store.items, 1)
	for _, j := range fix.store.items {
		assert.Equal(t, models.ReportJobStatusFailed, j.Status)
	}
}

func TestReportHandleRendersAndCompletes(t *testing.T) {
	fix := newReportFixture(t)

	job, err := fix.svc.CreateJob(context.Background(), "du1", models.RoleDistrict, "dist1", CreateReportRequest{
		Dataset: models.ReportDatasetStudents,
		Format:  models.ReportFormatCSV,
	})
	require.NoError(t, err)

	require.NoError(t, fix.svc.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1}))

	stored := fix.store.items[job.ID]
	assert.Equal(t, models.ReportJobStatusCompleted, stored.Status)
	require.NotEmpty(t, stored.FilePath)

	// Completed jobs expose a freshly signed download URL.
	status, err := fix.svc.GetStatus(context.Background(), job.ID, "du1", models.RoleDistrict)
	require.NoError(t, err)
	assert.Contains(t, status.DownloadURL, "/api/v1/reports/download/")
}

func TestReportHandleFinalAttemptMarksFailed(t *testing.T) {
	fix := newReportFixture(t)
	fix.store.items["job-bad"] = &models.ReportJob{
		ID:      "job-bad",
		Dataset: models.ReportDataset("bogus"),
		Format:  models.ReportFormatCSV,
		Status:  models.ReportJobStatusQueued,
	}

	err := fix.svc.Handle(context.Background(), jobs.Job{ID: "job-bad", Attempt: 3})
	require.Error(t, err)
	assert.Equal(t, models.ReportJobStatusFailed, fix.store.items["job-bad"].Status)
	assert.NotEmpty(t, fix.store.items["job-bad"].Error)
}

func TestReportHandleEarlyAttemptLeavesRetryable(t *testing.T) {
	fix := newReportFixture(t)
	fix.store.items["job-bad"] = &models.ReportJob{
		ID:      "job-bad",
		Dataset: models.ReportDataset("bogus"),
		Format:  models.ReportFormatCSV,
		Status:  models.ReportJobStatusQueued,
	}

	err := fix.svc.Handle(context.Background(), jobs.Job{ID: "job-bad", Attempt: 1})
	require.Error(t, err)
	assert.NotEqual(t, models.ReportJobStatusFailed, fix.store.items["job-bad"].Status)
}

func TestReportGetStatusMasksForeignJobs(t *testing.T) {
	fix := newReportFixture(t)

	job, err := fix.svc.CreateJob(context.Background(), "du1", models.RoleDistrict, "dist1", CreateReportRequest{
		Dataset: models.ReportDatasetStudents,
		Format:  models.ReportFormatCSV,
	})
	require.NoError(t, err)

	_, err = fix.svc.GetStatus(context.Background(), job.ID, "other-user", models.RolePsychologist)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// Admins see everything.
	_, err = fix.svc.GetStatus(context.Background(), job.ID, "admin", models.RoleAdmin)
	require.NoError(t, err)
}

func TestReportResolveDownload(t *testing.T) {
	fix := newReportFixture(t)

	job, err := fix.svc.CreateJob(context.Background(), "du1", models.RoleDistrict, "dist1", CreateReportRequest{
		Dataset: models.ReportDatasetStudents,
		Format:  models.ReportFormatCSV,
	})
	require.NoError(t, err)
	require.NoError(t, fix.svc.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1}))

	token, _, err := fix.signer.Generate(job.ID, fix.store.items[job.ID].FilePath)
	require.NoError(t, err)

	download, err := fix.svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ReportFormatCSV, download.Format)
	assert.NotEmpty(t, download.Filename)
}

func TestReportResolveDownloadBadToken(t *testing.T) {
	fix := newReportFixture(t)

	_, err := fix.svc.ResolveDownload(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReportResolveDownloadPathMismatch(t *testing.T) {
	fix := newReportFixture(t)

	job, err := fix.svc.CreateJob(context.Background(), "du1", models.RoleDistrict, "dist1", CreateReportRequest{
		Dataset: models.ReportDatasetStudents,
		Format:  models.ReportFormatCSV,
	})
	require.NoError(t, err)
	require.NoError(t, fix.svc.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1}))

	token, _, err := fix.signer.Generate(job.ID, "some/other/file.csv")
	require.NoError(t, err)

	_, err = fix.svc.ResolveDownload(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
