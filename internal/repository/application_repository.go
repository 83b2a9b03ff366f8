package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/psychedhire/psychedhire-api/internal/models"
)

// ApplicationRepository manages persistence for job applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs an ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// List returns applications joined with job context.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	base := "FROM applications a JOIN jobs j ON j.id = a.job_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.JobID != "" {
		conditions = append(conditions, fmt.Sprintf("a.job_id = $%d", len(args)+1))
		args = append(args, filter.JobID)
	}
	if filter.PsychologistID != "" {
		conditions = append(conditions, fmt.Sprintf("a.psychologist_id = $%d", len(args)+1))
		args = append(args, filter.PsychologistID)
	}
	if filter.DistrictID != "" {
		conditions = append(conditions, fmt.Sprintf("j.district_id = $%d", len(args)+1))
		args = append(args, filter.DistrictID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.job_id, a.psychologist_id, a.status, a.notes, a.document_ids, a.created_at, a.updated_at,
        j.title AS job_title, j.district_id
        %s ORDER BY a.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var applications []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}

// FindByID fetches an application joined with job context.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	const query = `SELECT a.id, a.job_id, a.psychologist_id, a.status, a.notes, a.document_ids, a.created_at, a.updated_at,
        j.title AS job_title, j.district_id
        FROM applications a JOIN jobs j ON j.id = a.job_id WHERE a.id = $1`
	var detail models.ApplicationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByJobAndPsychologist checks for a prior application to the job.
func (r *ApplicationRepository) ExistsByJobAndPsychologist(ctx context.Context, jobID, psychologistID string) (bool, error) {
	const query = `SELECT 1 FROM applications WHERE job_id = $1 AND psychologist_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, jobID, psychologistID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check application: %w", err)
	}
	return true, nil
}

// Create inserts a new application.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	const query = `INSERT INTO applications (id, job_id, psychologist_id, status, notes, document_ids, created_at, updated_at) VALUES (:id, :job_id, :psychologist_id, :status, :notes, :document_ids, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// UpdateStatus moves an application to a new status guarded by the expected
// current status. Zero rows means the row changed underneath the reviewer.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus) error {
	const query = `UPDATE applications SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check application status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
