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

// JobRepository manages persistence for district job postings.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository constructs a JobRepository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// List returns jobs matching the provided filters.
func (r *JobRepository) List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error) {
	base := "FROM jobs j"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.DistrictID != "" {
		conditions = append(conditions, fmt.Sprintf("j.district_id = $%d", len(args)+1))
		args = append(args, filter.DistrictID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("j.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("j.state = $%d", len(args)+1))
		args = append(args, filter.State)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(j.title) LIKE $%d OR LOWER(j.description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.AvailableFor != "" {
		conditions = append(conditions, fmt.Sprintf("j.status = $%d", len(args)+1))
		args = append(args, models.JobStatusActive)
		conditions = append(conditions, fmt.Sprintf("NOT EXISTS (SELECT 1 FROM applications a WHERE a.job_id = j.id AND a.psychologist_id = $%d)", len(args)+1))
		args = append(args, filter.AvailableFor)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"title":      "j.title",
		"salary":     "j.salary",
		"status":     "j.status",
		"created_at": "j.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "j.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT j.id, j.district_id, j.school_id, j.title, j.description, j.city, j.state, j.salary, j.qualifications, j.documents_required, j.status, j.created_at, j.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}
	return jobs, total, nil
}

// FindByID fetches a job by ID.
func (r *JobRepository) FindByID(ctx context.Context, id string) (*models.Job, error) {
	const query = `SELECT id, district_id, school_id, title, description, city, state, salary, qualifications, documents_required, status, created_at, updated_at FROM jobs WHERE id = $1`
	var job models.Job
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// Create inserts a new job posting in PENDING status.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	const query = `INSERT INTO jobs (id, district_id, school_id, title, description, city, state, salary, qualifications, documents_required, status, created_at, updated_at) VALUES (:id, :district_id, :school_id, :title, :description, :city, :state, :salary, :qualifications, :documents_required, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// Update persists mutable job fields verifying district ownership.
func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	job.UpdatedAt = time.Now().UTC()
	const query = `UPDATE jobs SET school_id = :school_id, title = :title, description = :description, city = :city, state = :state, salary = :salary, qualifications = :qualifications, documents_required = :documents_required, updated_at = :updated_at WHERE id = :id AND district_id = :district_id`
	result, err := r.db.NamedExecContext(ctx, query, job)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check job update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus changes a job status verifying district ownership.
func (r *JobRepository) UpdateStatus(ctx context.Context, districtID, id string, status models.JobStatus) error {
	const query = `UPDATE jobs SET status = $3, updated_at = $4 WHERE id = $1 AND district_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, districtID, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check job status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a job verifying district ownership.
func (r *JobRepository) Delete(ctx context.Context, districtID, id string) error {
	const query = `DELETE FROM jobs WHERE id = $1 AND district_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, districtID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check job delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
