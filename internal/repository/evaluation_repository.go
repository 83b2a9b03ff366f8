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

// EvaluationRepository manages persistence for evaluation requests.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs an EvaluationRepository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// List returns evaluation requests matching the provided filters.
func (r *EvaluationRepository) List(ctx context.Context, filter models.EvaluationFilter) ([]models.EvaluationRequest, int, error) {
	base := "FROM evaluation_requests e"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.DistrictID != "" {
		conditions = append(conditions, fmt.Sprintf("e.district_id = $%d", len(args)+1))
		args = append(args, filter.DistrictID)
	}
	if filter.PsychologistID != "" {
		conditions = append(conditions, fmt.Sprintf("e.psychologist_id = $%d", len(args)+1))
		args = append(args, filter.PsychologistID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.ServiceType != "" {
		conditions = append(conditions, fmt.Sprintf("e.service_type = $%d", len(args)+1))
		args = append(args, filter.ServiceType)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(e.legal_name) LIKE $%d OR LOWER(e.service_type) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.AvailableOnly {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, models.EvaluationStatusActive)
		conditions = append(conditions, "e.psychologist_id IS NULL")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"legal_name":     "e.legal_name",
		"payment_amount": "e.payment_amount",
		"status":         "e.status",
		"created_at":     "e.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "e.created_at"
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

	query := fmt.Sprintf(`SELECT e.id, e.district_id, e.school_id, e.student_id, e.psychologist_id, e.legal_name, e.service_type, e.payment_amount, e.status, e.created_at, e.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var evaluations []models.EvaluationRequest
	if err := r.db.SelectContext(ctx, &evaluations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list evaluations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count evaluations: %w", err)
	}
	return evaluations, total, nil
}

// FindByID fetches an evaluation request by ID.
func (r *EvaluationRepository) FindByID(ctx context.Context, id string) (*models.EvaluationRequest, error) {
	const query = `SELECT id, district_id, school_id, student_id, psychologist_id, legal_name, service_type, payment_amount, status, created_at, updated_at FROM evaluation_requests WHERE id = $1`
	var eval models.EvaluationRequest
	if err := r.db.GetContext(ctx, &eval, query, id); err != nil {
		return nil, err
	}
	return &eval, nil
}

// Create inserts a new evaluation request in PENDING status.
func (r *EvaluationRepository) Create(ctx context.Context, eval *models.EvaluationRequest) error {
	if eval.ID == "" {
		eval.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	eval.CreatedAt = now
	eval.UpdatedAt = now
	const query = `INSERT INTO evaluation_requests (id, district_id, school_id, student_id, psychologist_id, legal_name, service_type, payment_amount, status, created_at, updated_at) VALUES (:id, :district_id, :school_id, :student_id, :psychologist_id, :legal_name, :service_type, :payment_amount, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, eval); err != nil {
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}

// Update persists mutable evaluation fields verifying district ownership.
// Only PENDING requests may be edited by their district.
func (r *EvaluationRepository) Update(ctx context.Context, eval *models.EvaluationRequest) error {
	eval.UpdatedAt = time.Now().UTC()
	const query = `UPDATE evaluation_requests SET school_id = :school_id, student_id = :student_id, legal_name = :legal_name, service_type = :service_type, payment_amount = :payment_amount, updated_at = :updated_at WHERE id = :id AND district_id = :district_id AND status = 'PENDING'`
	result, err := r.db.NamedExecContext(ctx, query, eval)
	if err != nil {
		return fmt.Errorf("update evaluation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check evaluation update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves an evaluation to a new status guarded by the expected
// current status.
func (r *EvaluationRepository) UpdateStatus(ctx context.Context, id string, from, to models.EvaluationStatus) error {
	const query = `UPDATE evaluation_requests SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update evaluation status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check evaluation status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a PENDING request owned by the district. Reviewed requests
// are permanent.
func (r *EvaluationRepository) Delete(ctx context.Context, districtID, id string) error {
	const query = `DELETE FROM evaluation_requests WHERE id = $1 AND district_id = $2 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, districtID)
	if err != nil {
		return fmt.Errorf("delete evaluation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check evaluation delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Offer assigns a psychologist and moves an ACTIVE unassigned request to
// OFFERED in one guarded statement.
func (r *EvaluationRepository) Offer(ctx context.Context, id, psychologistID string) error {
	const query = `UPDATE evaluation_requests SET psychologist_id = $2, status = $3, updated_at = $4 WHERE id = $1 AND status = $5 AND psychologist_id IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, psychologistID, models.EvaluationStatusOffered, time.Now().UTC(), models.EvaluationStatusActive)
	if err != nil {
		return fmt.Errorf("offer evaluation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check evaluation offer rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Release clears the assignment on a declined offer and returns the request
// to ACTIVE.
func (r *EvaluationRepository) Release(ctx context.Context, id string) error {
	const query = `UPDATE evaluation_requests SET psychologist_id = NULL, status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, models.EvaluationStatusActive, time.Now().UTC(), models.EvaluationStatusOffered)
	if err != nil {
		return fmt.Errorf("release evaluation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check evaluation release rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
