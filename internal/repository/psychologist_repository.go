package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/psychedhire/psychedhire-api/internal/models"
)

// PsychologistRepository manages persistence for psychologist profiles.
type PsychologistRepository struct {
	db *sqlx.DB
}

// NewPsychologistRepository constructs a PsychologistRepository.
func NewPsychologistRepository(db *sqlx.DB) *PsychologistRepository {
	return &PsychologistRepository{db: db}
}

// List returns psychologists matching the provided filters.
func (r *PsychologistRepository) List(ctx context.Context, filter models.PsychologistFilter) ([]models.Psychologist, int, error) {
	base := "FROM psychologists p JOIN users u ON u.id = p.user_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Specialty != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(p.specialties)", len(args)+1))
		args = append(args, filter.Specialty)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(p.education) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"experience_years": "p.experience_years",
		"status":           "p.status",
		"created_at":       "p.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "p.created_at"
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

	query := fmt.Sprintf(`SELECT p.id, p.user_id, p.education, p.experience_years, p.specialties, p.certifications, p.status, p.signup_progress, p.signup_completed, p.created_at, p.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var psychologists []models.Psychologist
	if err := r.db.SelectContext(ctx, &psychologists, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list psychologists: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count psychologists: %w", err)
	}
	return psychologists, total, nil
}

// FindByID fetches a psychologist by ID.
func (r *PsychologistRepository) FindByID(ctx context.Context, id string) (*models.Psychologist, error) {
	const query = `SELECT id, user_id, education, experience_years, specialties, certifications, status, signup_progress, signup_completed, created_at, updated_at FROM psychologists WHERE id = $1`
	var psych models.Psychologist
	if err := r.db.GetContext(ctx, &psych, query, id); err != nil {
		return nil, err
	}
	return &psych, nil
}

// FindByUserID fetches the psychologist profile owned by a user.
func (r *PsychologistRepository) FindByUserID(ctx context.Context, userID string) (*models.Psychologist, error) {
	const query = `SELECT id, user_id, education, experience_years, specialties, certifications, status, signup_progress, signup_completed, created_at, updated_at FROM psychologists WHERE user_id = $1`
	var psych models.Psychologist
	if err := r.db.GetContext(ctx, &psych, query, userID); err != nil {
		return nil, err
	}
	return &psych, nil
}

// Update persists mutable psychologist fields including wizard progress.
func (r *PsychologistRepository) Update(ctx context.Context, psych *models.Psychologist) error {
	psych.UpdatedAt = time.Now().UTC()
	const query = `UPDATE psychologists SET education = :education, experience_years = :experience_years, specialties = :specialties, certifications = :certifications, signup_progress = :signup_progress, signup_completed = :signup_completed, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, psych)
	if err != nil {
		return fmt.Errorf("update psychologist: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check psychologist update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
