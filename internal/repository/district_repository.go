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

// DistrictRepository manages persistence for district profiles.
type DistrictRepository struct {
	db *sqlx.DB
}

// NewDistrictRepository constructs a DistrictRepository.
func NewDistrictRepository(db *sqlx.DB) *DistrictRepository {
	return &DistrictRepository{db: db}
}

// List returns districts matching the provided filters.
func (r *DistrictRepository) List(ctx context.Context, filter models.DistrictFilter) ([]models.District, int, error) {
	base := "FROM districts d"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("d.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("d.state = $%d", len(args)+1))
		args = append(args, filter.State)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(d.name) LIKE $%d OR LOWER(d.location) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":       "d.name",
		"state":      "d.state",
		"status":     "d.status",
		"created_at": "d.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "d.created_at"
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

	query := fmt.Sprintf(`SELECT d.id, d.user_id, d.name, d.contact_email, d.contact_phone, d.location, d.state, d.status, d.created_at, d.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var districts []models.District
	if err := r.db.SelectContext(ctx, &districts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list districts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count districts: %w", err)
	}
	return districts, total, nil
}

// FindByID fetches a district by ID.
func (r *DistrictRepository) FindByID(ctx context.Context, id string) (*models.District, error) {
	const query = `SELECT id, user_id, name, contact_email, contact_phone, location, state, status, created_at, updated_at FROM districts WHERE id = $1`
	var district models.District
	if err := r.db.GetContext(ctx, &district, query, id); err != nil {
		return nil, err
	}
	return &district, nil
}

// FindByUserID fetches the district profile owned by a user.
func (r *DistrictRepository) FindByUserID(ctx context.Context, userID string) (*models.District, error) {
	const query = `SELECT id, user_id, name, contact_email, contact_phone, location, state, status, created_at, updated_at FROM districts WHERE user_id = $1`
	var district models.District
	if err := r.db.GetContext(ctx, &district, query, userID); err != nil {
		return nil, err
	}
	return &district, nil
}

// Update persists mutable district fields.
func (r *DistrictRepository) Update(ctx context.Context, district *models.District) error {
	district.UpdatedAt = time.Now().UTC()
	const query = `UPDATE districts SET name = :name, contact_email = :contact_email, contact_phone = :contact_phone, location = :location, state = :state, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, district)
	if err != nil {
		return fmt.Errorf("update district: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check district update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
