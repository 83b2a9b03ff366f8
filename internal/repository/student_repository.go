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

// StudentRepository manages persistence for district student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students st"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.DistrictID != "" {
		conditions = append(conditions, fmt.Sprintf("st.district_id = $%d", len(args)+1))
		args = append(args, filter.DistrictID)
	}
	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("st.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Grade != "" {
		conditions = append(conditions, fmt.Sprintf("st.grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(st.first_name) LIKE $%d OR LOWER(st.last_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"last_name":  "st.last_name",
		"grade":      "st.grade",
		"created_at": "st.created_at",
	}
	if sortBy == "" {
		sortBy = "last_name"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "st.last_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT st.id, st.district_id, st.school_id, st.first_name, st.last_name, st.grade, st.guardian_name, st.guardian_email, st.guardian_phone, st.created_at, st.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, district_id, school_id, first_name, last_name, grade, guardian_name, guardian_email, guardian_phone, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, district_id, school_id, first_name, last_name, grade, guardian_name, guardian_email, guardian_phone, created_at, updated_at) VALUES (:id, :district_id, :school_id, :first_name, :last_name, :grade, :guardian_name, :guardian_email, :guardian_phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update persists mutable student fields verifying district ownership.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET school_id = :school_id, first_name = :first_name, last_name = :last_name, grade = :grade, guardian_name = :guardian_name, guardian_email = :guardian_email, guardian_phone = :guardian_phone, updated_at = :updated_at WHERE id = :id AND district_id = :district_id`
	result, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check student update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a student verifying district ownership.
func (r *StudentRepository) Delete(ctx context.Context, districtID, id string) error {
	const query = `DELETE FROM students WHERE id = $1 AND district_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, districtID)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check student delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
