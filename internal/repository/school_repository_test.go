package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psychedhire/psychedhire-api/internal/models"
)

func schoolColumns() []string {
	return []string{"id", "district_id", "name", "address", "city", "state", "zip_code", "enrollment_size", "created_at", "updated_at"}
}

func TestListSchoolsSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(schoolColumns()).
		AddRow("s1", "d1", "Lincoln Elementary", "", "Springfield", "IL", "62701", 420, now, now)
	mock.ExpectQuery(`SELECT s\.id, .+ FROM schools s WHERE 1=1 AND s\.district_id = \$1 AND \(LOWER\(s\.name\) LIKE \$2 OR LOWER\(s\.city\) LIKE \$2\)`).
		WithArgs("d1", "%lincoln%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schools s WHERE 1=1 AND s.district_id = $1 AND (LOWER(s.name) LIKE $2 OR LOWER(s.city) LIKE $2)")).
		WithArgs("d1", "%lincoln%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	schools, total, err := repo.List(context.Background(), models.SchoolFilter{DistrictID: "d1", Search: "Lincoln"})
	require.NoError(t, err)
	assert.Len(t, schools, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSchoolsEmptySearchReturnsAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(schoolColumns()).
		AddRow("s1", "d1", "Lincoln Elementary", "", "Springfield", "IL", "62701", 420, now, now).
		AddRow("s2", "d1", "Washington Middle", "", "Springfield", "IL", "62702", 610, now, now)
	mock.ExpectQuery(`SELECT s\.id, .+ FROM schools s WHERE 1=1 AND s\.district_id = \$1 ORDER BY s\.name ASC`).
		WithArgs("d1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schools s WHERE 1=1 AND s.district_id = $1")).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	schools, total, err := repo.List(context.Background(), models.SchoolFilter{DistrictID: "d1"})
	require.NoError(t, err)
	assert.Len(t, schools, 2)
	assert.Equal(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSchoolOwnershipGuard(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schools WHERE id = $1 AND district_id = $2")).
		WithArgs("s1", "d2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "d2", "s1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
