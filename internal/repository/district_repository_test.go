package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psychedhire/psychedhire-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func districtColumns() []string {
	return []string{"id", "user_id", "name", "contact_email", "contact_phone", "location", "state", "status", "created_at", "updated_at"}
}

func TestListDistrictsSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistrictRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(districtColumns()).
		AddRow("d1", "u1", "Springfield USD", "", "", "Springfield", "IL", string(models.ApprovalStatusApproved), now, now)
	mock.ExpectQuery(`SELECT d\.id, .+ FROM districts d WHERE 1=1 AND \(LOWER\(d\.name\) LIKE \$1 OR LOWER\(d\.location\) LIKE \$1\)`).
		WithArgs("%spring%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM districts d WHERE 1=1 AND (LOWER(d.name) LIKE $1 OR LOWER(d.location) LIKE $1)")).
		WithArgs("%spring%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	districts, total, err := repo.List(context.Background(), models.DistrictFilter{Search: "Spring"})
	require.NoError(t, err)
	assert.Len(t, districts, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDistrictsStatusFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistrictRepository(db)

	status := models.ApprovalStatusPending
	mock.ExpectQuery(`SELECT d\.id, .+ FROM districts d WHERE 1=1 AND d\.status = \$1`).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows(districtColumns()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM districts d WHERE 1=1 AND d.status = $1")).
		WithArgs(status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.DistrictFilter{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindDistrictByUserID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistrictRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(districtColumns()).
		AddRow("d1", "u1", "Springfield USD", "", "", "Springfield", "IL", string(models.ApprovalStatusApproved), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, name, contact_email, contact_phone, location, state, status, created_at, updated_at FROM districts WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnRows(rows)

	district, err := repo.FindByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "d1", district.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDistrictGone(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDistrictRepository(db)

	mock.ExpectExec("UPDATE districts SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.District{ID: "missing", Name: "Nowhere"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
