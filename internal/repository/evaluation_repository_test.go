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

func evaluationColumns() []string {
	return []string{"id", "district_id", "school_id", "student_id", "psychologist_id", "legal_name", "service_type", "payment_amount", "status", "created_at", "updated_at"}
}

func TestListEvaluationsAvailableOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(evaluationColumns()).
		AddRow("e1", "d1", "s1", nil, nil, "Jane Doe", "Initial Evaluation", 850.0, string(models.EvaluationStatusActive), now, now)
	mock.ExpectQuery(`FROM evaluation_requests e WHERE 1=1 AND e\.status = \$1 AND e\.psychologist_id IS NULL`).
		WithArgs(models.EvaluationStatusActive).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM evaluation_requests e WHERE 1=1 AND e\.status = \$1 AND e\.psychologist_id IS NULL`).
		WithArgs(models.EvaluationStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	evaluations, total, err := repo.List(context.Background(), models.EvaluationFilter{AvailableOnly: true})
	require.NoError(t, err)
	assert.Len(t, evaluations, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferEvaluationGuarded(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE evaluation_requests SET psychologist_id = $2, status = $3, updated_at = $4 WHERE id = $1 AND status = $5 AND psychologist_id IS NULL")).
		WithArgs("e1", "p1", models.EvaluationStatusOffered, sqlmock.AnyArg(), models.EvaluationStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Offer(context.Background(), "e1", "p1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferEvaluationAlreadyAssigned(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectExec("UPDATE evaluation_requests SET psychologist_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Offer(context.Background(), "e1", "p1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEvaluationStatusGuarded(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE evaluation_requests SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2")).
		WithArgs("e1", models.EvaluationStatusOffered, models.EvaluationStatusAccepted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "e1", models.EvaluationStatusOffered, models.EvaluationStatusAccepted)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseEvaluation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE evaluation_requests SET psychologist_id = NULL, status = $2, updated_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("e1", models.EvaluationStatusActive, sqlmock.AnyArg(), models.EvaluationStatusOffered).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Release(context.Background(), "e1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEvaluationOnlyPendingEditable(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectExec("UPDATE evaluation_requests SET school_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.EvaluationRequest{ID: "e1", DistrictID: "d1", SchoolID: "s1", LegalName: "Jane Doe", ServiceType: "Initial Evaluation"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteEvaluationOnlyPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM evaluation_requests WHERE id = $1 AND district_id = $2 AND status = 'PENDING'")).
		WithArgs("e1", "d1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "d1", "e1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM evaluation_requests WHERE id = $1 AND district_id = $2 AND status = 'PENDING'")).
		WithArgs("e2", "d1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "d1", "e2"), sql.ErrNoRows)

	assert.NoError(t, mock.ExpectationsWereMet())
}
