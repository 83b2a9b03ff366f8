package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/psychedhire/psychedhire-api/internal/models"
)

// ApprovalRepository drives the admin review queue. A review decision is a
// single transaction: the guarded status flip, the owner notification, and
// the analytics event either all commit or none do.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs an ApprovalRepository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// pendingQueries project each approvable table into the shared review-queue
// shape. Jobs and evaluations resolve their owner through the district row.
var pendingQueries = map[models.ApprovalEntity]string{
	models.ApprovalEntityDistrict: `SELECT d.id, d.name, d.user_id AS owner_user_id, d.created_at AS submitted_at
        FROM districts d WHERE d.status = 'PENDING'`,
	models.ApprovalEntityPsychologist: `SELECT p.id, u.full_name AS name, p.user_id AS owner_user_id, p.created_at AS submitted_at
        FROM psychologists p JOIN users u ON u.id = p.user_id WHERE p.status = 'PENDING' AND p.signup_completed = TRUE`,
	models.ApprovalEntityJob: `SELECT j.id, j.title AS name, d.user_id AS owner_user_id, j.created_at AS submitted_at
        FROM jobs j JOIN districts d ON d.id = j.district_id WHERE j.status = 'PENDING'`,
	models.ApprovalEntityEvaluation: `SELECT e.id, e.legal_name AS name, d.user_id AS owner_user_id, e.created_at AS submitted_at
        FROM evaluation_requests e JOIN districts d ON d.id = e.district_id WHERE e.status = 'PENDING'`,
}

var reviewTables = map[models.ApprovalEntity]string{
	models.ApprovalEntityDistrict:     "districts",
	models.ApprovalEntityPsychologist: "psychologists",
	models.ApprovalEntityJob:          "jobs",
	models.ApprovalEntityEvaluation:   "evaluation_requests",
}

// ListPending returns the review queue for one entity kind, oldest first.
func (r *ApprovalRepository) ListPending(ctx context.Context, entity models.ApprovalEntity, page, size int) ([]models.PendingRecord, int, error) {
	base, ok := pendingQueries[entity]
	if !ok {
		return nil, 0, fmt.Errorf("list pending: unknown entity %q", entity)
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s ORDER BY submitted_at ASC LIMIT %d OFFSET %d", base, size, offset)
	var records []models.PendingRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, 0, fmt.Errorf("list pending %s: %w", entity, err)
	}
	for i := range records {
		records[i].Entity = entity
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM (%s) q", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, fmt.Errorf("count pending %s: %w", entity, err)
	}
	return records, total, nil
}

// FindPending returns the queue projection for one record regardless of its
// current status, so the caller can name the record in messages.
func (r *ApprovalRepository) FindPending(ctx context.Context, entity models.ApprovalEntity, id string) (*models.PendingRecord, error) {
	var query string
	switch entity {
	case models.ApprovalEntityDistrict:
		query = `SELECT d.id, d.name, d.user_id AS owner_user_id, d.created_at AS submitted_at FROM districts d WHERE d.id = $1`
	case models.ApprovalEntityPsychologist:
		query = `SELECT p.id, u.full_name AS name, p.user_id AS owner_user_id, p.created_at AS submitted_at FROM psychologists p JOIN users u ON u.id = p.user_id WHERE p.id = $1`
	case models.ApprovalEntityJob:
		query = `SELECT j.id, j.title AS name, d.user_id AS owner_user_id, j.created_at AS submitted_at FROM jobs j JOIN districts d ON d.id = j.district_id WHERE j.id = $1`
	case models.ApprovalEntityEvaluation:
		query = `SELECT e.id, e.legal_name AS name, d.user_id AS owner_user_id, e.created_at AS submitted_at FROM evaluation_requests e JOIN districts d ON d.id = e.district_id WHERE e.id = $1`
	default:
		return nil, fmt.Errorf("find pending: unknown entity %q", entity)
	}
	var record models.PendingRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	record.Entity = entity
	return &record, nil
}

// ReviewParams groups the writes committed by one review decision.
type ReviewParams struct {
	Entity       models.ApprovalEntity
	EntityID     string
	NewStatus    string
	Notification *models.Notification
	Event        *models.AnalyticsEvent
}

// Review applies a review decision atomically. The status flip is guarded
// by status = 'PENDING'; zero affected rows rolls everything back and
// returns sql.ErrNoRows, leaving no notification or event behind.
func (r *ApprovalRepository) Review(ctx context.Context, params ReviewParams) error {
	table, ok := reviewTables[params.Entity]
	if !ok {
		return fmt.Errorf("review: unknown entity %q", params.Entity)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}

	now := time.Now().UTC()
	query := fmt.Sprintf("UPDATE %s SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'PENDING'", table)
	result, err := tx.ExecContext(ctx, query, params.EntityID, params.NewStatus, now)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("review %s: %w", params.Entity, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("check review rows: %w", err)
	}
	if rows == 0 {
		_ = tx.Rollback()
		return sql.ErrNoRows
	}

	if params.Notification != nil {
		n := params.Notification
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		const nq = `INSERT INTO notifications (id, user_id, message, type, related_id, read, created_at) VALUES (:id, :user_id, :message, :type, :related_id, :read, :created_at)`
		if _, err := tx.NamedExecContext(ctx, nq, n); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("review notification: %w", err)
		}
	}

	if params.Event != nil {
		ev := params.Event
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = now
		}
		const eq = `INSERT INTO analytics_events (id, event_type, user_id, event_data, created_at) VALUES (:id, :event_type, :user_id, :event_data, :created_at)`
		if _, err := tx.NamedExecContext(ctx, eq, ev); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("review event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review tx: %w", err)
	}
	return nil
}
