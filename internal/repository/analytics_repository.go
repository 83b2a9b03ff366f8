package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/psychedhire/psychedhire-api/internal/models"
)

// AnalyticsRepository manages the append-only event log and the aggregate
// queries behind the admin dashboard.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository constructs an AnalyticsRepository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// CreateEvent appends an analytics event.
func (r *AnalyticsRepository) CreateEvent(ctx context.Context, event *models.AnalyticsEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO analytics_events (id, event_type, user_id, event_data, created_at) VALUES (:id, :event_type, :user_id, :event_data, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create analytics event: %w", err)
	}
	return nil
}

// ListEvents returns events matching the provided filters, newest first.
func (r *AnalyticsRepository) ListEvents(ctx context.Context, filter models.AnalyticsEventFilter) ([]models.AnalyticsEvent, int, error) {
	base := "FROM analytics_events ev"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.EventType != "" {
		conditions = append(conditions, fmt.Sprintf("ev.event_type = $%d", len(args)+1))
		args = append(args, filter.EventType)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("ev.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("ev.created_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("ev.created_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
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

	query := fmt.Sprintf(`SELECT ev.id, ev.event_type, ev.user_id, ev.event_data, ev.created_at
        %s ORDER BY ev.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var events []models.AnalyticsEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list analytics events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count analytics events: %w", err)
	}
	return events, total, nil
}

// CountByStatus aggregates a table's rows by status column.
func (r *AnalyticsRepository) CountByStatus(ctx context.Context, table string) ([]models.StatusCount, error) {
	allowed := map[string]bool{
		"districts":           true,
		"psychologists":       true,
		"jobs":                true,
		"evaluation_requests": true,
		"applications":        true,
	}
	if !allowed[table] {
		return nil, fmt.Errorf("count by status: unknown table %q", table)
	}
	query := fmt.Sprintf("SELECT status, COUNT(*) AS count FROM %s GROUP BY status ORDER BY status", table)
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count %s by status: %w", table, err)
	}
	return counts, nil
}

// CountEventsByType aggregates events recorded since the given time.
func (r *AnalyticsRepository) CountEventsByType(ctx context.Context, since time.Time) ([]models.EventTypeCount, error) {
	const query = `SELECT event_type, COUNT(*) AS count FROM analytics_events WHERE created_at >= $1 GROUP BY event_type ORDER BY count DESC`
	var counts []models.EventTypeCount
	if err := r.db.SelectContext(ctx, &counts, query, since); err != nil {
		return nil, fmt.Errorf("count events by type: %w", err)
	}
	return counts, nil
}
