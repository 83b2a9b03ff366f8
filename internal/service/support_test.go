package service

import (
	"context"
	"time"

	"github.com/psychedhire/psychedhire-api/internal/models"
)

// recorderStub captures analytics events emitted by services under test.
type recorderStub struct {
	events []string
}

func (r *recorderStub) Record(ctx context.Context, eventType string, userID *string, data interface{}) {
	r.events = append(r.events, eventType)
}

type stubAnalyticsRepo struct {
	created []models.AnalyticsEvent
}

func (s *stubAnalyticsRepo) CreateEvent(ctx context.Context, event *models.AnalyticsEvent) error {
	s.created = append(s.created, *event)
	return nil
}

func (s *stubAnalyticsRepo) ListEvents(ctx context.Context, filter models.AnalyticsEventFilter) ([]models.AnalyticsEvent, int, error) {
	return s.created, len(s.created), nil
}

func (s *stubAnalyticsRepo) CountByStatus(ctx context.Context, table string) ([]models.StatusCount, error) {
	return []models.StatusCount{{Status: "PENDING", Count: 1}}, nil
}

func (s *stubAnalyticsRepo) CountEventsByType(ctx context.Context, since time.Time) ([]models.EventTypeCount, error) {
	return nil, nil
}

func newTestAnalytics() *AnalyticsService {
	cache := NewCacheService(nil, nil, time.Minute, nil, false)
	return NewAnalyticsService(&stubAnalyticsRepo{}, cache, nil, nil, time.Minute, true)
}

type stubNotificationRepo struct {
	created []models.Notification
	marked  []string
}

func (s *stubNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	return s.created, len(s.created), nil
}

func (s *stubNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	return len(s.created), nil
}

func (s *stubNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	s.created = append(s.created, *n)
	return nil
}

func (s *stubNotificationRepo) MarkRead(ctx context.Context, userID, id string) error {
	s.marked = append(s.marked, id)
	return nil
}

func (s *stubNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return len(s.created), nil
}

func newTestNotifications(repo *stubNotificationRepo) *NotificationService {
	return NewNotificationService(repo, nil)
}
