package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/psychedhire/psychedhire-api/internal/models"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
)

const (
	analyticsSummaryCacheKey = "analytics:summary"
	analyticsEventWindow     = 30 * 24 * time.Hour
)

type analyticsRepository interface {
	CreateEvent(ctx context.Context, event *models.AnalyticsEvent) error
	ListEvents(ctx context.Context, filter models.AnalyticsEventFilter) ([]models.AnalyticsEvent, int, error)
	CountByStatus(ctx context.Context, table string) ([]models.StatusCount, error)
	CountEventsByType(ctx context.Context, since time.Time) ([]models.EventTypeCount, error)
}

// AnalyticsService records platform events and serves the cached admin
// dashboard aggregates.
type AnalyticsService struct {
	repo     analyticsRepository
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	cacheTTL time.Duration
	enabled  bool
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(repo analyticsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cacheTTL time.Duration, enabled bool) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, logger: logger, cacheTTL: cacheTTL, enabled: enabled}
}

// Record appends an event. Event recording is best effort and never fails
// the calling operation.
func (s *AnalyticsService) Record(ctx context.Context, eventType string, userID *string, data interface{}) {
	if s == nil || !s.enabled {
		return
	}
	var payload []byte
	if data != nil {
		var err error
		payload, err = json.Marshal(data)
		if err != nil {
			s.logger.Warn("failed to marshal analytics payload", zap.String("event_type", eventType), zap.Error(err))
			payload = nil
		}
	}
	if err := s.repo.CreateEvent(ctx, &models.AnalyticsEvent{
		EventType: eventType,
		UserID:    userID,
		EventData: payload,
	}); err != nil {
		s.logger.Warn("failed to record analytics event", zap.String("event_type", eventType), zap.Error(err))
	}
}

// ListEvents returns raw events for admin inspection.
func (s *AnalyticsService) ListEvents(ctx context.Context, filter models.AnalyticsEventFilter) ([]models.AnalyticsEvent, int, error) {
	events, total, err := s.repo.ListEvents(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list analytics events")
	}
	return events, total, nil
}

// Summary returns the admin dashboard aggregates, served from cache when
// fresh.
func (s *AnalyticsService) Summary(ctx context.Context) (*models.AnalyticsSummary, error) {
	var cached models.AnalyticsSummary
	if hit, _ := s.cache.Get(ctx, analyticsSummaryCacheKey, &cached); hit {
		return &cached, nil
	}

	summary := models.AnalyticsSummary{GeneratedAt: time.Now().UTC()}

	tables := []struct {
		name string
		dest *[]models.StatusCount
	}{
		{"districts", &summary.Districts},
		{"psychologists", &summary.Psychologists},
		{"jobs", &summary.Jobs},
		{"evaluation_requests", &summary.Evaluations},
		{"applications", &summary.Applications},
	}
	for _, t := range tables {
		counts, err := s.repo.CountByStatus(ctx, t.name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate "+t.name)
		}
		*t.dest = counts
	}

	events, err := s.repo.CountEventsByType(ctx, time.Now().UTC().Add(-analyticsEventWindow))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate events")
	}
	summary.Events = events

	if err := s.cache.Set(ctx, analyticsSummaryCacheKey, summary, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache analytics summary", zap.Error(err))
	}

	return &summary, nil
}

// InvalidateSummary drops the cached dashboard after workflow decisions.
func (s *AnalyticsService) InvalidateSummary(ctx context.Context) {
	if s == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, analyticsSummaryCacheKey); err != nil {
		s.logger.Warn("failed to invalidate analytics summary", zap.Error(err))
	}
}

// SystemMetrics returns the runtime metrics snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	return s.metrics.Snapshot()
}
