package models

import "time"

// AnalyticsEvent is an append-only platform event row.
type AnalyticsEvent struct {
	ID        string    `db:"id" json:"id"`
	EventType string    `db:"event_type" json:"event_type"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	EventData []byte    `db:"event_data" json:"event_data,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AnalyticsEventFilter captures list/export criteria for events.
type AnalyticsEventFilter struct {
	EventType string
	UserID    string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// StatusCount aggregates records of one entity kind by status.
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

// EventTypeCount aggregates analytics events by type.
type EventTypeCount struct {
	EventType string `db:"event_type" json:"event_type"`
	Count     int    `db:"count" json:"count"`
}

// AnalyticsSummary is the cached admin dashboard payload.
type AnalyticsSummary struct {
	Districts     []StatusCount    `json:"districts"`
	Psychologists []StatusCount    `json:"psychologists"`
	Jobs          []StatusCount    `json:"jobs"`
	Evaluations   []StatusCount    `json:"evaluations"`
	Applications  []StatusCount    `json:"applications"`
	Events        []EventTypeCount `json:"events"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// AnalyticsSystemMetrics exposes runtime counters for operations tooling.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"avg_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
