package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/psychedhire/psychedhire-api/internal/models"
	"github.com/psychedhire/psychedhire-api/internal/repository"
	appErrors "github.com/psychedhire/psychedhire-api/pkg/errors"
)

type approvalRepository interface {
	ListPending(ctx context.Context, entity models.ApprovalEntity, page, size int) ([]models.PendingRecord, int, error)
	FindPending(ctx context.Context, entity models.ApprovalEntity, id string) (*models.PendingRecord, error)
	Review(ctx context.Context, params repository.ReviewParams) error
}

type approvalAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// reviewEventData is the analytics payload persisted with every review
// decision inside the workflow transaction.
type reviewEventData struct {
	EntityID   string    `json:"entity_id"`
	EntityName string    `json:"entity_name"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// approvedStatus maps each entity kind to the status it moves to when an
// admin approves. Districts and psychologists become APPROVED; jobs and
// evaluations go live as ACTIVE.
var approvedStatus = map[models.ApprovalEntity]string{
	models.ApprovalEntityDistrict:     string(models.ApprovalStatusApproved),
	models.ApprovalEntityPsychologist: string(models.ApprovalStatusApproved),
	models.ApprovalEntityJob:          string(models.JobStatusActive),
	models.ApprovalEntityEvaluation:   string(models.EvaluationStatusActive),
}

// ApprovalService drives the admin review queue. Each decision commits the
// status flip, the owner notification, and the analytics event in a single
// repository transaction, so a failed decision leaves no trace.
type ApprovalService struct {
	repo      approvalRepository
	audit     approvalAuditor
	analytics *AnalyticsService
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewApprovalService constructs an ApprovalService.
func NewApprovalService(repo approvalRepository, audit approvalAuditor, analytics *AnalyticsService, metrics *MetricsService, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{repo: repo, audit: audit, analytics: analytics, metrics: metrics, logger: logger}
}

// ListPending returns the review queue for one entity kind.
func (s *ApprovalService) ListPending(ctx context.Context, entity models.ApprovalEntity, page, size int) ([]models.PendingRecord, int, error) {
	records, total, err := s.repo.ListPending(ctx, entity, page, size)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending records")
	}
	return records, total, nil
}

// Approve moves a pending record to its live status.
func (s *ApprovalService) Approve(ctx context.Context, entity models.ApprovalEntity, entityID, reviewedBy string) (*models.ApprovalDecision, error) {
	return s.review(ctx, entity, entityID, reviewedBy, "", true)
}

// Reject moves a pending record to REJECTED. The reason is mandatory and is
// included verbatim in the owner's notification.
func (s *ApprovalService) Reject(ctx context.Context, entity models.ApprovalEntity, entityID, reviewedBy, reason string) (*models.ApprovalDecision, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	return s.review(ctx, entity, entityID, reviewedBy, reason, false)
}

func (s *ApprovalService) review(ctx context.Context, entity models.ApprovalEntity, entityID, reviewedBy, reason string, approve bool) (*models.ApprovalDecision, error) {
	record, err := s.repo.FindPending(ctx, entity, entityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", strings.ToLower(string(entity))))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}

	newStatus := string(models.ApprovalStatusRejected)
	outcome := "rejected"
	if approve {
		newStatus = approvedStatus[entity]
		outcome = "approved"
	}

	notification := &models.Notification{
		UserID:    record.OwnerUserID,
		Message:   decisionMessage(entity, record.Name, reason, approve),
		Type:      decisionNotificationType(entity, approve),
		RelatedID: &record.ID,
	}
	eventData, err := json.Marshal(reviewEventData{
		EntityID:   record.ID,
		EntityName: record.Name,
		Reason:     reason,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode review event")
	}
	event := &models.AnalyticsEvent{
		EventType: fmt.Sprintf("%s_%s", strings.ToLower(string(entity)), outcome),
		UserID:    &reviewedBy,
		EventData: eventData,
	}

	if err := s.repo.Review(ctx, repository.ReviewParams{
		Entity:       entity,
		EntityID:     entityID,
		NewStatus:    newStatus,
		Notification: notification,
		Event:        event,
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyReviewed, "record is no longer pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply review")
	}

	s.metrics.ObserveReview(entity, outcome)
	s.analytics.InvalidateSummary(ctx)

	action := models.AuditActionApprove
	if !approve {
		action = models.AuditActionReject
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &reviewedBy,
		Action:     action,
		Resource:   strings.ToLower(string(entity)),
		ResourceID: &record.ID,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q,"reason":%q}`, newStatus, reason)),
	}); err != nil {
		s.logger.Warn("failed to record review audit log", zap.Error(err))
	}

	return &models.ApprovalDecision{
		Entity:     entity,
		EntityID:   record.ID,
		EntityName: record.Name,
		NewStatus:  newStatus,
		Reason:     reason,
		ReviewedBy: reviewedBy,
		ReviewedAt: time.Now().UTC(),
	}, nil
}

func decisionMessage(entity models.ApprovalEntity, name, reason string, approve bool) string {
	label := map[models.ApprovalEntity]string{
		models.ApprovalEntityDistrict:     "district account",
		models.ApprovalEntityPsychologist: "psychologist profile",
		models.ApprovalEntityJob:          "job posting",
		models.ApprovalEntityEvaluation:   "evaluation request",
	}[entity]
	if approve {
		return fmt.Sprintf("Your %s %q has been approved.", label, name)
	}
	return fmt.Sprintf("Your %s %q has been rejected: %s", label, name, reason)
}

func decisionNotificationType(entity models.ApprovalEntity, approve bool) string {
	switch entity {
	case models.ApprovalEntityDistrict:
		if approve {
			return models.NotificationTypeDistrictApproved
		}
		return models.NotificationTypeDistrictRejected
	case models.ApprovalEntityPsychologist:
		if approve {
			return models.NotificationTypePsychologistApproved
		}
		return models.NotificationTypePsychologistRejected
	case models.ApprovalEntityJob:
		if approve {
			return models.NotificationTypeJobApproved
		}
		return models.NotificationTypeJobRejected
	default:
		if approve {
			return models.NotificationTypeEvaluationApproved
		}
		return models.NotificationTypeEvaluationRejected
	}
}
