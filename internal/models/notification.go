package models

import "time"

// Notification types emitted by workflow transitions.
const (
	NotificationTypeDistrictApproved     = "district_approved"
	NotificationTypeDistrictRejected     = "district_rejected"
	NotificationTypePsychologistApproved = "psychologist_approved"
	NotificationTypePsychologistRejected = "psychologist_rejected"
	NotificationTypeJobApproved          = "job_approved"
	NotificationTypeJobRejected          = "job_rejected"
	NotificationTypeEvaluationApproved   = "evaluation_approved"
	NotificationTypeEvaluationRejected   = "evaluation_rejected"
	NotificationTypeApplicationStatus    = "application_status"
	NotificationTypeEvaluationOffered    = "evaluation_offered"
	NotificationTypeEvaluationAccepted   = "evaluation_accepted"
)

// Notification is an append-only message addressed to a single user.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	RelatedID *string   `db:"related_id" json:"related_id,omitempty"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NotificationFilter captures list criteria for a user's notifications.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
