package models

import "time"

// ApprovalStatus is the review lifecycle shared by districts and
// psychologists. Jobs and evaluation requests carry their own enums whose
// pending/rejected values align with these.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// ApprovalEntity identifies which record kind an approval targets.
type ApprovalEntity string

const (
	ApprovalEntityDistrict     ApprovalEntity = "DISTRICT"
	ApprovalEntityPsychologist ApprovalEntity = "PSYCHOLOGIST"
	ApprovalEntityJob          ApprovalEntity = "JOB"
	ApprovalEntityEvaluation   ApprovalEntity = "EVALUATION"
)

// ParseApprovalEntity validates a path parameter into an ApprovalEntity.
func ParseApprovalEntity(raw string) (ApprovalEntity, bool) {
	switch ApprovalEntity(raw) {
	case ApprovalEntityDistrict, ApprovalEntityPsychologist, ApprovalEntityJob, ApprovalEntityEvaluation:
		return ApprovalEntity(raw), true
	}
	return "", false
}

// PendingRecord is the admin review-queue projection of any approvable
// entity.
type PendingRecord struct {
	ID          string         `db:"id" json:"id"`
	Entity      ApprovalEntity `db:"-" json:"entity"`
	Name        string         `db:"name" json:"name"`
	OwnerUserID string         `db:"owner_user_id" json:"owner_user_id"`
	SubmittedAt time.Time      `db:"submitted_at" json:"submitted_at"`
}

// ApprovalDecision captures the outcome persisted by the approval
// transaction.
type ApprovalDecision struct {
	Entity     ApprovalEntity `json:"entity"`
	EntityID   string         `json:"entity_id"`
	EntityName string         `json:"entity_name"`
	NewStatus  string         `json:"new_status"`
	Reason     string         `json:"reason,omitempty"`
	ReviewedBy string         `json:"reviewed_by"`
	ReviewedAt time.Time      `json:"reviewed_at"`
}
