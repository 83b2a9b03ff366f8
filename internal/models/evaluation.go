package models

import "time"

// EvaluationStatus is the unified evaluation request lifecycle:
//
//	PENDING → ACTIVE → OFFERED → ACCEPTED → IN_PROGRESS → COMPLETED
//
// REJECTED is terminal and only reachable from PENDING (admin decision).
type EvaluationStatus string

const (
	EvaluationStatusPending    EvaluationStatus = "PENDING"
	EvaluationStatusActive     EvaluationStatus = "ACTIVE"
	EvaluationStatusOffered    EvaluationStatus = "OFFERED"
	EvaluationStatusAccepted   EvaluationStatus = "ACCEPTED"
	EvaluationStatusInProgress EvaluationStatus = "IN_PROGRESS"
	EvaluationStatusCompleted  EvaluationStatus = "COMPLETED"
	EvaluationStatusRejected   EvaluationStatus = "REJECTED"
)

var evaluationTransitions = map[EvaluationStatus][]EvaluationStatus{
	EvaluationStatusPending:    {EvaluationStatusActive, EvaluationStatusRejected},
	EvaluationStatusActive:     {EvaluationStatusOffered},
	EvaluationStatusOffered:    {EvaluationStatusAccepted, EvaluationStatusActive},
	EvaluationStatusAccepted:   {EvaluationStatusInProgress},
	EvaluationStatusInProgress: {EvaluationStatusCompleted},
}

// CanTransitionEvaluation reports whether moving an evaluation between the
// two statuses is allowed.
func CanTransitionEvaluation(from, to EvaluationStatus) bool {
	for _, allowed := range evaluationTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// EvaluationRequest is a district's request for a student assessment.
type EvaluationRequest struct {
	ID             string           `db:"id" json:"id"`
	DistrictID     string           `db:"district_id" json:"district_id"`
	SchoolID       string           `db:"school_id" json:"school_id"`
	StudentID      *string          `db:"student_id" json:"student_id,omitempty"`
	PsychologistID *string          `db:"psychologist_id" json:"psychologist_id,omitempty"`
	LegalName      string           `db:"legal_name" json:"legal_name"`
	ServiceType    string           `db:"service_type" json:"service_type"`
	PaymentAmount  float64          `db:"payment_amount" json:"payment_amount"`
	Status         EvaluationStatus `db:"status" json:"status"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// EvaluationFilter captures list criteria for evaluation views.
type EvaluationFilter struct {
	DistrictID     string
	PsychologistID string
	Status         *EvaluationStatus
	ServiceType    string
	Search         string
	// AvailableOnly restricts the list to ACTIVE requests with no assigned
	// psychologist.
	AvailableOnly bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
