package models

import (
	"time"

	"github.com/lib/pq"
)

// ApplicationStatus is the district/admin review lifecycle of an
// application. Psychologists only ever create SUBMITTED rows.
type ApplicationStatus string

const (
	ApplicationStatusSubmitted   ApplicationStatus = "SUBMITTED"
	ApplicationStatusUnderReview ApplicationStatus = "UNDER_REVIEW"
	ApplicationStatusApproved    ApplicationStatus = "APPROVED"
	ApplicationStatusRejected    ApplicationStatus = "REJECTED"
)

// applicationTransitions guards reviewer status moves.
var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationStatusSubmitted:   {ApplicationStatusUnderReview, ApplicationStatusApproved, ApplicationStatusRejected},
	ApplicationStatusUnderReview: {ApplicationStatusApproved, ApplicationStatusRejected},
}

// CanTransitionApplication reports whether a reviewer may move an
// application from one status to another.
func CanTransitionApplication(from, to ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Application links a psychologist to a job posting.
type Application struct {
	ID             string            `db:"id" json:"id"`
	JobID          string            `db:"job_id" json:"job_id"`
	PsychologistID string            `db:"psychologist_id" json:"psychologist_id"`
	Status         ApplicationStatus `db:"status" json:"status"`
	Notes          string            `db:"notes" json:"notes"`
	DocumentIDs    pq.StringArray    `db:"document_ids" json:"document_ids"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationDetail joins application rows with job context for listings.
type ApplicationDetail struct {
	Application
	JobTitle   string `db:"job_title" json:"job_title"`
	DistrictID string `db:"district_id" json:"district_id"`
}

// ApplicationFilter captures list criteria for application views.
type ApplicationFilter struct {
	JobID          string
	PsychologistID string
	DistrictID     string
	Status         *ApplicationStatus
	Page           int
	PageSize       int
}
