package models

import (
	"time"

	"github.com/lib/pq"
)

// JobStatus is the job posting lifecycle. Admin approval moves PENDING to
// ACTIVE; the owning district may later deactivate.
type JobStatus string

const (
	JobStatusPending  JobStatus = "PENDING"
	JobStatusActive   JobStatus = "ACTIVE"
	JobStatusInactive JobStatus = "INACTIVE"
	JobStatusRejected JobStatus = "REJECTED"
)

// Job is a district's posting for a psychologist position.
type Job struct {
	ID                string         `db:"id" json:"id"`
	DistrictID        string         `db:"district_id" json:"district_id"`
	SchoolID          *string        `db:"school_id" json:"school_id,omitempty"`
	Title             string         `db:"title" json:"title"`
	Description       string         `db:"description" json:"description"`
	City              string         `db:"city" json:"city"`
	State             string         `db:"state" json:"state"`
	Salary            float64        `db:"salary" json:"salary"`
	Qualifications    pq.StringArray `db:"qualifications" json:"qualifications"`
	DocumentsRequired pq.StringArray `db:"documents_required" json:"documents_required"`
	Status            JobStatus      `db:"status" json:"status"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// JobFilter captures list criteria for job views.
type JobFilter struct {
	DistrictID string
	Status     *JobStatus
	State      string
	Search     string
	// AvailableFor restricts the list to ACTIVE jobs the given psychologist
	// has not applied to yet.
	AvailableFor string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
