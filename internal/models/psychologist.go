package models

import (
	"time"

	"github.com/lib/pq"
)

// Signup wizard bounds. Completing the final step marks the profile
// signup_completed; approval remains a separate admin decision.
const (
	SignupStepMin = 1
	SignupStepMax = 5
)

// Psychologist represents a professional profile owned by a
// PSYCHOLOGIST-role user.
type Psychologist struct {
	ID              string         `db:"id" json:"id"`
	UserID          string         `db:"user_id" json:"user_id"`
	Education       string         `db:"education" json:"education"`
	ExperienceYears int            `db:"experience_years" json:"experience_years"`
	Specialties     pq.StringArray `db:"specialties" json:"specialties"`
	Certifications  pq.StringArray `db:"certifications" json:"certifications"`
	Status          ApprovalStatus `db:"status" json:"status"`
	SignupProgress  int            `db:"signup_progress" json:"signup_progress"`
	SignupCompleted bool           `db:"signup_completed" json:"signup_completed"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// PsychologistFilter captures list criteria for admin psychologist views.
type PsychologistFilter struct {
	Status    *ApprovalStatus
	Specialty string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
