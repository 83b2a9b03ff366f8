package models

import "time"

// Student is a district-owned record referenced by evaluation requests.
type Student struct {
	ID            string    `db:"id" json:"id"`
	DistrictID    string    `db:"district_id" json:"district_id"`
	SchoolID      *string   `db:"school_id" json:"school_id,omitempty"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	Grade         string    `db:"grade" json:"grade"`
	GuardianName  string    `db:"guardian_name" json:"guardian_name"`
	GuardianEmail string    `db:"guardian_email" json:"guardian_email"`
	GuardianPhone string    `db:"guardian_phone" json:"guardian_phone"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures list criteria for district student views.
type StudentFilter struct {
	DistrictID string
	SchoolID   string
	Grade      string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
