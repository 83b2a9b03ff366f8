package models

import "time"

// School belongs to exactly one district; only that district mutates it.
type School struct {
	ID             string    `db:"id" json:"id"`
	DistrictID     string    `db:"district_id" json:"district_id"`
	Name           string    `db:"name" json:"name"`
	Address        string    `db:"address" json:"address"`
	City           string    `db:"city" json:"city"`
	State          string    `db:"state" json:"state"`
	ZipCode        string    `db:"zip_code" json:"zip_code"`
	EnrollmentSize int       `db:"enrollment_size" json:"enrollment_size"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolFilter captures list criteria for district school views.
type SchoolFilter struct {
	DistrictID string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
