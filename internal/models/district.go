package models

import "time"

// District represents a school-district tenant account.
type District struct {
	ID           string         `db:"id" json:"id"`
	UserID       string         `db:"user_id" json:"user_id"`
	Name         string         `db:"name" json:"name"`
	ContactEmail string         `db:"contact_email" json:"contact_email"`
	ContactPhone string         `db:"contact_phone" json:"contact_phone"`
	Location     string         `db:"location" json:"location"`
	State        string         `db:"state" json:"state"`
	Status       ApprovalStatus `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// DistrictFilter captures list criteria for admin district views.
type DistrictFilter struct {
	Status    *ApprovalStatus
	State     string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
