package models

import "time"

// DocumentKind classifies uploaded files.
type DocumentKind string

const (
	DocumentKindCertification    DocumentKind = "CERTIFICATION"
	DocumentKindResume           DocumentKind = "RESUME"
	DocumentKindEvaluationReport DocumentKind = "EVALUATION_REPORT"
)

// Document is metadata for a file stored on local storage; the bytes
// themselves are only reachable through signed URLs.
type Document struct {
	ID          string       `db:"id" json:"id"`
	OwnerUserID string       `db:"owner_user_id" json:"owner_user_id"`
	Kind        DocumentKind `db:"kind" json:"kind"`
	FileName    string       `db:"file_name" json:"file_name"`
	MimeType    string       `db:"mime_type" json:"mime_type"`
	SizeBytes   int64        `db:"size_bytes" json:"size_bytes"`
	StoragePath string       `db:"storage_path" json:"-"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}
