package models

import "time"

// ReportDataset enumerates exportable datasets.
type ReportDataset string

const (
	ReportDatasetStudents    ReportDataset = "students"
	ReportDatasetEvaluations ReportDataset = "evaluations"
	ReportDatasetApprovals   ReportDataset = "approvals"
)

// ReportFormat enumerates export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportJobStatus is the async export lifecycle.
type ReportJobStatus string

const (
	ReportJobStatusQueued    ReportJobStatus = "QUEUED"
	ReportJobStatusRunning   ReportJobStatus = "RUNNING"
	ReportJobStatusCompleted ReportJobStatus = "COMPLETED"
	ReportJobStatusFailed    ReportJobStatus = "FAILED"
)

// ReportJob tracks one requested export.
type ReportJob struct {
	ID          string          `db:"id" json:"id"`
	RequestedBy string          `db:"requested_by" json:"requested_by"`
	// DistrictID scopes district exports; empty for admin-wide datasets.
	DistrictID  string          `db:"district_id" json:"district_id,omitempty"`
	Dataset     ReportDataset   `db:"dataset" json:"dataset"`
	Format      ReportFormat    `db:"format" json:"format"`
	Status      ReportJobStatus `db:"status" json:"status"`
	FilePath    string          `db:"file_path" json:"-"`
	DownloadURL string          `db:"-" json:"download_url,omitempty"`
	Error       string          `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	CompletedAt *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}
