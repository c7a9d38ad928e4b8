package models

import "time"

// ReportSubjectType identifies what a report targets.
type ReportSubjectType string

const (
	ReportSubjectUser ReportSubjectType = "user"
	ReportSubjectClan ReportSubjectType = "clan"
)

// Report flags a user or clan for staff review. Open until dismissed, never reopened.
type Report struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	SubjectType      ReportSubjectType `gorm:"type:varchar(16);not null;index:idx_reports_subject" json:"subject_type"`
	SubjectID        uint              `gorm:"not null;index:idx_reports_subject" json:"subject_id"`
	ReportedByID     uint              `gorm:"not null;index" json:"reported_by_id"`
	Reason           string            `gorm:"type:text;not null" json:"reason"`
	Resolved         bool              `gorm:"not null;default:false;index" json:"resolved"`
	ResolvedByUserID *uint             `json:"resolved_by_user_id"`
	ResolvedAt       *time.Time        `json:"resolved_at"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Report) TableName() string {
	return "reports"
}
