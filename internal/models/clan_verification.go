package models

import "time"

// VerificationStatus defines lifecycle states for verification applications.
type VerificationStatus string

const (
	VerificationStatusSubmitted VerificationStatus = "submitted"
	VerificationStatusApproved  VerificationStatus = "approved"
	VerificationStatusDenied    VerificationStatus = "denied"
)

// ClanVerificationApplication is a clan's application for the verified badge.
type ClanVerificationApplication struct {
	ID               uint               `gorm:"primaryKey" json:"id"`
	ClanID           uint               `gorm:"not null;index" json:"clan_id"`
	SubmittedByID    uint               `gorm:"not null" json:"submitted_by_id"`
	Status           VerificationStatus `gorm:"type:varchar(16);not null;default:'submitted';index" json:"status"`
	ReviewedByUserID *uint              `json:"reviewed_by_user_id"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ClanVerificationApplication) TableName() string {
	return "clan_verification_applications"
}
