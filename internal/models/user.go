// Package models contains data structures for the clan platform's domain models.
package models

import "time"

// User is an identity owned by the external identity provider. Only the
// attributes the moderation core reasons about are persisted here.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	DiscordID      string    `gorm:"size:32;index" json:"discord_id,omitempty"`
	PlatformBanned bool      `gorm:"not null;default:false" json:"platform_banned"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	StaffAssignment *SiteStaffAssignment `gorm:"foreignKey:UserID" json:"staff_assignment,omitempty"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

// SiteStaffAssignment grants a site role to a user. Absence means SiteRoleUser.
type SiteStaffAssignment struct {
	UserID           uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Role             SiteRole  `gorm:"type:varchar(20);not null" json:"role"`
	AssignedByUserID *uint     `json:"assigned_by_user_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (SiteStaffAssignment) TableName() string {
	return "site_staff_assignments"
}
