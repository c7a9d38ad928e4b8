package models

import "time"

// JoinRequestStatus defines lifecycle states for clan join requests.
type JoinRequestStatus string

const (
	// JoinRequestStatusSubmitted indicates the request is awaiting review.
	JoinRequestStatusSubmitted JoinRequestStatus = "submitted"
	// JoinRequestStatusAccepted indicates the request became a membership. Kept as an archive row.
	JoinRequestStatusAccepted JoinRequestStatus = "accepted"
	// JoinRequestStatusDenied indicates the request was rejected.
	JoinRequestStatusDenied JoinRequestStatus = "denied"
)

// ClanJoinRequest is a user's request to become a member of a clan.
type ClanJoinRequest struct {
	ID                      uint              `gorm:"primaryKey" json:"id"`
	UserID                  uint              `gorm:"not null;index:idx_join_requests_user_clan" json:"user_id"`
	User                    *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ClanID                  uint              `gorm:"not null;index:idx_join_requests_user_clan;index" json:"clan_id"`
	Status                  JoinRequestStatus `gorm:"type:varchar(16);not null;default:'submitted';index" json:"status"`
	AllowAnotherApplication bool              `gorm:"not null;default:true" json:"allow_another_application"`
	ReviewedByUserID        *uint             `json:"reviewed_by_user_id"`
	ReviewedAt              *time.Time        `json:"reviewed_at"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ClanJoinRequest) TableName() string {
	return "clan_join_requests"
}

// Blocks reports whether the request forbids the user from applying again.
func (r *ClanJoinRequest) Blocks() bool {
	return r.Status == JoinRequestStatusDenied && !r.AllowAnotherApplication
}
