package models

import "time"

// AppealStatus defines lifecycle states for ban appeals.
type AppealStatus string

const (
	AppealStatusSubmitted AppealStatus = "submitted"
	AppealStatusInReview  AppealStatus = "in_review"
	AppealStatusApproved  AppealStatus = "approved"
	AppealStatusDenied    AppealStatus = "denied"
)

// Active reports whether the appeal still awaits a decision.
func (s AppealStatus) Active() bool {
	return s == AppealStatusSubmitted || s == AppealStatusInReview
}

// BanAppeal asks staff to lift a non-permanent ban.
type BanAppeal struct {
	ID                 uint         `gorm:"primaryKey" json:"id"`
	BanKind            BanKind      `gorm:"type:varchar(16);not null;index:idx_ban_appeals_ban" json:"ban_kind"`
	BanID              uint         `gorm:"not null;index:idx_ban_appeals_ban" json:"ban_id"`
	ClanID             *uint        `gorm:"index" json:"clan_id"`
	SubmittedByID      uint         `gorm:"not null;index" json:"submitted_by_id"`
	Status             AppealStatus `gorm:"type:varchar(16);not null;default:'submitted';index" json:"status"`
	AllowAnotherAppeal bool         `gorm:"not null;default:true" json:"allow_another_appeal"`
	Statement          string       `gorm:"type:text;not null" json:"statement"`
	ReviewerComment    string       `gorm:"type:text" json:"reviewer_comment"`
	ReviewedByUserID   *uint        `json:"reviewed_by_user_id"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (BanAppeal) TableName() string {
	return "ban_appeals"
}

// Blocks reports whether the appeal forbids further appeals of the same ban.
func (a *BanAppeal) Blocks() bool {
	return a.Status == AppealStatusDenied && !a.AllowAnotherAppeal
}
