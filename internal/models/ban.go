package models

import "time"

// BanKind identifies which ban table a ban id refers to.
type BanKind string

const (
	// BanKindUser is a platform ban of a user.
	BanKindUser BanKind = "user"
	// BanKindClan is a platform ban of a whole clan.
	BanKindClan BanKind = "clan"
	// BanKindMember is a clan-local ban of a clan member.
	BanKindMember BanKind = "member"
)

// BanTerms holds the fields shared by every ban record.
type BanTerms struct {
	IssuerID      uint       `gorm:"not null;index" json:"issuer_id"`
	Justification string     `gorm:"size:300;not null" json:"justification"`
	Permanent     bool       `gorm:"not null;default:false" json:"permanent"`
	AllowAppealAt *time.Time `json:"allow_appeal_at"`
}

// AppealOpen reports whether an appeal may be filed at now.
func (t BanTerms) AppealOpen(now time.Time) bool {
	if t.Permanent || t.AllowAppealAt == nil {
		return false
	}
	return !now.Before(*t.AllowAppealAt)
}

// UserBan is a platform-level ban of a user.
type UserBan struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex" json:"user_id"`
	BanTerms
	// DiscordID is a snapshot taken at ban time so the ban outlives account deletion.
	DiscordID string    `gorm:"size:32;index" json:"discord_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (UserBan) TableName() string {
	return "user_bans"
}

// ClanBan is a platform-level ban of a clan.
type ClanBan struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	ClanID uint `gorm:"not null;uniqueIndex" json:"clan_id"`
	BanTerms
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ClanBan) TableName() string {
	return "clan_bans"
}

// ClanMemberBan is a clan-local ban of a member, issued by clan staff.
type ClanMemberBan struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	MemberID uint `gorm:"not null;uniqueIndex" json:"member_id"`
	ClanID   uint `gorm:"not null;index" json:"clan_id"`
	BanTerms
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ClanMemberBan) TableName() string {
	return "clan_member_bans"
}
