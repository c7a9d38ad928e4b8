package models

import "time"

// ClanVisibility controls whether a clan is listed and joinable.
type ClanVisibility string

const (
	ClanVisibilityHidden  ClanVisibility = "hidden"
	ClanVisibilityVisible ClanVisibility = "visible"
)

// ApplicationStatus mirrors the outcome of a clan's verification process.
type ApplicationStatus string

const (
	ApplicationStatusNone     ApplicationStatus = "none"
	ApplicationStatusInReview ApplicationStatus = "in_review"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusDenied   ApplicationStatus = "denied"
)

// Clan is an independent user group.
type Clan struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	Name              string            `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Description       string            `gorm:"type:text" json:"description"`
	BannerURL         string            `gorm:"size:512" json:"banner_url"`
	Banned            bool              `gorm:"not null;default:false;index" json:"banned"`
	Visibility        ClanVisibility    `gorm:"type:varchar(16);not null;default:'visible'" json:"visibility"`
	ApplicationStatus ApplicationStatus `gorm:"type:varchar(16);not null;default:'none'" json:"application_status"`
	OwnerUserID       uint              `gorm:"not null;index" json:"owner_user_id"`
	Owner             *User             `gorm:"foreignKey:OwnerUserID" json:"owner,omitempty"`
	MemberCount       int               `gorm:"not null;default:0" json:"member_count"`
	DiscordInviteLink string            `gorm:"size:256" json:"discord_invite_link"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Clan) TableName() string {
	return "clans"
}

// ClanMember joins a user to a clan and tracks the member's clan role.
type ClanMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_clan_members_clan_user" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ClanID    uint      `gorm:"not null;uniqueIndex:idx_clan_members_clan_user;index" json:"clan_id"`
	Banned    bool      `gorm:"not null;default:false" json:"banned"`
	Role      ClanRole  `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (ClanMember) TableName() string {
	return "clan_members"
}
