package database

import "clanhub/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.SiteStaffAssignment{},
		&models.Clan{},
		&models.ClanMember{},
		&models.ClanJoinRequest{},
		&models.UserBan{},
		&models.ClanBan{},
		&models.ClanMemberBan{},
		&models.BanAppeal{},
		&models.ClanVerificationApplication{},
		&models.Report{},
	}
}
