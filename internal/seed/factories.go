// Package seed creates demo data for development databases. It writes
// through GORM directly and bypasses the workflow services, so it must never
// run against production data.
package seed

import (
	"fmt"
	"time"

	"clanhub/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
}

// NewFactory creates a Factory bound to db. A zero seed draws from the clock.
func NewFactory(db *gorm.DB, seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{db: db, faker: gofakeit.New(seed)}
}

// BuildUser returns an unsaved user with a fake username and discord id.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	user := &models.User{
		Username:  fmt.Sprintf("%s%d", f.faker.Username(), f.faker.Number(100, 999)),
		DiscordID: f.faker.DigitN(18),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildClan returns an unsaved visible clan owned by owner.
func (f *Factory) BuildClan(owner *models.User, overrides ...func(*models.Clan)) *models.Clan {
	clan := &models.Clan{
		Name:              fmt.Sprintf("%s %s %d", f.faker.Adjective(), f.faker.Animal(), f.faker.Number(10, 9999)),
		Description:       f.faker.Sentence(12),
		BannerURL:         fmt.Sprintf("https://picsum.photos/seed/%s/1200/300", f.faker.UUID()),
		Visibility:        models.ClanVisibilityVisible,
		ApplicationStatus: models.ApplicationStatusNone,
		OwnerUserID:       owner.ID,
		MemberCount:       1,
		DiscordInviteLink: "https://discord.gg/" + f.faker.LetterN(8),
	}
	for _, override := range overrides {
		override(clan)
	}
	return clan
}

// CreateClan persists a clan together with its Creator membership.
func (f *Factory) CreateClan(owner *models.User, overrides ...func(*models.Clan)) (*models.Clan, error) {
	clan := f.BuildClan(owner, overrides...)
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Owner").Create(clan).Error; err != nil {
			return err
		}
		return tx.Create(&models.ClanMember{UserID: owner.ID, ClanID: clan.ID, Role: models.ClanRoleCreator}).Error
	})
	if err != nil {
		return nil, err
	}
	return clan, nil
}

// AddMember joins user to clan with role and bumps the clan's member count.
func (f *Factory) AddMember(clan *models.Clan, user *models.User, role models.ClanRole) (*models.ClanMember, error) {
	member := &models.ClanMember{UserID: user.ID, ClanID: clan.ID, Role: role}
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		return tx.Model(&models.Clan{}).Where("id = ?", clan.ID).
			UpdateColumn("member_count", gorm.Expr("member_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	clan.MemberCount++
	return member, nil
}

// CreateJoinRequest persists a Submitted join request from user to clan.
func (f *Factory) CreateJoinRequest(clan *models.Clan, user *models.User) (*models.ClanJoinRequest, error) {
	req := &models.ClanJoinRequest{
		UserID:                  user.ID,
		ClanID:                  clan.ID,
		Status:                  models.JoinRequestStatusSubmitted,
		AllowAnotherApplication: true,
	}
	if err := f.db.Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

// CreateUserBan bans user from the platform on behalf of issuer. The ban
// becomes appealable after appealIn.
func (f *Factory) CreateUserBan(issuer, user *models.User, appealIn time.Duration) (*models.UserBan, error) {
	allowAt := time.Now().Add(appealIn)
	ban := &models.UserBan{
		UserID:    user.ID,
		DiscordID: user.DiscordID,
		BanTerms: models.BanTerms{
			IssuerID:      issuer.ID,
			Justification: f.faker.Sentence(8),
			AllowAppealAt: &allowAt,
		},
	}
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ban).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Update("platform_banned", true).Error
	})
	if err != nil {
		return nil, err
	}
	user.PlatformBanned = true
	return ban, nil
}

// CreateReport files an open report by reporter.
func (f *Factory) CreateReport(reporter *models.User, subject models.ReportSubjectType, subjectID uint) (*models.Report, error) {
	report := &models.Report{
		ReportedByID: reporter.ID,
		SubjectType:  subject,
		SubjectID:    subjectID,
		Reason:       f.faker.Sentence(10),
	}
	if err := f.db.Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}
