// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"clanhub/internal/database"
	"clanhub/internal/models"
	"clanhub/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with the full schema.
// A single connection keeps the database alive and serializes transactions.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// NewTestStore returns a Store over a fresh test database.
func NewTestStore(t testing.TB) (repository.Store, *gorm.DB) {
	t.Helper()
	db := NewTestDB(t)
	return repository.NewStore(db), db
}

var seq atomic.Int64

// CreateUser inserts a user, optionally with a site staff role.
func CreateUser(t testing.TB, db *gorm.DB, role models.SiteRole) *models.User {
	t.Helper()
	n := seq.Add(1)
	user := &models.User{Username: fmt.Sprintf("user%d", n), DiscordID: fmt.Sprintf("%d", 100000+n)}
	require.NoError(t, db.Create(user).Error)
	if role != "" && role != models.SiteRoleUser {
		require.NoError(t, db.Create(&models.SiteStaffAssignment{UserID: user.ID, Role: role}).Error)
	}
	return user
}

// ClanOption adjusts a clan before it is inserted.
type ClanOption func(*models.Clan)

// WithAge backdates the clan's creation time.
func WithAge(age time.Duration) ClanOption {
	return func(c *models.Clan) { c.CreatedAt = time.Now().Add(-age) }
}

// WithMemberCount overrides the stored member count.
func WithMemberCount(n int) ClanOption {
	return func(c *models.Clan) { c.MemberCount = n }
}

// WithInvite sets the discord invite link.
func WithInvite(link string) ClanOption {
	return func(c *models.Clan) { c.DiscordInviteLink = link }
}

// Hidden makes the clan hidden.
func Hidden() ClanOption {
	return func(c *models.Clan) { c.Visibility = models.ClanVisibilityHidden }
}

// CreateClan inserts a clan owned by owner, with owner as its Creator member.
func CreateClan(t testing.TB, db *gorm.DB, owner *models.User, opts ...ClanOption) *models.Clan {
	t.Helper()
	clan := &models.Clan{
		Name:              fmt.Sprintf("clan%d", seq.Add(1)),
		OwnerUserID:       owner.ID,
		Visibility:        models.ClanVisibilityVisible,
		ApplicationStatus: models.ApplicationStatusNone,
		MemberCount:       1,
	}
	for _, opt := range opts {
		opt(clan)
	}
	require.NoError(t, db.Omit("Owner").Create(clan).Error)
	require.NoError(t, db.Create(&models.ClanMember{UserID: owner.ID, ClanID: clan.ID, Role: models.ClanRoleCreator}).Error)
	return clan
}

// AddMember inserts a membership with the given clan role.
func AddMember(t testing.TB, db *gorm.DB, user *models.User, clan *models.Clan, role models.ClanRole) *models.ClanMember {
	t.Helper()
	member := &models.ClanMember{UserID: user.ID, ClanID: clan.ID, Role: role}
	require.NoError(t, db.Create(member).Error)
	return member
}

// Reload reads the clan back from the database.
func Reload(t testing.TB, db *gorm.DB, clan *models.Clan) *models.Clan {
	t.Helper()
	var fresh models.Clan
	require.NoError(t, db.WithContext(context.Background()).First(&fresh, clan.ID).Error)
	return &fresh
}
