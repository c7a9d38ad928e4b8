package service

import (
	"testing"
	"time"

	"clanhub/internal/models"
	"clanhub/internal/repository"
	"clanhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newStore(t *testing.T) (repository.Store, *gorm.DB) {
	t.Helper()
	return testutil.NewTestStore(t)
}

// requireAppError asserts err carries code and, when given, reason.
func requireAppError(t *testing.T, err error, code, reason string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.HasCode(err, code), "want code %s, got %v", code, err)
	if reason != "" {
		assert.True(t, models.HasReason(err, reason), "want reason %s, got %v", reason, err)
	}
}

func fixedClock(at time.Time) Clock {
	return func() time.Time { return at }
}

func appealableTerms(now time.Time) BanInput {
	at := now.Add(24 * time.Hour)
	return BanInput{Justification: "repeated harassment in chat", AllowAppealAt: &at}
}

func countCreators(t *testing.T, db *gorm.DB, clanID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ClanMember{}).
		Where("clan_id = ? AND role = ?", clanID, models.ClanRoleCreator).
		Count(&n).Error)
	return n
}

func memberOf(t *testing.T, db *gorm.DB, userID, clanID uint) *models.ClanMember {
	t.Helper()
	var members []models.ClanMember
	require.NoError(t, db.Where("user_id = ? AND clan_id = ?", userID, clanID).Find(&members).Error)
	if len(members) == 0 {
		return nil
	}
	return &members[0]
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, id).Error)
	return &u
}
