package seed

import (
	"testing"

	"clanhub/internal/models"
	"clanhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_BuildIsDeterministicPerSeed(t *testing.T) {
	a := NewFactory(nil, 42).BuildUser()
	b := NewFactory(nil, 42).BuildUser()
	assert.Equal(t, a.Username, b.Username)
	assert.Len(t, a.DiscordID, 18)

	clan := NewFactory(nil, 7).BuildClan(&models.User{ID: 3}, func(c *models.Clan) { c.Visibility = models.ClanVisibilityHidden })
	assert.Equal(t, uint(3), clan.OwnerUserID)
	assert.Equal(t, 1, clan.MemberCount)
	assert.Equal(t, models.ClanVisibilityHidden, clan.Visibility)
	assert.Contains(t, clan.DiscordInviteLink, "https://discord.gg/")
}

func TestSeeder_SeedCommunity(t *testing.T) {
	db := testutil.NewTestDB(t)
	s := NewSeeder(db, Options{NumUsers: 12, NumClans: 3, RandSeed: 99})

	sum, err := s.SeedCommunity()
	require.NoError(t, err)
	assert.Equal(t, 12, sum.Users)
	assert.Equal(t, 3, sum.Clans)

	var clans []models.Clan
	require.NoError(t, db.Find(&clans).Error)
	require.Len(t, clans, 3)
	for _, clan := range clans {
		var members int64
		require.NoError(t, db.Model(&models.ClanMember{}).Where("clan_id = ?", clan.ID).Count(&members).Error)
		assert.Equal(t, int(members), clan.MemberCount, "member_count of %s", clan.Name)

		var creators int64
		require.NoError(t, db.Model(&models.ClanMember{}).
			Where("clan_id = ? AND role = ?", clan.ID, models.ClanRoleCreator).Count(&creators).Error)
		assert.Equal(t, int64(1), creators)
	}

	var banned int64
	require.NoError(t, db.Model(&models.User{}).Where("platform_banned = ?", true).Count(&banned).Error)
	assert.Equal(t, int64(1), banned)

	require.NoError(t, s.ClearAll())
	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
}

func TestSeeder_RejectsTooFewUsers(t *testing.T) {
	_, err := NewSeeder(nil, Options{NumUsers: 2, NumClans: 3}).SeedCommunity()
	assert.Error(t, err)
}

func TestParseFixtures(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"builtin", string(builtinFixtures), ""},
		{"bad yaml", "staff: [", "decode fixtures"},
		{"user role is not staff", "staff:\n  - username: a\n    role: user\n", "invalid site role"},
		{"second creator", "clans:\n  - name: A\n    owner: o\n    members:\n      - username: b\n        role: creator\n", "invalid role"},
		{"owner as member", "clans:\n  - name: A\n    owner: o\n    members:\n      - username: o\n", "listed as member"},
		{"bad visibility", "clans:\n  - name: A\n    owner: o\n    visibility: secret\n", "invalid visibility"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixtures([]byte(tt.doc))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadBuiltIn_Idempotent(t *testing.T) {
	db := testutil.NewTestDB(t)

	require.NoError(t, LoadBuiltIn(db))
	require.NoError(t, LoadBuiltIn(db))

	var owls models.Clan
	require.NoError(t, db.Where("name = ?", "Night Owls").First(&owls).Error)
	assert.Equal(t, 4, owls.MemberCount)

	var harbor models.Clan
	require.NoError(t, db.Where("name = ?", "Quiet Harbor").First(&harbor).Error)
	assert.Equal(t, models.ClanVisibilityHidden, harbor.Visibility)
	assert.Equal(t, 2, harbor.MemberCount)

	var staff []models.SiteStaffAssignment
	require.NoError(t, db.Find(&staff).Error)
	assert.Len(t, staff, 3)

	var admin models.User
	require.NoError(t, db.Where("username = ?", "clanhub_admin").First(&admin).Error)
	assert.Equal(t, "100000000000000001", admin.DiscordID)
}
