package authz

import (
	"testing"

	"clanhub/internal/models"

	"github.com/stretchr/testify/assert"
)

var allSiteRoles = []models.SiteRole{
	models.SiteRoleUser,
	models.SiteRoleCurrator,
	models.SiteRoleModerator,
	models.SiteRoleAdministrator,
	models.SiteRoleDeveloper,
}

var allClanRoles = []models.ClanRole{
	models.ClanRoleMember,
	models.ClanRoleModerator,
	models.ClanRoleAdministrator,
	models.ClanRoleCreator,
}

func TestSiteRanksAscend(t *testing.T) {
	for i := 1; i < len(allSiteRoles); i++ {
		assert.Greater(t, SiteRank(allSiteRoles[i]), SiteRank(allSiteRoles[i-1]), allSiteRoles[i])
	}
	assert.Equal(t, 0, SiteRank(models.SiteRoleUser))
	assert.Equal(t, 0, SiteRank(models.SiteRole("bogus")))
}

func TestClanRanksAscend(t *testing.T) {
	for i := 1; i < len(allClanRoles); i++ {
		assert.Greater(t, ClanRank(allClanRoles[i]), ClanRank(allClanRoles[i-1]), allClanRoles[i])
	}
	assert.Equal(t, 0, ClanRank(models.ClanRoleMember))
}

func TestCanManageSite_MatchesRankOrder(t *testing.T) {
	for _, a := range allSiteRoles {
		for _, b := range allSiteRoles {
			assert.Equal(t, SiteRank(a) > SiteRank(b), CanManageSite(a, b), "%s vs %s", a, b)
		}
		assert.False(t, CanManageSite(a, a), "%s must not manage itself", a)
	}
}

func TestCanManageClan_MatchesRankOrder(t *testing.T) {
	for _, a := range allClanRoles {
		for _, b := range allClanRoles {
			assert.Equal(t, ClanRank(a) > ClanRank(b), CanManageClan(a, b), "%s vs %s", a, b)
		}
	}
}

func TestCanPerformClanAction(t *testing.T) {
	tests := []struct {
		role   models.ClanRole
		action ClanAction
		want   bool
	}{
		{models.ClanRoleCreator, ActionTransferOwnership, true},
		{models.ClanRoleCreator, ActionVerifyApply, true},
		{models.ClanRoleAdministrator, ActionTransferOwnership, false},
		{models.ClanRoleAdministrator, ActionAssignRole, true},
		{models.ClanRoleAdministrator, ActionVerifyApply, true},
		{models.ClanRoleModerator, ActionBan, true},
		{models.ClanRoleModerator, ActionKick, true},
		{models.ClanRoleModerator, ActionAssignRole, false},
		{models.ClanRoleModerator, ActionEditProfile, false},
		{models.ClanRoleMember, ActionManageRequests, false},
		{models.ClanRoleMember, ActionBan, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, CanPerformClanAction(tt.role, tt.action))
		})
	}
}

func TestCanActOnClanMember(t *testing.T) {
	// Moderators may only kick plain members.
	assert.True(t, CanActOnClanMember(models.ClanRoleModerator, ActionKick, models.ClanRoleMember))
	assert.False(t, CanActOnClanMember(models.ClanRoleModerator, ActionKick, models.ClanRoleModerator))
	// Administrators act below Administrator only.
	assert.True(t, CanActOnClanMember(models.ClanRoleAdministrator, ActionBan, models.ClanRoleModerator))
	assert.False(t, CanActOnClanMember(models.ClanRoleAdministrator, ActionBan, models.ClanRoleAdministrator))
	assert.False(t, CanActOnClanMember(models.ClanRoleMember, ActionKick, models.ClanRoleMember))
}

func TestIsBannable(t *testing.T) {
	assert.False(t, IsBannable(models.ClanRoleCreator))
	assert.True(t, IsBannable(models.ClanRoleAdministrator))
	assert.True(t, IsBannable(models.ClanRoleMember))
}
