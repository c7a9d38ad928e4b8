// Package authz ranks site and clan roles and decides who may act on whom.
package authz

import "clanhub/internal/models"

// Ranked is implemented by every role that takes part in rank comparison.
type Ranked interface {
	Rank() int
}

var siteRanks = map[models.SiteRole]int{
	models.SiteRoleUser:          0,
	models.SiteRoleCurrator:      1,
	models.SiteRoleModerator:     2,
	models.SiteRoleAdministrator: 3,
	models.SiteRoleDeveloper:     4,
}

var clanRanks = map[models.ClanRole]int{
	models.ClanRoleMember:        0,
	models.ClanRoleModerator:     1,
	models.ClanRoleAdministrator: 2,
	models.ClanRoleCreator:       3,
}

// SiteRank returns the authority of a site role. Unknown roles rank as User.
func SiteRank(role models.SiteRole) int {
	return siteRanks[role]
}

// ClanRank returns the authority of a clan role. Unknown roles rank as Member.
func ClanRank(role models.ClanRole) int {
	return clanRanks[role]
}

// Site adapts a site role to Ranked.
type Site models.SiteRole

// Rank implements Ranked.
func (s Site) Rank() int { return SiteRank(models.SiteRole(s)) }

// Clan adapts a clan role to Ranked.
type Clan models.ClanRole

// Rank implements Ranked.
func (c Clan) Rank() int { return ClanRank(models.ClanRole(c)) }

// SiteAtLeast reports whether role is ranked at or above min.
func SiteAtLeast(role, min models.SiteRole) bool {
	return SiteRank(role) >= SiteRank(min)
}

// ClanAtLeast reports whether role is ranked at or above min.
func ClanAtLeast(role, min models.ClanRole) bool {
	return ClanRank(role) >= ClanRank(min)
}
