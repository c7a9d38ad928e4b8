package authz

import "clanhub/internal/models"

// ClanAction is a capability a clan role may hold.
type ClanAction string

const (
	ActionBan               ClanAction = "ban"
	ActionKick              ClanAction = "kick"
	ActionAssignRole        ClanAction = "assign-role"
	ActionManageRequests    ClanAction = "manage-requests"
	ActionTransferOwnership ClanAction = "transfer-ownership"
	ActionVerifyApply       ClanAction = "verify-apply"
	ActionEditProfile       ClanAction = "edit-profile"
)

var clanCapabilities = map[models.ClanRole]map[ClanAction]struct{}{
	models.ClanRoleCreator: {
		ActionBan:               {},
		ActionKick:              {},
		ActionAssignRole:        {},
		ActionManageRequests:    {},
		ActionTransferOwnership: {},
		ActionVerifyApply:       {},
		ActionEditProfile:       {},
	},
	models.ClanRoleAdministrator: {
		ActionBan:            {},
		ActionKick:           {},
		ActionAssignRole:     {},
		ActionManageRequests: {},
		ActionVerifyApply:    {},
		ActionEditProfile:    {},
	},
	models.ClanRoleModerator: {
		ActionBan:            {},
		ActionKick:           {},
		ActionManageRequests: {},
	},
}

// CanManage reports whether actor may act on target. Equal ranks never manage
// each other and nobody manages a higher rank.
func CanManage(actor, target Ranked) bool {
	return actor.Rank() > target.Rank()
}

// CanManageSite is CanManage over site roles.
func CanManageSite(actor, target models.SiteRole) bool {
	return CanManage(Site(actor), Site(target))
}

// CanManageClan is CanManage over clan roles.
func CanManageClan(actor, target models.ClanRole) bool {
	return CanManage(Clan(actor), Clan(target))
}

// CanPerformClanAction reports whether the role's capability set includes action.
// It does not consider the target; combine with CanManageClan for that.
func CanPerformClanAction(role models.ClanRole, action ClanAction) bool {
	_, ok := clanCapabilities[role][action]
	return ok
}

// CanActOnClanMember combines the capability check with the rank comparison.
func CanActOnClanMember(actor models.ClanRole, action ClanAction, target models.ClanRole) bool {
	return CanPerformClanAction(actor, action) && CanManageClan(actor, target)
}

// IsBannable reports whether a clan member holding role may be banned within the clan.
func IsBannable(role models.ClanRole) bool {
	return role != models.ClanRoleCreator
}
