package models

// SiteRole is a platform-wide staff rank.
type SiteRole string

const (
	// SiteRoleUser is the implicit role of a user without a staff assignment.
	SiteRoleUser          SiteRole = "user"
	SiteRoleCurrator      SiteRole = "currator"
	SiteRoleModerator     SiteRole = "moderator"
	SiteRoleAdministrator SiteRole = "administrator"
	SiteRoleDeveloper     SiteRole = "developer"
)

// ClanRole is a per-clan rank held by a ClanMember.
type ClanRole string

const (
	// ClanRoleMember is the default role of a clan member without staff duties.
	ClanRoleMember        ClanRole = "member"
	ClanRoleModerator     ClanRole = "moderator"
	ClanRoleAdministrator ClanRole = "administrator"
	ClanRoleCreator       ClanRole = "creator"
)

// Valid reports whether r is a known site role.
func (r SiteRole) Valid() bool {
	switch r {
	case SiteRoleUser, SiteRoleCurrator, SiteRoleModerator, SiteRoleAdministrator, SiteRoleDeveloper:
		return true
	}
	return false
}

// Valid reports whether r is a known clan role.
func (r ClanRole) Valid() bool {
	switch r {
	case ClanRoleMember, ClanRoleModerator, ClanRoleAdministrator, ClanRoleCreator:
		return true
	}
	return false
}
