package service

import (
	"context"
	"log/slog"

	"clanhub/internal/authz"
	"clanhub/internal/cache"
	"clanhub/internal/models"
	"clanhub/internal/repository"
)

const roleWorkflow = "role"

var errSelfRoleChange = models.NewSelfTargetingError(models.ReasonSelfRoleChange, "You cannot change your own role")

// RoleService assigns site staff roles and clan roles.
type RoleService struct {
	store repository.Store
}

// NewRoleService returns a new RoleService.
func NewRoleService(store repository.Store) *RoleService {
	return &RoleService{store: store}
}

// siteAdministrator checks that actorID is administrator-class and out-ranks
// every role in roles.
func siteAdministrator(ctx context.Context, tx repository.Store, actorID uint, roles ...models.SiteRole) error {
	actorRole, err := siteStaff(ctx, tx, actorID, models.SiteRoleAdministrator)
	if err != nil {
		return err
	}
	for _, role := range roles {
		if !authz.CanManageSite(actorRole, role) {
			return models.NewPermissionDeniedError("You cannot manage a role of equal or higher rank")
		}
	}
	return nil
}

// AssignSiteRole grants role to targetID, replacing any previous assignment.
func (s *RoleService) AssignSiteRole(ctx context.Context, actorID, targetID uint, role models.SiteRole) (_ *models.SiteStaffAssignment, err error) {
	ctx, done := track(ctx, roleWorkflow, "assign_site_role", actorID)
	defer func() { done(err, slog.Uint64("target_user_id", uint64(targetID)), slog.String("role", string(role))) }()

	if !role.Valid() || role == models.SiteRoleUser {
		return nil, models.NewValidationError("role must be a staff role")
	}
	if actorID == targetID {
		return nil, errSelfRoleChange
	}

	var assignment *models.SiteStaffAssignment
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Membership().GetUserForUpdate(ctx, targetID); err != nil {
			return err
		}
		current, err := tx.Membership().ResolveSiteRole(ctx, targetID)
		if err != nil {
			return err
		}
		if err := siteAdministrator(ctx, tx, actorID, current, role); err != nil {
			return err
		}
		assignedBy := actorID
		assignment = &models.SiteStaffAssignment{UserID: targetID, Role: role, AssignedByUserID: &assignedBy}
		return tx.Membership().UpsertStaffAssignment(ctx, assignment)
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// UnassignSiteRole removes targetID's staff role, reverting them to User.
func (s *RoleService) UnassignSiteRole(ctx context.Context, actorID, targetID uint) (err error) {
	ctx, done := track(ctx, roleWorkflow, "unassign_site_role", actorID)
	defer func() { done(err, slog.Uint64("target_user_id", uint64(targetID))) }()

	if actorID == targetID {
		return errSelfRoleChange
	}
	noRole := models.NewInvalidStateError("", "User holds no staff role")
	return s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Membership().GetUserForUpdate(ctx, targetID); err != nil {
			return err
		}
		current, err := tx.Membership().ResolveSiteRole(ctx, targetID)
		if err != nil {
			return err
		}
		if err := siteAdministrator(ctx, tx, actorID, current); err != nil {
			return err
		}
		if current == models.SiteRoleUser {
			return noRole
		}
		return staleAs(tx.Membership().DeleteStaffAssignment(ctx, targetID), noRole)
	})
}

// ListStaff returns every site staff assignment.
func (s *RoleService) ListStaff(ctx context.Context) ([]models.SiteStaffAssignment, error) {
	return s.store.Membership().ListStaff(ctx)
}

// AssignClanRole changes targetID's role within clanID. Creator changes hands
// only through an ownership transfer.
func (s *RoleService) AssignClanRole(ctx context.Context, actorID, clanID, targetID uint, role models.ClanRole) (_ *models.ClanMember, err error) {
	ctx, done := track(ctx, roleWorkflow, "assign_clan_role", actorID)
	defer func() {
		done(err, slog.Uint64("clan_id", uint64(clanID)), slog.Uint64("target_user_id", uint64(targetID)), slog.String("role", string(role)))
	}()

	if !role.Valid() {
		return nil, models.NewValidationError("unknown clan role")
	}
	if role == models.ClanRoleCreator {
		return nil, models.NewValidationError("The creator role changes hands only through an ownership transfer")
	}
	if actorID == targetID {
		return nil, errSelfRoleChange
	}

	var member *models.ClanMember
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Clans().GetForUpdate(ctx, clanID); err != nil {
			return err
		}
		actor, err := clanStaff(ctx, tx, actorID, clanID, authz.ActionAssignRole)
		if err != nil {
			return err
		}
		found, err := tx.Membership().FindMember(ctx, targetID, clanID)
		if err != nil {
			return err
		}
		if found == nil {
			return models.NewNotFoundError("Clan member", targetID)
		}
		target, err := tx.Membership().GetMemberForUpdate(ctx, found.ID)
		if err != nil {
			return err
		}
		if !authz.CanManageClan(actor.Role, target.Role) || !authz.CanManageClan(actor.Role, role) {
			return models.NewPermissionDeniedError("You cannot manage a role of equal or higher rank")
		}
		if target.Banned {
			return models.NewInvalidStateError(models.ReasonMemberBanned, "Banned members cannot change role")
		}
		if target.Role != role {
			if err := tx.Membership().UpdateMemberRole(ctx, target.ID, target.Role, role); err != nil {
				return staleAs(err, models.NewConflictError("", "Member role changed concurrently"))
			}
		}
		member, err = tx.Membership().GetMember(ctx, target.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateClan(ctx, clanID)
	return member, nil
}
