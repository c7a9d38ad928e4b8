package service

import (
	"context"
	"log/slog"

	"clanhub/internal/authz"
	"clanhub/internal/cache"
	"clanhub/internal/models"
	"clanhub/internal/repository"
)

// MemberService handles members leaving or being removed from a clan.
type MemberService struct {
	store repository.Store
}

// NewMemberService returns a new MemberService.
func NewMemberService(store repository.Store) *MemberService {
	return &MemberService{store: store}
}

// errMemberCountDrift is returned when member_count no longer covers the
// member being removed.
var errMemberCountDrift = models.NewInvalidStateError(models.ReasonInvalidTransition, "Clan member count is out of sync")

// removable checks that a membership may be deleted. A banned member stays so
// the ban keeps applying.
func removable(member *models.ClanMember) error {
	if member.Role == models.ClanRoleCreator {
		return models.NewInvalidStateError(models.ReasonOwnerMustTransfer, "The clan owner must transfer ownership first")
	}
	if member.Banned {
		return models.NewInvalidStateError(models.ReasonMemberBanned, "Banned members cannot be removed until unbanned")
	}
	return nil
}

func removeMember(ctx context.Context, tx repository.Store, member *models.ClanMember) error {
	if err := tx.Membership().DeleteMember(ctx, member.ID); err != nil {
		return staleAs(err, models.NewNotFoundError("Clan member", member.UserID))
	}
	if err := tx.Clans().AdjustMemberCount(ctx, member.ClanID, -1); err != nil {
		return staleAs(err, errMemberCountDrift)
	}
	return nil
}

// Leave removes userID from clanID.
func (s *MemberService) Leave(ctx context.Context, userID, clanID uint) (err error) {
	ctx, done := track(ctx, "membership", "leave", userID)
	defer func() { done(err, slog.Uint64("clan_id", uint64(clanID))) }()

	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Clans().GetForUpdate(ctx, clanID); err != nil {
			return err
		}
		member, err := tx.Membership().FindMember(ctx, userID, clanID)
		if err != nil {
			return err
		}
		if member == nil {
			return models.NewNotFoundError("Clan member", userID)
		}
		if err := removable(member); err != nil {
			return err
		}
		return removeMember(ctx, tx, member)
	})
	if err == nil {
		cache.InvalidateClan(ctx, clanID)
	}
	return err
}

// Kick removes targetID from clanID on behalf of clan staff.
func (s *MemberService) Kick(ctx context.Context, actorID, clanID, targetID uint) (_ *models.ClanMember, err error) {
	ctx, done := track(ctx, "membership", "kick", actorID)
	defer func() {
		done(err, slog.Uint64("clan_id", uint64(clanID)), slog.Uint64("target_user_id", uint64(targetID)))
	}()

	if actorID == targetID {
		return nil, models.NewSelfTargetingError("", "Use leave to remove yourself from a clan")
	}
	var kicked *models.ClanMember
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Clans().GetForUpdate(ctx, clanID); err != nil {
			return err
		}
		actor, err := clanStaff(ctx, tx, actorID, clanID, authz.ActionKick)
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
		if !authz.CanManageClan(actor.Role, target.Role) {
			return models.NewPermissionDeniedError("You cannot kick a member of equal or higher rank")
		}
		if err := removable(target); err != nil {
			return err
		}
		kicked = target
		return removeMember(ctx, tx, target)
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateClan(ctx, clanID)
	return kicked, nil
}

// ListMembers returns the clan's members with their users, served from cache when warm.
func (s *MemberService) ListMembers(ctx context.Context, clanID uint) ([]models.ClanMember, error) {
	var members []models.ClanMember
	err := cache.Aside(ctx, cache.ClanMembersKey(clanID), &members, cache.MembersTTL, func() error {
		if _, err := s.store.Clans().GetByID(ctx, clanID); err != nil {
			return err
		}
		var err error
		members, err = s.store.Membership().ListMembers(ctx, clanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}
