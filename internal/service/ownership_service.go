package service

import (
	"context"
	"log/slog"

	"clanhub/internal/authz"
	"clanhub/internal/cache"
	"clanhub/internal/models"
	"clanhub/internal/repository"
)

// TransferOutcome describes both memberships after an ownership transfer.
type TransferOutcome struct {
	Clan          *models.Clan       `json:"clan"`
	PreviousOwner *models.ClanMember `json:"previous_owner"`
	NewOwner      *models.ClanMember `json:"new_owner"`
}

// OwnershipService moves clan ownership between two members.
type OwnershipService struct {
	store repository.Store
}

// NewOwnershipService returns a new OwnershipService.
func NewOwnershipService(store repository.Store) *OwnershipService {
	return &OwnershipService{store: store}
}

// Transfer hands clanID from its current owner oldOwnerID to newOwnerID. The
// old owner is demoted to Administrator. Either every row changes or none does.
func (s *OwnershipService) Transfer(ctx context.Context, oldOwnerID, clanID, newOwnerID uint) (_ *TransferOutcome, err error) {
	ctx, done := track(ctx, "ownership", "transfer", oldOwnerID)
	defer func() {
		done(err, slog.Uint64("clan_id", uint64(clanID)), slog.Uint64("new_owner_user_id", uint64(newOwnerID)))
	}()

	if oldOwnerID == newOwnerID {
		return nil, models.NewSelfTargetingError(models.ReasonSelfRoleChange, "You already own this clan")
	}

	stale := models.NewConflictError(models.ReasonStaleOwner, "Clan ownership changed concurrently")
	outcome := &TransferOutcome{}
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		clan, err := tx.Clans().GetForUpdate(ctx, clanID)
		if err != nil {
			return err
		}
		if clan.OwnerUserID != oldOwnerID {
			return models.NewPermissionDeniedError("Only the clan owner can transfer ownership").
				WithReason(models.ReasonNotOwner)
		}
		previous, err := clanStaff(ctx, tx, oldOwnerID, clanID, authz.ActionTransferOwnership)
		if err != nil {
			return err
		}

		next, err := tx.Membership().FindMember(ctx, newOwnerID, clanID)
		if err != nil {
			return err
		}
		if next == nil {
			return models.NewNotFoundError("Clan member", newOwnerID)
		}
		heir, err := tx.Membership().GetUser(ctx, newOwnerID)
		if err != nil {
			return err
		}
		if next.Banned || heir.PlatformBanned {
			return models.NewInvalidStateError(models.ReasonMemberBanned, "Ownership cannot pass to a banned member")
		}

		if err := tx.Clans().CompareAndSwapOwner(ctx, clanID, oldOwnerID, newOwnerID); err != nil {
			return staleAs(err, stale)
		}
		// demote first: a clan never holds two creators, even inside the transaction
		if err := tx.Membership().UpdateMemberRole(ctx, previous.ID, models.ClanRoleCreator, models.ClanRoleAdministrator); err != nil {
			return staleAs(err, stale)
		}
		if err := tx.Membership().UpdateMemberRole(ctx, next.ID, next.Role, models.ClanRoleCreator); err != nil {
			return staleAs(err, stale)
		}

		if outcome.Clan, err = tx.Clans().GetByID(ctx, clanID); err != nil {
			return err
		}
		if outcome.PreviousOwner, err = tx.Membership().GetMember(ctx, previous.ID); err != nil {
			return err
		}
		outcome.NewOwner, err = tx.Membership().GetMember(ctx, next.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateClan(ctx, clanID)
	return outcome, nil
}
