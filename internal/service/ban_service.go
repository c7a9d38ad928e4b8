package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"clanhub/internal/authz"
	"clanhub/internal/cache"
	"clanhub/internal/middleware"
	"clanhub/internal/models"
	"clanhub/internal/repository"
	"clanhub/internal/validation"
)

const banWorkflow = "ban"

var (
	errAlreadyBanned = models.NewConflictError(models.ReasonAlreadyBanned, "Subject is already banned")
	errNotBanned     = models.NewInvalidStateError(models.ReasonNotBanned, "Subject is not banned")
	errSelfBan       = models.NewSelfTargetingError(models.ReasonSelfBan, "You cannot ban or unban yourself")
)

// BanInput carries the terms of a new ban.
type BanInput struct {
	Justification string     `json:"justification"`
	Permanent     bool       `json:"permanent"`
	AllowAppealAt *time.Time `json:"allow_appeal_at"`
}

func (in BanInput) terms(issuerID uint, now time.Time) (models.BanTerms, error) {
	if err := validation.ValidateJustification(in.Justification); err != nil {
		return models.BanTerms{}, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateBanTerms(in.Permanent, in.AllowAppealAt, now); err != nil {
		return models.BanTerms{}, models.NewValidationError(err.Error())
	}
	return models.BanTerms{
		IssuerID:      issuerID,
		Justification: strings.TrimSpace(in.Justification),
		Permanent:     in.Permanent,
		AllowAppealAt: in.AllowAppealAt,
	}, nil
}

// BanService issues and lifts platform user bans, platform clan bans and
// clan-local member bans.
type BanService struct {
	store repository.Store
	now   Clock
}

// NewBanService returns a new BanService.
func NewBanService(store repository.Store) *BanService {
	return &BanService{store: store, now: time.Now}
}

// siteModerator resolves both site roles and checks that actor out-ranks target.
func siteModerator(ctx context.Context, tx repository.Store, actorID, targetID uint) error {
	actorRole, err := siteStaff(ctx, tx, actorID, models.SiteRoleCurrator)
	if err != nil {
		return err
	}
	targetRole, err := tx.Membership().ResolveSiteRole(ctx, targetID)
	if err != nil {
		return err
	}
	if !authz.CanManageSite(actorRole, targetRole) {
		return models.NewPermissionDeniedError("You cannot act on a user of equal or higher rank")
	}
	return nil
}

// BanUser bans targetID from the platform.
func (s *BanService) BanUser(ctx context.Context, actorID, targetID uint, in BanInput) (_ *models.UserBan, err error) {
	ctx, done := track(ctx, banWorkflow, "ban_user", actorID)
	defer func() { done(err, slog.Uint64("target_user_id", uint64(targetID))) }()

	if actorID == targetID {
		return nil, errSelfBan
	}
	terms, err := in.terms(actorID, s.now())
	if err != nil {
		return nil, err
	}

	var ban *models.UserBan
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		target, err := tx.Membership().GetUserForUpdate(ctx, targetID)
		if err != nil {
			return err
		}
		if err := siteModerator(ctx, tx, actorID, targetID); err != nil {
			return err
		}
		existing, err := tx.Bans().FindUserBan(ctx, targetID)
		if err != nil {
			return err
		}
		if existing != nil || target.PlatformBanned {
			return errAlreadyBanned
		}

		ban = &models.UserBan{UserID: targetID, BanTerms: terms, DiscordID: target.DiscordID}
		if err := tx.Bans().CreateUserBan(ctx, ban); err != nil {
			return err
		}
		return staleAs(tx.Membership().SetPlatformBanned(ctx, targetID, true), errAlreadyBanned)
	})
	if err != nil {
		return nil, err
	}
	invalidateMemberLists(ctx, s.store, targetID)
	return ban, nil
}

// UnbanUser lifts the platform ban of targetID and returns the deleted record.
func (s *BanService) UnbanUser(ctx context.Context, actorID, targetID uint) (_ *models.UserBan, err error) {
	ctx, done := track(ctx, banWorkflow, "unban_user", actorID)
	defer func() { done(err, slog.Uint64("target_user_id", uint64(targetID))) }()

	if actorID == targetID {
		return nil, errSelfBan
	}
	var ban *models.UserBan
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Membership().GetUserForUpdate(ctx, targetID); err != nil {
			return err
		}
		if err := siteModerator(ctx, tx, actorID, targetID); err != nil {
			return err
		}
		ban, err = liftUserBan(ctx, tx, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	invalidateMemberLists(ctx, s.store, targetID)
	return ban, nil
}

// invalidateMemberLists drops the cached member lists of every clan userID
// belongs to, since they carry the user's platform ban flag.
func invalidateMemberLists(ctx context.Context, store repository.Store, userID uint) {
	clanIDs, err := store.Membership().ListClanIDsForUser(ctx, userID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "member list invalidation skipped",
			slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
		return
	}
	keys := make([]string, 0, len(clanIDs))
	for _, id := range clanIDs {
		keys = append(keys, cache.ClanMembersKey(id))
	}
	cache.Invalidate(ctx, keys...)
}

// liftUserBan deletes the user's ban and clears the platform flag inside tx.
func liftUserBan(ctx context.Context, tx repository.Store, userID uint) (*models.UserBan, error) {
	ban, err := tx.Bans().FindUserBan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ban == nil {
		return nil, errNotBanned
	}
	if err := tx.Bans().DeleteUserBan(ctx, ban.ID); err != nil {
		return nil, staleAs(err, errNotBanned)
	}
	// a flag that is already clear only means the two records had drifted
	if err := tx.Membership().SetPlatformBanned(ctx, userID, false); err != nil && !errors.Is(err, repository.ErrStale) {
		return nil, err
	}
	return ban, nil
}

// clanModerator checks site staff rank against the site role of the clan's owner.
func clanModerator(ctx context.Context, tx repository.Store, actorID uint, clan *models.Clan) error {
	if clan.OwnerUserID == actorID {
		return errSelfBan
	}
	return siteModerator(ctx, tx, actorID, clan.OwnerUserID)
}

// BanClan bans the whole clan from the platform.
func (s *BanService) BanClan(ctx context.Context, actorID, clanID uint, in BanInput) (_ *models.ClanBan, err error) {
	ctx, done := track(ctx, banWorkflow, "ban_clan", actorID)
	defer func() { done(err, slog.Uint64("clan_id", uint64(clanID))) }()

	terms, err := in.terms(actorID, s.now())
	if err != nil {
		return nil, err
	}
	var ban *models.ClanBan
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		clan, err := tx.Clans().GetForUpdate(ctx, clanID)
		if err != nil {
			return err
		}
		if err := clanModerator(ctx, tx, actorID, clan); err != nil {
			return err
		}
		existing, err := tx.Bans().FindClanBan(ctx, clanID)
		if err != nil {
			return err
		}
		if existing != nil || clan.Banned {
			return errAlreadyBanned
		}
		ban = &models.ClanBan{ClanID: clanID, BanTerms: terms}
		if err := tx.Bans().CreateClanBan(ctx, ban); err != nil {
			return err
		}
		return staleAs(tx.Clans().SetBanned(ctx, clanID, true), errAlreadyBanned)
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateClan(ctx, clanID)
	return ban, nil
}

// UnbanClan lifts the platform ban of clanID and returns the deleted record.
func (s *BanService) UnbanClan(ctx context.Context, actorID, clanID uint) (_ *models.ClanBan, err error) {
	ctx, done := track(ctx, banWorkflow, "unban_clan", actorID)
	defer func() { done(err, slog.Uint64("clan_id", uint64(clanID))) }()

	var ban *models.ClanBan
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		clan, err := tx.Clans().GetForUpdate(ctx, clanID)
		if err != nil {
			return err
		}
		if err := clanModerator(ctx, tx, actorID, clan); err != nil {
			return err
		}
		ban, err = liftClanBan(ctx, tx, clanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateClan(ctx, clanID)
	return ban, nil
}

func liftClanBan(ctx context.Context, tx repository.Store, clanID uint) (*models.ClanBan, error) {
	ban, err := tx.Bans().FindClanBan(ctx, clanID)
	if err != nil {
		return nil, err
	}
	if ban == nil {
		return nil, errNotBanned
	}
	if err := tx.Bans().DeleteClanBan(ctx, ban.ID); err != nil {
		return nil, staleAs(err, errNotBanned)
	}
	if err := tx.Clans().SetBanned(ctx, clanID, false); err != nil && !errors.Is(err, repository.ErrStale) {
		return nil, err
	}
	return ban, nil
}

// memberModerator locks the target membership and checks the clan-scope rules:
// ban capability, strict out-ranking, and the Creator is never bannable.
func memberModerator(ctx context.Context, tx repository.Store, actorID, clanID, targetID uint) (*models.ClanMember, error) {
	if _, err := tx.Clans().GetForUpdate(ctx, clanID); err != nil {
		return nil, err
	}
	actor, err := clanStaff(ctx, tx, actorID, clanID, authz.ActionBan)
	if err != nil {
		return nil, err
	}
	found, err := tx.Membership().FindMember(ctx, targetID, clanID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, models.NewNotFoundError("Clan member", targetID)
	}
	target, err := tx.Membership().GetMemberForUpdate(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	if target.Role == models.ClanRoleCreator {
		return nil, models.NewPermissionDeniedError("The clan creator cannot be banned")
	}
	if !authz.CanManageClan(actor.Role, target.Role) {
		return nil, models.NewPermissionDeniedError("You cannot act on a member of equal or higher rank")
	}
	return target, nil
}

// BanMember bans targetID within clanID. The membership is kept and flagged.
func (s *BanService) BanMember(ctx context.Context, actorID, clanID, targetID uint, in BanInput) (_ *models.ClanMemberBan, err error) {
	ctx, done := track(ctx, banWorkflow, "ban_member", actorID)
	defer func() {
		done(err, slog.Uint64("clan_id", uint64(clanID)), slog.Uint64("target_user_id", uint64(targetID)))
	}()

	if actorID == targetID {
		return nil, errSelfBan
	}
	terms, err := in.terms(actorID, s.now())
	if err != nil {
		return nil, err
	}
	var ban *models.ClanMemberBan
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		target, err := memberModerator(ctx, tx, actorID, clanID, targetID)
		if err != nil {
			return err
		}
		existing, err := tx.Bans().FindMemberBan(ctx, target.ID)
		if err != nil {
			return err
		}
		if existing != nil || target.Banned {
			return errAlreadyBanned
		}
		ban = &models.ClanMemberBan{MemberID: target.ID, ClanID: clanID, BanTerms: terms}
		if err := tx.Bans().CreateMemberBan(ctx, ban); err != nil {
			return err
		}
		return staleAs(tx.Membership().SetMemberBanned(ctx, target.ID, true), errAlreadyBanned)
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateClan(ctx, clanID)
	return ban, nil
}

// UnbanMember lifts the clan-local ban of targetID and returns the deleted record.
func (s *BanService) UnbanMember(ctx context.Context, actorID, clanID, targetID uint) (_ *models.ClanMemberBan, err error) {
	ctx, done := track(ctx, banWorkflow, "unban_member", actorID)
	defer func() {
		done(err, slog.Uint64("clan_id", uint64(clanID)), slog.Uint64("target_user_id", uint64(targetID)))
	}()

	if actorID == targetID {
		return nil, errSelfBan
	}
	var ban *models.ClanMemberBan
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		target, err := memberModerator(ctx, tx, actorID, clanID, targetID)
		if err != nil {
			return err
		}
		ban, err = tx.Bans().FindMemberBan(ctx, target.ID)
		if err != nil {
			return err
		}
		if ban == nil {
			return errNotBanned
		}
		if err := tx.Bans().DeleteMemberBan(ctx, ban.ID); err != nil {
			return staleAs(err, errNotBanned)
		}
		if err := tx.Membership().SetMemberBanned(ctx, target.ID, false); err != nil && !errors.Is(err, repository.ErrStale) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateClan(ctx, clanID)
	return ban, nil
}

// ListUserBans returns active platform user bans for site staff.
func (s *BanService) ListUserBans(ctx context.Context, actorID uint, limit, offset int) ([]models.UserBan, error) {
	if _, err := siteStaff(ctx, s.store, actorID, models.SiteRoleCurrator); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.store.Bans().ListUserBans(ctx, limit, offset)
}

// ListClanBans returns active platform clan bans for site staff.
func (s *BanService) ListClanBans(ctx context.Context, actorID uint, limit, offset int) ([]models.ClanBan, error) {
	if _, err := siteStaff(ctx, s.store, actorID, models.SiteRoleCurrator); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.store.Bans().ListClanBans(ctx, limit, offset)
}

// ListMemberBans returns the clan's member bans for clan staff holding the ban capability.
func (s *BanService) ListMemberBans(ctx context.Context, actorID, clanID uint) ([]models.ClanMemberBan, error) {
	if _, err := clanStaff(ctx, s.store, actorID, clanID, authz.ActionBan); err != nil {
		return nil, err
	}
	return s.store.Bans().ListMemberBans(ctx, clanID)
}
