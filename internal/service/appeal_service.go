package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"clanhub/internal/cache"
	"clanhub/internal/models"
	"clanhub/internal/repository"
	"clanhub/internal/validation"
)

const appealWorkflow = "appeal"

var (
	errAppealNotActive = models.NewInvalidStateError(models.ReasonInvalidAppealStatus, "Appeal is not awaiting a decision")
	errAppealPending   = models.NewConflictError(models.ReasonAppealPending, "An appeal of this ban is already pending")
)

// AppealInput identifies the ban being appealed and carries the statement.
type AppealInput struct {
	BanKind   models.BanKind `json:"ban_kind"`
	BanID     uint           `json:"ban_id"`
	Statement string         `json:"statement"`
}

// AppealService runs the Submitted → In_Review → {Approved, Denied} appeal workflow.
type AppealService struct {
	store repository.Store
	now   Clock
}

// NewAppealService returns a new AppealService.
func NewAppealService(store repository.Store) *AppealService {
	return &AppealService{store: store, now: time.Now}
}

// appealable resolves the ban, checks that submitterID speaks for its subject,
// and returns the ban terms and the clan the appeal belongs to.
func appealable(ctx context.Context, tx repository.Store, submitterID uint, in AppealInput) (models.BanTerms, *uint, error) {
	switch in.BanKind {
	case models.BanKindUser:
		ban, err := tx.Bans().GetUserBan(ctx, in.BanID)
		if err != nil {
			return models.BanTerms{}, nil, err
		}
		if ban.UserID != submitterID {
			return models.BanTerms{}, nil, models.NewPermissionDeniedError("Only the banned user may appeal this ban")
		}
		return ban.BanTerms, nil, nil
	case models.BanKindClan:
		ban, err := tx.Bans().GetClanBan(ctx, in.BanID)
		if err != nil {
			return models.BanTerms{}, nil, err
		}
		if _, err := activeActor(ctx, tx, submitterID); err != nil {
			return models.BanTerms{}, nil, err
		}
		role, member, err := tx.Membership().ResolveClanRole(ctx, submitterID, ban.ClanID)
		if err != nil {
			return models.BanTerms{}, nil, err
		}
		if !member || (role != models.ClanRoleCreator && role != models.ClanRoleAdministrator) {
			return models.BanTerms{}, nil, models.NewPermissionDeniedError("Only the clan creator or an administrator may appeal a clan ban")
		}
		clanID := ban.ClanID
		return ban.BanTerms, &clanID, nil
	default:
		return models.BanTerms{}, nil, models.NewValidationError("ban_kind must be user or clan")
	}
}

// Submit files an appeal of a non-permanent ban whose appeal date has passed.
func (s *AppealService) Submit(ctx context.Context, submitterID uint, in AppealInput) (_ *models.BanAppeal, err error) {
	ctx, done := track(ctx, appealWorkflow, "submit", submitterID)
	defer func() {
		done(err, slog.String("ban_kind", string(in.BanKind)), slog.Uint64("ban_id", uint64(in.BanID)))
	}()

	if err := validation.ValidateAppealStatement(in.Statement); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var appeal *models.BanAppeal
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		terms, clanID, err := appealable(ctx, tx, submitterID, in)
		if err != nil {
			return err
		}
		if terms.Permanent {
			return models.NewInvalidStateError(models.ReasonPermanentBan, "Permanent bans cannot be appealed")
		}
		if !terms.AppealOpen(s.now()) {
			return models.NewInvalidStateError(models.ReasonAppealWindowClosed, "This ban cannot be appealed yet")
		}

		latest, err := tx.Appeals().LatestAppeal(ctx, in.BanKind, in.BanID)
		if err != nil {
			return err
		}
		if latest != nil {
			if latest.Status.Active() {
				return errAppealPending
			}
			if latest.Blocks() {
				return models.NewPermissionDeniedError("No further appeals of this ban are allowed").
					WithReason(models.ReasonAppealBlocked)
			}
		}

		appeal = &models.BanAppeal{
			BanKind:            in.BanKind,
			BanID:              in.BanID,
			ClanID:             clanID,
			SubmittedByID:      submitterID,
			Status:             models.AppealStatusSubmitted,
			AllowAnotherAppeal: true,
			Statement:          strings.TrimSpace(in.Statement),
		}
		if err := tx.Appeals().Create(ctx, appeal); err != nil {
			if models.HasCode(err, models.CodeConflict) {
				return errAppealPending
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return appeal, nil
}

// decide loads an active appeal for a site reviewer and applies the transition.
func (s *AppealService) decide(ctx context.Context, tx repository.Store, appealID, reviewerID uint, from []models.AppealStatus, to models.AppealStatus, review repository.AppealReview) (*models.BanAppeal, error) {
	if _, err := siteStaff(ctx, tx, reviewerID, models.SiteRoleModerator); err != nil {
		return nil, err
	}
	appeal, err := tx.Appeals().GetByID(ctx, appealID)
	if err != nil {
		return nil, err
	}
	if !appeal.Status.Active() {
		return nil, errAppealNotActive
	}
	if err := tx.Appeals().Transition(ctx, appeal.ID, from, to, review); err != nil {
		return nil, staleAs(err, errAppealNotActive)
	}
	return appeal, nil
}

// StartReview moves a Submitted appeal to In_Review.
func (s *AppealService) StartReview(ctx context.Context, reviewerID, appealID uint) (_ *models.BanAppeal, err error) {
	ctx, done := track(ctx, appealWorkflow, "start_review", reviewerID)
	defer func() { done(err, slog.Uint64("appeal_id", uint64(appealID))) }()

	var out *models.BanAppeal
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		review := repository.AppealReview{ReviewerID: reviewerID, AllowAnotherAppeal: true, At: s.now()}
		if _, err := s.decide(ctx, tx, appealID, reviewerID,
			[]models.AppealStatus{models.AppealStatusSubmitted}, models.AppealStatusInReview, review); err != nil {
			return err
		}
		var err error
		out, err = tx.Appeals().GetByID(ctx, appealID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Approve grants an active appeal and lifts the appealed ban in the same transaction.
func (s *AppealService) Approve(ctx context.Context, reviewerID, appealID uint, comment string) (_ *models.BanAppeal, err error) {
	ctx, done := track(ctx, appealWorkflow, "approve", reviewerID)
	defer func() { done(err, slog.Uint64("appeal_id", uint64(appealID))) }()

	var out *models.BanAppeal
	var liftedClan, liftedUser uint
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		review := repository.AppealReview{ReviewerID: reviewerID, AllowAnotherAppeal: true, Comment: comment, At: s.now()}
		appeal, err := s.decide(ctx, tx, appealID, reviewerID,
			[]models.AppealStatus{models.AppealStatusSubmitted, models.AppealStatusInReview}, models.AppealStatusApproved, review)
		if err != nil {
			return err
		}
		if liftedUser, err = liftAppealedBan(ctx, tx, appeal); err != nil {
			return err
		}
		if appeal.ClanID != nil {
			liftedClan = *appeal.ClanID
		}
		out, err = tx.Appeals().GetByID(ctx, appealID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if liftedClan != 0 {
		cache.InvalidateClan(ctx, liftedClan)
	}
	if liftedUser != 0 {
		invalidateMemberLists(ctx, s.store, liftedUser)
	}
	return out, nil
}

// liftAppealedBan removes the ban behind an approved appeal and returns the
// unbanned user for user bans. A ban that was already lifted by other means
// leaves nothing to do.
func liftAppealedBan(ctx context.Context, tx repository.Store, appeal *models.BanAppeal) (uint, error) {
	var err error
	var userID uint
	switch appeal.BanKind {
	case models.BanKindUser:
		var ban *models.UserBan
		if ban, err = tx.Bans().GetUserBan(ctx, appeal.BanID); err == nil {
			if _, err = liftUserBan(ctx, tx, ban.UserID); err == nil {
				userID = ban.UserID
			}
		}
	case models.BanKindClan:
		var ban *models.ClanBan
		if ban, err = tx.Bans().GetClanBan(ctx, appeal.BanID); err == nil {
			_, err = liftClanBan(ctx, tx, ban.ClanID)
		}
	default:
		return 0, models.NewValidationError("unsupported ban kind")
	}
	if models.HasCode(err, models.CodeNotFound) {
		return 0, nil
	}
	return userID, err
}

// Deny rejects an active appeal. With allowAnother false no further appeal of
// the same ban is accepted until the appeal is unblocked.
func (s *AppealService) Deny(ctx context.Context, reviewerID, appealID uint, allowAnother bool, comment string) (_ *models.BanAppeal, err error) {
	ctx, done := track(ctx, appealWorkflow, "deny", reviewerID)
	defer func() {
		done(err, slog.Uint64("appeal_id", uint64(appealID)), slog.Bool("allow_another_appeal", allowAnother))
	}()

	var out *models.BanAppeal
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		review := repository.AppealReview{ReviewerID: reviewerID, AllowAnotherAppeal: allowAnother, Comment: comment, At: s.now()}
		if _, err := s.decide(ctx, tx, appealID, reviewerID,
			[]models.AppealStatus{models.AppealStatusSubmitted, models.AppealStatusInReview}, models.AppealStatusDenied, review); err != nil {
			return err
		}
		var err error
		out, err = tx.Appeals().GetByID(ctx, appealID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unblock re-allows appeals of the ban behind a blocking denial.
func (s *AppealService) Unblock(ctx context.Context, actorID, appealID uint) (_ *models.BanAppeal, err error) {
	ctx, done := track(ctx, appealWorkflow, "unblock", actorID)
	defer func() { done(err, slog.Uint64("appeal_id", uint64(appealID))) }()

	notBlocked := models.NewInvalidStateError(models.ReasonInvalidAppealStatus, "Appeal does not block further appeals")
	var out *models.BanAppeal
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := siteStaff(ctx, tx, actorID, models.SiteRoleModerator); err != nil {
			return err
		}
		appeal, err := tx.Appeals().GetByID(ctx, appealID)
		if err != nil {
			return err
		}
		if !appeal.Blocks() {
			return notBlocked
		}
		if err := tx.Appeals().Unblock(ctx, appeal.ID, actorID); err != nil {
			return staleAs(err, notBlocked)
		}
		out, err = tx.Appeals().GetByID(ctx, appealID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListActive returns appeals awaiting a decision, oldest first.
func (s *AppealService) ListActive(ctx context.Context, reviewerID uint, limit, offset int) ([]models.BanAppeal, error) {
	if _, err := siteStaff(ctx, s.store, reviewerID, models.SiteRoleModerator); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.store.Appeals().ListActive(ctx, limit, offset)
}
