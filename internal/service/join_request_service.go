package service

import (
	"context"
	"log/slog"
	"time"

	"clanhub/internal/authz"
	"clanhub/internal/cache"
	"clanhub/internal/models"
	"clanhub/internal/repository"
)

const joinRequestWorkflow = "join_request"

var errRequestNotSubmitted = models.NewInvalidStateError(models.ReasonInvalidRequestStatus, "Join request is not awaiting review")

// JoinRequestService runs the Submitted → {Accepted, Denied} join request workflow.
type JoinRequestService struct {
	store repository.Store
	now   Clock
}

// NewJoinRequestService returns a new JoinRequestService.
func NewJoinRequestService(store repository.Store) *JoinRequestService {
	return &JoinRequestService{store: store, now: time.Now}
}

// Submit creates a Submitted request for userID to join clanID.
func (s *JoinRequestService) Submit(ctx context.Context, userID, clanID uint) (_ *models.ClanJoinRequest, err error) {
	ctx, done := track(ctx, joinRequestWorkflow, "submit", userID)
	var req *models.ClanJoinRequest
	defer func() { done(err, slog.Uint64("clan_id", uint64(clanID))) }()

	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := activeActor(ctx, tx, userID); err != nil {
			return err
		}
		// the clan row lock serializes submissions against the same clan
		clan, err := tx.Clans().GetForUpdate(ctx, clanID)
		if err != nil {
			return err
		}

		member, err := tx.Membership().FindMember(ctx, userID, clanID)
		if err != nil {
			return err
		}
		if member != nil {
			return models.NewConflictError(models.ReasonAlreadyMember, "You are already a member of this clan")
		}
		if clan.Visibility == models.ClanVisibilityHidden {
			return models.NewInvalidStateError(models.ReasonClanHidden, "This clan is not accepting join requests")
		}
		if clan.Banned {
			return models.NewInvalidStateError(models.ReasonClanBanned, "This clan is banned")
		}

		latest, err := tx.JoinRequests().LatestJoinRequest(ctx, userID, clanID)
		if err != nil {
			return err
		}
		if latest != nil {
			if latest.Status == models.JoinRequestStatusSubmitted {
				return models.NewConflictError(models.ReasonRequestPending, "A join request is already pending")
			}
			if latest.Blocks() {
				return models.NewPermissionDeniedError("You may not apply to this clan again").
					WithReason(models.ReasonReapplicationBlocked)
			}
		}

		req = &models.ClanJoinRequest{
			UserID:                  userID,
			ClanID:                  clanID,
			Status:                  models.JoinRequestStatusSubmitted,
			AllowAnotherApplication: true,
		}
		if err := tx.JoinRequests().Create(ctx, req); err != nil {
			if models.HasCode(err, models.CodeConflict) {
				return models.NewConflictError(models.ReasonRequestPending, "A join request is already pending")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// reviewable loads a request and checks that reviewerID may decide it.
func reviewable(ctx context.Context, tx repository.Store, requestID, reviewerID uint) (*models.ClanJoinRequest, error) {
	req, err := tx.JoinRequests().GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	clan, err := tx.Clans().GetForUpdate(ctx, req.ClanID)
	if err != nil {
		return nil, err
	}
	if _, err := clanStaff(ctx, tx, reviewerID, req.ClanID, authz.ActionManageRequests); err != nil {
		return nil, err
	}
	if clan.Banned {
		return nil, models.NewInvalidStateError(models.ReasonClanBanned, "Join requests of a banned clan cannot be reviewed")
	}
	return req, nil
}

// Accept turns a Submitted request into a Member of the clan. The request row
// is archived with status Accepted.
func (s *JoinRequestService) Accept(ctx context.Context, requestID, reviewerID uint) (_ *models.ClanMember, err error) {
	ctx, done := track(ctx, joinRequestWorkflow, "accept", reviewerID)
	defer func() { done(err, slog.Uint64("request_id", uint64(requestID))) }()

	var member *models.ClanMember
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		req, err := reviewable(ctx, tx, requestID, reviewerID)
		if err != nil {
			return err
		}
		if req.Status != models.JoinRequestStatusSubmitted {
			return errRequestNotSubmitted
		}

		review := repository.JoinRequestReview{ReviewerID: reviewerID, AllowAnotherApplication: true, At: s.now()}
		if err := tx.JoinRequests().Transition(ctx, req.ID, models.JoinRequestStatusSubmitted, models.JoinRequestStatusAccepted, review); err != nil {
			return staleAs(err, errRequestNotSubmitted)
		}

		member = &models.ClanMember{UserID: req.UserID, ClanID: req.ClanID, Role: models.ClanRoleMember}
		if err := tx.Membership().CreateMember(ctx, member); err != nil {
			return err
		}
		return staleAs(tx.Clans().AdjustMemberCount(ctx, req.ClanID, 1), models.NewNotFoundError("Clan", req.ClanID))
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateClan(ctx, member.ClanID)
	return member, nil
}

// Reject denies a Submitted request. With allowAnother false the requester is
// blocked from applying to the clan again until the request is unblocked.
func (s *JoinRequestService) Reject(ctx context.Context, requestID, reviewerID uint, allowAnother bool) (_ *models.ClanJoinRequest, err error) {
	ctx, done := track(ctx, joinRequestWorkflow, "reject", reviewerID)
	defer func() {
		done(err, slog.Uint64("request_id", uint64(requestID)), slog.Bool("allow_another_application", allowAnother))
	}()

	var req *models.ClanJoinRequest
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		current, err := reviewable(ctx, tx, requestID, reviewerID)
		if err != nil {
			return err
		}
		if current.Status != models.JoinRequestStatusSubmitted {
			return errRequestNotSubmitted
		}
		review := repository.JoinRequestReview{ReviewerID: reviewerID, AllowAnotherApplication: allowAnother, At: s.now()}
		if err := tx.JoinRequests().Transition(ctx, current.ID, models.JoinRequestStatusSubmitted, models.JoinRequestStatusDenied, review); err != nil {
			return staleAs(err, errRequestNotSubmitted)
		}
		req, err = tx.JoinRequests().GetByID(ctx, current.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Unblock lets the requester of a blocking denial apply again.
func (s *JoinRequestService) Unblock(ctx context.Context, requestID, actorID uint) (_ *models.ClanJoinRequest, err error) {
	ctx, done := track(ctx, joinRequestWorkflow, "unblock", actorID)
	defer func() { done(err, slog.Uint64("request_id", uint64(requestID))) }()

	notBlocked := models.NewInvalidStateError(models.ReasonInvalidRequestStatus, "Join request does not block reapplication")
	var req *models.ClanJoinRequest
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		current, err := reviewable(ctx, tx, requestID, actorID)
		if err != nil {
			return err
		}
		if !current.Blocks() {
			return notBlocked
		}
		if err := tx.JoinRequests().Unblock(ctx, current.ID, actorID); err != nil {
			return staleAs(err, notBlocked)
		}
		req, err = tx.JoinRequests().GetByID(ctx, current.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Recall withdraws the user's own Submitted request to clanID.
func (s *JoinRequestService) Recall(ctx context.Context, userID, clanID uint) (_ *models.ClanJoinRequest, err error) {
	ctx, done := track(ctx, joinRequestWorkflow, "recall", userID)
	defer func() { done(err, slog.Uint64("clan_id", uint64(clanID))) }()

	noPending := models.NewInvalidStateError(models.ReasonNoPendingRequest, "No pending join request to recall")
	var req *models.ClanJoinRequest
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := activeActor(ctx, tx, userID); err != nil {
			return err
		}
		pending, err := tx.JoinRequests().FindSubmitted(ctx, userID, clanID)
		if err != nil {
			return err
		}
		if pending == nil {
			return noPending
		}
		if err := tx.JoinRequests().DeleteSubmitted(ctx, pending.ID); err != nil {
			return staleAs(err, noPending)
		}
		req = pending
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// inspector checks read access to a clan's request queues. Clan staff holding
// manage-requests may read them unless the clan is banned; site Moderators and
// above always may.
func inspector(ctx context.Context, tx repository.Store, clanID, actorID uint) error {
	clan, err := tx.Clans().GetByID(ctx, clanID)
	if err != nil {
		return err
	}
	if !clan.Banned {
		if _, err := clanStaff(ctx, tx, actorID, clanID, authz.ActionManageRequests); err == nil {
			return nil
		} else if !models.HasCode(err, models.CodePermissionDenied) {
			return err
		}
	}
	_, err = siteStaff(ctx, tx, actorID, models.SiteRoleModerator)
	return err
}

// ListPending returns the clan's Submitted requests, oldest first.
func (s *JoinRequestService) ListPending(ctx context.Context, clanID, actorID uint) ([]models.ClanJoinRequest, error) {
	if err := inspector(ctx, s.store, clanID, actorID); err != nil {
		return nil, err
	}
	return s.store.JoinRequests().ListPending(ctx, clanID)
}

// ListBlocked returns the clan's blocking denials that still govern eligibility.
func (s *JoinRequestService) ListBlocked(ctx context.Context, clanID, actorID uint) ([]models.ClanJoinRequest, error) {
	if err := inspector(ctx, s.store, clanID, actorID); err != nil {
		return nil, err
	}
	return s.store.JoinRequests().ListBlocked(ctx, clanID)
}
