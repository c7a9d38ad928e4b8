// Package service implements the clan moderation workflows: join requests,
// bans, appeals, verification, ownership transfer, reports, and the role and
// membership operations around them. Every mutating operation runs its guard
// checks and writes inside one Store transaction.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"clanhub/internal/authz"
	"clanhub/internal/middleware"
	"clanhub/internal/models"
	"clanhub/internal/observability"
	"clanhub/internal/repository"
)

// Clock returns the current time. Services read time only through it.
type Clock func() time.Time

// track opens a workflow span and returns the function that closes it. The
// closer records the transition metric and logs successful transitions.
func track(ctx context.Context, workflow, action string, actorID uint) (context.Context, func(err error, attrs ...any)) {
	span, ctx := observability.StartWorkflowSpan(ctx, workflow, action, actorID)
	return ctx, func(err error, attrs ...any) {
		observability.RecordTransition(workflow, action, err)
		span.Finish(err)
		if err != nil {
			if models.HasCode(err, models.CodeStoreUnavailable) {
				middleware.Logger.ErrorContext(ctx, "workflow action failed",
					slog.String("workflow", workflow), slog.String("action", action), slog.Any("error", err))
			}
			return
		}
		args := append([]any{
			slog.String("workflow", workflow),
			slog.String("action", action),
			slog.Uint64("actor_id", uint64(actorID)),
		}, attrs...)
		middleware.Logger.InfoContext(ctx, "workflow transition", args...)
	}
}

// staleAs replaces repository.ErrStale with want. Other errors pass through.
func staleAs(err error, want *models.AppError) error {
	if errors.Is(err, repository.ErrStale) {
		return want
	}
	return err
}

var errActorBanned = models.NewPermissionDeniedError("Banned accounts cannot perform this action").
	WithReason(models.ReasonActorBanned)

// activeActor loads the acting user and refuses platform-banned accounts.
func activeActor(ctx context.Context, tx repository.Store, userID uint) (*models.User, error) {
	user, err := tx.Membership().GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.PlatformBanned {
		return nil, errActorBanned
	}
	return user, nil
}

// siteStaff requires an active actor holding at least min at site scope.
func siteStaff(ctx context.Context, tx repository.Store, userID uint, min models.SiteRole) (models.SiteRole, error) {
	if _, err := activeActor(ctx, tx, userID); err != nil {
		return "", err
	}
	role, err := tx.Membership().ResolveSiteRole(ctx, userID)
	if err != nil {
		return "", err
	}
	if !authz.SiteAtLeast(role, min) {
		return "", models.NewPermissionDeniedError("Insufficient site role")
	}
	return role, nil
}

// clanStaff requires an active, unbanned member of the clan whose role holds action.
func clanStaff(ctx context.Context, tx repository.Store, userID, clanID uint, action authz.ClanAction) (*models.ClanMember, error) {
	if _, err := activeActor(ctx, tx, userID); err != nil {
		return nil, err
	}
	member, err := tx.Membership().FindMember(ctx, userID, clanID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, models.NewPermissionDeniedError("You are not a member of this clan")
	}
	if member.Banned {
		return nil, models.NewPermissionDeniedError("Banned members cannot perform this action").
			WithReason(models.ReasonMemberBanned)
	}
	if !authz.CanPerformClanAction(member.Role, action) {
		return nil, models.NewPermissionDeniedError("Insufficient clan role")
	}
	return member, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
