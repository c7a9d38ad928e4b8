package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"clanhub/internal/authz"
	"clanhub/internal/cache"
	"clanhub/internal/models"
	"clanhub/internal/repository"
)

const verificationWorkflow = "verification"

// VerificationPolicy holds the eligibility thresholds checked at submission.
type VerificationPolicy struct {
	MinAge     time.Duration
	MinMembers int
}

// DefaultVerificationPolicy requires a 30 day old clan with 10 members.
var DefaultVerificationPolicy = VerificationPolicy{MinAge: 30 * 24 * time.Hour, MinMembers: 10}

// VerificationOutcome is the result of a staff decision. Application is nil
// when the decision was applied directly to a clan without a pending application.
type VerificationOutcome struct {
	Clan        *models.Clan                        `json:"clan"`
	Application *models.ClanVerificationApplication `json:"application,omitempty"`
}

// VerificationService runs the clan verification workflow:
// None → In_Review → {Approved, Denied}, Approved → Denied, Denied → In_Review.
type VerificationService struct {
	store  repository.Store
	policy VerificationPolicy
	now    Clock
}

// NewVerificationService returns a new VerificationService.
func NewVerificationService(store repository.Store, policy VerificationPolicy) *VerificationService {
	return &VerificationService{store: store, policy: policy, now: time.Now}
}

func notEligible(message string) *models.AppError {
	return models.NewInvalidStateError(models.ReasonNotEligible, message)
}

// eligible evaluates the submission rules against the clan as it is now.
func (s *VerificationService) eligible(clan *models.Clan) error {
	switch {
	case clan.Banned:
		return models.NewInvalidStateError(models.ReasonClanBanned, "Banned clans cannot apply for verification")
	case clan.Visibility == models.ClanVisibilityHidden:
		return models.NewInvalidStateError(models.ReasonClanHidden, "Hidden clans cannot apply for verification")
	case clan.ApplicationStatus == models.ApplicationStatusApproved:
		return notEligible("Clan is already verified")
	case clan.ApplicationStatus == models.ApplicationStatusInReview:
		return notEligible("Clan already has an application in review")
	case s.now().Sub(clan.CreatedAt) < s.policy.MinAge:
		return notEligible("Clan is too young to apply for verification")
	case strings.TrimSpace(clan.DiscordInviteLink) == "":
		return notEligible("Clan needs a discord invite link to apply for verification")
	case clan.MemberCount < s.policy.MinMembers:
		return notEligible("Clan does not have enough members to apply for verification")
	}
	return nil
}

// Apply submits a verification application and moves the clan to In_Review.
func (s *VerificationService) Apply(ctx context.Context, actorID, clanID uint) (_ *models.ClanVerificationApplication, err error) {
	ctx, done := track(ctx, verificationWorkflow, "apply", actorID)
	defer func() { done(err, slog.Uint64("clan_id", uint64(clanID))) }()

	var app *models.ClanVerificationApplication
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		clan, err := tx.Clans().GetForUpdate(ctx, clanID)
		if err != nil {
			return err
		}
		if _, err := clanStaff(ctx, tx, actorID, clanID, authz.ActionVerifyApply); err != nil {
			return err
		}
		if err := s.eligible(clan); err != nil {
			return err
		}

		app = &models.ClanVerificationApplication{
			ClanID:        clanID,
			SubmittedByID: actorID,
			Status:        models.VerificationStatusSubmitted,
		}
		if err := tx.Verifications().Create(ctx, app); err != nil {
			return err
		}
		from := []models.ApplicationStatus{models.ApplicationStatusNone, models.ApplicationStatusDenied}
		if err := tx.Clans().SetApplicationStatus(ctx, clanID, from, models.ApplicationStatusInReview); err != nil {
			return staleAs(err, notEligible("Clan application status changed concurrently"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateClan(ctx, clanID)
	return app, nil
}

// decide applies a staff decision. A Submitted latest application is moved to
// appStatus; the clan's own status moves from one of from to clanStatus either way.
func (s *VerificationService) decide(ctx context.Context, action string, reviewerID, clanID uint,
	from []models.ApplicationStatus, appFrom models.VerificationStatus, appTo models.VerificationStatus,
	clanStatus models.ApplicationStatus) (_ *VerificationOutcome, err error) {
	ctx, done := track(ctx, verificationWorkflow, action, reviewerID)
	defer func() { done(err, slog.Uint64("clan_id", uint64(clanID))) }()

	invalid := models.NewInvalidStateError(models.ReasonInvalidTransition, "Clan verification status does not allow this decision")
	outcome := &VerificationOutcome{}
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := siteStaff(ctx, tx, reviewerID, models.SiteRoleModerator); err != nil {
			return err
		}
		clan, err := tx.Clans().GetForUpdate(ctx, clanID)
		if err != nil {
			return err
		}
		if clanStatus == models.ApplicationStatusApproved && clan.Banned {
			return models.NewInvalidStateError(models.ReasonClanBanned, "Banned clans cannot be verified")
		}

		latest, err := tx.Verifications().LatestApplication(ctx, clanID)
		if err != nil {
			return err
		}
		if latest != nil && latest.Status == appFrom {
			if err := tx.Verifications().Transition(ctx, latest.ID, appFrom, appTo, reviewerID); err != nil {
				return staleAs(err, invalid)
			}
			if outcome.Application, err = tx.Verifications().GetByID(ctx, latest.ID); err != nil {
				return err
			}
		}

		if err := tx.Clans().SetApplicationStatus(ctx, clanID, from, clanStatus); err != nil {
			return staleAs(err, invalid)
		}
		outcome.Clan, err = tx.Clans().GetByID(ctx, clanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateClan(ctx, clanID)
	return outcome, nil
}

// Approve verifies the clan, through its pending application when it has one.
func (s *VerificationService) Approve(ctx context.Context, reviewerID, clanID uint) (*VerificationOutcome, error) {
	from := []models.ApplicationStatus{models.ApplicationStatusNone, models.ApplicationStatusInReview}
	return s.decide(ctx, "approve", reviewerID, clanID, from,
		models.VerificationStatusSubmitted, models.VerificationStatusApproved, models.ApplicationStatusApproved)
}

// Deny rejects the clan, through its pending application when it has one.
func (s *VerificationService) Deny(ctx context.Context, reviewerID, clanID uint) (*VerificationOutcome, error) {
	from := []models.ApplicationStatus{models.ApplicationStatusNone, models.ApplicationStatusInReview}
	return s.decide(ctx, "deny", reviewerID, clanID, from,
		models.VerificationStatusSubmitted, models.VerificationStatusDenied, models.ApplicationStatusDenied)
}

// Unverify revokes an approved verification. The approved application, if
// any, is denied as well so it keeps mirroring the clan.
func (s *VerificationService) Unverify(ctx context.Context, reviewerID, clanID uint) (*VerificationOutcome, error) {
	from := []models.ApplicationStatus{models.ApplicationStatusApproved}
	return s.decide(ctx, "unverify", reviewerID, clanID, from,
		models.VerificationStatusApproved, models.VerificationStatusDenied, models.ApplicationStatusDenied)
}

// ListSubmitted returns applications awaiting a decision for site reviewers.
func (s *VerificationService) ListSubmitted(ctx context.Context, reviewerID uint, limit, offset int) ([]models.ClanVerificationApplication, error) {
	if _, err := siteStaff(ctx, s.store, reviewerID, models.SiteRoleModerator); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.store.Verifications().ListSubmitted(ctx, limit, offset)
}
