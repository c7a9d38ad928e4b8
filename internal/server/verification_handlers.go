package server

import (
	"context"

	"clanhub/internal/notifications"
	"clanhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ApplyForVerification handles POST /api/clans/:id/verification
// @Summary Apply for clan verification
// @Description Eligible clans are at least 30 days old, have 10 members and a discord invite.
// @Tags verification
// @Produce json
// @Param id path int true "Clan ID"
// @Success 201 {object} models.ClanVerificationApplication
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans/{id}/verification [post]
func (s *Server) ApplyForVerification(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	app, err := s.verification.Apply(c.UserContext(), currentUserID(c), clanID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{Type: notifications.EventVerificationApplied, ClanID: clanID, SubjectID: app.ID})
	return c.Status(fiber.StatusCreated).JSON(app)
}

type verificationDecision func(ctx context.Context, reviewerID, clanID uint) (*service.VerificationOutcome, error)

func (s *Server) decideVerification(c *fiber.Ctx, decide verificationDecision, kind notifications.EventType) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	outcome, err := decide(c.UserContext(), currentUserID(c), clanID)
	if err != nil {
		return s.respondError(c, err)
	}
	event := notifications.Event{
		Type: kind, ClanID: clanID,
		Recipients: []uint{outcome.Clan.OwnerUserID},
		Data:       fiber.Map{"application_status": outcome.Clan.ApplicationStatus},
	}
	if outcome.Application != nil {
		event.SubjectID = outcome.Application.ID
	}
	s.emit(c, event)
	return c.JSON(outcome)
}

// ApproveVerification handles POST /api/admin/clans/:id/verification/approve
// @Summary Approve clan verification
// @Tags verification
// @Produce json
// @Param id path int true "Clan ID"
// @Success 200 {object} service.VerificationOutcome
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/clans/{id}/verification/approve [post]
func (s *Server) ApproveVerification(c *fiber.Ctx) error {
	return s.decideVerification(c, s.verification.Approve, notifications.EventVerificationApproved)
}

// DenyVerification handles POST /api/admin/clans/:id/verification/deny
// @Summary Deny clan verification
// @Tags verification
// @Produce json
// @Param id path int true "Clan ID"
// @Success 200 {object} service.VerificationOutcome
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/clans/{id}/verification/deny [post]
func (s *Server) DenyVerification(c *fiber.Ctx) error {
	return s.decideVerification(c, s.verification.Deny, notifications.EventVerificationDenied)
}

// UnverifyClan handles POST /api/admin/clans/:id/verification/unverify
// @Summary Revoke a clan's verification
// @Tags verification
// @Produce json
// @Param id path int true "Clan ID"
// @Success 200 {object} service.VerificationOutcome
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/clans/{id}/verification/unverify [post]
func (s *Server) UnverifyClan(c *fiber.Ctx) error {
	return s.decideVerification(c, s.verification.Unverify, notifications.EventVerificationRevoked)
}

// ListVerificationApplications handles GET /api/admin/verification
// @Summary List submitted verification applications
// @Tags verification
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.ClanVerificationApplication
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/verification [get]
func (s *Server) ListVerificationApplications(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	apps, err := s.verification.ListSubmitted(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(apps)
}
