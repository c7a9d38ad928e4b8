package server

import (
	"clanhub/internal/models"
	"clanhub/internal/notifications"
	"clanhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

type appealDecision struct {
	AllowAnotherAppeal *bool  `json:"allow_another_appeal"`
	Comment            string `json:"comment"`
}

func appealEvent(kind notifications.EventType, appeal *models.BanAppeal) notifications.Event {
	event := notifications.Event{Type: kind, SubjectID: appeal.ID, Recipients: []uint{appeal.SubmittedByID}}
	if appeal.ClanID != nil {
		event.ClanID = *appeal.ClanID
	}
	return event
}

// SubmitAppeal handles POST /api/appeals
// @Summary Appeal a ban
// @Tags appeals
// @Accept json
// @Produce json
// @Param request body service.AppealInput true "Appeal"
// @Success 201 {object} models.BanAppeal
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /appeals [post]
func (s *Server) SubmitAppeal(c *fiber.Ctx) error {
	var in service.AppealInput
	if err := s.parseBody(c, &in); err != nil {
		return nil
	}
	appeal, err := s.appeals.Submit(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, appealEvent(notifications.EventAppealSubmitted, appeal))
	return c.Status(fiber.StatusCreated).JSON(appeal)
}

// ListAppeals handles GET /api/admin/appeals
// @Summary List appeals awaiting a decision
// @Tags appeals
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.BanAppeal
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/appeals [get]
func (s *Server) ListAppeals(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	appeals, err := s.appeals.ListActive(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(appeals)
}

// StartAppealReview handles POST /api/admin/appeals/:id/review
// @Summary Move an appeal into review
// @Tags appeals
// @Produce json
// @Param id path int true "Appeal ID"
// @Success 200 {object} models.BanAppeal
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/appeals/{id}/review [post]
func (s *Server) StartAppealReview(c *fiber.Ctx) error {
	appealID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	appeal, err := s.appeals.StartReview(c.UserContext(), currentUserID(c), appealID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, appealEvent(notifications.EventAppealInReview, appeal))
	return c.JSON(appeal)
}

// ApproveAppeal handles POST /api/admin/appeals/:id/approve
// @Summary Approve an appeal and lift the ban
// @Tags appeals
// @Accept json
// @Produce json
// @Param id path int true "Appeal ID"
// @Param request body object{comment=string} false "Reviewer comment"
// @Success 200 {object} models.BanAppeal
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/appeals/{id}/approve [post]
func (s *Server) ApproveAppeal(c *fiber.Ctx) error {
	appealID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var body appealDecision
	if err := s.parseBody(c, &body); err != nil {
		return nil
	}
	appeal, err := s.appeals.Approve(c.UserContext(), currentUserID(c), appealID, body.Comment)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, appealEvent(notifications.EventAppealApproved, appeal))
	return c.JSON(appeal)
}

// DenyAppeal handles POST /api/admin/appeals/:id/deny
// @Summary Deny an appeal
// @Description allow_another_appeal defaults to true; false blocks further appeals until unblocked.
// @Tags appeals
// @Accept json
// @Produce json
// @Param id path int true "Appeal ID"
// @Param request body object{allow_another_appeal=bool,comment=string} false "Decision"
// @Success 200 {object} models.BanAppeal
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/appeals/{id}/deny [post]
func (s *Server) DenyAppeal(c *fiber.Ctx) error {
	appealID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var body appealDecision
	if err := s.parseBody(c, &body); err != nil {
		return nil
	}
	allow := body.AllowAnotherAppeal == nil || *body.AllowAnotherAppeal

	appeal, err := s.appeals.Deny(c.UserContext(), currentUserID(c), appealID, allow, body.Comment)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, appealEvent(notifications.EventAppealDenied, appeal))
	return c.JSON(appeal)
}

// UnblockAppeal handles POST /api/admin/appeals/:id/unblock
// @Summary Allow another appeal after a blocking denial
// @Tags appeals
// @Produce json
// @Param id path int true "Appeal ID"
// @Success 200 {object} models.BanAppeal
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/appeals/{id}/unblock [post]
func (s *Server) UnblockAppeal(c *fiber.Ctx) error {
	appealID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	appeal, err := s.appeals.Unblock(c.UserContext(), currentUserID(c), appealID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, appealEvent(notifications.EventAppealUnblocked, appeal))
	return c.JSON(appeal)
}
