package server

import (
	"clanhub/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

// SubmitJoinRequest handles POST /api/clans/:id/join-requests
// @Summary Request to join a clan
// @Tags join-requests
// @Produce json
// @Param id path int true "Clan ID"
// @Success 201 {object} models.ClanJoinRequest
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans/{id}/join-requests [post]
func (s *Server) SubmitJoinRequest(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.joinRequests.Submit(c.UserContext(), currentUserID(c), clanID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{Type: notifications.EventJoinRequestSubmitted, ClanID: clanID, SubjectID: req.ID})
	return c.Status(fiber.StatusCreated).JSON(req)
}

// RecallJoinRequest handles DELETE /api/clans/:id/join-requests/me
// @Summary Recall own pending join request
// @Tags join-requests
// @Produce json
// @Param id path int true "Clan ID"
// @Success 200 {object} models.ClanJoinRequest
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans/{id}/join-requests/me [delete]
func (s *Server) RecallJoinRequest(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.joinRequests.Recall(c.UserContext(), currentUserID(c), clanID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{Type: notifications.EventJoinRequestRecalled, ClanID: clanID, SubjectID: req.ID})
	return c.JSON(req)
}

// ListPendingJoinRequests handles GET /api/clans/:id/join-requests
// @Summary List pending join requests
// @Tags join-requests
// @Produce json
// @Param id path int true "Clan ID"
// @Success 200 {array} models.ClanJoinRequest
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans/{id}/join-requests [get]
func (s *Server) ListPendingJoinRequests(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	reqs, err := s.joinRequests.ListPending(c.UserContext(), clanID, currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(reqs)
}

// ListBlockedJoinRequests handles GET /api/clans/:id/join-requests/blocked
// @Summary List users blocked from reapplying
// @Tags join-requests
// @Produce json
// @Param id path int true "Clan ID"
// @Success 200 {array} models.ClanJoinRequest
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans/{id}/join-requests/blocked [get]
func (s *Server) ListBlockedJoinRequests(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	reqs, err := s.joinRequests.ListBlocked(c.UserContext(), clanID, currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(reqs)
}

// AcceptJoinRequest handles POST /api/join-requests/:id/accept
// @Summary Accept join request
// @Tags join-requests
// @Produce json
// @Param id path int true "Join request ID"
// @Success 200 {object} models.ClanMember
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /join-requests/{id}/accept [post]
func (s *Server) AcceptJoinRequest(c *fiber.Ctx) error {
	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	member, err := s.joinRequests.Accept(c.UserContext(), requestID, currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{
		Type: notifications.EventJoinRequestAccepted, ClanID: member.ClanID, SubjectID: requestID,
		Recipients: []uint{member.UserID},
	})
	return c.JSON(member)
}

// RejectJoinRequest handles POST /api/join-requests/:id/reject
// @Summary Reject join request
// @Description allow_another_application defaults to true; false blocks reapplication until unblocked.
// @Tags join-requests
// @Accept json
// @Produce json
// @Param id path int true "Join request ID"
// @Param request body object{allow_another_application=bool} false "Decision"
// @Success 200 {object} models.ClanJoinRequest
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /join-requests/{id}/reject [post]
func (s *Server) RejectJoinRequest(c *fiber.Ctx) error {
	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var body struct {
		AllowAnotherApplication *bool `json:"allow_another_application"`
	}
	if err := s.parseBody(c, &body); err != nil {
		return nil
	}
	allow := body.AllowAnotherApplication == nil || *body.AllowAnotherApplication

	req, err := s.joinRequests.Reject(c.UserContext(), requestID, currentUserID(c), allow)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{
		Type: notifications.EventJoinRequestRejected, ClanID: req.ClanID, SubjectID: requestID,
		Recipients: []uint{req.UserID}, Data: fiber.Map{"allow_another_application": allow},
	})
	return c.JSON(req)
}

// UnblockJoinRequest handles POST /api/join-requests/:id/unblock
// @Summary Allow a blocked user to reapply
// @Tags join-requests
// @Produce json
// @Param id path int true "Join request ID"
// @Success 200 {object} models.ClanJoinRequest
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /join-requests/{id}/unblock [post]
func (s *Server) UnblockJoinRequest(c *fiber.Ctx) error {
	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.joinRequests.Unblock(c.UserContext(), requestID, currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{
		Type: notifications.EventJoinRequestUnblocked, ClanID: req.ClanID, SubjectID: requestID,
		Recipients: []uint{req.UserID},
	})
	return c.JSON(req)
}
