package server

import (
	"clanhub/internal/notifications"
	"clanhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// BanUser handles POST /api/admin/users/:userId/ban
// @Summary Ban a user from the platform
// @Tags bans
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param request body service.BanInput true "Ban terms"
// @Success 201 {object} models.UserBan
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{userId}/ban [post]
func (s *Server) BanUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	var in service.BanInput
	if err := s.parseBody(c, &in); err != nil {
		return nil
	}
	ban, err := s.bans.BanUser(c.UserContext(), currentUserID(c), targetID, in)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{
		Type: notifications.EventUserBanned, SubjectID: targetID,
		Recipients: []uint{targetID}, Data: ban,
	})
	return c.Status(fiber.StatusCreated).JSON(ban)
}

// UnbanUser handles DELETE /api/admin/users/:userId/ban
// @Summary Lift a platform user ban
// @Tags bans
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} models.UserBan
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{userId}/ban [delete]
func (s *Server) UnbanUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	ban, err := s.bans.UnbanUser(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{Type: notifications.EventUserUnbanned, SubjectID: targetID, Recipients: []uint{targetID}})
	return c.JSON(ban)
}

// BanClan handles POST /api/admin/clans/:id/ban
// @Summary Ban a clan from the platform
// @Tags bans
// @Accept json
// @Produce json
// @Param id path int true "Clan ID"
// @Param request body service.BanInput true "Ban terms"
// @Success 201 {object} models.ClanBan
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/clans/{id}/ban [post]
func (s *Server) BanClan(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.BanInput
	if err := s.parseBody(c, &in); err != nil {
		return nil
	}
	ban, err := s.bans.BanClan(c.UserContext(), currentUserID(c), clanID, in)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{Type: notifications.EventClanBanned, ClanID: clanID, SubjectID: ban.ID, Data: ban})
	return c.Status(fiber.StatusCreated).JSON(ban)
}

// UnbanClan handles DELETE /api/admin/clans/:id/ban
// @Summary Lift a platform clan ban
// @Tags bans
// @Produce json
// @Param id path int true "Clan ID"
// @Success 200 {object} models.ClanBan
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/clans/{id}/ban [delete]
func (s *Server) UnbanClan(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ban, err := s.bans.UnbanClan(c.UserContext(), currentUserID(c), clanID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{Type: notifications.EventClanUnbanned, ClanID: clanID, SubjectID: ban.ID})
	return c.JSON(ban)
}

// BanMember handles POST /api/clans/:id/members/:userId/ban
// @Summary Ban a member within a clan
// @Tags bans
// @Accept json
// @Produce json
// @Param id path int true "Clan ID"
// @Param userId path int true "Member user ID"
// @Param request body service.BanInput true "Ban terms"
// @Success 201 {object} models.ClanMemberBan
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans/{id}/members/{userId}/ban [post]
func (s *Server) BanMember(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	var in service.BanInput
	if err := s.parseBody(c, &in); err != nil {
		return nil
	}
	ban, err := s.bans.BanMember(c.UserContext(), currentUserID(c), clanID, targetID, in)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{
		Type: notifications.EventMemberBanned, ClanID: clanID, SubjectID: targetID,
		Recipients: []uint{targetID}, Data: ban,
	})
	return c.Status(fiber.StatusCreated).JSON(ban)
}

// UnbanMember handles DELETE /api/clans/:id/members/:userId/ban
// @Summary Lift a clan member ban
// @Tags bans
// @Produce json
// @Param id path int true "Clan ID"
// @Param userId path int true "Member user ID"
// @Success 200 {object} models.ClanMemberBan
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans/{id}/members/{userId}/ban [delete]
func (s *Server) UnbanMember(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	ban, err := s.bans.UnbanMember(c.UserContext(), currentUserID(c), clanID, targetID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{
		Type: notifications.EventMemberUnbanned, ClanID: clanID, SubjectID: targetID,
		Recipients: []uint{targetID},
	})
	return c.JSON(ban)
}

// ListMemberBans handles GET /api/clans/:id/bans
// @Summary List member bans of a clan
// @Tags bans
// @Produce json
// @Param id path int true "Clan ID"
// @Success 200 {array} models.ClanMemberBan
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans/{id}/bans [get]
func (s *Server) ListMemberBans(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	bans, err := s.bans.ListMemberBans(c.UserContext(), currentUserID(c), clanID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(bans)
}

// ListUserBans handles GET /api/admin/bans/users
// @Summary List platform user bans
// @Tags bans
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.UserBan
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/bans/users [get]
func (s *Server) ListUserBans(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	bans, err := s.bans.ListUserBans(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(bans)
}

// ListClanBans handles GET /api/admin/bans/clans
// @Summary List platform clan bans
// @Tags bans
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.ClanBan
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/bans/clans [get]
func (s *Server) ListClanBans(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	bans, err := s.bans.ListClanBans(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(bans)
}
