package server

import (
	"clanhub/internal/models"
	"clanhub/internal/notifications"
	"clanhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListClans handles GET /api/clans
// @Summary List clans
// @Description List visible clans by member count. Site staff may pass include_hidden.
// @Tags clans
// @Produce json
// @Param include_hidden query bool false "Include hidden and banned clans (staff only)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Clan
// @Failure 403 {object} models.ErrorResponse
// @Router /clans [get]
func (s *Server) ListClans(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	clans, err := s.clans.List(c.UserContext(), currentUserID(c), c.QueryBool("include_hidden", false), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(clans)
}

// GetClan handles GET /api/clans/:id
// @Summary Get clan
// @Tags clans
// @Produce json
// @Param id path int true "Clan ID"
// @Success 200 {object} models.Clan
// @Failure 404 {object} models.ErrorResponse
// @Router /clans/{id} [get]
func (s *Server) GetClan(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	clan, err := s.clans.Get(c.UserContext(), clanID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(clan)
}

// ListClanMembers handles GET /api/clans/:id/members
// @Summary List clan members
// @Tags clans
// @Produce json
// @Param id path int true "Clan ID"
// @Success 200 {array} models.ClanMember
// @Failure 404 {object} models.ErrorResponse
// @Router /clans/{id}/members [get]
func (s *Server) ListClanMembers(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	members, err := s.members.ListMembers(c.UserContext(), clanID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(members)
}

// CreateClan handles POST /api/clans
// @Summary Create clan
// @Description The caller becomes the clan's Creator.
// @Tags clans
// @Accept json
// @Produce json
// @Param request body service.CreateClanInput true "Clan profile"
// @Success 201 {object} models.Clan
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans [post]
func (s *Server) CreateClan(c *fiber.Ctx) error {
	var in service.CreateClanInput
	if err := s.parseBody(c, &in); err != nil {
		return nil
	}
	clan, err := s.clans.Create(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(clan)
}

// UpdateClan handles PATCH /api/clans/:id
// @Summary Update clan profile
// @Tags clans
// @Accept json
// @Produce json
// @Param id path int true "Clan ID"
// @Param request body service.UpdateClanInput true "Changed fields"
// @Success 200 {object} models.Clan
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans/{id} [patch]
func (s *Server) UpdateClan(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.UpdateClanInput
	if err := s.parseBody(c, &in); err != nil {
		return nil
	}
	clan, err := s.clans.UpdateProfile(c.UserContext(), currentUserID(c), clanID, in)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(clan)
}

// LeaveClan handles POST /api/clans/:id/leave
// @Summary Leave clan
// @Tags clans
// @Param id path int true "Clan ID"
// @Success 204
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans/{id}/leave [post]
func (s *Server) LeaveClan(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID := currentUserID(c)
	if err := s.members.Leave(c.UserContext(), userID, clanID); err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{Type: notifications.EventMemberRemoved, ClanID: clanID, SubjectID: userID})
	return c.SendStatus(fiber.StatusNoContent)
}

// KickMember handles DELETE /api/clans/:id/members/:userId
// @Summary Kick member
// @Tags clans
// @Produce json
// @Param id path int true "Clan ID"
// @Param userId path int true "Member user ID"
// @Success 200 {object} models.ClanMember
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans/{id}/members/{userId} [delete]
func (s *Server) KickMember(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	kicked, err := s.members.Kick(c.UserContext(), currentUserID(c), clanID, targetID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{
		Type: notifications.EventMemberRemoved, ClanID: clanID, SubjectID: targetID,
		Recipients: []uint{targetID},
	})
	return c.JSON(kicked)
}

// AssignClanRole handles PUT /api/clans/:id/members/:userId/role
// @Summary Change a member's clan role
// @Tags clans
// @Accept json
// @Produce json
// @Param id path int true "Clan ID"
// @Param userId path int true "Member user ID"
// @Param request body object{role=string} true "New role"
// @Success 200 {object} models.ClanMember
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans/{id}/members/{userId}/role [put]
func (s *Server) AssignClanRole(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	var req struct {
		Role models.ClanRole `json:"role"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	member, err := s.roles.AssignClanRole(c.UserContext(), currentUserID(c), clanID, targetID, req.Role)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{
		Type: notifications.EventRoleChanged, ClanID: clanID, SubjectID: targetID,
		Recipients: []uint{targetID}, Data: fiber.Map{"role": member.Role},
	})
	return c.JSON(member)
}

// TransferOwnership handles POST /api/clans/:id/transfer
// @Summary Transfer clan ownership
// @Description The current owner hands the clan to another member and becomes an Administrator.
// @Tags clans
// @Accept json
// @Produce json
// @Param id path int true "Clan ID"
// @Param request body object{new_owner_id=int} true "Heir"
// @Success 200 {object} service.TransferOutcome
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /clans/{id}/transfer [post]
func (s *Server) TransferOwnership(c *fiber.Ctx) error {
	clanID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		NewOwnerID uint `json:"new_owner_id"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	if req.NewOwnerID == 0 {
		return s.respondError(c, models.NewValidationError("new_owner_id is required"))
	}
	outcome, err := s.ownership.Transfer(c.UserContext(), currentUserID(c), clanID, req.NewOwnerID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{
		Type: notifications.EventOwnershipTransferred, ClanID: clanID, SubjectID: req.NewOwnerID,
		Recipients: []uint{req.NewOwnerID},
	})
	return c.JSON(outcome)
}
