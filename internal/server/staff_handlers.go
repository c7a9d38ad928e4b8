package server

import (
	"clanhub/internal/models"
	"clanhub/internal/notifications"
	"clanhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListStaff handles GET /api/admin/staff
// @Summary List site staff
// @Tags staff
// @Produce json
// @Success 200 {array} models.SiteStaffAssignment
// @Security BearerAuth
// @Router /admin/staff [get]
func (s *Server) ListStaff(c *fiber.Ctx) error {
	staff, err := s.roles.ListStaff(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(staff)
}

// AssignSiteRole handles PUT /api/admin/staff/:userId
// @Summary Grant or change a site staff role
// @Tags staff
// @Accept json
// @Produce json
// @Param userId path int true "User ID"
// @Param request body object{role=string} true "Site role"
// @Success 200 {object} models.SiteStaffAssignment
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/staff/{userId} [put]
func (s *Server) AssignSiteRole(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	var req struct {
		Role models.SiteRole `json:"role"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	assignment, err := s.roles.AssignSiteRole(c.UserContext(), currentUserID(c), targetID, req.Role)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{
		Type: notifications.EventRoleChanged, SubjectID: targetID,
		Recipients: []uint{targetID}, Data: fiber.Map{"site_role": assignment.Role},
	})
	return c.JSON(assignment)
}

// UnassignSiteRole handles DELETE /api/admin/staff/:userId
// @Summary Remove a site staff role
// @Tags staff
// @Param userId path int true "User ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/staff/{userId} [delete]
func (s *Server) UnassignSiteRole(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	if err := s.roles.UnassignSiteRole(c.UserContext(), currentUserID(c), targetID); err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{
		Type: notifications.EventRoleChanged, SubjectID: targetID,
		Recipients: []uint{targetID}, Data: fiber.Map{"site_role": models.SiteRoleUser},
	})
	return c.SendStatus(fiber.StatusNoContent)
}

// FileReport handles POST /api/reports
// @Summary Report a user or clan
// @Tags reports
// @Accept json
// @Produce json
// @Param request body service.ReportInput true "Report"
// @Success 201 {object} models.Report
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /reports [post]
func (s *Server) FileReport(c *fiber.Ctx) error {
	var in service.ReportInput
	if err := s.parseBody(c, &in); err != nil {
		return nil
	}
	report, err := s.reports.Report(c.UserContext(), currentUserID(c), in)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{Type: notifications.EventReportFiled, SubjectID: report.ID, Data: report})
	return c.Status(fiber.StatusCreated).JSON(report)
}

// ListReports handles GET /api/admin/reports
// @Summary List open reports
// @Tags reports
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Report
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reports [get]
func (s *Server) ListReports(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	reports, err := s.reports.ListOpen(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(reports)
}

// DismissReport handles POST /api/admin/reports/:id/dismiss
// @Summary Dismiss a report
// @Tags reports
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} models.Report
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reports/{id}/dismiss [post]
func (s *Server) DismissReport(c *fiber.Ctx) error {
	reportID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	report, err := s.reports.Dismiss(c.UserContext(), currentUserID(c), reportID)
	if err != nil {
		return s.respondError(c, err)
	}
	s.emit(c, notifications.Event{Type: notifications.EventReportDismissed, SubjectID: reportID})
	return c.JSON(report)
}
