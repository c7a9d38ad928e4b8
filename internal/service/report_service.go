package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"clanhub/internal/models"
	"clanhub/internal/repository"
	"clanhub/internal/validation"
)

// ReportInput names the reported subject and the reason.
type ReportInput struct {
	SubjectType models.ReportSubjectType `json:"subject_type"`
	SubjectID   uint                     `json:"subject_id"`
	Reason      string                   `json:"reason"`
}

// ReportService files reports and lets staff dismiss them.
type ReportService struct {
	store repository.Store
	now   Clock
}

// NewReportService returns a new ReportService.
func NewReportService(store repository.Store) *ReportService {
	return &ReportService{store: store, now: time.Now}
}

// Report files an open report against a user or clan.
func (s *ReportService) Report(ctx context.Context, reporterID uint, in ReportInput) (_ *models.Report, err error) {
	ctx, done := track(ctx, "report", "report", reporterID)
	defer func() {
		done(err, slog.String("subject_type", string(in.SubjectType)), slog.Uint64("subject_id", uint64(in.SubjectID)))
	}()

	if in.SubjectType == models.ReportSubjectUser && in.SubjectID == reporterID {
		return nil, models.NewSelfTargetingError(models.ReasonCannotReportSelf, "You cannot report yourself")
	}
	if err := validation.ValidateReportReason(in.Reason); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	var report *models.Report
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := activeActor(ctx, tx, reporterID); err != nil {
			return err
		}
		switch in.SubjectType {
		case models.ReportSubjectUser:
			if _, err := tx.Membership().GetUser(ctx, in.SubjectID); err != nil {
				return err
			}
		case models.ReportSubjectClan:
			if _, err := tx.Clans().GetByID(ctx, in.SubjectID); err != nil {
				return err
			}
		default:
			return models.NewValidationError("subject_type must be user or clan")
		}
		report = &models.Report{
			SubjectType:  in.SubjectType,
			SubjectID:    in.SubjectID,
			ReportedByID: reporterID,
			Reason:       strings.TrimSpace(in.Reason),
		}
		return tx.Reports().Create(ctx, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Dismiss resolves an open report. Reports are never reopened.
func (s *ReportService) Dismiss(ctx context.Context, actorID, reportID uint) (_ *models.Report, err error) {
	ctx, done := track(ctx, "report", "dismiss", actorID)
	defer func() { done(err, slog.Uint64("report_id", uint64(reportID))) }()

	dismissed := models.NewInvalidStateError(models.ReasonAlreadyDismissed, "Report was already dismissed")
	var report *models.Report
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if _, err := siteStaff(ctx, tx, actorID, models.SiteRoleModerator); err != nil {
			return err
		}
		current, err := tx.Reports().GetByID(ctx, reportID)
		if err != nil {
			return err
		}
		if current.Resolved {
			return dismissed
		}
		if err := tx.Reports().Dismiss(ctx, current.ID, actorID, s.now()); err != nil {
			return staleAs(err, dismissed)
		}
		report, err = tx.Reports().GetByID(ctx, current.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListOpen returns unresolved reports for site staff.
func (s *ReportService) ListOpen(ctx context.Context, actorID uint, limit, offset int) ([]models.Report, error) {
	if _, err := siteStaff(ctx, s.store, actorID, models.SiteRoleModerator); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.store.Reports().ListOpen(ctx, limit, offset)
}
