package service

import (
	"context"
	"testing"

	"clanhub/internal/models"
	"clanhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_ReportAndDismiss(t *testing.T) {
	store, db := newStore(t)
	svc := NewReportService(store)
	ctx := context.Background()

	reporter := testutil.CreateUser(t, db, models.SiteRoleUser)
	subject := testutil.CreateUser(t, db, models.SiteRoleUser)
	staff := testutil.CreateUser(t, db, models.SiteRoleModerator)

	report, err := svc.Report(ctx, reporter.ID, ReportInput{SubjectType: models.ReportSubjectUser, SubjectID: subject.ID, Reason: "spamming invite links"})
	require.NoError(t, err)
	assert.False(t, report.Resolved)

	_, err = svc.Dismiss(ctx, reporter.ID, report.ID)
	requireAppError(t, err, models.CodePermissionDenied, "")

	open, err := svc.ListOpen(ctx, staff.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	dismissed, err := svc.Dismiss(ctx, staff.ID, report.ID)
	require.NoError(t, err)
	assert.True(t, dismissed.Resolved)
	require.NotNil(t, dismissed.ResolvedByUserID)
	assert.Equal(t, staff.ID, *dismissed.ResolvedByUserID)

	_, err = svc.Dismiss(ctx, staff.ID, report.ID)
	requireAppError(t, err, models.CodeInvalidState, models.ReasonAlreadyDismissed)

	open, err = svc.ListOpen(ctx, staff.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestReport_Guards(t *testing.T) {
	store, db := newStore(t)
	svc := NewReportService(store)
	ctx := context.Background()

	reporter := testutil.CreateUser(t, db, models.SiteRoleUser)
	clan := testutil.CreateClan(t, db, reporter)

	_, err := svc.Report(ctx, reporter.ID, ReportInput{SubjectType: models.ReportSubjectUser, SubjectID: reporter.ID, Reason: "reporting myself"})
	requireAppError(t, err, models.CodeSelfTargetingForbidden, models.ReasonCannotReportSelf)

	_, err = svc.Report(ctx, reporter.ID, ReportInput{SubjectType: models.ReportSubjectUser, SubjectID: 31337, Reason: "ghost account"})
	requireAppError(t, err, models.CodeNotFound, "")

	_, err = svc.Report(ctx, reporter.ID, ReportInput{SubjectType: "post", SubjectID: 1, Reason: "off topic post"})
	requireAppError(t, err, models.CodeValidation, "")

	_, err = svc.Report(ctx, reporter.ID, ReportInput{SubjectType: models.ReportSubjectClan, SubjectID: clan.ID, Reason: "bad"})
	requireAppError(t, err, models.CodeValidation, "")

	// reporting one's own clan is allowed
	_, err = svc.Report(ctx, reporter.ID, ReportInput{SubjectType: models.ReportSubjectClan, SubjectID: clan.ID, Reason: "taken over by raiders"})
	assert.NoError(t, err)
}
