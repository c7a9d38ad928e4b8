package service

import (
	"context"
	"testing"
	"time"

	"clanhub/internal/models"
	"clanhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const statement = "I understand the rules now and will follow them."

type appealFixture struct {
	db      *gorm.DB
	bans    *BanService
	appeals *AppealService
	staff   *models.User
	target  *models.User
	ban     *models.UserBan
}

// newAppealFixture bans a user with an appeal date one day out and sets the
// appeal clock past it.
func newAppealFixture(t *testing.T) *appealFixture {
	t.Helper()
	store, db := newStore(t)
	f := &appealFixture{
		db:      db,
		bans:    NewBanService(store),
		appeals: NewAppealService(store),
		staff:   testutil.CreateUser(t, db, models.SiteRoleModerator),
		target:  testutil.CreateUser(t, db, models.SiteRoleUser),
	}
	now := time.Now()
	ban, err := f.bans.BanUser(context.Background(), f.staff.ID, f.target.ID, appealableTerms(now))
	require.NoError(t, err)
	f.ban = ban
	f.appeals.now = fixedClock(now.Add(48 * time.Hour))
	return f
}

func (f *appealFixture) submit(ctx context.Context) (*models.BanAppeal, error) {
	return f.appeals.Submit(ctx, f.target.ID, AppealInput{BanKind: models.BanKindUser, BanID: f.ban.ID, Statement: statement})
}

func TestAppeal_WindowAndPermanence(t *testing.T) {
	f := newAppealFixture(t)
	ctx := context.Background()

	f.appeals.now = time.Now
	_, err := f.submit(ctx)
	requireAppError(t, err, models.CodeInvalidState, models.ReasonAppealWindowClosed)

	other := testutil.CreateUser(t, f.db, models.SiteRoleUser)
	permanent, err := f.bans.BanUser(ctx, f.staff.ID, other.ID, BanInput{Justification: "selling stolen accounts", Permanent: true})
	require.NoError(t, err)
	_, err = f.appeals.Submit(ctx, other.ID, AppealInput{BanKind: models.BanKindUser, BanID: permanent.ID, Statement: statement})
	requireAppError(t, err, models.CodeInvalidState, models.ReasonPermanentBan)
}

func TestAppeal_SingleActiveAppeal(t *testing.T) {
	f := newAppealFixture(t)
	ctx := context.Background()

	appeal, err := f.submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AppealStatusSubmitted, appeal.Status)

	_, err = f.submit(ctx)
	requireAppError(t, err, models.CodeConflict, models.ReasonAppealPending)

	reviewing, err := f.appeals.StartReview(ctx, f.staff.ID, appeal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AppealStatusInReview, reviewing.Status)

	_, err = f.submit(ctx)
	requireAppError(t, err, models.CodeConflict, models.ReasonAppealPending)
	_, err = f.appeals.StartReview(ctx, f.staff.ID, appeal.ID)
	requireAppError(t, err, models.CodeInvalidState, models.ReasonInvalidAppealStatus)
}

func TestAppeal_ApproveLiftsBan(t *testing.T) {
	f := newAppealFixture(t)
	ctx := context.Background()

	appeal, err := f.submit(ctx)
	require.NoError(t, err)

	approved, err := f.appeals.Approve(ctx, f.staff.ID, appeal.ID, "welcome back")
	require.NoError(t, err)
	assert.Equal(t, models.AppealStatusApproved, approved.Status)
	assert.Equal(t, "welcome back", approved.ReviewerComment)
	require.NotNil(t, approved.ReviewedByUserID)
	assert.Equal(t, f.staff.ID, *approved.ReviewedByUserID)

	assert.False(t, reloadUser(t, f.db, f.target.ID).PlatformBanned)
	var bans int64
	require.NoError(t, f.db.Model(&models.UserBan{}).Where("id = ?", f.ban.ID).Count(&bans).Error)
	assert.Zero(t, bans)

	_, err = f.appeals.Deny(ctx, f.staff.ID, appeal.ID, true, "")
	requireAppError(t, err, models.CodeInvalidState, models.ReasonInvalidAppealStatus)
}

func TestAppeal_DenyBlocksUntilUnblocked(t *testing.T) {
	f := newAppealFixture(t)
	ctx := context.Background()

	appeal, err := f.submit(ctx)
	require.NoError(t, err)
	denied, err := f.appeals.Deny(ctx, f.staff.ID, appeal.ID, false, "no")
	require.NoError(t, err)
	assert.False(t, denied.AllowAnotherAppeal)
	assert.True(t, reloadUser(t, f.db, f.target.ID).PlatformBanned)

	_, err = f.submit(ctx)
	requireAppError(t, err, models.CodePermissionDenied, models.ReasonAppealBlocked)

	_, err = f.appeals.Unblock(ctx, f.staff.ID, appeal.ID)
	require.NoError(t, err)
	_, err = f.appeals.Unblock(ctx, f.staff.ID, appeal.ID)
	requireAppError(t, err, models.CodeInvalidState, models.ReasonInvalidAppealStatus)

	_, err = f.submit(ctx)
	assert.NoError(t, err)
}

func TestAppeal_DenyAllowingAnother(t *testing.T) {
	f := newAppealFixture(t)
	ctx := context.Background()

	appeal, err := f.submit(ctx)
	require.NoError(t, err)
	_, err = f.appeals.Deny(ctx, f.staff.ID, appeal.ID, true, "")
	require.NoError(t, err)
	_, err = f.submit(ctx)
	assert.NoError(t, err)
}

func TestAppeal_WhoMayActOnAppeals(t *testing.T) {
	f := newAppealFixture(t)
	ctx := context.Background()

	stranger := testutil.CreateUser(t, f.db, models.SiteRoleUser)
	_, err := f.appeals.Submit(ctx, stranger.ID, AppealInput{BanKind: models.BanKindUser, BanID: f.ban.ID, Statement: statement})
	requireAppError(t, err, models.CodePermissionDenied, "")

	_, err = f.appeals.Submit(ctx, f.target.ID, AppealInput{BanKind: models.BanKindMember, BanID: 1, Statement: statement})
	requireAppError(t, err, models.CodeValidation, "")
	_, err = f.appeals.Submit(ctx, f.target.ID, AppealInput{BanKind: models.BanKindUser, BanID: f.ban.ID, Statement: "sorry"})
	requireAppError(t, err, models.CodeValidation, "")

	appeal, err := f.submit(ctx)
	require.NoError(t, err)

	currator := testutil.CreateUser(t, f.db, models.SiteRoleCurrator)
	_, err = f.appeals.Approve(ctx, currator.ID, appeal.ID, "")
	requireAppError(t, err, models.CodePermissionDenied, "")
	_, err = f.appeals.ListActive(ctx, currator.ID, 10, 0)
	requireAppError(t, err, models.CodePermissionDenied, "")

	active, err := f.appeals.ListActive(ctx, f.staff.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, appeal.ID, active[0].ID)
}

func TestAppeal_ClanBanByClanLeadership(t *testing.T) {
	store, db := newStore(t)
	bans := NewBanService(store)
	appeals := NewAppealService(store)
	ctx := context.Background()

	staff := testutil.CreateUser(t, db, models.SiteRoleModerator)
	owner := testutil.CreateUser(t, db, models.SiteRoleUser)
	member := testutil.CreateUser(t, db, models.SiteRoleUser)
	clan := testutil.CreateClan(t, db, owner)
	testutil.AddMember(t, db, member, clan, models.ClanRoleMember)

	now := time.Now()
	ban, err := bans.BanClan(ctx, staff.ID, clan.ID, appealableTerms(now))
	require.NoError(t, err)
	appeals.now = fixedClock(now.Add(48 * time.Hour))

	in := AppealInput{BanKind: models.BanKindClan, BanID: ban.ID, Statement: statement}
	_, err = appeals.Submit(ctx, member.ID, in)
	requireAppError(t, err, models.CodePermissionDenied, "")

	appeal, err := appeals.Submit(ctx, owner.ID, in)
	require.NoError(t, err)
	require.NotNil(t, appeal.ClanID)
	assert.Equal(t, clan.ID, *appeal.ClanID)

	_, err = appeals.Approve(ctx, staff.ID, appeal.ID, "")
	require.NoError(t, err)
	assert.False(t, testutil.Reload(t, db, clan).Banned)
}
