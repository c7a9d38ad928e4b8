package service

import (
	"context"
	"testing"

	"clanhub/internal/models"
	"clanhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfer_KeepsExactlyOneCreator(t *testing.T) {
	store, db := newStore(t)
	svc := NewOwnershipService(store)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, models.SiteRoleUser)
	heir := testutil.CreateUser(t, db, models.SiteRoleUser)
	clan := testutil.CreateClan(t, db, owner)
	testutil.AddMember(t, db, heir, clan, models.ClanRoleMember)
	require.Equal(t, int64(1), countCreators(t, db, clan.ID))

	out, err := svc.Transfer(ctx, owner.ID, clan.ID, heir.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), countCreators(t, db, clan.ID))
	assert.Equal(t, heir.ID, out.Clan.OwnerUserID)
	assert.Equal(t, heir.ID, testutil.Reload(t, db, clan).OwnerUserID)
	assert.Equal(t, models.ClanRoleCreator, out.NewOwner.Role)
	assert.Equal(t, models.ClanRoleAdministrator, out.PreviousOwner.Role)
	assert.Equal(t, models.ClanRoleCreator, memberOf(t, db, heir.ID, clan.ID).Role)

	// the former owner no longer holds the capability
	_, err = svc.Transfer(ctx, owner.ID, clan.ID, heir.ID)
	requireAppError(t, err, models.CodePermissionDenied, models.ReasonNotOwner)
}

func TestTransfer_FailsWithoutPartialState(t *testing.T) {
	store, db := newStore(t)
	svc := NewOwnershipService(store)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, models.SiteRoleUser)
	outsider := testutil.CreateUser(t, db, models.SiteRoleUser)
	banned := testutil.CreateUser(t, db, models.SiteRoleUser)
	platformBanned := testutil.CreateUser(t, db, models.SiteRoleUser)
	clan := testutil.CreateClan(t, db, owner)
	m := testutil.AddMember(t, db, banned, clan, models.ClanRoleModerator)
	require.NoError(t, db.Model(m).Update("banned", true).Error)
	testutil.AddMember(t, db, platformBanned, clan, models.ClanRoleMember)
	require.NoError(t, db.Model(platformBanned).Update("platform_banned", true).Error)

	_, err := svc.Transfer(ctx, owner.ID, clan.ID, outsider.ID)
	requireAppError(t, err, models.CodeNotFound, "")
	_, err = svc.Transfer(ctx, owner.ID, clan.ID, banned.ID)
	requireAppError(t, err, models.CodeInvalidState, models.ReasonMemberBanned)
	_, err = svc.Transfer(ctx, owner.ID, clan.ID, platformBanned.ID)
	requireAppError(t, err, models.CodeInvalidState, models.ReasonMemberBanned)
	_, err = svc.Transfer(ctx, owner.ID, clan.ID, owner.ID)
	requireAppError(t, err, models.CodeSelfTargetingForbidden, "")
	_, err = svc.Transfer(ctx, banned.ID, clan.ID, owner.ID)
	requireAppError(t, err, models.CodePermissionDenied, models.ReasonNotOwner)

	assert.Equal(t, owner.ID, testutil.Reload(t, db, clan).OwnerUserID)
	assert.Equal(t, models.ClanRoleCreator, memberOf(t, db, owner.ID, clan.ID).Role)
	assert.Equal(t, int64(1), countCreators(t, db, clan.ID))
}
