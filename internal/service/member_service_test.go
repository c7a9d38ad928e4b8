package service

import (
	"context"
	"testing"

	"clanhub/internal/models"
	"clanhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMember_Leave(t *testing.T) {
	store, db := newStore(t)
	svc := NewMemberService(store)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, models.SiteRoleUser)
	member := testutil.CreateUser(t, db, models.SiteRoleUser)
	clan := testutil.CreateClan(t, db, owner, testutil.WithMemberCount(2))
	testutil.AddMember(t, db, member, clan, models.ClanRoleMember)

	err := svc.Leave(ctx, owner.ID, clan.ID)
	requireAppError(t, err, models.CodeInvalidState, models.ReasonOwnerMustTransfer)

	require.NoError(t, svc.Leave(ctx, member.ID, clan.ID))
	assert.Nil(t, memberOf(t, db, member.ID, clan.ID))
	assert.Equal(t, 1, testutil.Reload(t, db, clan).MemberCount)

	err = svc.Leave(ctx, member.ID, clan.ID)
	requireAppError(t, err, models.CodeNotFound, "")
}

func TestMember_LeaveWithDriftedCount(t *testing.T) {
	store, db := newStore(t)
	svc := NewMemberService(store)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, models.SiteRoleUser)
	member := testutil.CreateUser(t, db, models.SiteRoleUser)
	clan := testutil.CreateClan(t, db, owner, testutil.WithMemberCount(2))
	testutil.AddMember(t, db, member, clan, models.ClanRoleMember)
	require.NoError(t, db.Model(clan).Update("member_count", 0).Error)

	err := svc.Leave(ctx, member.ID, clan.ID)
	requireAppError(t, err, models.CodeInvalidState, models.ReasonInvalidTransition)
	// the delete rolls back with the failed counter update
	assert.NotNil(t, memberOf(t, db, member.ID, clan.ID))
	assert.Zero(t, testutil.Reload(t, db, clan).MemberCount)
}

func TestMember_Kick(t *testing.T) {
	store, db := newStore(t)
	svc := NewMemberService(store)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, models.SiteRoleUser)
	mod := testutil.CreateUser(t, db, models.SiteRoleUser)
	otherMod := testutil.CreateUser(t, db, models.SiteRoleUser)
	member := testutil.CreateUser(t, db, models.SiteRoleUser)
	banned := testutil.CreateUser(t, db, models.SiteRoleUser)
	clan := testutil.CreateClan(t, db, owner, testutil.WithMemberCount(5))
	testutil.AddMember(t, db, mod, clan, models.ClanRoleModerator)
	testutil.AddMember(t, db, otherMod, clan, models.ClanRoleModerator)
	testutil.AddMember(t, db, member, clan, models.ClanRoleMember)
	bm := testutil.AddMember(t, db, banned, clan, models.ClanRoleMember)
	require.NoError(t, db.Model(bm).Update("banned", true).Error)

	_, err := svc.Kick(ctx, mod.ID, clan.ID, otherMod.ID)
	requireAppError(t, err, models.CodePermissionDenied, "")
	_, err = svc.Kick(ctx, member.ID, clan.ID, banned.ID)
	requireAppError(t, err, models.CodePermissionDenied, "")
	_, err = svc.Kick(ctx, mod.ID, clan.ID, mod.ID)
	requireAppError(t, err, models.CodeSelfTargetingForbidden, "")
	_, err = svc.Kick(ctx, mod.ID, clan.ID, banned.ID)
	requireAppError(t, err, models.CodeInvalidState, models.ReasonMemberBanned)

	kicked, err := svc.Kick(ctx, mod.ID, clan.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, kicked.UserID)
	assert.Nil(t, memberOf(t, db, member.ID, clan.ID))
	assert.Equal(t, 4, testutil.Reload(t, db, clan).MemberCount)

	members, err := svc.ListMembers(ctx, clan.ID)
	require.NoError(t, err)
	assert.Len(t, members, 4)
}
