//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"clanhub/internal/database"
	"clanhub/internal/models"
	"clanhub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("clanhub_test"),
		postgres.WithUsername("clanhub"),
		postgres.WithPassword("clanhub"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(ctx, db))
	return db
}

func TestPostgres_SingleActiveIndexes(t *testing.T) {
	db := setupPostgres(t)
	store := repository.NewStore(db)
	ctx := context.Background()

	owner := &models.User{Username: "owner", DiscordID: "1001"}
	user := &models.User{Username: "applicant", DiscordID: "1002"}
	require.NoError(t, store.Membership().CreateUser(ctx, owner))
	require.NoError(t, store.Membership().CreateUser(ctx, user))

	clan := &models.Clan{Name: "Lantern", OwnerUserID: owner.ID, Visibility: models.ClanVisibilityVisible, ApplicationStatus: models.ApplicationStatusNone, MemberCount: 1}
	require.NoError(t, store.Clans().Create(ctx, clan))
	require.NoError(t, store.Membership().CreateMember(ctx, &models.ClanMember{UserID: owner.ID, ClanID: clan.ID, Role: models.ClanRoleCreator}))

	second := &models.ClanMember{UserID: user.ID, ClanID: clan.ID, Role: models.ClanRoleCreator}
	assert.True(t, models.HasCode(store.Membership().CreateMember(ctx, second), models.CodeConflict))

	req := &models.ClanJoinRequest{UserID: user.ID, ClanID: clan.ID, Status: models.JoinRequestStatusSubmitted, AllowAnotherApplication: true}
	require.NoError(t, store.JoinRequests().Create(ctx, req))
	dup := &models.ClanJoinRequest{UserID: user.ID, ClanID: clan.ID, Status: models.JoinRequestStatusSubmitted, AllowAnotherApplication: true}
	assert.True(t, models.HasCode(store.JoinRequests().Create(ctx, dup), models.CodeConflict))
}

func TestPostgres_RowLockSerializesAccept(t *testing.T) {
	db := setupPostgres(t)
	store := repository.NewStore(db)
	ctx := context.Background()

	owner := &models.User{Username: "owner", DiscordID: "2001"}
	require.NoError(t, store.Membership().CreateUser(ctx, owner))
	clan := &models.Clan{Name: "Harbor", OwnerUserID: owner.ID, Visibility: models.ClanVisibilityVisible, ApplicationStatus: models.ApplicationStatusNone}
	require.NoError(t, store.Clans().Create(ctx, clan))

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			errs <- store.WithTransaction(ctx, func(tx repository.Store) error {
				if _, err := tx.Clans().GetForUpdate(ctx, clan.ID); err != nil {
					return err
				}
				return tx.Clans().AdjustMemberCount(ctx, clan.ID, 1)
			})
		}()
	}
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	fresh, err := store.Clans().GetByID(ctx, clan.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.MemberCount)
}
