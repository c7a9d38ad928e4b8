package database

import (
	"context"
	"testing"
	"testing/fstest"

	"clanhub/internal/config"
	"clanhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestPlanSchema(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		runSQL  bool
		runAuto bool
		wantErr bool
	}{
		{"hybrid development", config.Config{Env: "development"}, true, true, false},
		{"hybrid production", config.Config{Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"sql only", config.Config{Env: "development", DBSchemaMode: "sql"}, true, false, false},
		{"auto in production refused", config.Config{Env: "prod", DBSchemaMode: "auto"}, false, false, true},
		{"auto in production allowed", config.Config{Env: "prod", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, false, true, false},
		{"unknown mode", config.Config{Env: "development", DBSchemaMode: "yolo"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planSchema(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.runSQL, plan.sql)
			assert.Equal(t, tt.runAuto, plan.auto)
		})
	}
}

func TestMigrationsRegistered(t *testing.T) {
	all := GetMigrations()
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "moderation_core", all[0].Name)
	assert.Contains(t, all[1].UpScript, "idx_join_requests_one_active")
	assert.NotEmpty(t, all[1].DownScript)
	assert.Equal(t, "000002_single_active_indexes", all[1].String())
}

func TestAutoMigrate_EnforcesSingleActiveJoinRequest(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))
	ctx := context.Background()

	user := models.User{Username: "alice"}
	require.NoError(t, db.WithContext(ctx).Create(&user).Error)
	clan := models.Clan{Name: "wolves", OwnerUserID: user.ID}
	require.NoError(t, db.WithContext(ctx).Create(&clan).Error)

	first := models.ClanJoinRequest{UserID: user.ID, ClanID: clan.ID, Status: models.JoinRequestStatusSubmitted}
	require.NoError(t, db.WithContext(ctx).Create(&first).Error)

	second := models.ClanJoinRequest{UserID: user.ID, ClanID: clan.ID, Status: models.JoinRequestStatusSubmitted}
	assert.Error(t, db.WithContext(ctx).Create(&second).Error)

	// history rows do not count against the active slot
	denied := models.ClanJoinRequest{UserID: user.ID, ClanID: clan.ID, Status: models.JoinRequestStatusDenied}
	assert.NoError(t, db.WithContext(ctx).Create(&denied).Error)
}

func TestAutoMigrate_EnforcesSingleCreator(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	owner := models.User{Username: "owner"}
	other := models.User{Username: "other"}
	require.NoError(t, db.Create(&owner).Error)
	require.NoError(t, db.Create(&other).Error)
	clan := models.Clan{Name: "ravens", OwnerUserID: owner.ID}
	require.NoError(t, db.Create(&clan).Error)

	require.NoError(t, db.Create(&models.ClanMember{UserID: owner.ID, ClanID: clan.ID, Role: models.ClanRoleCreator}).Error)
	assert.Error(t, db.Create(&models.ClanMember{UserID: other.ID, ClanID: clan.ID, Role: models.ClanRoleCreator}).Error)
}

func TestParseMigrationName(t *testing.T) {
	tests := []struct {
		file    string
		version int
		name    string
		ok      bool
		wantErr bool
	}{
		{"000002_single_active_indexes.up.sql", 2, "single_active_indexes", true, false},
		{"000002_single_active_indexes.down.sql", 0, "", false, false},
		{"README.md", 0, "", false, false},
		{"abc_core.up.sql", 0, "", false, true},
		{"000003.up.sql", 0, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			version, name, ok, err := parseMigrationName(tt.file)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestLoadMigrations(t *testing.T) {
	sql := &fstest.MapFile{Data: []byte("SELECT 1;")}

	loaded, err := loadMigrations(fstest.MapFS{
		"migrations/000002_b.up.sql":   sql,
		"migrations/000002_b.down.sql": sql,
		"migrations/000001_a.up.sql":   sql,
		"migrations/000001_a.down.sql": sql,
	})
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "000001_a", loaded[0].String())

	_, err = loadMigrations(fstest.MapFS{"migrations/000001_a.up.sql": sql})
	assert.ErrorContains(t, err, "no down script")

	_, err = loadMigrations(fstest.MapFS{
		"migrations/000001_a.up.sql":   sql,
		"migrations/000001_a.down.sql": sql,
		"migrations/000001_b.up.sql":   sql,
		"migrations/000001_b.down.sql": sql,
	})
	assert.ErrorContains(t, err, "used by both")
}

func TestPendingMigrations(t *testing.T) {
	registered := []Migration{{Version: 1, Name: "a"}, {Version: 2, Name: "b"}}

	pending, err := pendingMigrations([]int{1}, registered)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)

	pending, err = pendingMigrations(nil, registered)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = pendingMigrations([]int{1, 7}, registered)
	assert.ErrorContains(t, err, "000007")
}

func TestMigrationStore_MissingTableReadsAsEmpty(t *testing.T) {
	db := openSQLite(t)
	applied, err := NewMigrationStore(db).GetAppliedMigrations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
}
