package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"clanhub/internal/config"
	"clanhub/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus is what `migrate status` prints.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// schemaPlan says which schema steps a start-up performs.
type schemaPlan struct {
	mode    string
	sql     bool
	auto    bool
	unsafe  bool // auto-migrate explicitly allowed against a prod-like database
	profile string
}

var prodLikeEnvs = []string{"production", "prod", "staging", "stage"}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{
		mode:    strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		profile: cfg.Env,
	}
	if plan.mode == "" {
		plan.mode = SchemaModeHybrid
	}
	prodLike := slices.Contains(prodLikeEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))

	switch plan.mode {
	case SchemaModeSQL:
		plan.sql = true
	case SchemaModeHybrid:
		// AutoMigrate in hybrid mode only fills gaps during development.
		plan.sql, plan.auto = true, !prodLike
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.auto = true
		plan.unsafe = prodLike
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.mode)
	}
	return plan, nil
}

// invariantIndexes back the at-most-one rules of the workflows. Partial
// indexes are understood by both postgres and sqlite.
var invariantIndexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_join_requests_one_active ON clan_join_requests (user_id, clan_id) WHERE status = 'submitted'",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_ban_appeals_one_active ON ban_appeals (ban_kind, ban_id) WHERE status IN ('submitted', 'in_review')",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_clan_members_one_creator ON clan_members (clan_id) WHERE role = 'creator'",
}

// AutoMigrate creates or updates every persistent table and the invariant indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return err
	}
	for _, stmt := range invariantIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create invariant index: %w", err)
		}
	}
	return nil
}

// ApplySchema brings the database up to date according to DB_SCHEMA_MODE.
// SQL migrations always run before AutoMigrate.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.auto {
		return nil
	}

	if plan.unsafe {
		middleware.Logger.Warn("auto-migrating a production-like database",
			slog.String("env", plan.profile))
	}
	middleware.Logger.Info("running gorm automigrate", slog.String("mode", plan.mode), slog.String("env", plan.profile))
	if err := AutoMigrate(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the schema plan and, when SQL migrations are in
// play, which versions are applied and pending.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.mode,
		Environment:        plan.profile,
		WillRunSQL:         plan.sql,
		WillRunAutoMigrate: plan.auto,
	}
	if !plan.sql {
		return status, nil
	}

	if status.AppliedVersions, err = NewMigrationStore(db).GetAppliedMigrations(ctx); err != nil {
		return nil, err
	}
	if status.PendingMigrations, err = pendingMigrations(status.AppliedVersions, GetMigrations()); err != nil {
		return nil, err
	}
	return status, nil
}
