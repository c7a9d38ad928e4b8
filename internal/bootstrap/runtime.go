// Package bootstrap wires the process-wide runtime shared by the server and the tooling binaries.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"clanhub/internal/cache"
	"clanhub/internal/config"
	"clanhub/internal/database"
	"clanhub/internal/middleware"
	"clanhub/internal/models"
	"clanhub/internal/observability"
	"clanhub/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedFixtures loads the built-in fixture file after connecting.
	SeedFixtures bool
}

// InitRuntime connects to DB and Redis and optionally loads the built-in fixtures.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := observability.RegisterGormMetrics(db); err != nil {
		return nil, nil, fmt.Errorf("register query metrics: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDevRoot(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root: %w", err)
	}

	if opts.SeedFixtures {
		if err := seed.LoadBuiltIn(db); err != nil {
			return nil, nil, fmt.Errorf("failed to load built-in fixtures: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevRoot creates or promotes the development root account to the
// Developer site role. It is a no-op outside development or unless enabled.
func EnsureDevRoot(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "clanhub_root"
	}

	var root models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		findErr := tx.Where("username = ?", username).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{Username: username, DiscordID: strings.TrimSpace(cfg.DevRootDiscordID)}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		}

		if root.PlatformBanned {
			if err := tx.Model(&root).Update("platform_banned", false).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", root.ID).Delete(&models.UserBan{}).Error; err != nil {
				return err
			}
		}

		assignment := models.SiteStaffAssignment{UserID: root.ID, Role: models.SiteRoleDeveloper}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).Create(&assignment).Error
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development root ensured",
		slog.Uint64("user_id", uint64(root.ID)),
		slog.String("username", username))
	return nil
}
