package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"clanhub/internal/middleware"

	"gorm.io/gorm"
)

// migrationLockKey is the postgres advisory lock held while a migration
// runs, so replicas starting together apply each script once.
const migrationLockKey = 0x636c616e

// SchemaMigration records one applied migration.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for SchemaMigration.
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

// MigrationStore reads the applied migration versions.
type MigrationStore interface {
	GetAppliedMigrations(ctx context.Context) ([]int, error)
}

type migrationStore struct {
	db *gorm.DB
}

// NewMigrationStore creates a MigrationStore over db.
func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &migrationStore{db: db}
}

func (s *migrationStore) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	var versions []int
	err := s.db.WithContext(ctx).Model(&SchemaMigration{}).Order("version ASC").Pluck("version", &versions).Error
	if err != nil {
		if isMissingTableError(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	return versions, nil
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

// pendingMigrations returns registered migrations absent from applied. A
// version in applied that no registered migration carries is an error: the
// database was migrated by a newer build.
func pendingMigrations(applied []int, registered []Migration) ([]Migration, error) {
	var unknown []string
	for _, v := range applied {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == v }) {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("schema_migrations has versions this build does not know: %s", strings.Join(unknown, ", "))
	}

	var pending []Migration
	for _, m := range registered {
		if !slices.Contains(applied, m.Version) {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

func lockMigrations(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockKey).Error
}

// RunMigrations applies every pending migration, each in its own transaction
// together with its schema_migrations row.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	pending, err := pendingMigrations(applied, migrations)
	if err != nil {
		return err
	}

	for _, m := range pending {
		start := time.Now()
		skipped := false
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := lockMigrations(tx); err != nil {
				return err
			}
			// another runner may have applied it while we waited on the lock
			var done int64
			if err := tx.Model(&SchemaMigration{}).Where("version = ?", m.Version).Count(&done).Error; err != nil {
				return err
			}
			if done > 0 {
				skipped = true
				return nil
			}
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: m.Version, Name: m.Name}).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.String(), err)
		}
		if skipped {
			continue
		}
		middleware.Logger.Info("migration applied",
			slog.String("migration", m.String()),
			slog.Duration("took", time.Since(start)))
	}
	return nil
}

// RollbackMigration runs the down script of an applied migration and forgets it.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMigrations(tx); err != nil {
			return err
		}
		res := tx.Where("version = ?", version).Delete(&SchemaMigration{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("migration %s has not been applied", m.String())
		}
		return tx.Exec(m.DownScript).Error
	})
	if err != nil {
		return fmt.Errorf("rollback %s: %w", m.String(), err)
	}
	middleware.Logger.Info("migration rolled back", slog.String("migration", m.String()))
	return nil
}
