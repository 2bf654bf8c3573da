package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"medfeed/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog represents a record of an applied migration in the database.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// RunMigrations applies every pending embedded migration, each in its own transaction.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	all, err := Migrations()
	if err != nil {
		return err
	}
	return apply(ctx, db, all)
}

func apply(ctx context.Context, db *gorm.DB, all []Migration) error {
	if err := db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return fmt.Errorf("failed to ensure migration logs table: %w", err)
	}

	var applied []int
	if err := db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &applied).Error; err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}
	if err := validateAppliedVersions(applied, all); err != nil {
		return err
	}

	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	for _, m := range all {
		if done[m.Version] {
			continue
		}
		middleware.Logger.InfoContext(ctx, "Applying migration", slog.String("migration", m.String()))
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", m, err)
			}
			return tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// MigrationStatus lists applied versions and the embedded migrations still pending.
func MigrationStatus(ctx context.Context, db *gorm.DB) (applied []int, pending []Migration, err error) {
	all, err := Migrations()
	if err != nil {
		return nil, nil, err
	}
	if db.Migrator().HasTable(&MigrationLog{}) {
		if err := db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &applied).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to get applied migrations: %w", err)
		}
	}

	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}

// RollbackMigration reverts a specific applied migration by version number.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	all, err := Migrations()
	if err != nil {
		return err
	}

	var target *Migration
	for i := range all {
		if all[i].Version == version {
			target = &all[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("version = ?", version).Delete(&MigrationLog{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("migration %d has not been applied", version)
		}
		middleware.Logger.InfoContext(ctx, "Rolling back migration", slog.String("migration", target.String()))
		return tx.Exec(target.DownScript).Error
	})
}

func validateAppliedVersions(applied []int, registered []Migration) error {
	known := make(map[int]struct{}, len(registered))
	for _, m := range registered {
		known[m.Version] = struct{}{}
	}

	var unknown []int
	for _, version := range applied {
		if _, ok := known[version]; !ok {
			unknown = append(unknown, version)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Ints(unknown)
	parts := make([]string, 0, len(unknown))
	for _, version := range unknown {
		parts = append(parts, fmt.Sprintf("%06d", version))
	}
	return fmt.Errorf("migration_logs contains unknown versions not present in code: %s", strings.Join(parts, ", "))
}
