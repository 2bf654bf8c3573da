// Package bootstrap wires the process-level dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"medfeed/internal/cache"
	"medfeed/internal/config"
	"medfeed/internal/database"
	"medfeed/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// Migrate applies pending SQL migrations after connecting.
	Migrate bool
	// SeedDemo fills an empty database with demo doctors and posts. Ignored in production.
	SeedDemo bool
}

// InitRuntime connects to DB and Redis and optionally migrates and seeds.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.Connect(ctx, cfg.RedisURL)

	if opts.Migrate {
		if err := database.RunMigrations(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if opts.SeedDemo && !cfg.IsProduction() {
		if err := seedIfEmpty(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB) error {
	var n int64
	if err := db.WithContext(ctx).Table("doctors").Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	log.Println("empty database, seeding demo data")
	_, err := seed.NewSeeder(db, 0).Seed(ctx, seed.Options{NumDoctors: 25, NumPosts: 80, MaxCommentsPerPost: 6})
	return err
}
