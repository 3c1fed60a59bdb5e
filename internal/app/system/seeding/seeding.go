// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"
	"errors"

	"github.com/dalemusser/stratafolio/internal/app/store/profiles"
	userstore "github.com/dalemusser/stratafolio/internal/app/store/users"
	"github.com/dalemusser/stratafolio/internal/app/system/authutil"
	"github.com/dalemusser/stratafolio/internal/app/system/status"
	"github.com/dalemusser/stratafolio/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Config carries the credentials for the bootstrap superuser account.
// When Username or Password is empty, superuser seeding is skipped.
type Config struct {
	AdminUsername string
	AdminPassword string
	AdminEmail    string
}

// SeedAll seeds default data if not already present.
func SeedAll(ctx context.Context, db *mongo.Database, cfg Config, logger *zap.Logger) error {
	if err := seedSuperuser(ctx, db, cfg, logger); err != nil {
		return err
	}
	return nil
}

// seedSuperuser creates the initial superuser account when no active
// superuser exists. This lets a fresh deployment sign in to the admin
// console without shell access to the database.
func seedSuperuser(ctx context.Context, db *mongo.Database, cfg Config, logger *zap.Logger) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		logger.Info("no admin credentials configured, skipping superuser seeding")
		return nil
	}

	store := userstore.New(db)

	count, err := store.CountActiveSuperusers(ctx)
	if err != nil {
		logger.Error("failed to count superusers", zap.Error(err))
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := authutil.HashPassword(cfg.AdminPassword)
	if err != nil {
		logger.Error("failed to hash admin password", zap.Error(err))
		return err
	}

	user := models.User{
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         models.RoleSuperuser,
		Status:       status.Active,
	}

	created, err := store.Create(ctx, user)
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateUsername) {
			logger.Info("admin username already exists, skipping superuser seeding",
				zap.String("username", cfg.AdminUsername))
			return nil
		}
		logger.Error("failed to seed superuser",
			zap.String("username", cfg.AdminUsername),
			zap.Error(err))
		return err
	}

	// Every account carries a profile; seeding bypasses the normal
	// account-creation path, so create it here.
	if _, err := profiles.New(db).EnsureForUser(ctx, created.ID); err != nil {
		logger.Error("failed to create profile for seeded superuser",
			zap.String("user_id", created.ID.Hex()),
			zap.Error(err))
		return err
	}

	logger.Info("seeded initial superuser",
		zap.String("username", created.Username),
		zap.String("user_id", created.ID.Hex()))
	return nil
}
