package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"blogicum/internal/cache"
	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/repository"
	"blogicum/internal/seed"
	"blogicum/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// LoadFixtures upserts the built-in categories and locations.
	LoadFixtures bool
}

// InitRuntime connects to DB and Redis and optionally loads the built-in
// taxonomy.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevSuperuser(context.Background(), cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development superuser: %w", err)
	}

	if opts.LoadFixtures {
		set, err := seed.BuiltInFixtures()
		if err != nil {
			return nil, nil, err
		}
		if _, _, err := seed.LoadFixtures(db, set); err != nil {
			return nil, nil, fmt.Errorf("failed to load built-in fixtures: %w", err)
		}
	}

	return db, r, nil
}

// ensureDevSuperuser creates or promotes the development superuser when
// DEV_BOOTSTRAP_ROOT is on. Other environments are left untouched.
func ensureDevSuperuser(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@blogicum.local"
	}
	if cfg.DevRootPassword == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	users := repository.NewUserRepository(db)
	existing, err := users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if !existing.IsSuperuser {
			if err := db.WithContext(ctx).Model(&models.User{}).
				Where("id = ?", existing.ID).
				Update("is_superuser", true).Error; err != nil {
				return err
			}
			cache.InvalidateUser(ctx, existing.ID)
		}
	case models.IsNotFound(err):
		if _, err := service.NewUserService(users).CreateSuperuser(ctx, username, email, cfg.DevRootPassword); err != nil {
			return err
		}
	default:
		return err
	}

	middleware.Logger.Info("development superuser ensured", slog.String("username", username))
	return nil
}
