package main

import (
	"fmt"
	"io"
	"strconv"

	"blogicum/internal/cache"
	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/middleware"
	"blogicum/internal/repository"
	"blogicum/internal/service"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

// runtime bundles what the catalog commands need.
type runtime struct {
	cfg        *config.Config
	db         *gorm.DB
	users      *service.UserService
	categories *service.CategoryService
	posts      *service.PostService
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	middleware.ConfigureLogger(cfg.Env, io.Discard)
	return cfg, nil
}

// openRuntime connects with the usual schema policy applied and wires the
// services. Redis is optional; without it cache invalidation is skipped.
func openRuntime() (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	cache.InitRedis(cfg.RedisURL)
	return newRuntime(cfg, db), nil
}

func newRuntime(cfg *config.Config, db *gorm.DB) *runtime {
	users := repository.NewUserRepository(db)
	categories := repository.NewCategoryRepository(db)
	locations := repository.NewLocationRepository(db)
	posts := repository.NewPostRepository(db)

	return &runtime{
		cfg:        cfg,
		db:         db,
		users:      service.NewUserService(users),
		categories: service.NewCategoryService(categories, locations),
		posts:      service.NewPostService(posts, categories, locations, service.NewImageService(cfg), cfg.Location()),
	}
}

func (r *runtime) Close() {
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = cache.Close()
}

// withRuntime opens the runtime for the duration of fn.
func withRuntime(fn func(ctx *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(ctx, rt)
	}
}

// parseIDs reads positional arguments as positive ids.
func parseIDs(args cli.Args) ([]uint, error) {
	if args.Len() == 0 {
		return nil, fmt.Errorf("at least one id is required")
	}
	ids := make([]uint, 0, args.Len())
	for _, raw := range args.Slice() {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid id %q", raw)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
