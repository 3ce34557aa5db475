// Package server contains the HTTP handlers and page rendering for the blog.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"blogicum/internal/cache"
	"blogicum/internal/config"
	"blogicum/internal/database"
	"blogicum/internal/middleware"
	"blogicum/internal/repository"
	"blogicum/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	sessions        *middleware.Sessions
	userRepo        repository.UserRepository
	feedService     *service.FeedService
	postService     *service.PostService
	commentService  *service.CommentService
	userService     *service.UserService
	categoryService *service.CategoryService
	imageService    *service.ImageService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: caching, revocation and rate limits then degrade
// to no-ops.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	locationRepo := repository.NewLocationRepository(db)

	prom := middleware.InitMetrics("blogicum")
	imageService := service.NewImageService(cfg)

	server := &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		promMiddleware:  prom,
		sessions:        middleware.NewSessions(cfg.JWTSecret, cfg.SessionTTL(), cfg.CookieSecure, redisClient),
		userRepo:        userRepo,
		feedService:     service.NewFeedService(postRepo, categoryRepo, userRepo, cfg.FeedPageSize),
		postService:     service.NewPostService(postRepo, categoryRepo, locationRepo, imageService, cfg.Location()),
		commentService:  service.NewCommentService(commentRepo, postRepo),
		userService:     service.NewUserService(userRepo),
		categoryService: service.NewCategoryService(categoryRepo, locationRepo),
		imageService:    imageService,
	}
	return server, nil
}

// NewApp builds a Fiber app with the page renderer and error pages wired in,
// but without middleware or routes.
func (s *Server) NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "Blogicum",
		Immutable:    true, // params outlive the handler in span attributes
		Views:        newViews(s.config.Location()),
		ViewsLayout:  baseLayout,
		ErrorHandler: s.ErrorHandler,
		BodyLimit:    (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024,
	})
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	// Session and user resolution must precede the context middleware so
	// user_id reaches the logger.
	app.Use(middleware.LoadSession(s.sessions))
	app.Use(s.LoadViewer())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.StructuredLogger())

	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:" + csrfField,
		CookieName:     "blogicum_csrf",
		CookieSameSite: "Lax",
		CookieSecure:   s.config.CookieSecure,
		CookieHTTPOnly: true,
		Expiration:     12 * time.Hour,
		ContextKey:     csrfField,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics"
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", middleware.LoginRequired, s.SuperuserRequired(), monitor.New(monitor.Config{
		Title: "Blogicum Metrics Dashboard",
	}))

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   staticFS(),
		MaxAge: 3600,
	}))
	app.Use("/media", filesystem.New(filesystem.Config{
		Root:   http.Dir(s.imageService.MediaDir()),
		MaxAge: 86400,
	}))

	app.Get("/", s.Index)
	app.Get("/category/:slug/", s.CategoryPosts)
	app.Get("/profile/:username/", s.Profile)

	// Specific /posts routes before the generic /posts/:id
	app.Get("/posts/create/", middleware.LoginRequired, s.CreatePostForm)
	app.Post("/posts/create/", middleware.LoginRequired, middleware.RateLimit(
		s.redis, s.config.Env, 5, 5*time.Minute, "create_post"), s.CreatePost)
	app.Get("/posts/:id/edit/", middleware.LoginRequired, s.EditPostForm)
	app.Post("/posts/:id/edit/", middleware.LoginRequired, s.EditPost)
	app.Get("/posts/:id/delete/", middleware.LoginRequired, s.DeletePostConfirm)
	app.Post("/posts/:id/delete/", middleware.LoginRequired, s.DeletePost)
	app.Post("/posts/:id/comment/", middleware.LoginRequired, middleware.RateLimit(
		s.redis, s.config.Env, 10, time.Minute, "create_comment"), s.AddComment)
	app.Get("/posts/:id/edit_comment/:cid/", middleware.LoginRequired, s.EditCommentForm)
	app.Post("/posts/:id/edit_comment/:cid/", middleware.LoginRequired, s.EditComment)
	app.Get("/posts/:id/delete_comment/:cid/", middleware.LoginRequired, s.DeleteCommentConfirm)
	app.Post("/posts/:id/delete_comment/:cid/", middleware.LoginRequired, s.DeleteComment)
	app.Get("/posts/:id/", s.PostDetail)

	app.Get("/edit_profile/", middleware.LoginRequired, s.EditProfileForm)
	app.Post("/edit_profile/", middleware.LoginRequired, s.EditProfile)
	app.Get("/password_change/done/", middleware.LoginRequired, s.PasswordChangeDone)
	app.Get("/password_change/", middleware.LoginRequired, s.PasswordChangeForm)
	app.Post("/password_change/", middleware.LoginRequired, s.PasswordChange)

	auth := app.Group("/auth")
	auth.Get("/registration/", s.RegistrationForm)
	auth.Post("/registration/", middleware.RateLimit(
		s.redis, s.config.Env, 3, 10*time.Minute, "registration"), s.Registration)
	auth.Get("/login/", s.LoginForm)
	auth.Post("/login/", middleware.RateLimit(
		s.redis, s.config.Env, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout/", s.Logout)

	pages := app.Group("/pages")
	pages.Get("/about/", s.About)
	pages.Get("/rules/", s.Rules)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional for
// the blog, so only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.NewApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
