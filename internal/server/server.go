// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"blogspace/internal/config"
	"blogspace/internal/featureflags"
	"blogspace/internal/middleware"
	"blogspace/internal/models"
	"blogspace/internal/notifications"
	"blogspace/internal/repository"
	"blogspace/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// profileProvisioner turns a verified identity into a local profile.
type profileProvisioner interface {
	EnsureProfile(ctx context.Context, id models.Identity) (*models.User, error)
}

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	shutdownCtx     context.Context
	shutdownFn      context.CancelFunc
	background      sync.WaitGroup
	featureFlags    *featureflags.Manager
	notifier        *notifications.Notifier
	profiles        profileProvisioner
	postService     *service.PostService
	likeService     *service.LikeService
	commentService  *service.CommentService
	userService     *service.UserService
	adminService    *service.AdminService
	categoryService *service.CategoryService
	reconciler      *service.Reconciler
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("blogspace-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		notifier:       notifications.NewNotifier(redisClient),
	}
	server.shutdownCtx, server.shutdownFn = context.WithCancel(context.Background())

	server.reconciler = service.NewReconciler(postRepo, likeRepo)
	server.postService = service.NewPostService(postRepo, likeRepo, commentRepo, userRepo,
		server.notifier, server.featureFlags, cfg.ViewRecordTimeout)
	server.likeService = service.NewLikeService(postRepo, likeRepo, server.reconciler, server.notifier)
	server.commentService = service.NewCommentService(postRepo, commentRepo, userRepo, server.notifier, cfg.CommentMaxLength)
	server.userService = service.NewUserService(userRepo, cfg.AdminEmailList())
	server.adminService = service.NewAdminService(postRepo, commentRepo, userRepo)
	server.categoryService = service.NewCategoryService(categoryRepo)
	server.profiles = server.userService

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Trace first so the context middleware can copy the trace id
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	optional := s.OptionalIdentity()
	required := s.IdentityRequired()

	api.Get("/categories", s.GetCategories)

	// Define specific /:id/:resource routes BEFORE generic /:slug route
	posts := api.Group("/posts")
	posts.Get("/", optional, s.GetPosts)
	posts.Post("/", required, middleware.RateLimit(s.redis, 20, time.Hour, "create_post"), s.CreatePost)
	posts.Get("/:id/like", optional, s.GetLikeStatus)
	posts.Post("/:id/like", required, middleware.RateLimit(s.redis, 120, time.Minute, "like_toggle"), s.ToggleLike)
	posts.Get("/:id/comments", optional, s.GetComments)
	posts.Post("/:id/comments", required, middleware.RateLimit(s.redis, 30, 10*time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:slug", optional, s.GetPost)
	posts.Put("/:id", required, s.UpdatePost)
	posts.Delete("/:id", required, s.DeletePost)

	comments := api.Group("/comments", required)
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	users := api.Group("/users", required)
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)

	admin := api.Group("/admin", required, s.AdminRequired())
	admin.Get("/stats", s.GetAdminStats)
	admin.Get("/posts", s.GetAdminPosts)
	admin.Get("/users", s.GetAdminUsers)
	admin.Put("/users/:id/role", s.UpdateUserRole)
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Post("/reconcile", s.ReconcileAll)
	admin.Post("/posts/:id/reconcile", s.ReconcilePost)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional; it
// only counts against readiness when it is configured.
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

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
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

// App builds the Fiber application with every middleware and route.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "blogspace API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok && fe.Code != fiber.StatusInternalServerError {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start launches background workers and serves HTTP until Shutdown.
func (s *Server) Start() error {
	s.app = s.App()

	if s.featureFlags.On(featureflags.DriftSweeper) && s.config.ReconcileInterval > 0 {
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			s.reconciler.Run(s.shutdownCtx, s.config.ReconcileInterval)
		}()
		middleware.Logger.Info("drift sweeper started", slog.Duration("interval", s.config.ReconcileInterval))
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	// pending view writes and the sweeper finish before their stores close
	s.postService.Wait()
	s.background.Wait()

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
