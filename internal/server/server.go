// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	"loom/internal/cache"
	"loom/internal/config"
	"loom/internal/database"
	"loom/internal/middleware"
	"loom/internal/repository"
	"loom/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	threadRepo     repository.ThreadRepository
	userService    *service.UserService
	threadService  *service.ThreadService
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
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	threadRepo := repository.NewThreadRepository(db)

	prom := middleware.InitMetrics("loom-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		userRepo:       userRepo,
		threadRepo:     threadRepo,
	}
	server.userService = service.NewUserService(userRepo)
	server.threadService = service.NewThreadService(threadRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// OpenTelemetry tracing
	app.Use(middleware.TracingMiddleware())

	// CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
		AllowMethods: "GET, POST, PATCH, PUT, DELETE",
	}))
}

// SetupRoutes registers the API routes on the Fiber app
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/health", s.Health)

	// Write endpoints get a per-IP rate limit; reads stay unthrottled.
	writeLimit := middleware.RateLimit(s.redis, 60, time.Minute, "write")

	users := api.Group("/users")
	users.Post("/", writeLimit, s.CreateUser)
	users.Get("/:id", s.GetUser)
	users.Put("/:id", writeLimit, s.EnsureUser)
	users.Delete("/:id", writeLimit, s.DeleteUser)
	users.Get("/:id/threads", s.ListUserThreads)

	threads := api.Group("/threads")
	threads.Post("/", writeLimit, s.CreateThread)
	threads.Get("/:id", s.GetThread)
	threads.Patch("/:id", writeLimit, s.UpdateThread)
	threads.Delete("/:id", writeLimit, s.DeleteThread)
}

// Health handles GET /api/health
func (s *Server) Health(c *fiber.Ctx) error {
	status := fiber.Map{"status": "ok"}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(c.Context()) != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
	}

	return c.JSON(status)
}

// Shutdown releases server resources (database and Redis connections).
func (s *Server) Shutdown(ctx context.Context) error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.WarnContext(ctx, "redis close failed", "error", err)
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			return sqlDB.Close()
		}
	}
	return nil
}
