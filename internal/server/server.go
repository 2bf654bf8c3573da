// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	_ "medfeed/docs" // swagger docs
	"medfeed/internal/cache"
	"medfeed/internal/config"
	"medfeed/internal/database"
	"medfeed/internal/featureflags"
	"medfeed/internal/middleware"
	"medfeed/internal/models"
	"medfeed/internal/notifications"
	"medfeed/internal/repository"
	"medfeed/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	repos          *repository.Repositories
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	dispatcher     *notifications.Dispatcher
	featureFlags   *featureflags.Manager
	feed           *service.FeedService
	polls          *service.PollEngine
	posts          *service.PostService
	comments       *service.CommentService
	engagement     *service.EngagementService
}

// NewServer connects to the database and Redis and builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, cache.Connect(context.Background(), cfg.RedisURL))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, realtime relay and rate limiting then degrade.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("medfeed-api"),
		repos:          repository.NewRepositories(db),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
	}
	s.dispatcher = notifications.NewDispatcher(notifications.NewPushSender(cfg), cfg.PushWorkers, cfg.PushQueueSize)
	gateway := notifications.NewGateway(s.repos.Notifications, s.notifier, s.dispatcher, s.featureFlags)

	uow := repository.NewUnitOfWork(db)
	hashtags := service.NewHashtagLedger()
	s.polls = service.NewPollEngine(uow, s.repos.Polls)
	s.feed = service.NewFeedService(s.repos, s.polls, s.repos.Groups)
	s.posts = service.NewPostService(uow, s.repos, s.repos.Groups, hashtags, s.polls, s.feed, gateway)
	s.comments = service.NewCommentService(uow, s.repos, gateway)
	s.engagement = service.NewEngagementService(s.repos, gateway)

	return s, nil
}

// NewApp builds a Fiber app with the server's error handler, middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "MedFeed API",
		BodyLimit: 4 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err), !s.config.IsProduction())
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	// The realtime socket authenticates from the query string before upgrading.
	api.Get("/ws", middleware.WebSocketAuthRequired, s.WebsocketHandler())

	protected := api.Group("", middleware.AuthRequired)

	posts := protected.Group("/posts")
	posts.Get("/", s.GetFeed)
	posts.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Get("/saved", s.GetSavedPosts)
	// Specific /:id/:resource routes before the generic /:id routes.
	posts.Post("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Post("/:id/save", s.SavePost)
	posts.Delete("/:id/save", s.UnsavePost)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, 30, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	comments := protected.Group("/comments")
	comments.Post("/:commentId/like", s.LikeComment)
	comments.Delete("/:commentId/like", s.UnlikeComment)
	comments.Delete("/:commentId", s.DeleteComment)

	polls := protected.Group("/polls")
	polls.Post("/options/:optionId/vote", middleware.RateLimit(s.redis, 60, time.Minute, "poll_vote"), s.VotePoll)
	polls.Post("/:id/options", s.AddPollOption)

	hashtags := protected.Group("/hashtags")
	hashtags.Get("/trending", s.GetTrendingHashtags)
	hashtags.Get("/:tag/posts", s.GetPostsByHashtag)

	notifs := protected.Group("/notifications")
	notifs.Get("/", s.GetNotifications)
	notifs.Post("/push-tokens", s.RegisterPushToken)

	admin := protected.Group("/admin", s.ElevatedRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
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

	// Redis only backs caching and realtime relay; its absence degrades, not fails.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
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

// ElevatedRequired rejects callers without an admin or moderator role.
// Must be placed after AuthRequired.
func (s *Server) ElevatedRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := middleware.ActorFromCtx(c)
		if !ok || !actor.IsElevated() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Elevated role required"), false)
		}
		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()
	s.dispatcher.Start()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
			}
		}()
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down %s: %v", s.hub.Name(), err)
		}
	}

	// Drain queued pushes before the process exits.
	if err := s.dispatcher.Stop(ctx); err != nil {
		log.Printf("error stopping push dispatcher: %v", err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
