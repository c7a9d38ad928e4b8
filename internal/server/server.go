// Package server contains the HTTP handlers for the clan moderation API.
package server

import (
	"context"
	"log/slog"
	"time"

	_ "clanhub/docs" // swagger docs
	"clanhub/internal/config"
	"clanhub/internal/middleware"
	"clanhub/internal/models"
	"clanhub/internal/notifications"
	"clanhub/internal/repository"
	"clanhub/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
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
	store          repository.Store
	notifier       *notifications.Notifier

	clans        *service.ClanService
	members      *service.MemberService
	roles        *service.RoleService
	joinRequests *service.JoinRequestService
	bans         *service.BanService
	appeals      *service.AppealService
	verification *service.VerificationService
	ownership    *service.OwnershipService
	reports      *service.ReportService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil Redis client disables caching, rate limiting and event publication.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)
	store := repository.NewStore(db)

	policy := service.DefaultVerificationPolicy
	if cfg.VerificationMinAgeDays > 0 {
		policy.MinAge = time.Duration(cfg.VerificationMinAgeDays) * 24 * time.Hour
	}
	if cfg.VerificationMinMembers > 0 {
		policy.MinMembers = cfg.VerificationMinMembers
	}

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("clanhub-api"),
		store:          store,
		notifier:       notifications.NewNotifier(redisClient),
		clans:          service.NewClanService(store),
		members:        service.NewMemberService(store),
		roles:          service.NewRoleService(store),
		joinRequests:   service.NewJoinRequestService(store),
		bans:           service.NewBanService(store),
		appeals:        service.NewAppealService(store),
		verification:   service.NewVerificationService(store, policy),
		ownership:      service.NewOwnershipService(store),
		reports:        service.NewReportService(store),
	}, nil
}

// NewApp builds a Fiber app with the server's middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Clanhub Moderation API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, err)
			}
			return s.respondError(c, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Tracing runs first so the context middleware can pick up the trace id
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}))
}

// mutation rate limits state-changing moderation calls per user.
func (s *Server) mutation() fiber.Handler {
	limit := s.config.ModerationRateLimit
	if limit <= 0 {
		limit = 30
	}
	window := time.Duration(s.config.ModerationRateWindow) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	return middleware.RateLimit(s.redis, limit, window, "moderation")
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
	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Get("/clans", s.optionalAuth, s.ListClans)
	api.Get("/clans/:id", s.GetClan)
	api.Get("/clans/:id/members", s.ListClanMembers)

	protected := api.Group("", middleware.AuthRequired)
	write := s.mutation()

	clans := protected.Group("/clans")
	clans.Post("/", write, s.CreateClan)
	clans.Patch("/:id", write, s.UpdateClan)
	clans.Post("/:id/leave", write, s.LeaveClan)
	clans.Post("/:id/transfer", write, s.TransferOwnership)
	clans.Delete("/:id/members/:userId", write, s.KickMember)
	clans.Put("/:id/members/:userId/role", write, s.AssignClanRole)
	clans.Post("/:id/members/:userId/ban", write, s.BanMember)
	clans.Delete("/:id/members/:userId/ban", write, s.UnbanMember)
	clans.Get("/:id/bans", s.ListMemberBans)
	clans.Post("/:id/join-requests", write, s.SubmitJoinRequest)
	clans.Delete("/:id/join-requests/me", write, s.RecallJoinRequest)
	clans.Get("/:id/join-requests/blocked", s.ListBlockedJoinRequests)
	clans.Get("/:id/join-requests", s.ListPendingJoinRequests)
	clans.Post("/:id/verification", write, s.ApplyForVerification)

	joinRequests := protected.Group("/join-requests")
	joinRequests.Post("/:id/accept", write, s.AcceptJoinRequest)
	joinRequests.Post("/:id/reject", write, s.RejectJoinRequest)
	joinRequests.Post("/:id/unblock", write, s.UnblockJoinRequest)

	protected.Post("/appeals", write, s.SubmitAppeal)
	protected.Post("/reports", write, s.FileReport)

	admin := protected.Group("/admin")
	admin.Get("/staff", s.ListStaff)
	admin.Put("/staff/:userId", write, s.AssignSiteRole)
	admin.Delete("/staff/:userId", write, s.UnassignSiteRole)

	admin.Get("/bans/users", s.ListUserBans)
	admin.Get("/bans/clans", s.ListClanBans)
	admin.Post("/users/:userId/ban", write, s.BanUser)
	admin.Delete("/users/:userId/ban", write, s.UnbanUser)
	admin.Post("/clans/:id/ban", write, s.BanClan)
	admin.Delete("/clans/:id/ban", write, s.UnbanClan)

	admin.Get("/verification", s.ListVerificationApplications)
	admin.Post("/clans/:id/verification/approve", write, s.ApproveVerification)
	admin.Post("/clans/:id/verification/deny", write, s.DenyVerification)
	admin.Post("/clans/:id/verification/unverify", write, s.UnverifyClan)

	admin.Get("/appeals", s.ListAppeals)
	admin.Post("/appeals/:id/review", write, s.StartAppealReview)
	admin.Post("/appeals/:id/approve", write, s.ApproveAppeal)
	admin.Post("/appeals/:id/deny", write, s.DenyAppeal)
	admin.Post("/appeals/:id/unblock", write, s.UnblockAppeal)

	admin.Get("/reports", s.ListReports)
	admin.Post("/reports/:id/dismiss", write, s.DismissReport)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// its absence degrades but does not fail readiness.
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
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	} else if redisStatus != "healthy" {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
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

	middleware.Logger.Info("server shutdown complete")
	return nil
}
