package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shogunlabs/reports-api/internal/api/handler"
	"github.com/shogunlabs/reports-api/internal/api/middleware"
	"github.com/shogunlabs/reports-api/internal/core/domain"
	"github.com/shogunlabs/reports-api/internal/core/guard"
	"github.com/shogunlabs/reports-api/internal/core/ports"
	"github.com/shogunlabs/reports-api/internal/core/service"
	mongodb "github.com/shogunlabs/reports-api/internal/infrastructure/db/mongo"
	redisdb "github.com/shogunlabs/reports-api/internal/infrastructure/db/redis"
)

const sessionTTL = 8 * time.Hour

// Options carries the external collaborators the router wires together.
type Options struct {
	Mongo     *mongo.Database
	Redis     *redis.Client // nil falls back to the in-memory rate limiter
	Blobs     ports.BlobStore
	Mailer    ports.Mailer
	JWTSecret string
	LeadInbox string
	Logger    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("reports"))

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(opts.Mongo)
	reportRepo := mongodb.NewReportRepository(opts.Mongo)

	loginGuard := guard.NewLoginGuard(guard.DefaultMaxAttempts, guard.DefaultLockout)
	var limiter ports.RateLimiter
	if opts.Redis != nil {
		limiter = redisdb.NewLimiter(opts.Redis, guard.DefaultMaxSubmissions, guard.DefaultWindow)
	} else {
		limiter = guard.NewMemoryLimiter(guard.DefaultMaxSubmissions, guard.DefaultWindow)
	}

	authService := service.NewAuthService(userRepo, loginGuard, opts.JWTSecret, sessionTTL, opts.Logger)
	recoveryService := service.NewRecoveryService(userRepo, limiter, opts.Mailer, opts.LeadInbox, opts.Logger)
	reportService := service.NewReportService(reportRepo, userRepo, opts.Blobs, opts.Logger)

	authHandler := handler.NewAuthHandler(authService, recoveryService, sessionTTL)
	reportHandler := handler.NewReportHandler(reportService)
	sessionRequired := middleware.Auth(opts.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout)
	e.POST("/auth/signup", authHandler.Signup)
	e.POST("/auth/recover", authHandler.Recover)
	e.GET("/auth/me", authHandler.Me, sessionRequired)

	// --- Public forms ---
	e.POST("/public/leads", authHandler.SubmitLead)

	// --- Report routes (session required, policy enforced in service) ---
	reports := e.Group("/reports", sessionRequired)
	reports.GET("", reportHandler.List)
	reports.POST("", reportHandler.Create, middleware.RequireRole(domain.RoleShogun, domain.RoleShogunAdmin))
	reports.GET("/:id", reportHandler.Get)
	reports.PUT("/:id/progress", reportHandler.UpdateProgress)
	reports.POST("/:id/attachment", reportHandler.Attach)
	reports.POST("/:id/chat", reportHandler.PostChat)
	reports.GET("/:id/attachments/:attId/download", reportHandler.DownloadAttachment)
	reports.GET("/:id/chat/:attId/download", reportHandler.DownloadChatAttachment)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(opts.Mongo, opts.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
