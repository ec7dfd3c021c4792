package api

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/idcheck/internal/api/middleware"
)

type Dependencies struct {
	Service      handler.VerificationService
	HealthChecks []handler.Check
	// Metrics serves the Prometheus exposition format on /metrics when set.
	Metrics http.Handler
	// SubmitLimit throttles POST /v1/verifications per client IP.
	SubmitLimit middleware.RateLimiterConfig
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "IDCheck API",
		BodyLimit:    32 * 1024 * 1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var checks []handler.Check
	if r.deps != nil {
		checks = r.deps.HealthChecks
	}

	// Health check endpoints
	healthHandler := handler.NewHealthHandler(checks...)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	if r.deps.Metrics != nil {
		r.app.Get("/metrics", adaptor.HTTPHandler(r.deps.Metrics))
	}

	v1 := r.app.Group("/v1")

	verificationHandler := handler.NewVerificationHandler(r.deps.Service, r.logger)

	r.rateLimiter = middleware.NewRateLimiter(r.deps.SubmitLimit)

	// Verification routes
	v1.Post("/verifications", r.rateLimiter.Handler(), verificationHandler.Create)
	v1.Get("/verifications/:id", verificationHandler.Get)
	v1.Get("/verifications/:id/audit", verificationHandler.Audit)
	v1.Post("/verifications/:id/review", verificationHandler.Review)

	// Manual review queue
	v1.Get("/review-queue", verificationHandler.Queue)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}
	return r.app.Shutdown()
}
