package api

import (
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swagger "github.com/go-swagno/swagno-fiber/swagger"

	"github.com/tupi-labs/ponto/internal/api/docs"
	"github.com/tupi-labs/ponto/internal/api/handler"
	"github.com/tupi-labs/ponto/internal/api/middleware"
	"github.com/tupi-labs/ponto/internal/engine"
	"github.com/tupi-labs/ponto/internal/repository"
)

// Dependencies carries everything the routes need.
type Dependencies struct {
	Engine         *engine.Engine
	EmployeeRepo   repository.EmployeeRepositoryInterface
	AttendanceRepo handler.AttendanceLedger
	DB             *pgxpool.Pool
	APIKey         string
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Ponto API",
		BodyLimit:    64 * 1024 * 1024, // frame bursts are large
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
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-API-Key",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints (no auth required)
	var db handler.Pinger
	if r.deps != nil && r.deps.DB != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Prometheus metrics (no auth required)
	r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1 group with authentication
	v1 := r.app.Group("/v1")

	if r.deps != nil {
		v1.Use(middleware.APIKeyAuth(r.deps.APIKey))

		attendanceHandler := handler.NewAttendanceHandler(r.deps.Engine, r.deps.AttendanceRepo, r.logger)
		v1.Post("/attendance/punch", attendanceHandler.Punch)
		v1.Post("/attendance/recognize", attendanceHandler.Recognize)
		v1.Post("/attendance/liveness", attendanceHandler.CheckLiveness)
		v1.Get("/attendance/history", attendanceHandler.History)
		v1.Get("/attendance/today/:employee_id", attendanceHandler.Today)
		v1.Get("/attendance/stats/today", attendanceHandler.TodayStats)

		employeeHandler := handler.NewEmployeeHandler(r.deps.EmployeeRepo, r.deps.Engine, r.logger)
		v1.Post("/employees", employeeHandler.Create)
		v1.Get("/employees", employeeHandler.List)
		v1.Get("/employees/:id", employeeHandler.Get)
		v1.Delete("/employees/:id", employeeHandler.Deactivate)
		v1.Post("/employees/:id/faces", employeeHandler.RegisterFaces)
		v1.Delete("/employees/:id/faces", employeeHandler.DeleteFaces)
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	return r.app.Shutdown()
}
