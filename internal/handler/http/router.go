package http

import (
	"io"
	"log/slog"

	"github.com/cmlabs-hris/payroll-tax-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-tax-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	AllowedOrigins []string
	LogLevel       slog.Level
}

func NewRouter(
	opts RouterOptions,
	logger *slog.Logger,
	JWTService jwt.Service,
	authHandler AuthHandler,
	taxationHandler TaxationHandler,
	salaryHandler SalaryHandler,
	payoutHandler PayoutHandler,
	attendanceHandler AttendanceHandler,
	retirementHandler RetirementHandler,
) *chi.Mux {
	r := chi.NewRouter()

	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:3000"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService))

			r.Post("/auth/logout", authHandler.Logout)

			r.Route("/taxations/{employeeID}/{taxYear}", func(r chi.Router) {
				r.Get("/", taxationHandler.Get)
				r.Get("/compare", taxationHandler.Compare)

				// HR and payroll admins only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireWriter)
					r.Post("/calculate", taxationHandler.Calculate)
					r.Post("/deductions", taxationHandler.AddDeduction)
					r.Delete("/deductions/{section}", taxationHandler.RemoveDeduction)
					r.Put("/regime", taxationHandler.ChangeRegime)
					r.Post("/retirement-benefits", taxationHandler.RecordRetirementBenefits)
				})
			})

			r.Route("/salary-changes", func(r chi.Router) {
				r.With(middleware.RequireWriter).Post("/", salaryHandler.RecordChange)
				r.Get("/{employeeID}/{taxYear}/projection", salaryHandler.GetProjection)
			})

			r.Route("/payouts", func(r chi.Router) {
				r.Get("/", payoutHandler.List)
				r.Get("/{employeeID}/{year}/{month}", payoutHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireWriter)
					r.Post("/calculate", payoutHandler.Calculate)
					r.Patch("/{id}/status", payoutHandler.UpdateStatus)
				})
			})

			r.Route("/attendance/{employeeID}/{year}/{month}", func(r chi.Router) {
				r.Get("/", attendanceHandler.Get)
				r.With(middleware.RequireWriter).Put("/", attendanceHandler.Record)
			})

			r.Post("/retirement-benefits/evaluate", retirementHandler.Evaluate)
		})
	})
	return r
}

// NewLogger builds the ECS-formatted JSON logger shared by request logging and services.
func NewLogger(w io.Writer, app, env string, level slog.Level) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(false)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", app),
		slog.String("env", env),
	)
}
