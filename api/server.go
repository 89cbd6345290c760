/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from X-Forwarded-For / X-Real-IP
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the admin front end

ROUTE GROUPS:
  /, /test                 Health
  /employees/*             Directory (writes need an admin token)
  /attendance/*            Kiosk check-in (rate limited per client) and reports
  /shifts/*                Shift policies (writes need an admin token)
  /admin/ping              Admin reachability
  /admin/employees         HTML directory page and enroll form

SECURITY NOTE:
  Admin routes use auth.Authenticator.RequireAdmin. Without JWT_SECRET
  the authenticator lets every request through; cmd/server warns about
  it at startup.

SEE ALSO:
  - handlers.go: Handler implementations
  - ratelimit.go: Per-client check-in limiter
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/attendance-engine/auth"
)

// RouterOptions configures the cross-cutting middleware.
type RouterOptions struct {
	CORSOrigins []string
	Auth        *auth.Authenticator
	Limiter     *ClientLimiter
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if opts.Auth == nil {
		opts.Auth = auth.New("", 0)
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", h.Root)
	r.Get("/test", h.Test)

	// Employee routes
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.ListEmployees)
		r.Get("/{id}", h.GetEmployee)

		r.Group(func(r chi.Router) {
			r.Use(opts.Auth.RequireAdmin)
			r.Post("/enroll", h.EnrollEmployee)
			r.Put("/{id}", h.UpdateEmployee)
			r.Delete("/{id}", h.DeleteEmployee)
		})
	})

	// Attendance routes
	r.Route("/attendance", func(r chi.Router) {
		if opts.Limiter != nil {
			r.With(opts.Limiter.Middleware).Post("/checkin", h.CheckIn)
		} else {
			r.Post("/checkin", h.CheckIn)
		}
		r.Get("/today", h.Today)
		r.Get("/monthly_summary", h.MonthlySummary)
	})

	// Shift routes
	r.Route("/shifts", func(r chi.Router) {
		r.Get("/", h.ListShifts)
		r.With(opts.Auth.RequireAdmin).Put("/{name}", h.UpdateShift)
	})

	// Admin routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(opts.Auth.RequireAdmin)
		r.Get("/ping", h.AdminPing)
		r.Get("/employees", h.AdminEmployeesPage)
		r.Post("/employees/new", h.AdminEnrollEmployee)
	})

	return r
}
