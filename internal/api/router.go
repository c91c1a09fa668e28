package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"casedesk/internal/app"
	"casedesk/internal/captcha"
	"casedesk/internal/config"
	"casedesk/internal/middleware"
	"casedesk/internal/models"
	"casedesk/internal/rate"
	"casedesk/internal/util"
	"casedesk/internal/version"
)

// Pinger reports whether a backing component is usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	cfg     config.Config
	reg     *app.Registry
	limiter *rate.Limiter
	checks  map[string]Pinger
}

const maxCaseUploadBytes = 32 << 20

var routeLimits = map[string]rate.Policy{
	"login":         {Limit: 20, Window: time.Minute},
	"register":      {Limit: 10, Window: time.Minute},
	"reset_request": {Limit: 10, Window: time.Minute},
	"reset_confirm": {Limit: 10, Window: time.Minute},
	"submit":        {Limit: 60, Window: time.Minute},
}

func NewRouter(cfg config.Config, reg *app.Registry, checks map[string]Pinger) http.Handler {
	h := &Handlers{
		cfg:     cfg,
		reg:     reg,
		limiter: rate.NewLimiter(routeLimits),
		checks:  checks,
	}
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger(cfg.TrustProxy))
	r.Use(middleware.SecurityHeaders)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", h.Ready)
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		util.WriteJSON(w, 200, version.Current())
	})

	cookies := middleware.CookieConfig{
		ClientName: cfg.SessionCookieName,
		CSRFName:   cfg.CSRFCookieName,
		Secure:     cfg.CookieSecure,
		Lifetime:   cfg.ClientLifetime(),
	}
	csrf := middleware.CSRFFromCookie(cfg.CSRFCookieName)
	challenge := middleware.RequireCaptcha(captcha.New(cfg), cfg.TrustProxy)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AttachClient(reg, cookies))

		r.Get("/session", h.Session)
		r.Get("/notifications", h.Notifications)
		r.With(middleware.RateLimit(h.limiter, "login", cfg.TrustProxy)).Post("/login", h.Login)
		r.With(middleware.RateLimit(h.limiter, "register", cfg.TrustProxy), challenge).Post("/register", h.Register)
		r.Post("/logout", h.Logout)
		r.With(middleware.RateLimit(h.limiter, "reset_request", cfg.TrustProxy), challenge).Post("/password/forgot", h.ForgotPassword)
		r.With(middleware.RateLimit(h.limiter, "reset_confirm", cfg.TrustProxy)).Post("/password/reset", h.ResetPassword)

		r.Route("/user", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleUser))
			r.Get("/dashboard", h.UserDashboard)
			r.Get("/worklist", h.Worklist)
			r.Get("/ratings", h.UserRatings)
			r.Get("/profile", h.Profile)
			r.Group(func(r chi.Router) {
				r.Use(csrf)
				r.Post("/cases/{id}/score", h.SelectScore)
				r.With(middleware.RateLimit(h.limiter, "submit", cfg.TrustProxy)).Post("/cases/{id}/submit", h.SubmitScore)
				r.Put("/ratings/{caseId}", h.UpdateRating)
				r.Delete("/ratings/{caseId}", h.DeleteRating)
				r.Put("/profile", h.UpdateProfile)
				r.Put("/password", h.ChangePassword)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Get("/cases", h.AdminListCases)
			r.Get("/cases/{id}", h.AdminGetCase)
			r.Get("/analytics", h.AdminAnalytics)
			r.Get("/users", h.AdminListUsers)
			r.Get("/users/{id}", h.AdminGetUser)
			r.Get("/users/{id}/activities", h.AdminUserActivities)
			r.Group(func(r chi.Router) {
				r.Use(csrf)
				r.Post("/cases", h.AdminCreateCase)
				r.Put("/cases/{id}", h.AdminUpdateCase)
				r.Delete("/cases/{id}", h.AdminDeleteCase)
				r.Patch("/cases/{id}/status", h.AdminSetCaseStatus)
				r.Put("/users/{id}/role", h.AdminSetUserRole)
				r.Put("/users/{id}/deactivate", h.AdminDeactivateUser)
			})
		})
	})

	return r
}

func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ready := map[string]any{
		"checked_at": time.Now().UTC().Format(time.RFC3339),
		"clients":    h.reg.Len(),
	}
	comps := map[string]any{}
	ok := true
	for name, p := range h.checks {
		if err := p.Ping(r.Context()); err != nil {
			comps[name] = map[string]any{"ok": false, "error": err.Error()}
			ok = false
			continue
		}
		comps[name] = map[string]any{"ok": true}
	}
	ready["components"] = comps
	if ok {
		ready["status"] = "ready"
		util.WriteJSON(w, 200, ready)
		return
	}
	ready["status"] = "degraded"
	util.WriteJSON(w, 503, ready)
}

// client is set by AttachClient on every /api/v1 route.
func client(r *http.Request) *app.Client {
	c, _ := middleware.Client(r.Context())
	return c
}
