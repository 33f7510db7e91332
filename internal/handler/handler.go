package handler

import (
	"github.com/dakghar-dev/postal-portal/backend/internal/config"
	"github.com/dakghar-dev/postal-portal/backend/internal/domain"
	"github.com/dakghar-dev/postal-portal/backend/internal/repository"
	"github.com/dakghar-dev/postal-portal/backend/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	tokens      *token.Service
	cutoff      domain.LockCutoff
	mailChannel *amqp.Channel
	redisClient *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, tokens *token.Service, mailCh *amqp.Channel, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	en := en.New()
	uni := ut.New(en, en)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	cutoff, err := domain.ParseLockCutoff(cfg.Metrics.LockCutoff, cfg.Metrics.Timezone)
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		tokens:      tokens,
		cutoff:      cutoff,
		mailChannel: mailCh,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.requestID)
	h.Mux.Use(h.logger)
	h.Mux.Use(h.instrument)
	h.Mux.Use(h.recoverer)

	// public surface: auth endpoints, health probe, metrics, root
	h.Mux.Get("/", h.Root)
	h.Mux.Get("/health", h.Health)
	h.Mux.Method("GET", "/metrics", promhttp.Handler())

	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
		r.With(h.auth, h.currentUser).Get("/me", h.Me)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// everything below requires a valid access token
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/users", func(r chi.Router) {
			r.Use(h.RequiredRole(domain.RoleAdmin))
			r.Get("/", h.GetAllUsers)
			r.Post("/", h.CreateUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userRecord)
				r.Get("/", h.GetUser)
				r.Patch("/", h.UpdateUser)
				r.Delete("/", h.DeactivateUser)
				r.Post("/activate", h.ActivateUser)
				r.Put("/roles", h.ReplaceUserRoles)
			})
		})

		r.Route("/offices", func(r chi.Router) {
			r.Get("/", h.GetAllOffices)
			r.With(h.RequiredRole(domain.RoleAdmin)).Post("/", h.CreateOffice)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.officeRecord)
				r.Get("/", h.GetOffice)
				r.With(h.RequiredRole(domain.RoleAdmin)).Patch("/", h.UpdateOffice)
			})
		})

		r.Route("/drm", func(r chi.Router) {
			r.Use(h.currentUser)
			r.Post("/", h.CreateDRMEntry)
			r.Get("/", h.GetDRMEntries)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.drmEntry)
				r.Get("/", h.GetDRMEntry)
				r.Patch("/", h.UpdateDRMEntry)
				r.Post("/submit", h.SubmitDRMEntry)
				r.Post("/review", h.ReviewDRMEntry)
				r.Get("/comments", h.GetDRMComments)
			})
		})

		// GET /metrics (exact) is the Prometheus endpoint above; the static
		// segments here win over {id} in chi's routing.
		r.Group(func(r chi.Router) {
			r.Use(h.currentUser)
			r.Post("/metrics/daily", h.SubmitDailyMetrics)
			r.Get("/metrics/history", h.GetMetricsHistory)
			r.Post("/metrics/import", h.ImportMetricsCSV)
			r.Get("/metrics/export", h.ExportMetricsCSV)
			r.Route("/metrics/{id}", func(r chi.Router) {
				r.Use(h.dailyMetric)
				r.With(h.RequiredRole(domain.RoleAdmin)).Post("/lock", h.LockDailyMetric)
				r.With(h.RequiredRole(domain.RoleAdmin)).Post("/unlock", h.UnlockDailyMetric)
			})
		})

		r.Route("/targets", func(r chi.Router) {
			r.Get("/", h.GetAllTargets)
			r.With(h.currentUser, h.RequiredRole(domain.RoleAdmin, domain.RoleSupervisor)).Post("/", h.CreateTarget)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.targetRecord)
				r.Get("/", h.GetTarget)
				r.With(h.currentUser, h.RequiredRole(domain.RoleAdmin, domain.RoleSupervisor)).Patch("/", h.UpdateTarget)
			})
		})

		r.With(h.RequiredRole(domain.RoleAdmin)).Get("/audit", h.GetAuditLogs)

		r.With(h.currentUser).Get("/dashboard/stats", h.GetDashboardStats)
	})
}
