package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brunotavares/sorrisodigital-backend/api/controllers"
	webhookcontrollers "github.com/brunotavares/sorrisodigital-backend/api/controllers/webhooks"
	"github.com/brunotavares/sorrisodigital-backend/api/middleware"
	"github.com/brunotavares/sorrisodigital-backend/internal/attachments"
	"github.com/brunotavares/sorrisodigital-backend/internal/auth"
	"github.com/brunotavares/sorrisodigital-backend/internal/blog"
	"github.com/brunotavares/sorrisodigital-backend/internal/leads"
	"github.com/brunotavares/sorrisodigital-backend/internal/notifications"
	"github.com/brunotavares/sorrisodigital-backend/internal/orphans"
	"github.com/brunotavares/sorrisodigital-backend/internal/reconcile"
	asaaswebhook "github.com/brunotavares/sorrisodigital-backend/internal/webhooks/asaas"
	mpwebhook "github.com/brunotavares/sorrisodigital-backend/internal/webhooks/mercadopago"
	stripewebhook "github.com/brunotavares/sorrisodigital-backend/internal/webhooks/stripe"
	"github.com/brunotavares/sorrisodigital-backend/pkg/auth/session"
	"github.com/brunotavares/sorrisodigital-backend/pkg/config"
	"github.com/brunotavares/sorrisodigital-backend/pkg/enums"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
	"github.com/brunotavares/sorrisodigital-backend/pkg/redis"
)

type webhookProcessor interface {
	Process(ctx context.Context, event reconcile.PaymentEvent) (enums.WebhookOutcome, error)
}

// RouterParams carries everything the HTTP surface needs. Provider adapters
// may be nil when the matching credentials are absent; their routes then
// answer with a configuration error instead of panicking.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	DB    controllers.Pinger
	Redis *redis.Client

	SessionChecker session.AccessSessionChecker

	AuthService         auth.Service
	LeadService         leads.Service
	BlogService         blog.Service
	AttachmentService   attachments.Service
	OrphanService       orphans.Service
	NotificationService notifications.Service
	WebhookProcessor    webhookProcessor
	StripeAdapter       *stripewebhook.Adapter
	AsaasAdapter        *asaaswebhook.Adapter
	MercadoPagoAdapter  *mpwebhook.Adapter
	MetricsGatherer     prometheus.Gatherer
}

// NewRouter assembles the full route tree.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	intakePolicy := middleware.NewRateLimitPolicy(
		"intake",
		cfg.RateLimit.IntakeWindow,
		cfg.RateLimit.IntakeIPLimit,
		0,
	)
	loginPolicy := middleware.NewRateLimitPolicy(
		"login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
		cfg.RateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(logg, readinessDeps(p)))
	})

	if p.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.With(middleware.RateLimit(intakePolicy, p.Redis, logg)).
			Post("/leads", controllers.PublicCreateLead(p.LeadService, logg))
		r.Get("/blog", controllers.PublicBlogList(p.BlogService, logg))
		r.Get("/blog/{slug}", controllers.PublicBlogGet(p.BlogService, logg))
	})

	// A nil adapter pointer must reach the handler as a nil interface so its
	// configuration check fires instead of a nil-receiver panic.
	stripeHandler := webhookcontrollers.StripeWebhook(nil, p.WebhookProcessor, logg)
	if p.StripeAdapter != nil {
		stripeHandler = webhookcontrollers.StripeWebhook(p.StripeAdapter, p.WebhookProcessor, logg)
	}
	asaasHandler := webhookcontrollers.AsaasWebhook(nil, p.WebhookProcessor, logg)
	if p.AsaasAdapter != nil {
		asaasHandler = webhookcontrollers.AsaasWebhook(p.AsaasAdapter, p.WebhookProcessor, logg)
	}
	mpHandler := webhookcontrollers.MercadoPagoWebhook(nil, p.WebhookProcessor, logg)
	if p.MercadoPagoAdapter != nil {
		mpHandler = webhookcontrollers.MercadoPagoWebhook(p.MercadoPagoAdapter, p.WebhookProcessor, logg)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", stripeHandler)
		r.Post("/asaas", asaasHandler)
		r.Post("/mercadopago", mpHandler)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(loginPolicy, p.Redis, logg)).
			Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(p.AuthService, logg))
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionChecker, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", controllers.AdminLeadList(p.LeadService, logg))
			r.Route("/{leadID}", func(r chi.Router) {
				r.Get("/", controllers.AdminLeadGet(p.LeadService, logg))
				r.Post("/status", controllers.AdminLeadUpdateStatus(p.LeadService, logg))
				r.Post("/archive", controllers.AdminLeadArchive(p.LeadService, logg))
				r.Get("/notes", controllers.AdminLeadNotes(p.LeadService, logg))
				r.Post("/notes", controllers.AdminLeadAddNote(p.LeadService, logg))
				r.Get("/history", controllers.AdminLeadHistory(p.LeadService, logg))
				r.Get("/attachments", controllers.AdminAttachmentList(p.AttachmentService, logg))
				r.Post("/attachments", controllers.AdminAttachmentPresign(p.AttachmentService, logg))
			})
		})

		r.Route("/attachments/{attachmentID}", func(r chi.Router) {
			r.Post("/confirm", controllers.AdminAttachmentConfirm(p.AttachmentService, logg))
			r.Get("/download", controllers.AdminAttachmentDownload(p.AttachmentService, logg))
		})

		r.Route("/orphans", func(r chi.Router) {
			r.Get("/", controllers.AdminOrphanList(p.OrphanService, logg))
			r.Post("/{orphanID}/resolve", controllers.AdminOrphanResolve(p.OrphanService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.AdminNotificationList(p.NotificationService, logg))
			r.Post("/{notificationID}/read", controllers.AdminNotificationMarkRead(p.NotificationService, logg))
			r.Post("/read-all", controllers.AdminNotificationMarkAllRead(p.NotificationService, logg))
		})

		r.Route("/blog", func(r chi.Router) {
			r.Get("/", controllers.AdminBlogList(p.BlogService, logg))
			r.Post("/", controllers.AdminBlogCreate(p.BlogService, logg))
			r.Route("/{postID}", func(r chi.Router) {
				r.Get("/", controllers.AdminBlogGet(p.BlogService, logg))
				r.Put("/", controllers.AdminBlogUpdate(p.BlogService, logg))
				r.Delete("/", controllers.AdminBlogDelete(p.BlogService, logg))
			})
		})
	})

	return r
}

func readinessDeps(p RouterParams) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if p.DB != nil {
		deps["postgres"] = p.DB
	}
	if p.Redis != nil {
		deps["redis"] = p.Redis
	}
	return deps
}
