package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brunotavares/sorrisodigital-backend/api/routes"
	"github.com/brunotavares/sorrisodigital-backend/internal/attachments"
	"github.com/brunotavares/sorrisodigital-backend/internal/auth"
	"github.com/brunotavares/sorrisodigital-backend/internal/blog"
	"github.com/brunotavares/sorrisodigital-backend/internal/leads"
	"github.com/brunotavares/sorrisodigital-backend/internal/ledger"
	"github.com/brunotavares/sorrisodigital-backend/internal/notifications"
	"github.com/brunotavares/sorrisodigital-backend/internal/orphans"
	"github.com/brunotavares/sorrisodigital-backend/internal/reconcile"
	"github.com/brunotavares/sorrisodigital-backend/internal/webhooks"
	asaaswebhook "github.com/brunotavares/sorrisodigital-backend/internal/webhooks/asaas"
	mpwebhook "github.com/brunotavares/sorrisodigital-backend/internal/webhooks/mercadopago"
	stripewebhook "github.com/brunotavares/sorrisodigital-backend/internal/webhooks/stripe"
	"github.com/brunotavares/sorrisodigital-backend/pkg/auth/session"
	"github.com/brunotavares/sorrisodigital-backend/pkg/config"
	"github.com/brunotavares/sorrisodigital-backend/pkg/db"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
	"github.com/brunotavares/sorrisodigital-backend/pkg/mercadopago"
	"github.com/brunotavares/sorrisodigital-backend/pkg/metrics"
	"github.com/brunotavares/sorrisodigital-backend/pkg/migrate"
	"github.com/brunotavares/sorrisodigital-backend/pkg/outbox"
	"github.com/brunotavares/sorrisodigital-backend/pkg/redis"
	"github.com/brunotavares/sorrisodigital-backend/pkg/storage/gcs"
	pkgstripe "github.com/brunotavares/sorrisodigital-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		AdminRepo:      auth.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	leadRepo := leads.NewRepository(dbClient.DB())
	leadService, err := leads.NewService(leads.ServiceParams{
		Repo:              leadRepo,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create lead service", err)
		os.Exit(1)
	}

	blogService, err := blog.NewService(blog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create blog service", err)
		os.Exit(1)
	}

	orphanService, err := orphans.NewService(orphans.ServiceParams{
		Repo:              orphans.NewRepository(dbClient.DB()),
		Outbox:            outboxService,
		TransactionRunner: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orphan service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	var attachmentService attachments.Service
	if cfg.GCS.BucketName != "" {
		gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap gcs", err)
			os.Exit(1)
		}
		attachmentService, err = attachments.NewService(attachments.ServiceParams{
			Repo:      attachments.NewRepository(dbClient.DB()),
			Leads:     leadRepo,
			GCS:       gcsClient,
			Bucket:    cfg.GCS.BucketName,
			UploadTTL: cfg.GCS.UploadURLExpiry,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create attachment service", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "gcs bucket not configured, attachment routes disabled")
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	gateway, err := reconcile.NewGateway(reconcile.GatewayParams{
		DB:     dbClient.DB(),
		Outbox: outboxService,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile gateway", err)
		os.Exit(1)
	}

	guard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Outbox.IdempotencyTTL, "payment-webhooks")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()

	processor, err := webhooks.NewProcessor(webhooks.ProcessorParams{
		Ledger:  ledgerService,
		Gateway: gateway,
		Orphans: orphanService,
		Guard:   guard,
		Metrics: metrics.NewWebhookMetrics(registry),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook processor", err)
		os.Exit(1)
	}

	var stripeAdapter *stripewebhook.Adapter
	if cfg.Stripe.WebhookSecret != "" {
		signingSecret := cfg.Stripe.WebhookSecret
		if cfg.Stripe.APIKey != "" {
			stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
			if err != nil {
				logg.Error(context.Background(), "failed to initialize stripe client", err)
				os.Exit(1)
			}
			signingSecret = stripeClient.SigningSecret()
		}
		stripeAdapter, err = stripewebhook.NewAdapter(signingSecret)
		if err != nil {
			logg.Error(context.Background(), "failed to create stripe adapter", err)
			os.Exit(1)
		}
	}

	var asaasAdapter *asaaswebhook.Adapter
	if cfg.Asaas.WebhookToken != "" {
		asaasAdapter, err = asaaswebhook.NewAdapter(cfg.Asaas.WebhookToken)
		if err != nil {
			logg.Error(context.Background(), "failed to create asaas adapter", err)
			os.Exit(1)
		}
	}

	var mpAdapter *mpwebhook.Adapter
	if cfg.MercadoPago.AccessToken != "" {
		mpClient, err := mercadopago.NewClient(cfg.MercadoPago.AccessToken, mercadopago.WithBaseURL(cfg.MercadoPago.BaseURL))
		if err != nil {
			logg.Error(context.Background(), "failed to create mercadopago client", err)
			os.Exit(1)
		}
		mpAdapter, err = mpwebhook.NewAdapter(mpClient)
		if err != nil {
			logg.Error(context.Background(), "failed to create mercadopago adapter", err)
			os.Exit(1)
		}
	}

	router := routes.NewRouter(routes.RouterParams{
		Config:              cfg,
		Logger:              logg,
		DB:                  dbClient,
		Redis:               redisClient,
		SessionChecker:      sessionManager,
		AuthService:         authService,
		LeadService:         leadService,
		BlogService:         blogService,
		AttachmentService:   attachmentService,
		OrphanService:       orphanService,
		NotificationService: notificationService,
		WebhookProcessor:    processor,
		StripeAdapter:       stripeAdapter,
		AsaasAdapter:        asaasAdapter,
		MercadoPagoAdapter:  mpAdapter,
		MetricsGatherer:     registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
