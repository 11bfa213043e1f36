package config

// EnvPrefix is the envconfig prefix shared by every service binary.
const EnvPrefix = "sorriso"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Canonical environment variable names, shared with tests and deploy tooling.
const (
	EnvAppEnv   = "SORRISO_APP_ENV"
	EnvPort     = "SORRISO_APP_PORT"
	EnvDBDSN    = "SORRISO_DB_DSN"
	EnvDBHost   = "SORRISO_DB_HOST"
	EnvDBUser   = "SORRISO_DB_USER"
	EnvDBName   = "SORRISO_DB_NAME"
	EnvRedisURL = "SORRISO_REDIS_URL"

	EnvJWTSecret  = "SORRISO_JWT_SECRET"
	EnvJWTIssuer  = "SORRISO_JWT_ISSUER"
	EnvJWTExpMins = "SORRISO_JWT_EXPIRATION_MINUTES"

	EnvStripeAPIKey        = "SORRISO_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "SORRISO_STRIPE_WEBHOOK_SECRET"
	EnvAsaasWebhookToken   = "SORRISO_ASAAS_WEBHOOK_TOKEN"
	EnvMercadoPagoToken    = "SORRISO_MERCADOPAGO_ACCESS_TOKEN"

	EnvGCPProjectID       = "SORRISO_GCP_PROJECT_ID"
	EnvGCSBucket          = "SORRISO_GCS_BUCKET_NAME"
	EnvGCSUploadExpiry    = "SORRISO_GCS_UPLOAD_URL_EXPIRY"
	EnvPubSubDomainTopic  = "SORRISO_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubNotifSub     = "SORRISO_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvNotifyFromEmail    = "SORRISO_NOTIFY_FROM_EMAIL"
	EnvNotifyAdminEmail   = "SORRISO_NOTIFY_ADMIN_EMAIL"
	EnvOutboxMaxAttempts  = "SORRISO_OUTBOX_MAX_ATTEMPTS"
	EnvIntakeWindowLimit  = "SORRISO_INTAKE_RATE_LIMIT"
	EnvIntakeWindowLength = "SORRISO_INTAKE_RATE_WINDOW"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
