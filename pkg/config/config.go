package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Password    PasswordConfig
	RateLimit   RateLimitConfig
	Stripe      StripeConfig
	Asaas       AsaasConfig
	MercadoPago MercadoPagoConfig
	GCP         GCPConfig
	GCS         GCSConfig
	PubSub      PubSubConfig
	Outbox      OutboxConfig
	Notify      NotifyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validateWebhookSecrets(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateWebhookSecrets refuses to boot a production instance whose webhook
// endpoints would otherwise accept unauthenticated traffic.
func (c *Config) validateWebhookSecrets() error {
	if !c.App.IsProd() {
		return nil
	}
	missing := []string{}
	if strings.TrimSpace(c.Stripe.WebhookSecret) == "" {
		missing = append(missing, EnvStripeWebhookSecret)
	}
	if strings.TrimSpace(c.Asaas.WebhookToken) == "" {
		missing = append(missing, EnvAsaasWebhookToken)
	}
	if strings.TrimSpace(c.MercadoPago.AccessToken) == "" {
		missing = append(missing, EnvMercadoPagoToken)
	}
	if len(missing) > 0 {
		return fmt.Errorf("production requires webhook secrets: %s", strings.Join(missing, ", "))
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"SORRISO_APP_ENV" required:"true"`
	Port         string `envconfig:"SORRISO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SORRISO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SORRISO_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"SORRISO_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SORRISO_DB_DSN"`
	Driver string `envconfig:"SORRISO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SORRISO_DB_HOST"`
	LegacyPort     int    `envconfig:"SORRISO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SORRISO_DB_USER"`
	LegacyPassword string `envconfig:"SORRISO_DB_PASSWORD"`
	LegacyName     string `envconfig:"SORRISO_DB_NAME"`
	LegacySSLMode  string `envconfig:"SORRISO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SORRISO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SORRISO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SORRISO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SORRISO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SORRISO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SORRISO_REDIS_ADDR"`
	Password     string        `envconfig:"SORRISO_REDIS_PASSWORD"`
	DB           int           `envconfig:"SORRISO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SORRISO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SORRISO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SORRISO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SORRISO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SORRISO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SORRISO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SORRISO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SORRISO_JWT_EXPIRATION_MINUTES" default:"480"`
	RefreshTokenDays  int    `envconfig:"SORRISO_JWT_REFRESH_TOKEN_DAYS" default:"30"`
}

// RefreshTokenTTL returns the refresh session lifetime.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(j.RefreshTokenDays) * 24 * time.Hour
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SORRISO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SORRISO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SORRISO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SORRISO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SORRISO_ARGON_KEY_LEN" default:"32"`
}

type RateLimitConfig struct {
	IntakeWindow     time.Duration `envconfig:"SORRISO_INTAKE_RATE_WINDOW" default:"1m"`
	IntakeIPLimit    int           `envconfig:"SORRISO_INTAKE_RATE_LIMIT" default:"5"`
	LoginWindow      time.Duration `envconfig:"SORRISO_LOGIN_RATE_WINDOW" default:"1m"`
	LoginIPLimit     int           `envconfig:"SORRISO_LOGIN_RATE_IP_LIMIT" default:"20"`
	LoginEmailLimit  int           `envconfig:"SORRISO_LOGIN_RATE_EMAIL_LIMIT" default:"5"`
	IdempotencyTTLHr int           `envconfig:"SORRISO_HTTP_IDEMPOTENCY_TTL_HOURS" default:"24"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"SORRISO_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"SORRISO_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"SORRISO_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type AsaasConfig struct {
	APIKey       string `envconfig:"SORRISO_ASAAS_API_KEY"`
	WebhookToken string `envconfig:"SORRISO_ASAAS_WEBHOOK_TOKEN"`
	BaseURL      string `envconfig:"SORRISO_ASAAS_BASE_URL" default:"https://api.asaas.com/v3"`
}

type MercadoPagoConfig struct {
	AccessToken   string        `envconfig:"SORRISO_MERCADOPAGO_ACCESS_TOKEN"`
	BaseURL       string        `envconfig:"SORRISO_MERCADOPAGO_BASE_URL" default:"https://api.mercadopago.com"`
	LookupTimeout time.Duration `envconfig:"SORRISO_MERCADOPAGO_LOOKUP_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SORRISO_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SORRISO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SORRISO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName      string        `envconfig:"SORRISO_GCS_BUCKET_NAME"`
	UploadURLExpiry time.Duration `envconfig:"SORRISO_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"SORRISO_PUBSUB_DOMAIN_TOPIC" default:"sorriso-domain-events"`
	NotificationSubscription string `envconfig:"SORRISO_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"SORRISO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"SORRISO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"SORRISO_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"SORRISO_OUTBOX_IDEMPOTENCY_TTL" default:"720h"`
}

type NotifyConfig struct {
	FromEmail  string `envconfig:"SORRISO_NOTIFY_FROM_EMAIL" default:"contato@sorrisodigital.com.br"`
	AdminEmail string `envconfig:"SORRISO_NOTIFY_ADMIN_EMAIL"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
