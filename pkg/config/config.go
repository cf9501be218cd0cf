package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Razorpay     RazorpayConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FARMBASKET_APP_ENV" required:"true"`
	Port         string `envconfig:"FARMBASKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FARMBASKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FARMBASKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FARMBASKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FARMBASKET_DB_DSN"`
	Driver string `envconfig:"FARMBASKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FARMBASKET_DB_HOST"`
	LegacyPort     int    `envconfig:"FARMBASKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FARMBASKET_DB_USER"`
	LegacyPassword string `envconfig:"FARMBASKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"FARMBASKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"FARMBASKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FARMBASKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FARMBASKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FARMBASKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FARMBASKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FARMBASKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FARMBASKET_REDIS_ADDR"`
	Password     string        `envconfig:"FARMBASKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"FARMBASKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FARMBASKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FARMBASKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FARMBASKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FARMBASKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FARMBASKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FARMBASKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FARMBASKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FARMBASKET_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token TTL configured in minutes.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type RazorpayConfig struct {
	KeyID         string `envconfig:"FARMBASKET_RAZORPAY_KEY_ID" required:"true"`
	KeySecret     string `envconfig:"FARMBASKET_RAZORPAY_KEY_SECRET" required:"true"`
	WebhookSecret string `envconfig:"FARMBASKET_RAZORPAY_WEBHOOK_SECRET" required:"true"`
	Currency      string `envconfig:"FARMBASKET_RAZORPAY_CURRENCY" default:"INR"`
}

type CheckoutConfig struct {
	MaxQtyPerItem   int           `envconfig:"FARMBASKET_CHECKOUT_MAX_QTY_PER_ITEM" default:"10"`
	PaymentDeadline time.Duration `envconfig:"FARMBASKET_CHECKOUT_PAYMENT_DEADLINE" default:"30m"`
}

type CronConfig struct {
	PaymentPollInterval time.Duration `envconfig:"FARMBASKET_CRON_PAYMENT_POLL_INTERVAL" default:"1m"`
	PaymentPollMinAge   time.Duration `envconfig:"FARMBASKET_CRON_PAYMENT_POLL_MIN_AGE" default:"5m"`
	PaymentPollBatch    int           `envconfig:"FARMBASKET_CRON_PAYMENT_POLL_BATCH" default:"100"`
	OutboxRetention     time.Duration `envconfig:"FARMBASKET_CRON_OUTBOX_RETENTION" default:"168h"`
	LockTTL             time.Duration `envconfig:"FARMBASKET_CRON_LOCK_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FARMBASKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FARMBASKET_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"FARMBASKET_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FARMBASKET_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"FARMBASKET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FARMBASKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic          string `envconfig:"FARMBASKET_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription   string `envconfig:"FARMBASKET_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	PaymentsTopic        string `envconfig:"FARMBASKET_PUBSUB_PAYMENTS_TOPIC" required:"true"`
	PaymentsSubscription string `envconfig:"FARMBASKET_PUBSUB_PAYMENTS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FARMBASKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FARMBASKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FARMBASKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
