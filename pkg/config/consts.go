package config

const (
	// EnvPrefix is passed to envconfig.Process. Individual fields carry the
	// full variable name in their tags, so the prefix stays empty.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names, kept as constants so tests and tooling never
// drift from the struct tags.
const (
	EnvAppEnv   = "FARMBASKET_APP_ENV"
	EnvPort     = "FARMBASKET_APP_PORT"
	EnvLogLevel = "FARMBASKET_LOG_LEVEL"

	EnvDBDSN  = "FARMBASKET_DB_DSN"
	EnvDBHost = "FARMBASKET_DB_HOST"
	EnvDBUser = "FARMBASKET_DB_USER"
	EnvDBName = "FARMBASKET_DB_NAME"

	EnvRedisURL = "FARMBASKET_REDIS_URL"

	EnvJWTSecret  = "FARMBASKET_JWT_SECRET"
	EnvJWTIssuer  = "FARMBASKET_JWT_ISSUER"
	EnvJWTExpMins = "FARMBASKET_JWT_EXPIRATION_MINUTES"

	EnvRazorpayKeyID         = "FARMBASKET_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret     = "FARMBASKET_RAZORPAY_KEY_SECRET"
	EnvRazorpayWebhookSecret = "FARMBASKET_RAZORPAY_WEBHOOK_SECRET"

	EnvGCPProjectID       = "FARMBASKET_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic  = "FARMBASKET_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub    = "FARMBASKET_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubPaymentTopic = "FARMBASKET_PUBSUB_PAYMENTS_TOPIC"
	EnvPubSubPaymentSub   = "FARMBASKET_PUBSUB_PAYMENTS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
