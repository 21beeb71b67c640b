package config

// EnvPrefix is handed to envconfig; every field carries an explicit tag so the
// prefix only matters for documentation output.
const EnvPrefix = "CASA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "CASA_APP_ENV"
	EnvPort         = "CASA_APP_PORT"
	EnvLogLevel     = "CASA_LOG_LEVEL"
	EnvLogFormat    = "CASA_LOG_FORMAT"
	EnvLogWarnStack = "CASA_LOG_WARN_STACK"

	EnvDBDSN      = "CASA_DB_DSN"
	EnvDBDriver   = "CASA_DB_DRIVER"
	EnvDBHost     = "CASA_DB_HOST"
	EnvDBPort     = "CASA_DB_PORT"
	EnvDBUser     = "CASA_DB_USER"
	EnvDBPassword = "CASA_DB_PASSWORD"
	EnvDBName     = "CASA_DB_NAME"
	EnvDBSSLMode  = "CASA_DB_SSLMODE"

	EnvRedisURL = "CASA_REDIS_URL"

	EnvJWTSecret = "CASA_JWT_SECRET"
	EnvJWTIssuer = "CASA_JWT_ISSUER"

	EnvCasaChargeBPS = "CASA_PRICING_CASA_CHARGE_BPS"

	EnvGCPProjectID       = "CASA_GCP_PROJECT_ID"
	EnvGCPCredentialsJSON = "CASA_GCP_CREDENTIALS_JSON"
	EnvGCSBucket          = "CASA_GCS_BUCKET_NAME"

	EnvPubSubDomainTopic = "CASA_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubEmailTopic  = "CASA_PUBSUB_EMAIL_TOPIC"

	EnvRateLimitWindow = "CASA_RATE_LIMIT_WINDOW"
	EnvOutboxBatchSize = "CASA_OUTBOX_PUBLISH_BATCH_SIZE"
)
