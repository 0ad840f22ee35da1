package config

const (
	EnvPrefix = "MASALA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "MASALA_APP_ENV"
	EnvPort     = "MASALA_APP_PORT"
	EnvLogLevel = "MASALA_LOG_LEVEL"

	EnvHTTPRequestTimeout = "MASALA_HTTP_REQUEST_TIMEOUT"

	EnvDBDSN    = "MASALA_DB_DSN"
	EnvDBDriver = "MASALA_DB_DRIVER"
	EnvDBHost   = "MASALA_DB_HOST"
	EnvDBPort   = "MASALA_DB_PORT"
	EnvDBUser   = "MASALA_DB_USER"
	EnvDBPass   = "MASALA_DB_PASSWORD"
	EnvDBName   = "MASALA_DB_NAME"

	EnvRedisURL = "MASALA_REDIS_URL"

	EnvJWTSecret  = "MASALA_JWT_SECRET"
	EnvJWTIssuer  = "MASALA_JWT_ISSUER"
	EnvJWTExpMins = "MASALA_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite   = "MASALA_USE_SQLITE"
	EnvAutoMigrate = "MASALA_AUTO_MIGRATE"

	EnvCurrency            = "MASALA_CURRENCY"
	EnvTotalToleranceCents = "MASALA_ORDERS_TOTAL_TOLERANCE_CENTS"

	EnvGCPProjectID      = "MASALA_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "MASALA_PUBSUB_ORDERS_TOPIC"
	EnvOutboxBatchSize   = "MASALA_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvCronInterval      = "MASALA_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
