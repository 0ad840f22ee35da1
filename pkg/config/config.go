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
	HTTP         HTTPConfig
	DB           DBConfig
	Redis        RedisConfig
	RateLimit    RateLimitConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Orders       OrdersConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MASALA_APP_ENV" required:"true"`
	Port         string `envconfig:"MASALA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MASALA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MASALA_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"MASALA_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// HTTPConfig bounds the transport layer. RequestTimeout is applied per request
// by the router; the remaining values configure http.Server.
type HTTPConfig struct {
	RequestTimeout    time.Duration `envconfig:"MASALA_HTTP_REQUEST_TIMEOUT" default:"15s"`
	ReadHeaderTimeout time.Duration `envconfig:"MASALA_HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `envconfig:"MASALA_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout      time.Duration `envconfig:"MASALA_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout   time.Duration `envconfig:"MASALA_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	AllowedOrigins    []string      `envconfig:"MASALA_HTTP_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// RateLimitConfig throttles mutating API calls per caller. A zero limit
// disables throttling.
type RateLimitConfig struct {
	WriteWindow time.Duration `envconfig:"MASALA_RATE_LIMIT_WRITE_WINDOW" default:"1m"`
	WriteLimit  int           `envconfig:"MASALA_RATE_LIMIT_WRITE_LIMIT" default:"120"`
}

type DBConfig struct {
	DSN    string `envconfig:"MASALA_DB_DSN"`
	Driver string `envconfig:"MASALA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MASALA_DB_HOST"`
	LegacyPort     int    `envconfig:"MASALA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MASALA_DB_USER"`
	LegacyPassword string `envconfig:"MASALA_DB_PASSWORD"`
	LegacyName     string `envconfig:"MASALA_DB_NAME"`
	LegacySSLMode  string `envconfig:"MASALA_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"MASALA_SQLITE_PATH" default:"masala.db"`

	MaxOpenConns    int           `envconfig:"MASALA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MASALA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MASALA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MASALA_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"MASALA_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// IsSQLite reports whether the local sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"MASALA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MASALA_REDIS_ADDR"`
	Password     string        `envconfig:"MASALA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MASALA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MASALA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MASALA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MASALA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MASALA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MASALA_REDIS_WRITE_TIMEOUT" default:"5s"`

	IdempotencyTTL time.Duration `envconfig:"MASALA_IDEMPOTENCY_TTL" default:"24h"`
	// how long consumers remember processed event ids
	EventDedupeTTL time.Duration `envconfig:"MASALA_EVENT_DEDUPE_TTL" default:"168h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MASALA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MASALA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MASALA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the configured access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MASALA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MASALA_AUTO_MIGRATE" default:"false"`
}

// OrdersConfig carries the money and listing knobs shared by orders and payments.
type OrdersConfig struct {
	Currency            string `envconfig:"MASALA_CURRENCY" default:"INR"`
	TotalToleranceCents int64  `envconfig:"MASALA_ORDERS_TOTAL_TOLERANCE_CENTS" default:"1"`
	DefaultPageSize     int    `envconfig:"MASALA_DEFAULT_PAGE_SIZE" default:"10"`
	MaxPageSize         int    `envconfig:"MASALA_MAX_PAGE_SIZE" default:"100"`
}

func (o OrdersConfig) validate() error {
	if strings.TrimSpace(o.Currency) == "" {
		return fmt.Errorf("%s must not be empty", EnvCurrency)
	}
	if o.TotalToleranceCents < 0 {
		return fmt.Errorf("%s must be >= 0", EnvTotalToleranceCents)
	}
	if o.DefaultPageSize <= 0 || o.MaxPageSize < o.DefaultPageSize {
		return fmt.Errorf("invalid page sizes: default=%d max=%d", o.DefaultPageSize, o.MaxPageSize)
	}
	return nil
}

type GCPConfig struct {
	ProjectID       string `envconfig:"MASALA_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"MASALA_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"MASALA_PUBSUB_ORDERS_TOPIC" default:"masala-order-events"`
	NotificationSubscription string `envconfig:"MASALA_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"masala-order-events-notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MASALA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MASALA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MASALA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"MASALA_CRON_INTERVAL" default:"15m"`
	LockTTL    time.Duration `envconfig:"MASALA_CRON_LOCK_TTL" default:"10m"`
	JobTimeout time.Duration `envconfig:"MASALA_CRON_JOB_TIMEOUT" default:"5m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
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
