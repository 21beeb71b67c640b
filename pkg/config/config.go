package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	Idempotency  IdempotencyConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

// Load reads the environment into a Config. Every cross-field problem is
// reported together rather than one per restart.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	return multierr.Combine(
		c.DB.resolveDSN(),
		c.Pricing.validate(),
		c.RateLimit.validate(),
		c.Outbox.validate(),
	)
}

type AppConfig struct {
	Env          string `envconfig:"CASA_APP_ENV" required:"true"`
	Port         string `envconfig:"CASA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CASA_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CASA_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CASA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"CASA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CASA_DB_DSN"`
	Driver string `envconfig:"CASA_DB_DRIVER" default:"postgres"`

	// Discrete connection parts, used only when DSN is empty.
	Host     string `envconfig:"CASA_DB_HOST"`
	Port     int    `envconfig:"CASA_DB_PORT" default:"5432"`
	User     string `envconfig:"CASA_DB_USER"`
	Password string `envconfig:"CASA_DB_PASSWORD"`
	Name     string `envconfig:"CASA_DB_NAME"`
	SSLMode  string `envconfig:"CASA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CASA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CASA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CASA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CASA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery logs statements slower than this at warn level; 0 disables it.
	SlowQuery time.Duration `envconfig:"CASA_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CASA_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"CASA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CASA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CASA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CASA_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"CASA_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CASA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CASA_JWT_ISSUER" default:"casa"`
	ExpirationMinutes int    `envconfig:"CASA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTTL is how long a minted access token stays valid.
func (j JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PricingConfig struct {
	// CasaChargeBPS is the platform fee in basis points of the subtotal.
	CasaChargeBPS int64 `envconfig:"CASA_PRICING_CASA_CHARGE_BPS" default:"200"`
}

func (p PricingConfig) validate() error {
	if p.CasaChargeBPS < 0 || p.CasaChargeBPS > 10000 {
		return fmt.Errorf("%s must be between 0 and 10000, got %d", EnvCasaChargeBPS, p.CasaChargeBPS)
	}
	return nil
}

type IdempotencyConfig struct {
	OrderPlacementTTL time.Duration `envconfig:"CASA_IDEMPOTENCY_ORDER_TTL" default:"24h"`
}

type RateLimitConfig struct {
	Window            time.Duration `envconfig:"CASA_RATE_LIMIT_WINDOW" default:"1m"`
	OrderPlacementMax int64         `envconfig:"CASA_RATE_LIMIT_ORDER_PLACEMENT" default:"20"`
	EvidenceUploadMax int64         `envconfig:"CASA_RATE_LIMIT_EVIDENCE_UPLOAD" default:"10"`
}

func (r RateLimitConfig) validate() error {
	if r.Window < time.Second {
		return fmt.Errorf("%s must be at least 1s, got %s", EnvRateLimitWindow, r.Window)
	}
	return nil
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CASA_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CASA_AUTO_MIGRATE" default:"false"`
	// EmailNotifications toggles the best-effort email publisher.
	EmailNotifications bool `envconfig:"CASA_FEATURE_EMAIL_NOTIFICATIONS" default:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CASA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CASA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CASA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName     string `envconfig:"CASA_GCS_BUCKET_NAME"`
	EvidenceFolder string `envconfig:"CASA_GCS_EVIDENCE_FOLDER" default:"return-evidence"`
	MaxUploadMB    int    `envconfig:"CASA_GCS_MAX_UPLOAD_MB" default:"10"`
}

// Enabled reports whether evidence uploads can be served.
func (g GCSConfig) Enabled() bool {
	return strings.TrimSpace(g.BucketName) != ""
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"CASA_PUBSUB_DOMAIN_TOPIC" default:"casa-domain-events"`
	EmailTopic  string `envconfig:"CASA_PUBSUB_EMAIL_TOPIC" default:"casa-email"`
}

// OutboxConfig tunes the relay in cmd/outbox-publisher.
type OutboxConfig struct {
	BatchSize    int           `envconfig:"CASA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"CASA_OUTBOX_PUBLISH_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"CASA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	AckTimeout   time.Duration `envconfig:"CASA_OUTBOX_ACK_TIMEOUT" default:"15s"`
	MaxBackoff   time.Duration `envconfig:"CASA_OUTBOX_MAX_BACKOFF" default:"10s"`
}

func (o OutboxConfig) validate() error {
	if o.BatchSize < 0 || o.BatchSize > 1000 {
		return fmt.Errorf("%s must be between 0 and 1000, got %d", EnvOutboxBatchSize, o.BatchSize)
	}
	return nil
}

// resolveDSN assembles a postgres URL from the discrete parts when no DSN is
// set. Host, user and database name are the minimum.
func (db *DBConfig) resolveDSN() error {
	if strings.TrimSpace(db.DSN) != "" {
		return nil
	}

	var missing []string
	for env, v := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%s is unset and so are %s", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}
