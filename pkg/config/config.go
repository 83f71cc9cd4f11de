package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Ordering      OrderingConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Invoice       InvoiceConfig
	PricingClient PricingClientConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Ordering.DeliveryFeeAmount(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AGUASOL_APP_ENV" required:"true"`
	Port         string `envconfig:"AGUASOL_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"AGUASOL_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"AGUASOL_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"AGUASOL_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"AGUASOL_CORS_ORIGINS" default:"*"`

	// MetricsAddr exposes /metrics on background workers; empty disables it.
	MetricsAddr string `envconfig:"AGUASOL_METRICS_ADDR"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"AGUASOL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AGUASOL_DB_DSN"`
	Driver string `envconfig:"AGUASOL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AGUASOL_DB_HOST"`
	LegacyPort     int    `envconfig:"AGUASOL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AGUASOL_DB_USER"`
	LegacyPassword string `envconfig:"AGUASOL_DB_PASSWORD"`
	LegacyName     string `envconfig:"AGUASOL_DB_NAME"`
	LegacySSLMode  string `envconfig:"AGUASOL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGUASOL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGUASOL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGUASOL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGUASOL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"AGUASOL_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AGUASOL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGUASOL_REDIS_ADDR"`
	Password     string        `envconfig:"AGUASOL_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGUASOL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGUASOL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGUASOL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGUASOL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGUASOL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGUASOL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AGUASOL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AGUASOL_JWT_ISSUER" default:"aguasol"`
	ExpirationMinutes int    `envconfig:"AGUASOL_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AGUASOL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AGUASOL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AGUASOL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AGUASOL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AGUASOL_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow          time.Duration `envconfig:"AGUASOL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginSubjectLimit    int           `envconfig:"AGUASOL_AUTH_RATE_LIMIT_LOGIN_SUBJECT_LIMIT" default:"5"`
	LoginIPLimit         int           `envconfig:"AGUASOL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow       time.Duration `envconfig:"AGUASOL_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterSubjectLimit int           `envconfig:"AGUASOL_AUTH_RATE_LIMIT_REGISTER_SUBJECT_LIMIT" default:"3"`
	RegisterIPLimit      int           `envconfig:"AGUASOL_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AGUASOL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AGUASOL_AUTO_MIGRATE" default:"false"`
}

// OrderingConfig holds checkout rules applied when orders are placed.
type OrderingConfig struct {
	DeliveryFee         string        `envconfig:"AGUASOL_DELIVERY_FEE" default:"0.00"`
	GuestOrderTTL       time.Duration `envconfig:"AGUASOL_GUEST_ORDER_TTL" default:"24h"`
	OrderNumberPrefix   string        `envconfig:"AGUASOL_ORDER_NUMBER_PREFIX" default:"AS"`
	TrackingWindow      time.Duration `envconfig:"AGUASOL_TRACKING_RATE_WINDOW" default:"1m"`
	TrackingLimit       int           `envconfig:"AGUASOL_TRACKING_RATE_LIMIT" default:"20"`
	OrderIdempotencyTTL time.Duration `envconfig:"AGUASOL_ORDER_IDEMPOTENCY_TTL" default:"24h"`
}

// DeliveryFeeAmount parses the configured delivery fee.
func (o OrderingConfig) DeliveryFeeAmount() (decimal.Decimal, error) {
	raw := strings.TrimSpace(o.DeliveryFee)
	if raw == "" {
		return decimal.Zero, nil
	}
	fee, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", EnvDeliveryFee, err)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", EnvDeliveryFee)
	}
	return fee, nil
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"AGUASOL_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"AGUASOL_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"AGUASOL_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"AGUASOL_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"AGUASOL_PUBSUB_DOMAIN_TOPIC" default:"aguasol-domain-events"`
	NotificationSubscription string `envconfig:"AGUASOL_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"aguasol-notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"AGUASOL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"AGUASOL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"AGUASOL_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval returns the publisher polling cadence.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type CronConfig struct {
	Interval time.Duration `envconfig:"AGUASOL_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"AGUASOL_CRON_LOCK_TTL" default:"4m"`

	// Retention windows for the purge jobs.
	OutboxRetention       time.Duration `envconfig:"AGUASOL_OUTBOX_RETENTION" default:"336h"`
	DeadLetterRetention   time.Duration `envconfig:"AGUASOL_DLQ_RETENTION" default:"2160h"`
	NotificationRetention time.Duration `envconfig:"AGUASOL_NOTIFICATION_RETENTION" default:"720h"`
}

type InvoiceConfig struct {
	BusinessName    string `envconfig:"AGUASOL_INVOICE_BUSINESS_NAME" default:"AguaSol"`
	BusinessTaxID   string `envconfig:"AGUASOL_INVOICE_TAX_ID"`
	BusinessAddress string `envconfig:"AGUASOL_INVOICE_ADDRESS"`
	BusinessPhone   string `envconfig:"AGUASOL_INVOICE_PHONE"`
	CurrencySymbol  string `envconfig:"AGUASOL_INVOICE_CURRENCY_SYMBOL" default:"S/"`
}

// PricingClientConfig configures the remote pricing client used by cmd/quote.
type PricingClientConfig struct {
	BaseURL string        `envconfig:"AGUASOL_PRICING_BASE_URL" default:"http://localhost:8080"`
	Token   string        `envconfig:"AGUASOL_PRICING_TOKEN"`
	Timeout time.Duration `envconfig:"AGUASOL_PRICING_TIMEOUT" default:"5s"`
}

// LoadPricingClient reads only the remote pricing settings, for tools that do
// not talk to the database.
func LoadPricingClient() (PricingClientConfig, error) {
	var cfg PricingClientConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return PricingClientConfig{}, fmt.Errorf("parsing pricing client config: %w", err)
	}
	return cfg, nil
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
