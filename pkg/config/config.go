package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "FORKLINE"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "FORKLINE_DB_DSN"
	EnvDBHost = "FORKLINE_DB_HOST"
	EnvDBUser = "FORKLINE_DB_USER"
	EnvDBName = "FORKLINE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Payments     PaymentsConfig
	Delivery     DeliveryConfig
	Orders       OrdersConfig
	Points       PointsConfig
	Mailer       MailerConfig
	Cron         CronConfig
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
	Env          string `envconfig:"FORKLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"FORKLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FORKLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FORKLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FORKLINE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FORKLINE_DB_DSN"`
	Driver string `envconfig:"FORKLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FORKLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"FORKLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FORKLINE_DB_USER"`
	LegacyPassword string `envconfig:"FORKLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"FORKLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"FORKLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FORKLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FORKLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FORKLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FORKLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FORKLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FORKLINE_REDIS_ADDR"`
	Password     string        `envconfig:"FORKLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FORKLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FORKLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FORKLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FORKLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FORKLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FORKLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FORKLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FORKLINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FORKLINE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FORKLINE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FORKLINE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FORKLINE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FORKLINE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FORKLINE_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FORKLINE_AUTO_MIGRATE" default:"false"`
}

// PaymentsConfig holds the payment processor webhook credentials. Loaded once
// at process start and injected into handlers.
type PaymentsConfig struct {
	WebhookSecret  string        `envconfig:"FORKLINE_PAYMENTS_WEBHOOK_SECRET" required:"true"`
	IdempotencyTTL time.Duration `envconfig:"FORKLINE_PAYMENTS_IDEMPOTENCY_TTL" default:"720h"`
}

// DeliveryConfig configures the courier providers the dispatcher can use.
type DeliveryConfig struct {
	Provider          string        `envconfig:"FORKLINE_DELIVERY_PROVIDER" default:"swiftdrop"`
	SwiftdropBaseURL  string        `envconfig:"FORKLINE_SWIFTDROP_BASE_URL"`
	SwiftdropAPIKey   string        `envconfig:"FORKLINE_SWIFTDROP_API_KEY"`
	FleetbirdBaseURL  string        `envconfig:"FORKLINE_FLEETBIRD_BASE_URL"`
	FleetbirdAPIKey   string        `envconfig:"FORKLINE_FLEETBIRD_API_KEY"`
	DispatchDelay     time.Duration `envconfig:"FORKLINE_DELIVERY_DISPATCH_DELAY" default:"10m"`
	RequestTimeout    time.Duration `envconfig:"FORKLINE_DELIVERY_REQUEST_TIMEOUT" default:"15s"`
	PickupName        string        `envconfig:"FORKLINE_DELIVERY_PICKUP_NAME"`
	PickupPhone       string        `envconfig:"FORKLINE_DELIVERY_PICKUP_PHONE"`
	PickupAddressLine string        `envconfig:"FORKLINE_DELIVERY_PICKUP_ADDRESS"`
	PickupPostalCode  string        `envconfig:"FORKLINE_DELIVERY_PICKUP_POSTAL_CODE"`
	PickupCity        string        `envconfig:"FORKLINE_DELIVERY_PICKUP_CITY"`
}

type OrdersConfig struct {
	CancellationGrace time.Duration `envconfig:"FORKLINE_ORDERS_CANCELLATION_GRACE" default:"5m"`
}

type PointsConfig struct {
	// EarnRate is points earned per currency unit spent, e.g. "0.1".
	EarnRate string `envconfig:"FORKLINE_POINTS_EARN_RATE" default:"0.1"`
}

type MailerConfig struct {
	APIKey      string        `envconfig:"FORKLINE_MAILER_API_KEY"`
	BaseURL     string        `envconfig:"FORKLINE_MAILER_BASE_URL"`
	FromAddress string        `envconfig:"FORKLINE_MAILER_FROM_EMAIL" default:"orders@forkline.app"`
	Timeout     time.Duration `envconfig:"FORKLINE_MAILER_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	SweepInterval time.Duration `envconfig:"FORKLINE_CRON_SWEEP_INTERVAL" default:"1m"`
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
