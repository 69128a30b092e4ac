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
	Mpesa        MpesaConfig
	Pricing      PricingConfig
	Jobs         JobsConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validateProd(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateProd enforces settings that must never be silently defaulted in
// production. A missing webhook secret would turn signature verification into
// a bypass, so startup aborts instead.
func (c *Config) validateProd() error {
	if !c.App.IsProd() {
		return nil
	}
	if strings.TrimSpace(c.Mpesa.WebhookSecret) == "" {
		return fmt.Errorf("%s is required in production", EnvMpesaWebhookSecret)
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("%s is required in production", EnvJWTSecret)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"GRUPPY_APP_ENV" required:"true"`
	Port         string `envconfig:"GRUPPY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GRUPPY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GRUPPY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GRUPPY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GRUPPY_DB_DSN"`
	Driver string `envconfig:"GRUPPY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"GRUPPY_DB_HOST"`
	Port     int    `envconfig:"GRUPPY_DB_PORT" default:"5432"`
	User     string `envconfig:"GRUPPY_DB_USER"`
	Password string `envconfig:"GRUPPY_DB_PASSWORD"`
	Name     string `envconfig:"GRUPPY_DB_NAME"`
	SSLMode  string `envconfig:"GRUPPY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GRUPPY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GRUPPY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GRUPPY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GRUPPY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GRUPPY_REDIS_URL"`
	Address      string        `envconfig:"GRUPPY_REDIS_ADDR"`
	Password     string        `envconfig:"GRUPPY_REDIS_PASSWORD"`
	DB           int           `envconfig:"GRUPPY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GRUPPY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GRUPPY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GRUPPY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GRUPPY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GRUPPY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GRUPPY_JWT_SECRET"`
	Issuer            string `envconfig:"GRUPPY_JWT_ISSUER" default:"gruppy"`
	ExpirationMinutes int    `envconfig:"GRUPPY_JWT_EXPIRATION_MINUTES" default:"60"`
}

// MpesaConfig carries the STK-push gateway credentials.
type MpesaConfig struct {
	BaseURL        string        `envconfig:"GRUPPY_MPESA_BASE_URL" default:"https://sandbox.safaricom.co.ke"`
	ConsumerKey    string        `envconfig:"GRUPPY_MPESA_CONSUMER_KEY"`
	ConsumerSecret string        `envconfig:"GRUPPY_MPESA_CONSUMER_SECRET"`
	ShortCode      string        `envconfig:"GRUPPY_MPESA_SHORT_CODE"`
	Passkey        string        `envconfig:"GRUPPY_MPESA_PASSKEY"`
	CallbackURL    string        `envconfig:"GRUPPY_MPESA_CALLBACK_URL"`
	WebhookSecret  string        `envconfig:"GRUPPY_MPESA_WEBHOOK_SECRET"`
	Timeout        time.Duration `envconfig:"GRUPPY_MPESA_TIMEOUT" default:"30s"`
}

type PricingConfig struct {
	MaxSimulationRuns int `envconfig:"GRUPPY_PRICING_MAX_SIMULATION_RUNS" default:"1000"`
	TopViableResults  int `envconfig:"GRUPPY_PRICING_TOP_VIABLE" default:"10"`
	TopFailedResults  int `envconfig:"GRUPPY_PRICING_TOP_FAILED" default:"5"`
}

type JobsConfig struct {
	PaymentGraceWindow     time.Duration `envconfig:"GRUPPY_JOBS_PAYMENT_GRACE_WINDOW" default:"30m"`
	PricingRetention       time.Duration `envconfig:"GRUPPY_JOBS_PRICING_RETENTION" default:"2160h"`
	ExpirySchedule         string        `envconfig:"GRUPPY_JOBS_EXPIRY_SCHEDULE" default:"*/15 * * * *"`
	FinalizationSchedule   string        `envconfig:"GRUPPY_JOBS_FINALIZATION_SCHEDULE" default:"0 * * * *"`
	PricingCleanupSchedule string        `envconfig:"GRUPPY_JOBS_PRICING_CLEANUP_SCHEDULE" default:"30 2 * * *"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GRUPPY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
