package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "TOWNIE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "TOWNIE_DB_DSN"
	EnvDBHost = "TOWNIE_DB_HOST"
	EnvDBUser = "TOWNIE_DB_USER"
	EnvDBName = "TOWNIE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Pricing       PricingConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Notify        NotifyConfig
	Password      PasswordConfig
	Auth          AuthConfig
	AuthRateLimit AuthRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TOWNIE_APP_ENV" required:"true"`
	Port         string `envconfig:"TOWNIE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TOWNIE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TOWNIE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TOWNIE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TOWNIE_DB_DSN"`
	Driver string `envconfig:"TOWNIE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TOWNIE_DB_HOST"`
	LegacyPort     int    `envconfig:"TOWNIE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TOWNIE_DB_USER"`
	LegacyPassword string `envconfig:"TOWNIE_DB_PASSWORD"`
	LegacyName     string `envconfig:"TOWNIE_DB_NAME"`
	LegacySSLMode  string `envconfig:"TOWNIE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TOWNIE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TOWNIE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TOWNIE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TOWNIE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TOWNIE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TOWNIE_REDIS_ADDR"`
	Password     string        `envconfig:"TOWNIE_REDIS_PASSWORD"`
	DB           int           `envconfig:"TOWNIE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TOWNIE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TOWNIE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TOWNIE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TOWNIE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TOWNIE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TOWNIE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TOWNIE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TOWNIE_JWT_EXPIRATION_MINUTES" required:"true"`
}

// PricingConfig carries the marketplace commission and delivery constants.
// These were formerly free-form key/value rows edited through an admin panel;
// loading and validating them once at startup means a missing or garbage value
// stops the process instead of surfacing mid-settlement.
type PricingConfig struct {
	TownieShipCharge decimal.Decimal `envconfig:"TOWNIE_SHIP_CHARGE" default:"35"`
	ReferralPct      decimal.Decimal `envconfig:"TOWNIE_REFERRAL_PERCENTAGE" default:"0.02"`
	PaymentGwPct     decimal.Decimal `envconfig:"TOWNIE_PAYMENT_GATEWAY_PERCENTAGE" default:"0.0236"`
	TSFRate          decimal.Decimal `envconfig:"TOWNIE_SHIP_FEE_RATE" default:"0.0236"`
	TSFMinimum       decimal.Decimal `envconfig:"TOWNIE_SHIP_FEE_MINIMUM" default:"25"`
	TCSRate          decimal.Decimal `envconfig:"TOWNIE_TCS_RATE" default:"0.00990099"`
	ShopBaseRadiusKM float64         `envconfig:"TOWNIE_SHOP_BASE_RADIUS_KM" default:"5"`
}

func (p PricingConfig) Validate() error {
	if !p.TownieShipCharge.IsPositive() {
		return fmt.Errorf("pricing: TOWNIE_SHIP_CHARGE must be positive, got %s", p.TownieShipCharge)
	}
	if p.ReferralPct.IsNegative() || p.ReferralPct.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("pricing: TOWNIE_REFERRAL_PERCENTAGE must be within [0,1], got %s", p.ReferralPct)
	}
	if p.PaymentGwPct.IsNegative() || p.PaymentGwPct.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("pricing: TOWNIE_PAYMENT_GATEWAY_PERCENTAGE must be within [0,1], got %s", p.PaymentGwPct)
	}
	if p.TSFRate.IsNegative() || p.TSFMinimum.IsNegative() {
		return fmt.Errorf("pricing: ship fee rate/minimum must not be negative")
	}
	if p.TCSRate.IsNegative() {
		return fmt.Errorf("pricing: TOWNIE_TCS_RATE must not be negative, got %s", p.TCSRate)
	}
	if p.ShopBaseRadiusKM <= 0 {
		return fmt.Errorf("pricing: TOWNIE_SHOP_BASE_RADIUS_KM must be positive, got %v", p.ShopBaseRadiusKM)
	}
	return nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TOWNIE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TOWNIE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TOWNIE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"TOWNIE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TOWNIE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"TOWNIE_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"TOWNIE_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TOWNIE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TOWNIE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TOWNIE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TOWNIE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TOWNIE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TOWNIE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TOWNIE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TOWNIE_ARGON_KEY_LEN" default:"32"`
}

type AuthConfig struct {
	OTPTTL     time.Duration `envconfig:"TOWNIE_AUTH_OTP_TTL" default:"5m"`
	OTPWindow  time.Duration `envconfig:"TOWNIE_AUTH_OTP_RATE_WINDOW" default:"15m"`
	OTPLimit   int64         `envconfig:"TOWNIE_AUTH_OTP_RATE_LIMIT" default:"5"`
	OTPDigits  int           `envconfig:"TOWNIE_AUTH_OTP_DIGITS" default:"6"`
	DevEchoOTP bool          `envconfig:"TOWNIE_AUTH_DEV_ECHO_OTP" default:"false"`
}

type AuthRateLimitConfig struct {
	Window        time.Duration `envconfig:"TOWNIE_AUTH_RL_WINDOW" default:"15m"`
	IPLimit       int           `envconfig:"TOWNIE_AUTH_RL_IP_LIMIT" default:"30"`
	IdentityLimit int           `envconfig:"TOWNIE_AUTH_RL_IDENTITY_LIMIT" default:"10"`
}

type NotifyConfig struct {
	SMSGatewayURL string `envconfig:"TOWNIE_SMS_GATEWAY_URL"`
	SMSAPIKey     string `envconfig:"TOWNIE_SMS_API_KEY"`
	SenderEmail   string `envconfig:"TOWNIE_SENDER_EMAIL"`
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
