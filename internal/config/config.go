package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env       string `env:"APP_ENV" env-default:"production"`
	NodeEnv   string `env:"NODE_ENV" env-description:"legacy alias of APP_ENV; development enables refund test mode"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"INFO"`
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Refund    RefundConfig
	Scheduler SchedulerConfig
	MoMo      MoMoConfig
	PayPal    PayPalConfig
	Stripe    StripeConfig
	CORS      CORSConfig
	QR        QRConfig
	Dashboard DashboardConfig
}

type ServerConfig struct {
	Port         string        `env:"PORT" env-default:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"45s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type DatabaseConfig struct {
	DSN          string        `env:"POSTGRES_DSN" env-required:"true"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" env-default:"25"`
	MaxLifetime  time.Duration `env:"DB_MAX_LIFETIME" env-default:"5m"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" env-default:"localhost:9092" env-separator:","`
	GroupID string   `env:"KAFKA_GROUP_ID" env-default:"travyy-api"`
	Enabled bool     `env:"KAFKA_ENABLED" env-default:"true"`
}

type AuthConfig struct {
	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET" env-required:"true"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET" env-required:"true"`
	AccessTTL        time.Duration `env:"JWT_ACCESS_TTL" env-default:"15m"`
	RefreshTTL       time.Duration `env:"JWT_REFRESH_TTL" env-default:"168h"`
	SessionKey       string        `env:"SESSION_KEY" env-required:"true"`
	SessionMaxAge    time.Duration `env:"SESSION_MAX_AGE" env-default:"12h"`
	GoogleClientID   string        `env:"GOOGLE_CLIENT_ID"`
	OTPTTL           time.Duration `env:"OTP_TTL" env-default:"5m"`
	OTPCooldown      time.Duration `env:"OTP_COOLDOWN" env-default:"60s"`
	OTPMaxAttempts   int           `env:"OTP_MAX_ATTEMPTS" env-default:"5"`
}

type RefundConfig struct {
	TestMode    bool          `env:"REFUND_TEST_MODE" env-default:"false"`
	FXVNDUSD    float64       `env:"FX_VND_USD" env-default:"0.000039"`
	ExpireAfter time.Duration `env:"REFUND_EXPIRE_AFTER" env-default:"72h"`
	LockTTL     time.Duration `env:"REFUND_LOCK_TTL" env-default:"2m"`
}

type SchedulerConfig struct {
	Interval   time.Duration `env:"SCHEDULER_INTERVAL" env-default:"1m"`
	RunTimeout time.Duration `env:"SCHEDULER_RUN_TIMEOUT" env-default:"30s"`
}

type MoMoConfig struct {
	PartnerCode string        `env:"MOMO_PARTNER_CODE"`
	AccessKey   string        `env:"MOMO_ACCESS_KEY"`
	SecretKey   string        `env:"MOMO_SECRET_KEY"`
	Endpoint    string        `env:"MOMO_ENDPOINT" env-default:"https://test-payment.momo.vn/v2/gateway/api"`
	Lang        string        `env:"MOMO_LANG" env-default:"vi"`
	Timeout     time.Duration `env:"MOMO_TIMEOUT" env-default:"30s"`
}

type PayPalConfig struct {
	ClientID     string        `env:"PAYPAL_CLIENT_ID"`
	ClientSecret string        `env:"PAYPAL_CLIENT_SECRET"`
	BaseURL      string        `env:"PAYPAL_BASE_URL" env-default:"https://api-m.sandbox.paypal.com"`
	Currency     string        `env:"PAYPAL_CURRENCY" env-default:"USD"`
	Timeout      time.Duration `env:"PAYPAL_TIMEOUT" env-default:"30s"`
}

type StripeConfig struct {
	SecretKey string `env:"STRIPE_SECRET_KEY"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:5173,http://localhost:3000" env-separator:","`
}

type QRConfig struct {
	Size   int    `env:"QR_SIZE" env-default:"256"`
	Secret string `env:"QR_SECRET" env-default:"travyy-voucher"`
}

type DashboardConfig struct {
	CacheTTL time.Duration `env:"DASHBOARD_CACHE_TTL" env-default:"60s"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return &cfg, nil
}

// AdminSeed is the first admin account created by the migrate tool.
type AdminSeed struct {
	Email    string `env:"ADMIN_EMAIL" env-required:"true"`
	Password string `env:"ADMIN_PASSWORD" env-required:"true"`
	FullName string `env:"ADMIN_NAME" env-default:"Travyy Admin"`
}

// LoadDatabase reads only the database settings, for tools that do not serve HTTP.
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	var cfg DatabaseConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read database config: %w", err)
	}
	return &cfg, nil
}

func LoadAdminSeed() (*AdminSeed, error) {
	_ = godotenv.Load()

	var seed AdminSeed
	if err := cleanenv.ReadEnv(&seed); err != nil {
		return nil, fmt.Errorf("read admin seed: %w", err)
	}
	return &seed, nil
}

// RefundTestMode reports whether refunds should be simulated.
func (c *Config) RefundTestMode() bool {
	return c.Refund.TestMode || c.Env == "development" || c.NodeEnv == "development"
}

// Description lists the supported environment variables.
func Description() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
