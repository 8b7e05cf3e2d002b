package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the application Config and the hot-reloadable kiosk settings.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewCheckinSettingsHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	BaseURL     string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Checkin  CheckinConfig
	Redis    RedisConfig
	Stripe   StripeConfig
	Commerce CommerceConfig
	Signup   SignupConfig
	Email    EmailConfig
	Staff    StaffConfig

	Observability ObservabilityConfig
}

type CheckinConfig struct {
	DupWindow       time.Duration
	DefaultDeviceID string
	LocationID      int64
	SettingsPath    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration

	KioskRate  float64
	KioskBurst int
}

// Enabled reports whether a Redis endpoint was configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	APIBase       string
	Tolerance     time.Duration
}

// Configured reports whether outbound processor calls can be made.
func (c StripeConfig) Configured() bool {
	return strings.TrimSpace(c.SecretKey) != ""
}

type CommerceConfig struct {
	Enabled         bool
	Currency        string
	SuccessURL      string
	CancelURL       string
	SessionLifetime time.Duration
}

type SignupConfig struct {
	Enabled        bool
	PriceID        string
	MembershipTier string
	SuccessURL     string
	CancelURL      string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	GymName      string
}

// Configured reports whether SMTP delivery is possible.
func (c EmailConfig) Configured() bool {
	return strings.TrimSpace(c.SMTPHost) != "" &&
		strings.TrimSpace(c.SMTPUsername) != "" &&
		strings.TrimSpace(c.SMTPPassword) != ""
}

type StaffConfig struct {
	EnableInitPIN bool
}

type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string

	OtelEnabled       bool
	OtelEndpoint      string
	OtelProtocol      string
	OtelSamplingRatio float64
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	smtpUser := strings.TrimSpace(getenv("SMTP_USER", ""))

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "frontdesk"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		HTTPAddr:    getenv("HTTP_ADDR", ":"+getenv("PORT", "5055")),
		BaseURL:     strings.TrimRight(getenv("BASE_URL", "http://localhost:5055"), "/"),

		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "sqlite")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "frontdesk"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("CHECKIN_DB_PATH", "data/checkin.sqlite3"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Checkin: CheckinConfig{
			DupWindow:       time.Duration(getenvInt("CHECKIN_DUP_WINDOW_MINUTES", 5)) * time.Minute,
			DefaultDeviceID: getenv("CHECKIN_DEFAULT_DEVICE_ID", "kiosk-1"),
			LocationID:      getenvInt64("CHECKIN_LOCATION_ID", 1),
			SettingsPath:    getenv("CHECKIN_SETTINGS_PATH", "."),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
			LockTTL:  time.Duration(getenvInt("CHECKIN_LOCK_TTL_SECONDS", 5)) * time.Second,

			KioskRate:  getenvFloat("KIOSK_RATE_PER_SECOND", 2),
			KioskBurst: getenvInt("KIOSK_BURST", 10),
		},
		Stripe: StripeConfig{
			SecretKey:     strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			APIBase:       strings.TrimRight(getenv("STRIPE_API_BASE", "https://api.stripe.com"), "/"),
			Tolerance:     time.Duration(getenvInt("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300)) * time.Second,
		},
		Commerce: CommerceConfig{
			Enabled:         getenvBool("COMMERCE_ENABLED", false),
			Currency:        strings.ToLower(getenv("COMMERCE_CURRENCY", "usd")),
			SuccessURL:      getenv("COMMERCE_SUCCESS_URL", ""),
			CancelURL:       getenv("COMMERCE_CANCEL_URL", ""),
			SessionLifetime: time.Duration(getenvInt("COMMERCE_SESSION_LIFETIME_MINUTES", 60)) * time.Minute,
		},
		Signup: SignupConfig{
			Enabled:        getenvBool("SIGNUP_ENABLED", false),
			PriceID:        strings.TrimSpace(getenv("SIGNUP_PRICE_ID", "")),
			MembershipTier: getenv("SIGNUP_MEMBERSHIP_TIER", "Monthly"),
			SuccessURL:     getenv("SIGNUP_SUCCESS_URL", ""),
			CancelURL:      getenv("SIGNUP_CANCEL_URL", ""),
		},
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: smtpUser,
			SMTPPassword: getenv("SMTP_PASS", ""),
			SMTPFrom:     getenv("SMTP_FROM", defaultString(smtpUser, "noreply@example.com")),
			GymName:      getenv("GYM_NAME", "Atlas Gym"),
		},
		Staff: StaffConfig{
			EnableInitPIN: getenv("ENABLE_INIT_PIN", "") == "1",
		},
		Observability: ObservabilityConfig{
			LogLevel:          strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:         strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:       getenvBool("OTEL_ENABLED", strings.EqualFold(environment, "production")),
			OtelEndpoint:      strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317"))),
			OtelProtocol:      strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			OtelSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
	}

	if cfg.Commerce.SuccessURL == "" {
		cfg.Commerce.SuccessURL = cfg.BaseURL + "/orders/success?session_id={CHECKOUT_SESSION_ID}"
	}
	if cfg.Commerce.CancelURL == "" {
		cfg.Commerce.CancelURL = cfg.BaseURL + "/orders/cancel"
	}
	if cfg.Signup.SuccessURL == "" {
		cfg.Signup.SuccessURL = cfg.BaseURL + "/signup/success?session_id={CHECKOUT_SESSION_ID}"
	}
	if cfg.Signup.CancelURL == "" {
		cfg.Signup.CancelURL = cfg.BaseURL + "/signup"
	}

	return cfg
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func defaultString(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
