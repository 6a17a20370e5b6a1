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
	DB           DBConfig
	Redis        RedisConfig
	Operator     OperatorConfig
	Password     PasswordConfig
	Bot          BotConfig
	RateLimit    RateLimitConfig
	Checkout     CheckoutConfig
	Realtime     RealtimeConfig
	Presence     PresenceConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"QUESTPARK_APP_ENV" required:"true"`
	Port         string   `envconfig:"QUESTPARK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"QUESTPARK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"QUESTPARK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"QUESTPARK_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"QUESTPARK_DB_DSN"`
	Driver string `envconfig:"QUESTPARK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"QUESTPARK_DB_HOST"`
	LegacyPort     int    `envconfig:"QUESTPARK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QUESTPARK_DB_USER"`
	LegacyPassword string `envconfig:"QUESTPARK_DB_PASSWORD"`
	LegacyName     string `envconfig:"QUESTPARK_DB_NAME"`
	LegacySSLMode  string `envconfig:"QUESTPARK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUESTPARK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUESTPARK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUESTPARK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUESTPARK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUESTPARK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"QUESTPARK_REDIS_ADDR"`
	Password     string        `envconfig:"QUESTPARK_REDIS_PASSWORD"`
	DB           int           `envconfig:"QUESTPARK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QUESTPARK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUESTPARK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUESTPARK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUESTPARK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QUESTPARK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// OperatorConfig carries the single shared dashboard credential and the token
// parameters issued against it. The identity provider behind it is an
// external collaborator; only its verification material lives here.
type OperatorConfig struct {
	Email           string `envconfig:"QUESTPARK_OPERATOR_EMAIL"`
	PasswordHash    string `envconfig:"QUESTPARK_OPERATOR_PASSWORD_HASH"`
	JWTSecret       string `envconfig:"QUESTPARK_OPERATOR_JWT_SECRET"`
	JWTIssuer       string `envconfig:"QUESTPARK_OPERATOR_JWT_ISSUER" default:"questpark"`
	TokenTTLMinutes int    `envconfig:"QUESTPARK_OPERATOR_TOKEN_TTL_MINUTES" default:"720"`
}

// TokenTTL returns the operator token lifetime.
func (o OperatorConfig) TokenTTL() time.Duration {
	if o.TokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(o.TokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"QUESTPARK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"QUESTPARK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"QUESTPARK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"QUESTPARK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"QUESTPARK_ARGON_KEY_LEN" default:"32"`
}

// BotConfig drives the bot-mitigation gate in front of mutating endpoints.
type BotConfig struct {
	TurnstileSecret    string        `envconfig:"QUESTPARK_TURNSTILE_SECRET"`
	TurnstileHostnames []string      `envconfig:"QUESTPARK_TURNSTILE_ALLOWED_HOSTNAMES"`
	TurnstileVerifyURL string        `envconfig:"QUESTPARK_TURNSTILE_VERIFY_URL" default:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`
	VerifyTimeout      time.Duration `envconfig:"QUESTPARK_BOT_VERIFY_TIMEOUT" default:"5s"`
	Strict             bool          `envconfig:"QUESTPARK_BOT_STRICT" default:"false"`
	MinFillTime        time.Duration `envconfig:"QUESTPARK_BOT_MIN_FILL_TIME" default:"1500ms"`
	MaxFormAge         time.Duration `envconfig:"QUESTPARK_BOT_MAX_FORM_AGE" default:"45m"`
}

// StrictMode reports whether challenge verification must fail closed.
func (b BotConfig) StrictMode(app AppConfig) bool {
	return app.IsProd() || b.Strict
}

type RateLimitConfig struct {
	Window          time.Duration `envconfig:"QUESTPARK_RATE_LIMIT_WINDOW" default:"1m"`
	GlobalLimit     int           `envconfig:"QUESTPARK_RATE_LIMIT_GLOBAL" default:"400"`
	APILimit        int           `envconfig:"QUESTPARK_RATE_LIMIT_API" default:"100"`
	SensitiveWindow time.Duration `envconfig:"QUESTPARK_RATE_LIMIT_SENSITIVE_WINDOW" default:"10m"`
	SensitiveLimit  int           `envconfig:"QUESTPARK_RATE_LIMIT_SENSITIVE" default:"8"`
	DevMultiplier   int           `envconfig:"QUESTPARK_RATE_LIMIT_DEV_MULTIPLIER" default:"10"`
}

type CheckoutConfig struct {
	ListLimit      int           `envconfig:"QUESTPARK_CHECKOUT_LIST_LIMIT" default:"300"`
	HistoryLimit   int           `envconfig:"QUESTPARK_CHECKOUT_HISTORY_LIMIT" default:"50"`
	ApprovalDelay  time.Duration `envconfig:"QUESTPARK_CHECKOUT_APPROVAL_DELAY" default:"5s"`
	OTPVerifyDelay time.Duration `envconfig:"QUESTPARK_CHECKOUT_OTP_VERIFY_DELAY" default:"5s"`
}

type RealtimeConfig struct {
	HeartbeatInterval time.Duration `envconfig:"QUESTPARK_REALTIME_HEARTBEAT" default:"25s"`
	Channel           string        `envconfig:"QUESTPARK_REALTIME_CHANNEL" default:"qp:checkout:events"`
}

type PresenceConfig struct {
	TTL time.Duration `envconfig:"QUESTPARK_PRESENCE_TTL" default:"45s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"QUESTPARK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"QUESTPARK_AUTO_MIGRATE" default:"false"`
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
