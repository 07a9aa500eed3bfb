package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Progress      ProgressConfig
	Certificates  CertificatesConfig
	Video         VideoConfig
	Sendgrid      SendgridConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Webhooks      WebhooksConfig
	Idempotency   IdempotencyConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Progress.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COURSEVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"COURSEVAULT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COURSEVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COURSEVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"COURSEVAULT_DB_DSN"`
	Driver string `envconfig:"COURSEVAULT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COURSEVAULT_DB_HOST"`
	LegacyPort     int    `envconfig:"COURSEVAULT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COURSEVAULT_DB_USER"`
	LegacyPassword string `envconfig:"COURSEVAULT_DB_PASSWORD"`
	LegacyName     string `envconfig:"COURSEVAULT_DB_NAME"`
	LegacySSLMode  string `envconfig:"COURSEVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COURSEVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COURSEVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COURSEVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COURSEVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COURSEVAULT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COURSEVAULT_REDIS_ADDR"`
	Password     string        `envconfig:"COURSEVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"COURSEVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COURSEVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COURSEVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COURSEVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COURSEVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COURSEVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COURSEVAULT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COURSEVAULT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COURSEVAULT_JWT_EXPIRATION_MINUTES" required:"true"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"COURSEVAULT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"COURSEVAULT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"COURSEVAULT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"COURSEVAULT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"COURSEVAULT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"COURSEVAULT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"COURSEVAULT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"COURSEVAULT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"COURSEVAULT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"COURSEVAULT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"COURSEVAULT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COURSEVAULT_AUTO_MIGRATE" default:"false"`
}

type ProgressConfig struct {
	CompletionThreshold float64 `envconfig:"COURSEVAULT_PROGRESS_COMPLETION_THRESHOLD" default:"0.9"`
}

func (p ProgressConfig) validate() error {
	if p.CompletionThreshold <= 0 || p.CompletionThreshold > 1 {
		return fmt.Errorf("%s must be in (0, 1], got %v", EnvProgressThreshold, p.CompletionThreshold)
	}
	return nil
}

type CertificatesConfig struct {
	PublicBaseURL string `envconfig:"COURSEVAULT_CERTIFICATES_BASE_URL" default:"http://localhost:3000/certificates"`
}

type VideoConfig struct {
	BaseURL     string        `envconfig:"COURSEVAULT_VIDEO_BASE_URL" default:"https://api.mux.com"`
	TokenID     string        `envconfig:"COURSEVAULT_VIDEO_TOKEN_ID"`
	TokenSecret string        `envconfig:"COURSEVAULT_VIDEO_TOKEN_SECRET"`
	Timeout     time.Duration `envconfig:"COURSEVAULT_VIDEO_TIMEOUT" default:"10s"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"COURSEVAULT_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"COURSEVAULT_SENDGRID_FROM_EMAIL" default:"no-reply@coursevault.dev"`
	FromName    string `envconfig:"COURSEVAULT_SENDGRID_FROM_NAME" default:"CourseVault"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"COURSEVAULT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"COURSEVAULT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"COURSEVAULT_CRON_INTERVAL" default:"5m"`
	LockTTL             time.Duration `envconfig:"COURSEVAULT_CRON_LOCK_TTL" default:"4m"`
	OutboxRetentionDays int           `envconfig:"COURSEVAULT_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	VideoSyncBatchSize  int           `envconfig:"COURSEVAULT_CRON_VIDEO_SYNC_BATCH" default:"50"`
}

type WebhooksConfig struct {
	PaymentsSigningSecret string `envconfig:"COURSEVAULT_PAYMENTS_WEBHOOK_SECRET"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"COURSEVAULT_IDEMPOTENCY_TTL" default:"24h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"COURSEVAULT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
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
