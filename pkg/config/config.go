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
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Workflow     WorkflowConfig
	Cron         CronConfig
	Tracing      TracingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"AMBIENTES_APP_ENV" required:"true"`
	Port         string   `envconfig:"AMBIENTES_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"AMBIENTES_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"AMBIENTES_LOG_WARN_STACK" default:"false"`
	TimeZone     string   `envconfig:"AMBIENTES_APP_TIMEZONE" default:"America/Bogota"`
	CORSOrigins  []string `envconfig:"AMBIENTES_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the time zone used to cut check days.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.TimeZone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvTimeZone, name, err)
	}
	return loc, nil
}

type ServiceConfig struct {
	Kind string `envconfig:"AMBIENTES_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AMBIENTES_DB_DSN"`
	Driver string `envconfig:"AMBIENTES_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AMBIENTES_DB_HOST"`
	LegacyPort     int    `envconfig:"AMBIENTES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AMBIENTES_DB_USER"`
	LegacyPassword string `envconfig:"AMBIENTES_DB_PASSWORD"`
	LegacyName     string `envconfig:"AMBIENTES_DB_NAME"`
	LegacySSLMode  string `envconfig:"AMBIENTES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AMBIENTES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AMBIENTES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AMBIENTES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AMBIENTES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AMBIENTES_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AMBIENTES_REDIS_ADDR"`
	Password     string        `envconfig:"AMBIENTES_REDIS_PASSWORD"`
	DB           int           `envconfig:"AMBIENTES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AMBIENTES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AMBIENTES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AMBIENTES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AMBIENTES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AMBIENTES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the verification side of the identity provider's tokens.
type JWTConfig struct {
	Secret            string `envconfig:"AMBIENTES_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AMBIENTES_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AMBIENTES_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AMBIENTES_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"AMBIENTES_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"AMBIENTES_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"AMBIENTES_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"AMBIENTES_GOOGLE_APPLICATION_CREDENTIALS"`
	PubSubEmulatorHost     string `envconfig:"PUBSUB_EMULATOR_HOST"`
}

type PubSubConfig struct {
	CheckEventsTopic         string `envconfig:"AMBIENTES_PUBSUB_CHECK_EVENTS_TOPIC" default:"inventory-check-events"`
	NotificationSubscription string `envconfig:"AMBIENTES_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"inventory-check-notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"AMBIENTES_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"AMBIENTES_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"AMBIENTES_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// WorkflowConfig tunes the inventory verification workflow.
type WorkflowConfig struct {
	InitiateRetries       int           `envconfig:"AMBIENTES_WORKFLOW_INITIATE_RETRIES" default:"1"`
	NotificationTTL       time.Duration `envconfig:"AMBIENTES_WORKFLOW_NOTIFICATION_TTL" default:"720h"`
	ActionBaseURL         string        `envconfig:"AMBIENTES_WORKFLOW_ACTION_BASE_URL" default:"/inventory-checks"`
	IdempotencyKeyTTL     time.Duration `envconfig:"AMBIENTES_WORKFLOW_IDEMPOTENCY_KEY_TTL" default:"24h"`
	SubmitStudentOnCreate bool          `envconfig:"AMBIENTES_WORKFLOW_SUBMIT_STUDENT_ON_CREATE" default:"true"`
}

type CronConfig struct {
	Interval             time.Duration `envconfig:"AMBIENTES_CRON_INTERVAL" default:"1h"`
	LockTTL              time.Duration `envconfig:"AMBIENTES_CRON_LOCK_TTL" default:"55m"`
	StaleCheckAfter      time.Duration `envconfig:"AMBIENTES_CRON_STALE_CHECK_AFTER" default:"4h"`
	OutboxRetentionDays  int           `envconfig:"AMBIENTES_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	NotificationReadDays int           `envconfig:"AMBIENTES_CRON_NOTIFICATION_READ_RETENTION_DAYS" default:"30"`
}

type TracingConfig struct {
	Enabled        bool    `envconfig:"AMBIENTES_TRACING_ENABLED" default:"false"`
	JaegerEndpoint string  `envconfig:"AMBIENTES_TRACING_JAEGER_ENDPOINT" default:"http://localhost:14268/api/traces"`
	SampleRatio    float64 `envconfig:"AMBIENTES_TRACING_SAMPLE_RATIO" default:"1"`
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

	q := u.Query()
	if db.LegacySSLMode != "" {
		q.Set("sslmode", db.LegacySSLMode)
	}
	q.Set("timezone", "UTC")
	u.RawQuery = q.Encode()

	db.DSN = u.String()
	return nil
}
