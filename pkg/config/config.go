package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "TICKETFLOW"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Webhooks     WebhooksConfig
	Outbox       OutboxConfig
	Eventing     EventingConfig
	AI           AIConfig
	Sink         SinkConfig
	PubSub       PubSubConfig
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
	Env          string `envconfig:"TICKETFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"TICKETFLOW_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TICKETFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TICKETFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TICKETFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TICKETFLOW_DB_DSN"`
	Driver string `envconfig:"TICKETFLOW_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"TICKETFLOW_DB_HOST"`
	Port     int    `envconfig:"TICKETFLOW_DB_PORT" default:"5432"`
	User     string `envconfig:"TICKETFLOW_DB_USER"`
	Password string `envconfig:"TICKETFLOW_DB_PASSWORD"`
	Name     string `envconfig:"TICKETFLOW_DB_NAME"`
	SSLMode  string `envconfig:"TICKETFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TICKETFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TICKETFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TICKETFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TICKETFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional: when URL and Address are both empty the process
// falls back to the in-memory idempotency store, which is only correct for a
// single instance (dev/test).
type RedisConfig struct {
	URL          string        `envconfig:"TICKETFLOW_REDIS_URL"`
	Address      string        `envconfig:"TICKETFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"TICKETFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"TICKETFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TICKETFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TICKETFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TICKETFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TICKETFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TICKETFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

type WebhooksConfig struct {
	// Secrets maps provider name to its shared HMAC secret, e.g.
	// TICKETFLOW_WEBHOOK_SECRETS="github:s3cret,zendesk:other".
	Secrets map[string]string `envconfig:"TICKETFLOW_WEBHOOK_SECRETS"`
	Skew    time.Duration     `envconfig:"TICKETFLOW_WEBHOOK_SKEW" default:"5m"`
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"TICKETFLOW_OUTBOX_BATCH_SIZE" default:"20"`
	PollInterval time.Duration `envconfig:"TICKETFLOW_OUTBOX_POLL_INTERVAL" default:"5s"`
	MaxAttempts  int           `envconfig:"TICKETFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
	LeaseTimeout time.Duration `envconfig:"TICKETFLOW_OUTBOX_LEASE_TIMEOUT" default:"5m"`
	BackoffBase  time.Duration `envconfig:"TICKETFLOW_OUTBOX_BACKOFF_BASE" default:"1s"`
	BackoffMax   time.Duration `envconfig:"TICKETFLOW_OUTBOX_BACKOFF_MAX" default:"300s"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"TICKETFLOW_EVENTING_WEBHOOK_IDEMPOTENCY_TTL" default:"24h"`
	CommandIdempotencyTTL time.Duration `envconfig:"TICKETFLOW_EVENTING_COMMAND_IDEMPOTENCY_TTL" default:"1h"`
}

type AIConfig struct {
	BaseURL      string        `envconfig:"TICKETFLOW_AI_BASE_URL" default:"https://api.openai.com"`
	APIKey       string        `envconfig:"TICKETFLOW_AI_API_KEY"`
	Model        string        `envconfig:"TICKETFLOW_AI_MODEL" default:"gpt-4o-mini"`
	CallTimeout  time.Duration `envconfig:"TICKETFLOW_AI_CALL_TIMEOUT" default:"15s"`
	MaxAttempts  int           `envconfig:"TICKETFLOW_AI_MAX_ATTEMPTS" default:"3"`
	InitialDelay time.Duration `envconfig:"TICKETFLOW_AI_INITIAL_DELAY" default:"200ms"`
}

// SinkConfig selects the message sink once at process composition time.
type SinkConfig struct {
	Kind string `envconfig:"TICKETFLOW_SINK_KIND" default:"log"`
}

func (s SinkConfig) IsPubSub() bool {
	return strings.EqualFold(strings.TrimSpace(s.Kind), "pubsub")
}

type PubSubConfig struct {
	ProjectID      string        `envconfig:"TICKETFLOW_PUBSUB_PROJECT_ID"`
	Topic          string        `envconfig:"TICKETFLOW_PUBSUB_TOPIC" default:"ticketflow-domain-events"`
	PublishTimeout time.Duration `envconfig:"TICKETFLOW_PUBSUB_PUBLISH_TIMEOUT" default:"15s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TICKETFLOW_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := []struct {
		env   string
		value string
	}{
		{"TICKETFLOW_DB_HOST", db.Host},
		{"TICKETFLOW_DB_USER", db.User},
		{"TICKETFLOW_DB_NAME", db.Name},
	}
	for _, item := range required {
		if item.value == "" {
			missing = append(missing, item.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either TICKETFLOW_DB_DSN or %s are required", strings.Join(missing, ", "))
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
