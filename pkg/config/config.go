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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Tracking      TrackingConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Routing       RoutingConfig
	Orders        OrdersConfig
	Cron          CronConfig
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
	Env          string `envconfig:"GIFTOPS_APP_ENV" required:"true"`
	Port         string `envconfig:"GIFTOPS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GIFTOPS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GIFTOPS_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"GIFTOPS_LOG_FORMAT" default:"json"`
	// Origins allowed by the CORS middleware, comma separated.
	AllowedOrigins []string `envconfig:"GIFTOPS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"GIFTOPS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GIFTOPS_DB_DSN"`
	Driver string `envconfig:"GIFTOPS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"GIFTOPS_DB_HOST"`
	Port     int    `envconfig:"GIFTOPS_DB_PORT" default:"5432"`
	User     string `envconfig:"GIFTOPS_DB_USER"`
	Password string `envconfig:"GIFTOPS_DB_PASSWORD"`
	Name     string `envconfig:"GIFTOPS_DB_NAME"`
	SSLMode  string `envconfig:"GIFTOPS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIFTOPS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIFTOPS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIFTOPS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIFTOPS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the threshold above which statements are logged at warn.
	SlowQuery time.Duration `envconfig:"GIFTOPS_DB_SLOW_QUERY" default:"500ms"`
	// ConnectAttempts bounds the boot-time ping loop.
	ConnectAttempts int `envconfig:"GIFTOPS_DB_CONNECT_ATTEMPTS" default:"5"`
	// TxRetries is how many times a transaction is rerun after a
	// serialization failure or deadlock.
	TxRetries int `envconfig:"GIFTOPS_DB_TX_RETRIES" default:"2"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIFTOPS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIFTOPS_REDIS_ADDR"`
	Password     string        `envconfig:"GIFTOPS_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIFTOPS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIFTOPS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIFTOPS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIFTOPS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIFTOPS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIFTOPS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GIFTOPS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GIFTOPS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GIFTOPS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"GIFTOPS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
	// ClockSkew tolerated on exp/nbf between this service and token issuers.
	ClockSkew time.Duration `envconfig:"GIFTOPS_JWT_CLOCK_SKEW" default:"30s"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GIFTOPS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GIFTOPS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GIFTOPS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GIFTOPS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GIFTOPS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GIFTOPS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"GIFTOPS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"GIFTOPS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"GIFTOPS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"GIFTOPS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"GIFTOPS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type TrackingConfig struct {
	Window  time.Duration `envconfig:"GIFTOPS_TRACKING_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit int           `envconfig:"GIFTOPS_TRACKING_RATE_LIMIT_IP_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GIFTOPS_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"GIFTOPS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GIFTOPS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"GIFTOPS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GIFTOPS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName      string        `envconfig:"GIFTOPS_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry time.Duration `envconfig:"GIFTOPS_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	PublicBaseURL   string        `envconfig:"GIFTOPS_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"GIFTOPS_PUBSUB_DOMAIN_TOPIC" required:"true"`
	NotificationSubscription string `envconfig:"GIFTOPS_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription    string `envconfig:"GIFTOPS_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset        string        `envconfig:"GIFTOPS_BIGQUERY_DATASET" default:"giftops"`
	LifecycleTable string        `envconfig:"GIFTOPS_BIGQUERY_LIFECYCLE_TABLE" default:"order_lifecycle_events"`
	BatchSize      int           `envconfig:"GIFTOPS_BIGQUERY_BATCH_SIZE" default:"1"`
	FlushInterval  time.Duration `envconfig:"GIFTOPS_BIGQUERY_FLUSH_INTERVAL" default:"5s"`
	// AutoCreate lets the analytics worker create a missing dataset or table.
	AutoCreate bool `envconfig:"GIFTOPS_BIGQUERY_AUTO_CREATE" default:"false"`
	// MaxBytesBilled caps dashboard queries; zero leaves the project default.
	MaxBytesBilled int64 `envconfig:"GIFTOPS_BIGQUERY_MAX_BYTES_BILLED" default:"0"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GIFTOPS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GIFTOPS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GIFTOPS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o OutboxConfig) PollInterval() time.Duration {
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type RoutingConfig struct {
	BaseURL     string        `envconfig:"GIFTOPS_ROUTING_BASE_URL" default:"https://api.mapbox.com"`
	AccessToken string        `envconfig:"GIFTOPS_ROUTING_ACCESS_TOKEN"`
	Timeout     time.Duration `envconfig:"GIFTOPS_ROUTING_TIMEOUT" default:"10s"`
}

type OrdersConfig struct {
	UnpaidTTL time.Duration `envconfig:"GIFTOPS_ORDER_UNPAID_TTL" default:"48h"`
}

type CronConfig struct {
	LockTTL               time.Duration `envconfig:"GIFTOPS_CRON_LOCK_TTL" default:"5m"`
	Interval              time.Duration `envconfig:"GIFTOPS_CRON_INTERVAL" default:"1h"`
	MetricsPort           string        `envconfig:"GIFTOPS_CRON_METRICS_PORT" default:"9102"`
	OutboxRetention       time.Duration `envconfig:"GIFTOPS_OUTBOX_RETENTION" default:"720h"`
	NotificationRetention time.Duration `envconfig:"GIFTOPS_NOTIFICATION_RETENTION" default:"2160h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	missing := []string{}
	for _, env := range discreteDBEnvVars {
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
