package config

// EnvPrefix is passed to envconfig; every key carries an explicit tag so the
// prefix only matters for untagged fields.
const EnvPrefix = "GIFTOPS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "GIFTOPS_APP_ENV"
	EnvPort                   = "GIFTOPS_APP_PORT"
	EnvDBDSN                  = "GIFTOPS_DB_DSN"
	EnvDBHost                 = "GIFTOPS_DB_HOST"
	EnvDBUser                 = "GIFTOPS_DB_USER"
	EnvDBName                 = "GIFTOPS_DB_NAME"
	EnvRedisURL               = "GIFTOPS_REDIS_URL"
	EnvJWTSecret              = "GIFTOPS_JWT_SECRET"
	EnvJWTIssuer              = "GIFTOPS_JWT_ISSUER"
	EnvJWTExpMins             = "GIFTOPS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "GIFTOPS_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "GIFTOPS_GCP_PROJECT_ID"
	EnvGCSBucket              = "GIFTOPS_GCS_BUCKET_NAME"
	EnvPubSubDomainTopic      = "GIFTOPS_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubNotificationSub  = "GIFTOPS_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubAnalyticsSub     = "GIFTOPS_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvOrderUnpaidTTL         = "GIFTOPS_ORDER_UNPAID_TTL"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
