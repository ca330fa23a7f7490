package config

import _ "time/tzdata"

const (
	EnvPrefix = "AMBIENTES"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "AMBIENTES_APP_ENV"
	EnvPort     = "AMBIENTES_APP_PORT"
	EnvTimeZone = "AMBIENTES_APP_TIMEZONE"

	EnvDBDSN  = "AMBIENTES_DB_DSN"
	EnvDBHost = "AMBIENTES_DB_HOST"
	EnvDBPort = "AMBIENTES_DB_PORT"
	EnvDBUser = "AMBIENTES_DB_USER"
	EnvDBPass = "AMBIENTES_DB_PASSWORD"
	EnvDBName = "AMBIENTES_DB_NAME"

	EnvRedisURL     = "AMBIENTES_REDIS_URL"
	EnvJWTSecret    = "AMBIENTES_JWT_SECRET"
	EnvJWTIssuer    = "AMBIENTES_JWT_ISSUER"
	EnvGCPProjectID = "AMBIENTES_GCP_PROJECT_ID"

	EnvPubSubCheckEventsTopic = "AMBIENTES_PUBSUB_CHECK_EVENTS_TOPIC"
	EnvPubSubNotificationSub  = "AMBIENTES_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
