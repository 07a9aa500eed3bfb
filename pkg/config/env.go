package config

const EnvPrefix = "COURSEVAULT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "COURSEVAULT_APP_ENV"
	EnvPort     = "COURSEVAULT_APP_PORT"
	EnvDBDSN    = "COURSEVAULT_DB_DSN"
	EnvDBHost   = "COURSEVAULT_DB_HOST"
	EnvDBUser   = "COURSEVAULT_DB_USER"
	EnvDBPass   = "COURSEVAULT_DB_PASSWORD"
	EnvDBName   = "COURSEVAULT_DB_NAME"
	EnvRedisURL = "COURSEVAULT_REDIS_URL"

	EnvJWTSecret  = "COURSEVAULT_JWT_SECRET"
	EnvJWTIssuer  = "COURSEVAULT_JWT_ISSUER"
	EnvJWTExpMins = "COURSEVAULT_JWT_EXPIRATION_MINUTES"

	EnvProgressThreshold = "COURSEVAULT_PROGRESS_COMPLETION_THRESHOLD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
