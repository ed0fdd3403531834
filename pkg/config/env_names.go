package config

const EnvPrefix = "WAVECREST"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "WAVECREST_APP_ENV"
	EnvPort     = "WAVECREST_APP_PORT"
	EnvDBDSN    = "WAVECREST_DB_DSN"
	EnvDBHost   = "WAVECREST_DB_HOST"
	EnvDBUser   = "WAVECREST_DB_USER"
	EnvDBName   = "WAVECREST_DB_NAME"
	EnvRedisURL = "WAVECREST_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
