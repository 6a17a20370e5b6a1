package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "questpark"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside struct tags (error messages,
// tests).
const (
	EnvAppEnv   = "QUESTPARK_APP_ENV"
	EnvPort     = "QUESTPARK_APP_PORT"
	EnvDBDSN    = "QUESTPARK_DB_DSN"
	EnvDBHost   = "QUESTPARK_DB_HOST"
	EnvDBUser   = "QUESTPARK_DB_USER"
	EnvDBName   = "QUESTPARK_DB_NAME"
	EnvRedisURL = "QUESTPARK_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
