package config

// EnvPrefix is applied by envconfig to every variable lookup.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "BOTMARKET_APP_ENV"
	EnvDBDSN  = "BOTMARKET_DB_DSN"
	EnvDBHost = "BOTMARKET_DB_HOST"
	EnvDBUser = "BOTMARKET_DB_USER"
	EnvDBName = "BOTMARKET_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
