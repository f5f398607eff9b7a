package config

const (
	// EnvPrefix scopes every environment variable this service reads.
	EnvPrefix = "STOCKFLOW"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "STOCKFLOW_DB_DSN"
	EnvDBHost = "STOCKFLOW_DB_HOST"
	EnvDBUser = "STOCKFLOW_DB_USER"
	EnvDBName = "STOCKFLOW_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
