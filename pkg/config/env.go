package config

// EnvPrefix is empty because every variable carries its full name in the struct tags.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv    = "PRICEBOOK_APP_ENV"
	EnvPort      = "PRICEBOOK_APP_PORT"
	EnvLogLevel  = "PRICEBOOK_LOG_LEVEL"
	EnvLogFormat = "PRICEBOOK_LOG_FORMAT"

	EnvDBDSN  = "PRICEBOOK_DB_DSN"
	EnvDBHost = "PRICEBOOK_DB_HOST"
	EnvDBUser = "PRICEBOOK_DB_USER"
	EnvDBName = "PRICEBOOK_DB_NAME"

	EnvUseSQLite = "PRICEBOOK_USE_SQLITE"
	EnvRedisURL  = "PRICEBOOK_REDIS_URL"

	EnvDefaultBookID = "PRICEBOOK_DEFAULT_BOOK_ID"
	EnvMaxChainDepth = "PRICEBOOK_PRICING_MAX_CHAIN_DEPTH"
	EnvDefaultQty    = "PRICEBOOK_PRICING_DEFAULT_QTY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
