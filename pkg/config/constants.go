package config

const EnvPrefix = "PARTSTRACK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "PARTSTRACK_APP_ENV"
	EnvPort     = "PARTSTRACK_APP_PORT"
	EnvLogLevel = "PARTSTRACK_LOG_LEVEL"

	EnvDBDSN    = "PARTSTRACK_DB_DSN"
	EnvDBDriver = "PARTSTRACK_DB_DRIVER"
	EnvDBHost   = "PARTSTRACK_DB_HOST"
	EnvDBUser   = "PARTSTRACK_DB_USER"
	EnvDBName   = "PARTSTRACK_DB_NAME"

	EnvRedisURL = "PARTSTRACK_REDIS_URL"

	EnvImportLockTTL    = "PARTSTRACK_IMPORT_LOCK_TTL"
	EnvAlertsSPUPending = "PARTSTRACK_ALERTS_SPU_PENDING_AGE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
