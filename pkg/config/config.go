package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Import       ImportConfig
	Alerts       AlertsConfig
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
	Env          string   `envconfig:"PARTSTRACK_APP_ENV" required:"true"`
	Port         string   `envconfig:"PARTSTRACK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"PARTSTRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"PARTSTRACK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"PARTSTRACK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PARTSTRACK_DB_DSN"`
	Driver string `envconfig:"PARTSTRACK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PARTSTRACK_DB_HOST"`
	LegacyPort     int    `envconfig:"PARTSTRACK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PARTSTRACK_DB_USER"`
	LegacyPassword string `envconfig:"PARTSTRACK_DB_PASSWORD"`
	LegacyName     string `envconfig:"PARTSTRACK_DB_NAME"`
	LegacySSLMode  string `envconfig:"PARTSTRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PARTSTRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PARTSTRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PARTSTRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PARTSTRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	TxRetryAttempts uint64        `envconfig:"PARTSTRACK_DB_TX_RETRY_ATTEMPTS" default:"3"`
	TxRetryBackoff  time.Duration `envconfig:"PARTSTRACK_DB_TX_RETRY_BACKOFF" default:"25ms"`
}

// IsSQLite reports whether the configured driver is sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

// Redis is optional; idempotency and the import lock are disabled without it.
type RedisConfig struct {
	URL          string        `envconfig:"PARTSTRACK_REDIS_URL"`
	Address      string        `envconfig:"PARTSTRACK_REDIS_ADDR"`
	Password     string        `envconfig:"PARTSTRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"PARTSTRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PARTSTRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PARTSTRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PARTSTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PARTSTRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PARTSTRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PARTSTRACK_AUTO_MIGRATE" default:"false"`
}

type ImportConfig struct {
	MaxUploadMB int           `envconfig:"PARTSTRACK_IMPORT_MAX_UPLOAD_MB" default:"20"`
	LockTTL     time.Duration `envconfig:"PARTSTRACK_IMPORT_LOCK_TTL" default:"2m"`
	SheetIndex  int           `envconfig:"PARTSTRACK_IMPORT_SHEET_INDEX" default:"0"`
}

// MaxUploadBytes returns the configured upload ceiling in bytes.
func (i ImportConfig) MaxUploadBytes() int64 {
	if i.MaxUploadMB <= 0 {
		return 20 << 20
	}
	return int64(i.MaxUploadMB) << 20
}

type AlertsConfig struct {
	SPUPendingAge     time.Duration `envconfig:"PARTSTRACK_ALERTS_SPU_PENDING_AGE" default:"720h"`
	PaymentPendingAge time.Duration `envconfig:"PARTSTRACK_ALERTS_PAYMENT_PENDING_AGE" default:"360h"`
	ReturnPendingAge  time.Duration `envconfig:"PARTSTRACK_ALERTS_RETURN_PENDING_AGE" default:"168h"`
	DetailLimit       int           `envconfig:"PARTSTRACK_ALERTS_DETAIL_LIMIT" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
