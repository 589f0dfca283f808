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
	Pricing      PricingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PRICEBOOK_APP_ENV" required:"true"`
	Port         string `envconfig:"PRICEBOOK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PRICEBOOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRICEBOOK_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PRICEBOOK_LOG_FORMAT" default:"json"`

	CORSAllowedOrigins []string      `envconfig:"PRICEBOOK_CORS_ALLOWED_ORIGINS"`
	ShutdownTimeout    time.Duration `envconfig:"PRICEBOOK_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PRICEBOOK_DB_DSN"`
	Driver string `envconfig:"PRICEBOOK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRICEBOOK_DB_HOST"`
	LegacyPort     int    `envconfig:"PRICEBOOK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRICEBOOK_DB_USER"`
	LegacyPassword string `envconfig:"PRICEBOOK_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRICEBOOK_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRICEBOOK_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"PRICEBOOK_SQLITE_PATH" default:"file:pricebook.db?cache=shared&_foreign_keys=on"`

	MaxOpenConns    int           `envconfig:"PRICEBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRICEBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRICEBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRICEBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional; without a URL or address idempotent replay is disabled.
type RedisConfig struct {
	URL          string        `envconfig:"PRICEBOOK_REDIS_URL"`
	Address      string        `envconfig:"PRICEBOOK_REDIS_ADDR"`
	Password     string        `envconfig:"PRICEBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRICEBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRICEBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRICEBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRICEBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRICEBOOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRICEBOOK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PRICEBOOK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PRICEBOOK_AUTO_MIGRATE" default:"false"`
}

// PricingConfig holds the price book tree settings shared by the engine and bootstrap.
type PricingConfig struct {
	DefaultBookID   string `envconfig:"PRICEBOOK_DEFAULT_BOOK_ID" default:"default"`
	DefaultBookName string `envconfig:"PRICEBOOK_DEFAULT_BOOK_NAME" default:"Default Price Book"`
	MaxChainDepth   int    `envconfig:"PRICEBOOK_PRICING_MAX_CHAIN_DEPTH" default:"32"`
	DefaultQty      string `envconfig:"PRICEBOOK_PRICING_DEFAULT_QTY" default:"1.0000"`
}

func (p PricingConfig) validate() error {
	if strings.TrimSpace(p.DefaultBookID) == "" {
		return fmt.Errorf("%s must not be empty", EnvDefaultBookID)
	}
	if p.MaxChainDepth <= 0 {
		return fmt.Errorf("%s must be positive", EnvMaxChainDepth)
	}
	return nil
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
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
