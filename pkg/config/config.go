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
	Barcode      BarcodeConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"STOCKFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOCKFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKFLOW_DB_DSN"`
	Driver string `envconfig:"STOCKFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOCKFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"STOCKFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOCKFLOW_DB_USER"`
	LegacyPassword string `envconfig:"STOCKFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOCKFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOCKFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOCKFLOW_REDIS_URL"`
	Address      string        `envconfig:"STOCKFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// BarcodeConfig holds the EAN-13 prefixes stamped onto generated product codes.
type BarcodeConfig struct {
	CountryCode      string `envconfig:"STOCKFLOW_BARCODE_COUNTRY_CODE" default:"604"`
	ManufacturerCode string `envconfig:"STOCKFLOW_BARCODE_MANUFACTURER_CODE" default:"32450"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOCKFLOW_AUTO_MIGRATE" default:"false"`
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
