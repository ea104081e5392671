package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	POS          POSConfig
	FeatureFlags FeatureFlagsConfig
}

// Load reads PACKFINDERZ_* variables and reports every invalid section at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	err := multierr.Combine(
		cfg.DB.resolveDSN(),
		cfg.JWT.validate(),
		cfg.POS.validate(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PACKFINDERZ_APP_ENV" required:"true"`
	Port         string `envconfig:"PACKFINDERZ_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PACKFINDERZ_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PACKFINDERZ_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PACKFINDERZ_LOG_WARN_STACK" default:"false"`

	CORSOrigins     []string      `envconfig:"PACKFINDERZ_CORS_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"PACKFINDERZ_SHUTDOWN_TIMEOUT" default:"10s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	switch strings.ToLower(a.Env) {
	case AppEnvProd, "production":
		return true
	}
	return false
}

// DBConfig takes either a DSN or the discrete connection parts.
type DBConfig struct {
	DSN string `envconfig:"PACKFINDERZ_DB_DSN"`

	Host     string `envconfig:"PACKFINDERZ_DB_HOST"`
	Port     int    `envconfig:"PACKFINDERZ_DB_PORT" default:"5432"`
	User     string `envconfig:"PACKFINDERZ_DB_USER"`
	Password string `envconfig:"PACKFINDERZ_DB_PASSWORD"`
	Name     string `envconfig:"PACKFINDERZ_DB_NAME"`
	SSLMode  string `envconfig:"PACKFINDERZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PACKFINDERZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PACKFINDERZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PACKFINDERZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PACKFINDERZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) resolveDSN() error {
	if d.DSN != "" {
		return nil
	}
	var missing []string
	for env, value := range map[string]string{EnvDBHost: d.Host, EnvDBUser: d.User, EnvDBName: d.Name} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%s or all of %s must be set", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.User(d.User),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   d.Name,
	}
	if d.Password != "" {
		dsn.User = url.UserPassword(d.User, d.Password)
	}
	if d.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	d.DSN = dsn.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"PACKFINDERZ_REDIS_URL"`
	Address      string        `envconfig:"PACKFINDERZ_REDIS_ADDR"`
	Password     string        `envconfig:"PACKFINDERZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"PACKFINDERZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PACKFINDERZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PACKFINDERZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PACKFINDERZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PACKFINDERZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PACKFINDERZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret string `envconfig:"PACKFINDERZ_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"PACKFINDERZ_JWT_ISSUER" required:"true"`

	ExpirationMinutes int `envconfig:"PACKFINDERZ_JWT_EXPIRATION_MINUTES" default:"720"`
}

func (j JWTConfig) validate() error {
	if j.ExpirationMinutes < 1 {
		return fmt.Errorf("%s must be at least 1", EnvJWTExpirationMinutes)
	}
	return nil
}

// POSConfig carries the toggles consumed by the cart engine, slot manager and register ledger.
type POSConfig struct {
	TaxEnabled       bool          `envconfig:"PACKFINDERZ_POS_TAX_ENABLED" default:"true"`
	MultiCountry     bool          `envconfig:"PACKFINDERZ_POS_MULTI_COUNTRY" default:"false"`
	DefaultCountry   string        `envconfig:"PACKFINDERZ_POS_DEFAULT_COUNTRY" default:"US"`
	RegisterRequired bool          `envconfig:"PACKFINDERZ_POS_REGISTER_REQUIRED" default:"false"`
	MaxOrderSlots    int           `envconfig:"PACKFINDERZ_POS_MAX_ORDER_SLOTS" default:"10"`
	SessionTTL       time.Duration `envconfig:"PACKFINDERZ_POS_SESSION_TTL" default:"12h"`

	CurrencyCode        string `envconfig:"PACKFINDERZ_POS_CURRENCY_CODE" default:"USD"`
	CurrencySymbol      string `envconfig:"PACKFINDERZ_POS_CURRENCY_SYMBOL" default:"$"`
	CurrencyDecimals    int32  `envconfig:"PACKFINDERZ_POS_CURRENCY_DECIMALS" default:"2"`
	CurrencySymbolAfter bool   `envconfig:"PACKFINDERZ_POS_CURRENCY_SYMBOL_AFTER" default:"false"`
}

func (p POSConfig) validate() (err error) {
	if p.MaxOrderSlots < 1 {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 1", EnvPOSMaxOrderSlots))
	}
	if p.CurrencyDecimals < 0 || p.CurrencyDecimals > 4 {
		err = multierr.Append(err, fmt.Errorf("%s must be between 0 and 4", EnvPOSCurrencyDecimals))
	}
	if p.SessionTTL < 0 {
		err = multierr.Append(err, fmt.Errorf("%s cannot be negative", EnvPOSSessionTTL))
	}
	if p.MultiCountry && len(strings.TrimSpace(p.DefaultCountry)) != 2 {
		err = multierr.Append(err, fmt.Errorf("%s must be a two-letter country code", EnvPOSDefaultCountry))
	}
	return err
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PACKFINDERZ_AUTO_MIGRATE" default:"false"`
}
