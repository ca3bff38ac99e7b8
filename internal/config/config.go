// Package config provides application configuration loaded from an optional
// config file, a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "TIMESHEETS"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	App      AppConfig      `mapstructure:"app"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds connection settings. DSN, when set, overrides the
// individual PostgreSQL fields; for sqlite it is the file path.
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DSNValue   string `mapstructure:"dsn"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"dbname"`
	SSLMode    string `mapstructure:"sslmode"`
	MaxRetries uint64 `mapstructure:"max_retries"`
	Debug      bool   `mapstructure:"debug"`
	Migrations bool   `mapstructure:"migrations"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	TokenSecret string        `mapstructure:"token_secret" validate:"required,min=16"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev      bool   `mapstructure:"dev"`
	LogLevel string `mapstructure:"log_level"`
	Seed     bool   `mapstructure:"seed"`
}

// NotifyConfig controls the asynchronous notification worker.
type NotifyConfig struct {
	Workers     int    `mapstructure:"workers" validate:"gte=1"`
	MaxRetries  uint64 `mapstructure:"max_retries"`
	FromAddress string `mapstructure:"from_address" validate:"omitempty,email"`
}

// CacheConfig controls in-process caches.
type CacheConfig struct {
	RoleTTL time.Duration `mapstructure:"role_ttl"`
}

// DSN returns the connection string for the configured driver. For
// PostgreSQL it is in key=value format.
func (d DatabaseConfig) DSN() string {
	if d.DSNValue != "" {
		return d.DSNValue
	}
	if d.Driver == "sqlite" {
		return "timesheets.db"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format, as expected
// by golang-migrate.
func (d DatabaseConfig) URL() string {
	if strings.HasPrefix(d.DSNValue, "postgres://") || strings.HasPrefix(d.DSNValue, "postgresql://") {
		return d.DSNValue
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads .env (if present), then config.yaml (if present), then the
// environment. Variables use the TIMESHEETS_ prefix with "." replaced by
// "_" (TIMESHEETS_SERVER_PORT); the short names PORT, DB_HOST, ... are
// accepted as well.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindAliases(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "timesheets")
	v.SetDefault("database.password", "timesheets")
	v.SetDefault("database.dbname", "timesheets")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_retries", 10)
	v.SetDefault("database.debug", false)
	v.SetDefault("database.migrations", false)

	v.SetDefault("auth.token_secret", "dev-token-secret-change-me")
	v.SetDefault("auth.token_ttl", 14*24*time.Hour)

	v.SetDefault("app.dev", true)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.seed", false)

	v.SetDefault("notify.workers", 4)
	v.SetDefault("notify.max_retries", 3)
	v.SetDefault("notify.from_address", "invoices@timesheets.local")

	v.SetDefault("cache.role_ttl", 5*time.Minute)
}

// bindAliases accepts the short unprefixed variable names (PORT, DB_HOST, ...)
// next to the prefixed ones.
func bindAliases(v *viper.Viper) error {
	aliases := map[string][]string{
		"server.port":         {"TIMESHEETS_SERVER_PORT", "PORT"},
		"database.driver":     {"TIMESHEETS_DATABASE_DRIVER", "DB_DRIVER"},
		"database.dsn":        {"TIMESHEETS_DATABASE_DSN", "DATABASE_DSN"},
		"database.host":       {"TIMESHEETS_DATABASE_HOST", "DB_HOST"},
		"database.port":       {"TIMESHEETS_DATABASE_PORT", "DB_PORT"},
		"database.user":       {"TIMESHEETS_DATABASE_USER", "DB_USER"},
		"database.password":   {"TIMESHEETS_DATABASE_PASSWORD", "DB_PASSWORD"},
		"database.dbname":     {"TIMESHEETS_DATABASE_DBNAME", "DB_NAME"},
		"database.sslmode":    {"TIMESHEETS_DATABASE_SSLMODE", "DB_SSLMODE"},
		"database.debug":      {"TIMESHEETS_DATABASE_DEBUG", "DB_DEBUG"},
		"database.migrations": {"TIMESHEETS_DATABASE_MIGRATIONS", "MIGRATIONS"},
		"auth.token_secret":   {"TIMESHEETS_AUTH_TOKEN_SECRET", "TOKEN_SECRET"},
		"app.dev":             {"TIMESHEETS_APP_DEV", "DEV"},
		"app.seed":            {"TIMESHEETS_APP_SEED", "DB_SEED"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}
