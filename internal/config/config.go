// Package config loads server configuration from an optional config file and RPQ_* environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "RPQ"

const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
	DriverMongo  = "mongo"
)

type Config struct {
	Store  StoreConfig  `mapstructure:"store"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Users  UsersConfig  `mapstructure:"users"`
}

type StoreConfig struct {
	Driver   string `mapstructure:"driver"`   // sqlite, pgx, mongo
	URI      string `mapstructure:"uri"`      // DSN or MongoDB connection string
	Database string `mapstructure:"database"` // MongoDB only
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HTTPConfig struct {
	MaxResponseSize int `mapstructure:"max_response_size"` // bytes
	RateLimit       int `mapstructure:"rate_limit"`        // requests per minute and client IP, 0 disables
	RateBurst       int `mapstructure:"rate_burst"`
}

type UsersConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.database", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("http.max_response_size", 1<<20)
	v.SetDefault("http.rate_limit", 600)
	v.SetDefault("http.rate_burst", 50)
	v.SetDefault("users.bcrypt_cost", 10)
}

// Load reads path, when given, then applies environment overrides such as RPQ_STORE_DRIVER or
// RPQ_HTTP_MAX_RESPONSE_SIZE. MONGODB_URI is accepted as a fallback for RPQ_STORE_URI.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("store.uri", EnvPrefix+"_STORE_URI", "MONGODB_URI"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Store.URI == "" {
		switch cfg.Store.Driver {
		case DriverSQLite:
			cfg.Store.URI = ":memory:"
		case DriverMongo:
			cfg.Store.URI = "mongodb://localhost:27017"
		}
	}
	if cfg.Store.Driver == DriverMongo && cfg.Store.Database == "" {
		cfg.Store.Database = databaseFromURI(cfg.Store.URI)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverPgx, DriverMongo:
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Store.URI == "" {
		return fmt.Errorf("store uri is required")
	}
	if c.HTTP.MaxResponseSize < 0 {
		return fmt.Errorf("http.max_response_size must not be negative")
	}
	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit must not be negative")
	}
	return nil
}

// databaseFromURI returns the database named in the path of a MongoDB connection string, or "rpq".
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "rpq"
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return "rpq"
}
