// Package config loads the service configuration from a dotenv file. Values
// set in the process environment take precedence over the file.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Environment    string   `mapstructure:"ENVIRONMENT"`
	Version        string   `mapstructure:"VERSION"`
	LogLevel       string   `mapstructure:"LOG_LEVEL"`
	TrustedOrigins []string `mapstructure:"TRUSTED_ORIGINS"`
	TLSCertFile    string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string   `mapstructure:"TLS_KEY_FILE"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`

	DBHost         string        `mapstructure:"POSTGRES_HOST"`
	DBPort         string        `mapstructure:"POSTGRES_PORT"`
	DBUser         string        `mapstructure:"POSTGRES_USER"`
	DBPassword     string        `mapstructure:"POSTGRES_PASSWORD"`
	DBName         string        `mapstructure:"POSTGRES_DB"`
	DBMaxOpenConns int           `mapstructure:"POSTGRES_MAX_OPEN_CONNS"`
	DBMaxIdleConns int           `mapstructure:"POSTGRES_MAX_IDLE_CONNS"`
	DBMaxIdleTime  time.Duration `mapstructure:"POSTGRES_MAX_IDLE_TIME"`

	MongoURI string `mapstructure:"MONGO_URI"`
	MongoDB  string `mapstructure:"MONGO_DB"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTIssuer string        `mapstructure:"JWT_ISSUER"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	LimiterRPS     float64 `mapstructure:"LIMITER_RPS"`
	LimiterBurst   int     `mapstructure:"LIMITER_BURST"`
	LimiterEnabled bool    `mapstructure:"LIMITER_ENABLED"`

	MailHost     string `mapstructure:"MAIL_HOST"`
	MailPort     int    `mapstructure:"MAIL_PORT"`
	MailUser     string `mapstructure:"MAIL_USER"`
	MailPassword string `mapstructure:"MAIL_PASSWORD"`
	MailSender   string `mapstructure:"MAIL_SENDER"`

	MQHost     string `mapstructure:"RABBITMQ_HOST"`
	MQPort     string `mapstructure:"RABBITMQ_PORT"`
	MQUser     string `mapstructure:"RABBITMQ_USER"`
	MQPassword string `mapstructure:"RABBITMQ_PASSWORD"`
}

var defaults = map[string]any{
	"PORT":                    "4000",
	"ENVIRONMENT":             "development",
	"VERSION":                 "1.0.0",
	"LOG_LEVEL":               "info",
	"TRUSTED_ORIGINS":         "",
	"TLS_CERT_FILE":           "",
	"TLS_KEY_FILE":            "",
	"STORE_DRIVER":            DriverPostgres,
	"POSTGRES_HOST":           "localhost",
	"POSTGRES_PORT":           "5432",
	"POSTGRES_USER":           "",
	"POSTGRES_PASSWORD":       "",
	"POSTGRES_DB":             "bloglist",
	"POSTGRES_MAX_OPEN_CONNS": 25,
	"POSTGRES_MAX_IDLE_CONNS": 25,
	"POSTGRES_MAX_IDLE_TIME":  "15m",
	"MONGO_URI":               "mongodb://localhost:27017",
	"MONGO_DB":                "bloglist",
	"JWT_SECRET":              "",
	"JWT_ISSUER":              "bloglist",
	"JWT_TTL":                 "1h",
	"CACHE_TTL":               "5m",
	"LIMITER_RPS":             2,
	"LIMITER_BURST":           4,
	"LIMITER_ENABLED":         true,
	"MAIL_HOST":               "",
	"MAIL_PORT":               25,
	"MAIL_USER":               "",
	"MAIL_PASSWORD":           "",
	"MAIL_SENDER":             "Bloglist <no-reply@bloglist.local>",
	"RABBITMQ_HOST":           "",
	"RABBITMQ_PORT":           "5672",
	"RABBITMQ_USER":           "guest",
	"RABBITMQ_PASSWORD":       "guest",
}

// Load reads the dotenv file at path. An empty path skips the file and uses
// defaults and the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.TrustedOrigins = compact(cfg.TrustedOrigins)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func compact(values []string) []string {
	out := []string{}
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}

	return out
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverMongo:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}

	return level
}

// BrokerEnabled reports whether a RabbitMQ host is configured.
func (c *Config) BrokerEnabled() bool {
	return c.MQHost != ""
}

// MailEnabled reports whether an SMTP host is configured.
func (c *Config) MailEnabled() bool {
	return c.MailHost != ""
}
