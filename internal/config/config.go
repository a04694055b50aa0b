package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
)

var (
	// ErrMissingConfig is returned when a required setting is not provided.
	ErrMissingConfig = errors.New("missing required configuration")
	// ErrInvalidConfig is returned when a setting is present but not acceptable.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds the complete application configuration.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Auth      AuthConfig
	RabbitMQ  RabbitMQConfig
	Telemetry TelemetryConfig
}

// AppConfig holds HTTP server settings.
type AppConfig struct {
	Port string `validate:"required"`
}

// DBConfig holds the storage connection parameters.
type DBConfig struct {
	Driver          string `validate:"oneof=sqlserver postgres sqlite"`
	Server          string `validate:"required_unless=Driver sqlite"`
	Port            string `validate:"omitempty,numeric"`
	Name            string `validate:"required"`
	Username        string `validate:"required_unless=Driver sqlite"`
	Password        string `validate:"required_unless=Driver sqlite"`
	Encrypt         bool
	MaxOpenConns    int `validate:"gte=0"`
	MaxIdleConns    int `validate:"gte=0"`
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration `validate:"gt=0"`
	AutoMigrate     bool
}

// AuthConfig holds API authentication settings. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string
}

// RabbitMQConfig holds the event broker URL. An empty URL disables publishing.
type RabbitMQConfig struct {
	URL string `validate:"omitempty,url"`
}

// TelemetryConfig holds tracing and metrics settings.
type TelemetryConfig struct {
	OTLPEndpoint   string
	ServiceName    string
	MetricsEnabled bool
}

// envKeys maps validated fields to the environment variable that feeds them.
var envKeys = map[string]string{
	"AppConfig.Port":          "APP_PORT",
	"DBConfig.Driver":         "DB_DRIVER",
	"DBConfig.Server":         "DB_SERVER",
	"DBConfig.Port":           "DB_PORT",
	"DBConfig.Name":           "DB_NAME",
	"DBConfig.Username":       "DB_USERNAME",
	"DBConfig.Password":       "DB_PASSWORD",
	"DBConfig.MaxOpenConns":   "DB_MAX_OPEN_CONNS",
	"DBConfig.MaxIdleConns":   "DB_MAX_IDLE_CONNS",
	"DBConfig.ConnectTimeout": "DB_CONNECT_TIMEOUT",
	"RabbitMQConfig.URL":      "RABBITMQ_URL",
}

// NewViper returns a viper instance with defaults applied, environment
// variables bound and the optional dotenv file read.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	envFile := v.GetString("ENV_FILE")
	if envFile == "" {
		return v, nil
	}
	if _, err := os.Stat(envFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to stat env file %s: %w", envFile, err)
	}
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}
	return v, nil
}

// SetDefaults registers the default value of every optional setting.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("ENV_FILE", ".env")
	v.SetDefault("APP_PORT", ":80")
	v.SetDefault("DB_DRIVER", DriverSQLServer)
	v.SetDefault("DB_ENCRYPT", true)
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)
	v.SetDefault("DB_CONNECT_TIMEOUT", 10*time.Second)
	v.SetDefault("DB_AUTO_MIGRATE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "catalog")
	v.SetDefault("METRICS_ENABLED", true)
}

// Load builds and validates a Config from v. A missing connection parameter
// yields an error wrapping ErrMissingConfig.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Port: v.GetString("APP_PORT"),
		},
		DB: DBConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			Server:          v.GetString("DB_SERVER"),
			Port:            v.GetString("DB_PORT"),
			Name:            v.GetString("DB_NAME"),
			Username:        v.GetString("DB_USERNAME"),
			Password:        v.GetString("DB_PASSWORD"),
			Encrypt:         v.GetBool("DB_ENCRYPT"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnectTimeout:  v.GetDuration("DB_CONNECT_TIMEOUT"),
			AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
		},
		RabbitMQ: RabbitMQConfig{
			URL: v.GetString("RABBITMQ_URL"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint:   v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:    v.GetString("OTEL_SERVICE_NAME"),
			MetricsEnabled: v.GetBool("METRICS_ENABLED"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	validate := validator.New()

	var missing, invalid []string
	for _, section := range []interface{}{c.App, c.DB, c.RabbitMQ} {
		err := validate.Struct(section)
		if err == nil {
			continue
		}
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("failed to validate configuration: %w", err)
		}
		for _, e := range validationErrors {
			key := envKeys[e.Namespace()]
			if key == "" {
				key = e.Field()
			}
			switch e.Tag() {
			case "required", "required_unless":
				missing = append(missing, key)
			default:
				invalid = append(invalid, fmt.Sprintf("%s (failed on '%s')", key, e.Tag()))
			}
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(invalid, ", "))
	}
	return nil
}

// DSN assembles the driver specific connection string. Credentials are
// URL-escaped.
func (c DBConfig) DSN() string {
	host := c.Server
	if c.Port != "" {
		host = net.JoinHostPort(c.Server, c.Port)
	}

	switch c.Driver {
	case DriverSQLServer:
		server, instance, port := splitSQLServer(c.Server)
		if c.Port != "" {
			port = c.Port
		}
		host = server
		if port != "" {
			host = net.JoinHostPort(server, port)
		}
		query := url.Values{}
		query.Set("database", c.Name)
		query.Set("encrypt", fmt.Sprintf("%t", c.Encrypt))
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.Username, c.Password),
			Host:     host,
			RawQuery: query.Encode(),
		}
		if instance != "" {
			u.Path = "/" + instance
		}
		return u.String()
	case DriverPostgres:
		sslMode := "disable"
		if c.Encrypt {
			sslMode = "require"
		}
		query := url.Values{}
		query.Set("sslmode", sslMode)
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.Username, c.Password),
			Host:     host,
			Path:     "/" + c.Name,
			RawQuery: query.Encode(),
		}
		return u.String()
	default:
		return c.Name
	}
}

// splitSQLServer accepts the ODBC SERVER forms host, host\INSTANCE,
// host,port and tcp:host,port and splits them into their URL parts.
func splitSQLServer(server string) (host, instance, port string) {
	host = server
	if len(host) > 4 && strings.EqualFold(host[:4], "tcp:") {
		host = host[4:]
	}
	if i := strings.LastIndex(host, ","); i >= 0 {
		host, port = host[:i], strings.TrimSpace(host[i+1:])
	}
	if i := strings.Index(host, `\`); i >= 0 {
		host, instance = host[:i], host[i+1:]
	}
	return host, instance, port
}
