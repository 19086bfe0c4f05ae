package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Media    MediaConfig
}

type ServerConfig struct {
	AppEnv   string
	HTTPAddr string
	// MaxBodyBytes bounds request bodies, uploads included.
	MaxBodyBytes int64
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type DatabaseConfig struct {
	// Driver is either "postgres" or "sqlite".
	Driver string
	// DSN overrides the Postgres* parts when set. For sqlite it is the file name.
	DSN string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	LogQueries      bool
}

type MediaConfig struct {
	Root string
	URL  string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:       getEnv("APP_ENV", "production"),
			HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
			MaxBodyBytes: int64(getEnvInt("UPLOAD_MAX_BODY", 16<<20)),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "postgres"),
			DSN:              getEnv("DB_DSN", ""),
			PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
			PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
			PostgresUser:     getEnv("POSTGRES_USER", "catalog"),
			PostgresPassword: getEnv("POSTGRES_PASSWORD", "catalog"),
			PostgresDB:       getEnv("POSTGRES_DB", "catalog"),
			PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME", 300)) * time.Second,
			AutoMigrate:      getEnvBool("DB_AUTO_MIGRATE", true),
			LogQueries:       getEnvBool("DB_LOG_QUERIES", false),
		},
		Media: MediaConfig{
			Root: getEnv("MEDIA_ROOT", "./media"),
			URL:  getEnv("MEDIA_URL", "/media/"),
		},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development"
}

// PostgresDSN returns DSN when set, otherwise a keyword/value DSN built from the parts.
func (d DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.PostgresHost, d.PostgresPort, d.PostgresUser, d.PostgresPassword, d.PostgresDB, d.PostgresSSLMode)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
