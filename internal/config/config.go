package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port     string
	HostName string

	// Twitch application credentials
	ClientID     string
	ClientSecret string

	// Bot identity
	BotUser    string
	BotChannel string

	// Token store settings
	StoreAdapter string
	CacheDir     string
	SQLiteFile   string
	PublicDir    string

	// PostgreSQL connection settings
	PostgresDSN      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// CallbackURL returns the canonical OAuth redirect address for this instance.
func (c *Config) CallbackURL() string {
	return strings.TrimSuffix(c.HostName, "/") + "/twitch/auth-callback"
}

// BuildPostgresDSN constructs a PostgreSQL DSN from individual components or returns the provided DSN
func (c *Config) BuildPostgresDSN() (string, error) {
	// If DSN is provided directly, use it
	if c.PostgresDSN != "" {
		return c.PostgresDSN, nil
	}

	// Build DSN from individual components
	if c.PostgresHost == "" {
		return "", errors.New("POSTGRES_HOST or POSTGRES_DSN must be set")
	}
	if c.PostgresUser == "" {
		return "", errors.New("POSTGRES_USER must be set")
	}
	if c.PostgresDB == "" {
		return "", errors.New("POSTGRES_DB must be set")
	}

	port := c.PostgresPort
	if port == "" {
		port = "5432"
	}

	sslMode := c.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable" // Default to disable for local development
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.PostgresHost, port, c.PostgresUser, c.PostgresDB, sslMode)

	if c.PostgresPassword != "" {
		dsn += " password=" + c.PostgresPassword
	}

	return dsn, nil
}

func New() (*Config, error) {
	c := &Config{
		Port:         getenv("PORT", "8080"),
		HostName:     getenv("HOST_NAME", "http://localhost:8080"),
		ClientID:     getenv("TWITCH_CLIENT_ID", ""),
		ClientSecret: getenv("TWITCH_CLIENT_SECRET", ""),
		BotUser:      getenv("BOT_USER", ""),
		BotChannel:   getenv("BOT_CHANNEL", ""),
		StoreAdapter: getenv("STORE_ADAPTER", "file"), // Default to the file cache
		CacheDir:     getenv("CACHE_DIR", "./cache"),
		SQLiteFile:   getenv("SQLITE_FILE", "./data/tokens.db"),
		PublicDir:    getenv("PUBLIC_DIR", "./public"),
		// PostgreSQL settings
		PostgresDSN:      getenv("POSTGRES_DSN", ""),
		PostgresHost:     getenv("POSTGRES_HOST", getenv("DB_HOST", "localhost")),
		PostgresPort:     getenv("POSTGRES_PORT", getenv("DB_PORT", "5432")),
		PostgresUser:     getenv("POSTGRES_USER", getenv("DB_USER", "twitchbroker")),
		PostgresPassword: getenv("POSTGRES_PASSWORD", getenv("DB_PASSWORD", "")),
		PostgresDB:       getenv("POSTGRES_DB", getenv("DB_NAME", "twitchbroker")),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", getenv("DB_SSLMODE", "disable")),
	}

	if c.ClientID == "" {
		return nil, errors.New("TWITCH_CLIENT_ID must be set")
	}
	if c.ClientSecret == "" {
		return nil, errors.New("TWITCH_CLIENT_SECRET must be set")
	}

	// Validate PostgreSQL configuration if using postgres
	if c.StoreAdapter == "postgres" {
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			return nil, fmt.Errorf("postgres configuration error: %w", err)
		}
		c.PostgresDSN = dsn
	}

	if c.StoreAdapter == "sqlite" && c.SQLiteFile == "" {
		return nil, errors.New("SQLITE_FILE must be set when STORE_ADAPTER=sqlite")
	}
	if c.StoreAdapter == "file" && c.CacheDir == "" {
		return nil, errors.New("CACHE_DIR must be set when STORE_ADAPTER=file")
	}

	if !strings.HasPrefix(c.HostName, "http://") && !strings.HasPrefix(c.HostName, "https://") {
		return nil, fmt.Errorf("HOST_NAME must include a scheme: %s", c.HostName)
	}

	// normalize port
	if _, err := strconv.Atoi(c.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %s", c.Port)
	}

	return c, nil
}
