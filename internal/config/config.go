package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	App      AppConfig      `toml:"app"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	RabbitMQ RabbitMQConfig `toml:"rabbitmq"`
	Session  SessionConfig  `toml:"session"`
	HTTP     HTTPConfig     `toml:"http"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Log      LogConfig      `toml:"log"`
}

type AppConfig struct {
	Name    string `toml:"name"`
	Env     string `toml:"env"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	GinMode string `toml:"gin_mode"`
}

type DatabaseConfig struct {
	Driver   string `toml:"driver"`
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DB       string `toml:"db"`
	Params   string `toml:"params"`
	Path     string `toml:"path"`
}

// RedisConfig leaves Addr empty to run without the highlight cache and
// session revocation.
type RedisConfig struct {
	Addr                string `toml:"addr"`
	Password            string `toml:"password"`
	DB                  int    `toml:"db"`
	HighlightTTLSeconds int    `toml:"highlight_ttl_seconds"`
}

// RabbitMQConfig leaves URL empty to run without ending events and the audit worker.
type RabbitMQConfig struct {
	URL               string `toml:"url"`
	EndingEventsQueue string `toml:"ending_events_queue"`
}

type SessionConfig struct {
	Secret     string `toml:"secret"`
	TTLMinutes int    `toml:"ttl_minutes"`
	CookieName string `toml:"cookie_name"`
	Secure     bool   `toml:"secure"`
	BcryptCost int    `toml:"bcrypt_cost"`
}

type HTTPConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

type CatalogConfig struct {
	Genres []string `toml:"genres"`
	Types  []string `toml:"types"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func Load() (*Config, error) {
	cfg := Default()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Session.Secret == "" || (c.App.Env != "dev" && c.Session.Secret == defaultSessionSecret) {
		return errors.New("session secret must be set outside dev")
	}
	if c.Session.TTLMinutes <= 0 {
		return errors.New("session ttl must be positive")
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// DatabaseDSN returns the explicit DSN when set, otherwise builds one for the driver.
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	switch c.Database.Driver {
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.Database.Host,
			c.Database.Port,
			c.Database.User,
			c.Database.Password,
			c.Database.DB,
		)
	case DriverSQLite:
		return c.Database.Path
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			c.Database.User,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.DB,
			c.Database.Params,
		)
	}
}

const defaultSessionSecret = "change-me-in-production"

// Default returns the built-in settings applied before the config file and environment.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:    "story-endings",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    8080,
			GinMode: "debug",
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Host:   "127.0.0.1",
			Port:   3306,
			User:   "root",
			DB:     "story_endings",
			Params: "parseTime=true&loc=UTC&charset=utf8mb4",
			Path:   "data/endings.db",
		},
		Redis: RedisConfig{
			HighlightTTLSeconds: 30,
		},
		RabbitMQ: RabbitMQConfig{
			EndingEventsQueue: "endings.events",
		},
		Session: SessionConfig{
			Secret:     defaultSessionSecret,
			TTLMinutes: 7 * 24 * 60,
			CookieName: "session",
			BcryptCost: 10,
		},
		Catalog: CatalogConfig{
			Genres: []string{"Comedy", "Drama", "Fantasy", "Horror", "Mystery", "Romance", "Science Fiction", "Thriller"},
			Types:  []string{"Bittersweet", "Cliffhanger", "Happy", "Open", "Tragic", "Twist"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("IP", cfg.App.Host)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("PORT", cfg.App.Port)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)

	cfg.Database.Driver = strings.ToLower(getEnv("DB_DRIVER", cfg.Database.Driver))
	cfg.Database.DSN = getEnv("DATABASE_DSN", cfg.Database.DSN)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DB = getEnv("DB_NAME", cfg.Database.DB)
	cfg.Database.Params = getEnv("DB_PARAMS", cfg.Database.Params)
	cfg.Database.Path = getEnv("SQLITE_PATH", cfg.Database.Path)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.HighlightTTLSeconds = getEnvAsInt("REDIS_HIGHLIGHT_TTL_SECONDS", cfg.Redis.HighlightTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.EndingEventsQueue = getEnv("RABBITMQ_ENDING_EVENTS_QUEUE", cfg.RabbitMQ.EndingEventsQueue)

	cfg.Session.Secret = getEnv("SECRET_KEY", cfg.Session.Secret)
	cfg.Session.Secret = getEnv("SESSION_SECRET", cfg.Session.Secret)
	cfg.Session.TTLMinutes = getEnvAsInt("SESSION_TTL_MINUTES", cfg.Session.TTLMinutes)
	cfg.Session.CookieName = getEnv("SESSION_COOKIE_NAME", cfg.Session.CookieName)
	cfg.Session.Secure = getEnvAsBool("SESSION_COOKIE_SECURE", cfg.Session.Secure)
	cfg.Session.BcryptCost = getEnvAsInt("BCRYPT_COST", cfg.Session.BcryptCost)

	if raw, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		cfg.HTTP.AllowedOrigins = splitList(raw)
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
