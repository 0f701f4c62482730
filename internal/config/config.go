package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Weather   WeatherConfig
	Scheduler SchedulerConfig
	Redis     RedisConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	WhatsApp  WhatsAppConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// DatabaseConfig selects and addresses the relational store.
type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      string
	User      string
	Password  string
	Name      string
	DSN       string
	SyncAlter bool
}

// WeatherConfig contains OpenWeather settings used when sessions are created.
type WeatherConfig struct {
	APIKey   string
	BaseURL  string
	Location string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// SchedulerConfig holds cron expressions for background jobs.
type SchedulerConfig struct {
	StockCheckCron string
	ReportCron     string
	ArchiveCron    string
	Timezone       string
}

// RedisConfig enables idempotency replay and the sweep lock.
type RedisConfig struct {
	URL      string
	Address  string
	Password string
	DB       int
}

// MongoDBConfig holds settings for the report archive.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
	// AlertRecipient receives low stock warnings and scheduled reports.
	AlertRecipient string
}

// Enabled reports whether Redis settings were provided.
func (c RedisConfig) Enabled() bool { return c.URL != "" || c.Address != "" }

// Enabled reports whether MongoDB settings were provided.
func (c MongoDBConfig) Enabled() bool { return c.URI != "" }

// Enabled reports whether Google Sheets settings were provided.
func (c SheetsConfig) Enabled() bool { return c.CredentialsPath != "" && c.SpreadsheetID != "" }

// Enabled reports whether WhatsApp credentials were provided.
func (c WhatsAppConfig) Enabled() bool { return c.AccessToken != "" && c.PhoneNumberID != "" }

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: firstNonEmpty(os.Getenv("APP_PORT"), os.Getenv("PORT"), "5003"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Driver:    strings.ToLower(getenvWithDefault("DB_DRIVER", "mysql")),
			Host:      getenvWithDefault("DB_HOST", "localhost"),
			Port:      os.Getenv("DB_PORT"),
			User:      getenvWithDefault("DB_USER", "root"),
			Password:  os.Getenv("DB_PASSWORD"),
			Name:      getenvWithDefault("DB_NAME", "dairytrack"),
			DSN:       os.Getenv("DB_DSN"),
			SyncAlter: getenvBool("DB_SYNC_ALTER", true),
		},
		Weather: WeatherConfig{
			APIKey:   os.Getenv("OPENWEATHER_API_KEY"),
			BaseURL:  getenvWithDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
			Location: getenvWithDefault("OPENWEATHER_LOCATION", "Pollung"),
			Timeout:  getenvDuration("OPENWEATHER_TIMEOUT", 3*time.Second),
			CacheTTL: getenvDuration("WEATHER_CACHE_TTL", 30*time.Minute),
		},
		Scheduler: SchedulerConfig{
			StockCheckCron: getenvWithDefault("STOCK_CHECK_CRON", "0 * * * *"),
			ReportCron:     getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * 5"),
			ArchiveCron:    getenvWithDefault("ARCHIVE_CRON_SCHEDULE", "55 23 * * *"),
			Timezone:       getenvWithDefault("TIMEZONE", "Asia/Jakarta"),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			Address:  os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getenvInt("REDIS_DB", 0),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "dairytrack"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:    os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID:  os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:    os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:        getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:     getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			AlertRecipient: os.Getenv("WHATSAPP_ALERT_RECIPIENT"),
		},
	}

	if cfg.Database.Port == "" {
		cfg.Database.Port = defaultDBPort(cfg.Database.Driver)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Database.Driver {
	case "mysql", "postgres":
		if c.Database.DSN == "" && (c.Database.Host == "" || c.Database.Name == "") {
			return errors.New("DB_HOST and DB_NAME must be provided")
		}
	case "sqlite":
		if c.Database.DSN == "" && c.Database.Name == "" {
			return errors.New("DB_NAME or DB_DSN must be provided for sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Weather.Timeout <= 0 {
		return errors.New("OPENWEATHER_TIMEOUT must be positive")
	}

	if c.Scheduler.StockCheckCron == "" {
		return errors.New("STOCK_CHECK_CRON must be provided")
	}

	if c.Scheduler.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	if c.WhatsApp.Enabled() {
		if c.WhatsApp.VerifyToken == "" {
			return errors.New("META_VERIFY_TOKEN must be provided when WhatsApp is enabled")
		}
		if c.WhatsApp.BaseURL == "" || c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_BASE_URL and WHATSAPP_API_VERSION must not be empty")
		}
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be set together")
	}

	return nil
}

func defaultDBPort(driver string) string {
	switch driver {
	case "postgres":
		return "5432"
	case "mysql":
		return "3306"
	default:
		return ""
	}
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getenvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}
