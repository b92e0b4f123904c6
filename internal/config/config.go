package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Snapshot backends supported by the ledger.
const (
	SnapshotBackendFile  = "file"
	SnapshotBackendMongo = "mongo"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	MongoDB   MongoDBConfig
	Inventory InventoryConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken     string
	PhoneNumberID   string
	VerifyToken     string
	BaseURL         string
	APIVersion      string
	AuthorizedUsers []string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath   string
	SpreadsheetID     string
	TransactionsRange string
	ImportRange       string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// InventoryConfig holds ledger persistence and stock classification settings.
type InventoryConfig struct {
	SnapshotBackend        string
	SnapshotPath           string
	DefaultMinStock        int
	LowStockMultiplier     decimal.Decimal
	CriticalStockThreshold int
}

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
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	defaultMinStock, err := getenvInt("DEFAULT_MIN_STOCK", 20)
	if err != nil {
		return nil, err
	}
	critical, err := getenvInt("CRITICAL_STOCK_THRESHOLD", 5)
	if err != nil {
		return nil, err
	}
	multiplier, err := decimal.NewFromString(getenvWithDefault("LOW_STOCK_MULTIPLIER", "1.5"))
	if err != nil {
		return nil, fmt.Errorf("LOW_STOCK_MULTIPLIER must be a number: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:     os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID:   os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:     os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:         getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:      getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			AuthorizedUsers: splitList(os.Getenv("AUTHORIZED_USERS")),
		},
		Sheets: SheetsConfig{
			CredentialsPath:   os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:     os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			TransactionsRange: getenvWithDefault("SHEETS_TRANSACTIONS_RANGE", "Transactions!A:G"),
			ImportRange:       getenvWithDefault("SHEETS_IMPORT_RANGE", "Inventory!A:D"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 21 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Kolkata"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "medstock"),
		},
		Inventory: InventoryConfig{
			SnapshotBackend:        getenvWithDefault("SNAPSHOT_BACKEND", SnapshotBackendFile),
			SnapshotPath:           getenvWithDefault("SNAPSHOT_PATH", "data/inventory.json"),
			DefaultMinStock:        defaultMinStock,
			LowStockMultiplier:     multiplier,
			CriticalStockThreshold: critical,
		},
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

	switch {
	case c.WhatsApp.AccessToken == "":
		return errors.New("WHATSAPP_TOKEN must be provided")
	case c.WhatsApp.PhoneNumberID == "":
		return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
	case c.WhatsApp.VerifyToken == "":
		return errors.New("META_VERIFY_TOKEN must be provided")
	}

	if c.WhatsApp.BaseURL == "" {
		return errors.New("WHATSAPP_BASE_URL must not be empty")
	}

	if c.WhatsApp.APIVersion == "" {
		return errors.New("WHATSAPP_API_VERSION must not be empty")
	}

	if c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	}

	if c.Sheets.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	return c.Inventory.Validate()
}

// Validate checks the ledger settings.
func (c InventoryConfig) Validate() error {
	switch c.SnapshotBackend {
	case SnapshotBackendFile:
		if c.SnapshotPath == "" {
			return errors.New("SNAPSHOT_PATH must be provided for the file backend")
		}
	case SnapshotBackendMongo:
	default:
		return fmt.Errorf("SNAPSHOT_BACKEND %q is not supported", c.SnapshotBackend)
	}

	if c.DefaultMinStock < 0 {
		return errors.New("DEFAULT_MIN_STOCK must not be negative")
	}
	if c.CriticalStockThreshold < 0 {
		return errors.New("CRITICAL_STOCK_THRESHOLD must not be negative")
	}
	if !c.LowStockMultiplier.IsPositive() {
		return errors.New("LOW_STOCK_MULTIPLIER must be positive")
	}
	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
