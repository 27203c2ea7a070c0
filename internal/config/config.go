package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Telegram TelegramConfig
	Report   ReportConfig
	Activity ActivityConfig
	Sheets   SheetsConfig
	MongoDB  MongoDBConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// TelegramConfig contains credentials and options for the Telegram Bot API.
type TelegramConfig struct {
	BotToken      string
	WebhookSecret string
	BaseURL       string
	AdminChatID   int64
	AdminPhone    string
}

// ReportConfig holds the tunables of the stock-report pipeline. The trim
// offsets and markers describe the fixed layout of the warehouse export;
// the comparison thresholds encode the current business rule and live here
// so they can be confirmed against it without a rebuild.
type ReportConfig struct {
	TrimHeadRows      int
	TrimTailRows      int
	ExclusionMarker   string
	InfinityGlyph     string
	LowStockThreshold int
}

// ActivityConfig holds scheduler-related settings for the usage digest.
type ActivityConfig struct {
	CronSchedule string
	Timezone     string
}

// SheetsConfig contains configuration required to interact with the
// allow-list spreadsheet.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	AllowListRange  string
}

// MongoDBConfig holds settings for the activity log store.
type MongoDBConfig struct {
	URI    string
	DBName string
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
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	adminChatID, err := getenvInt64("TELEGRAM_ADMIN_CHAT_ID", 0)
	if err != nil {
		return nil, err
	}

	trimHead, err := getenvInt("REPORT_TRIM_HEAD_ROWS", 2)
	if err != nil {
		return nil, err
	}
	trimTail, err := getenvInt("REPORT_TRIM_TAIL_ROWS", 2)
	if err != nil {
		return nil, err
	}
	lowStock, err := getenvInt("REPORT_LOW_STOCK_THRESHOLD", 50)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Telegram: TelegramConfig{
			BotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
			WebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
			BaseURL:       getenvWithDefault("TELEGRAM_BASE_URL", "https://api.telegram.org"),
			AdminChatID:   adminChatID,
			AdminPhone:    os.Getenv("TELEGRAM_ADMIN_PHONE"),
		},
		Report: ReportConfig{
			TrimHeadRows:      trimHead,
			TrimTailRows:      trimTail,
			ExclusionMarker:   getenvWithDefault("REPORT_EXCLUSION_MARKER", "-Н"),
			InfinityGlyph:     getenvWithDefault("REPORT_INFINITY_GLYPH", "∞"),
			LowStockThreshold: lowStock,
		},
		Activity: ActivityConfig{
			CronSchedule: getenvWithDefault("ACTIVITY_CRON_SCHEDULE", "0 8 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Tashkent"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_ALLOWLIST_ID"),
			AllowListRange:  getenvWithDefault("GOOGLE_SHEET_ALLOWLIST_RANGE", "AllowList!A:A"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "restockbot"),
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
	case c.Telegram.BotToken == "":
		return errors.New("TELEGRAM_BOT_TOKEN must be provided")
	case c.Telegram.WebhookSecret == "":
		return errors.New("TELEGRAM_WEBHOOK_SECRET must be provided")
	case c.Telegram.AdminPhone == "":
		return errors.New("TELEGRAM_ADMIN_PHONE must be provided")
	}

	if c.Telegram.BaseURL == "" {
		return errors.New("TELEGRAM_BASE_URL must not be empty")
	}

	if c.Report.TrimHeadRows < 0 || c.Report.TrimTailRows < 0 {
		return errors.New("report trim offsets must not be negative")
	}

	if c.Report.ExclusionMarker == "" {
		return errors.New("REPORT_EXCLUSION_MARKER must not be empty")
	}

	if c.Report.InfinityGlyph == "" {
		return errors.New("REPORT_INFINITY_GLYPH must not be empty")
	}

	if c.Report.LowStockThreshold < 0 {
		return errors.New("REPORT_LOW_STOCK_THRESHOLD must not be negative")
	}

	if c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	}

	if c.Sheets.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_ALLOWLIST_ID must be provided")
	}

	if c.Sheets.AllowListRange == "" {
		return errors.New("GOOGLE_SHEET_ALLOWLIST_RANGE must not be empty")
	}

	if c.Activity.CronSchedule == "" {
		return errors.New("ACTIVITY_CRON_SCHEDULE must be provided")
	}

	if c.Activity.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
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
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}

func getenvInt64(key string, fallback int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}
