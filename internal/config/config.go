// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"financas/internal/log"
)

type Config struct {
	// HTTP Server
	Port                string        `koanf:"port"`
	SecureCookies       bool          `koanf:"secure_cookies"`
	SessionTTL          time.Duration `koanf:"session_ttl"`
	RateLimitPerMinute  int           `koanf:"rate_limit_per_minute"`
	BalanceCacheTTL     time.Duration `koanf:"balance_cache_ttl"`
	BalanceCacheEntries int           `koanf:"balance_cache_entries"`

	// Database
	SQLiteDBPath string `koanf:"sqlite_db_path"`

	// Logging
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// AMQP; an empty URL disables publishing and consuming.
	AMQPURL      string `koanf:"amqp_url"`
	AMQPExchange string `koanf:"amqp_exchange"`
	AMQPQueue    string `koanf:"amqp_queue"`

	// Google Sheets
	GoogleSpreadsheetID      string `koanf:"google_spreadsheet_id"`
	GoogleSheetName          string `koanf:"google_sheet_name"`
	GoogleServiceAccountJSON string `koanf:"google_service_account_json"`
	GoogleServiceAccountFile string `koanf:"google_service_account_file"`

	// Worker
	SyncBatchSize int           `koanf:"sync_batch_size"`
	SyncInterval  time.Duration `koanf:"sync_interval"`
}

// keys lists the environment variables Load reads; everything else in the
// environment is ignored.
var keys = map[string]bool{
	"PORT":                        true,
	"SECURE_COOKIES":              true,
	"SESSION_TTL":                 true,
	"RATE_LIMIT_PER_MINUTE":       true,
	"BALANCE_CACHE_TTL":           true,
	"BALANCE_CACHE_ENTRIES":       true,
	"SQLITE_DB_PATH":              true,
	"LOG_LEVEL":                   true,
	"LOG_FORMAT":                  true,
	"AMQP_URL":                    true,
	"AMQP_EXCHANGE":               true,
	"AMQP_QUEUE":                  true,
	"GOOGLE_SPREADSHEET_ID":       true,
	"GOOGLE_SHEET_NAME":           true,
	"GOOGLE_SERVICE_ACCOUNT_JSON": true,
	"GOOGLE_SERVICE_ACCOUNT_FILE": true,
	"SYNC_BATCH_SIZE":             true,
	"SYNC_INTERVAL":               true,
}

// Load reads the environment into a Config and fills unset keys with
// defaults. Callers load .env beforehand and call Validate afterwards.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Empty values count as unset so defaults apply to them too.
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if !keys[key] || value == "" {
			return "", nil
		}
		return strings.ToLower(key), value
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "8081"
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 60
	}
	if cfg.BalanceCacheTTL == 0 {
		cfg.BalanceCacheTTL = 5 * time.Minute
	}
	if cfg.BalanceCacheEntries == 0 {
		cfg.BalanceCacheEntries = 1000
	}
	if cfg.SQLiteDBPath == "" {
		cfg.SQLiteDBPath = "./data/financas.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.AMQPExchange == "" {
		cfg.AMQPExchange = "financas"
	}
	if cfg.AMQPQueue == "" {
		cfg.AMQPQueue = "sync_transactions"
	}
	if cfg.GoogleSheetName == "" {
		cfg.GoogleSheetName = "Movimentacoes"
	}
	if cfg.SyncBatchSize == 0 {
		cfg.SyncBatchSize = 10
	}
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = 30 * time.Second
	}
}

// Addr is the listen address for the web server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// LogConfig builds the logger configuration for one binary component.
// Validate has already rejected a bad level.
func (c *Config) LogConfig(component string) log.Config {
	lc := log.DefaultConfig()
	if level, err := log.ParseLevel(c.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Format = c.LogFormat
	lc.Component = component
	return lc
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}
	if c.BalanceCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid balance cache TTL %v: must not be negative", c.BalanceCacheTTL))
	}
	if c.BalanceCacheEntries < 1 {
		errors = append(errors, fmt.Sprintf("invalid balance cache size %d: must be at least 1", c.BalanceCacheEntries))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
