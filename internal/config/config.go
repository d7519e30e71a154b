package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	Addr            string           `yaml:"addr"`
	AllowedOrigins  []string         `yaml:"allowed_origins"`
	Debug           bool             `yaml:"debug"`
	SeedDemoTasks   bool             `yaml:"seed_demo_tasks"`
	MetricsSchedule string           `yaml:"metrics_schedule"`
	Completion      CompletionConfig `yaml:"completion"`
	Store           StoreConfig      `yaml:"store"`
}

type CompletionConfig struct {
	URL              string        `yaml:"url"`
	APIKey           string        `yaml:"api_key"`
	CustomerID       string        `yaml:"customer_id"`
	Model            string        `yaml:"model"`
	Temperature      float64       `yaml:"temperature"`
	MaxTokens        int           `yaml:"max_tokens"`
	InsightMaxTokens int           `yaml:"insight_max_tokens"`
	Timeout          time.Duration `yaml:"timeout"`
}

type StoreConfig struct {
	Driver     string `yaml:"driver"`
	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	SQLitePath string `yaml:"sqlite_path"`
}

func Defaults() *Config {
	return &Config{
		Addr:            ":8080",
		AllowedOrigins:  []string{"*"},
		MetricsSchedule: "@every 3s",
		Completion: CompletionConfig{
			URL:              "https://oi-server.onrender.com/chat/completions",
			APIKey:           "xxx",
			Model:            "openrouter/anthropic/claude-sonnet-4",
			Temperature:      0.7,
			MaxTokens:        4000,
			InsightMaxTokens: 200,
			Timeout:          60 * time.Second,
		},
		Store: StoreConfig{
			Driver:     StoreMemory,
			DBPort:     5432,
			SQLitePath: "blackbox.db",
		},
	}
}

// Load builds the config from defaults, then the optional YAML file at path,
// then the environment.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envString("BLACKBOX_ADDR", &c.Addr)
	if v := os.Getenv("BLACKBOX_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	envBool("SEED_DEMO_TASKS", &c.SeedDemoTasks)
	envString("METRICS_SCHEDULE", &c.MetricsSchedule)

	envString("COMPLETION_URL", &c.Completion.URL)
	envString("COMPLETION_API_KEY", &c.Completion.APIKey)
	envString("COMPLETION_CUSTOMER_ID", &c.Completion.CustomerID)
	envString("COMPLETION_MODEL", &c.Completion.Model)
	envFloat("COMPLETION_TEMPERATURE", &c.Completion.Temperature)
	envInt("COMPLETION_MAX_TOKENS", &c.Completion.MaxTokens)
	envInt("INSIGHT_MAX_TOKENS", &c.Completion.InsightMaxTokens)
	envDuration("COMPLETION_TIMEOUT", &c.Completion.Timeout)

	envString("STORE_DRIVER", &c.Store.Driver)
	envString("DB_HOST", &c.Store.DBHost)
	envInt("DB_PORT", &c.Store.DBPort)
	envString("DB_USER", &c.Store.DBUser)
	envString("DB_PASSWORD", &c.Store.DBPassword)
	envString("DB_NAME", &c.Store.DBName)
	envString("SQLITE_PATH", &c.Store.SQLitePath)
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StorePostgres, StoreSQLite:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Completion.URL == "" {
		return fmt.Errorf("completion url is required")
	}
	if c.Completion.Timeout <= 0 {
		return fmt.Errorf("completion timeout must be positive")
	}
	return nil
}

func (s StoreConfig) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		s.DBHost, s.DBPort, s.DBUser, s.DBPassword, s.DBName,
	)
}

// DSN returns the database/sql driver name and data source. Both are empty
// for the memory store.
func (s StoreConfig) DSN() (driver, dsn string) {
	switch s.Driver {
	case StorePostgres:
		return StorePostgres, s.ConnString()
	case StoreSQLite:
		return StoreSQLite, s.SQLitePath
	default:
		return "", ""
	}
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Malformed numeric values keep the previous value, like DB_PORT always did.
func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring malformed env value", "key", key, "value", v)
		return
	}
	*dst = n
}

func envFloat(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("ignoring malformed env value", "key", key, "value", v)
		return
	}
	*dst = f
}

func envBool(key string, dst *bool) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("ignoring malformed env value", "key", key, "value", v)
		return
	}
	*dst = b
}

func envDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("ignoring malformed env value", "key", key, "value", v)
		return
	}
	*dst = d
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
