package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Import   ImportConfig   `yaml:"import"`
	Blob     BlobConfig     `yaml:"blob"`
	Limits   LimitsConfig   `yaml:"limits"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // postgres | sqlite
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // openai | gemini
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ImportConfig holds drop-folder import configuration
type ImportConfig struct {
	InboxDir      string        `yaml:"inbox_dir"`
	Debounce      time.Duration `yaml:"debounce"`
	DefaultTenant string        `yaml:"default_tenant"`
	QueueWorkers  int           `yaml:"queue_workers"`
	QueueSize     int           `yaml:"queue_size"`
	JobTimeout    time.Duration `yaml:"job_timeout"`
}

// BlobConfig selects where exported workbooks are stored
type BlobConfig struct {
	Driver     string `yaml:"driver"` // fs | s3 | "" (disabled)
	Dir        string `yaml:"dir"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Endpoint string `yaml:"s3_endpoint"`
	PathStyle  bool   `yaml:"path_style"`
}

// LimitsConfig points at the exposure-limit catalog seeded into new tenants
type LimitsConfig struct {
	CatalogPath string `yaml:"catalog_path"`
}

// LoadConfig loads configuration from environment variables. When EXPOSURE_CONFIG_FILE
// is set, the YAML file is applied first and environment variables override it.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()
	if path := os.Getenv("EXPOSURE_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr:    ":8080",
			MetricsAddr: ":9090",
		},
		LLM: LLMConfig{
			Provider: "openai",
			Timeout:  45 * time.Second,
		},
		Import: ImportConfig{
			Debounce:     500 * time.Millisecond,
			QueueWorkers: 2,
			QueueSize:    64,
			JobTimeout:   3 * time.Minute,
		},
	}
}

func (c *Config) applyFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return NewAppError("CONFIG_ERROR", "parse config file "+path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.MetricsAddr = getEnv("METRICS_ADDR", c.Server.MetricsAddr)

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini":
		c.LLM.APIKey = getEnv("GEMINI_API_KEY", c.LLM.APIKey)
	default:
		c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	}

	c.Import.InboxDir = getEnv("IMPORT_INBOX_DIR", c.Import.InboxDir)
	c.Import.Debounce = getEnvAsDuration("IMPORT_DEBOUNCE", c.Import.Debounce)
	c.Import.DefaultTenant = getEnv("IMPORT_TENANT_ID", c.Import.DefaultTenant)
	c.Import.QueueWorkers = getEnvAsInt("QUEUE_WORKERS", c.Import.QueueWorkers)
	c.Import.QueueSize = getEnvAsInt("QUEUE_SIZE", c.Import.QueueSize)
	c.Import.JobTimeout = getEnvAsDuration("QUEUE_JOB_TIMEOUT", c.Import.JobTimeout)

	c.Blob.Driver = getEnv("BLOB_DRIVER", c.Blob.Driver)
	c.Blob.Dir = getEnv("BLOB_DIR", c.Blob.Dir)
	c.Blob.S3Bucket = getEnv("BLOB_S3_BUCKET", c.Blob.S3Bucket)
	c.Blob.S3Region = getEnv("BLOB_S3_REGION", c.Blob.S3Region)
	c.Blob.S3Endpoint = getEnv("BLOB_S3_ENDPOINT", c.Blob.S3Endpoint)
	c.Blob.PathStyle = getEnvAsBool("BLOB_S3_PATH_STYLE", c.Blob.PathStyle)

	c.Limits.CatalogPath = getEnv("LIMITS_CATALOG", c.Limits.CatalogPath)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
		}
	case "sqlite":
		// empty DSN means in-memory
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported DB_DRIVER %q", c.Database.Driver), ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "openai", "gemini", "":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported LLM_PROVIDER %q", c.LLM.Provider), ErrInvalidInput)
	}
	switch c.Blob.Driver {
	case "", "fs":
	case "s3":
		if c.Blob.S3Bucket == "" {
			return NewAppError("CONFIG_ERROR", "BLOB_S3_BUCKET is required for the s3 driver", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported BLOB_DRIVER %q", c.Blob.Driver), ErrInvalidInput)
	}
	return nil
}

// LLMEnabled reports whether drafting features can be wired.
func (c *Config) LLMEnabled() bool {
	return c.LLM.APIKey != ""
}
