package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the shoplens API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	GCP      GCPConfig      `yaml:"gcp"`
	Storage  StorageConfig  `yaml:"storage"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Search   SearchConfig   `yaml:"search"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int `yaml:"max_upload_mb"`
}

// DatabaseConfig holds the index-state cache connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// GCPConfig holds the Vision Product Search backend settings.
type GCPConfig struct {
	ProjectID    string `yaml:"project_id"`
	Location     string `yaml:"location"`
	ProductSetID string `yaml:"product_set_id"`
}

// StorageConfig holds the mirrored-image bucket settings.
type StorageConfig struct {
	Bucket       string `yaml:"bucket"`
	ObjectPrefix string `yaml:"object_prefix"`
}

// CatalogConfig holds import pipeline settings.
type CatalogConfig struct {
	BatchSize       int      `yaml:"batch_size"`
	AttributeKeys   []string `yaml:"attribute_keys"`
	RetryMaxTries   int      `yaml:"retry_max_tries"`
	RetryBaseMS     int      `yaml:"retry_base_ms"`
	RetryCapMS      int      `yaml:"retry_cap_ms"`
	ChunkTimeoutSec int      `yaml:"chunk_timeout_sec"`
}

// SearchConfig holds query dispatch settings.
type SearchConfig struct {
	TimeoutSec int `yaml:"timeout_sec"`
	// RetryAttempts: absent/0 defaults to 2; any negative value disables retries.
	RetryAttempts  int `yaml:"retry_attempts"`
	RetryDelayMS   int `yaml:"retry_delay_ms"`
	PollTimeoutSec int `yaml:"poll_timeout_sec"`
	PollThreshold  int `yaml:"poll_failure_threshold"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "shoplens:"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.GCP.Location == "" {
		c.GCP.Location = "europe-west1"
	}
	if c.Storage.ObjectPrefix == "" {
		c.Storage.ObjectPrefix = "products"
	}
	if c.Catalog.BatchSize <= 0 {
		c.Catalog.BatchSize = 500
	}
	if c.Catalog.RetryMaxTries <= 0 {
		c.Catalog.RetryMaxTries = 5
	}
	if c.Catalog.RetryBaseMS <= 0 {
		c.Catalog.RetryBaseMS = 1000
	}
	if c.Catalog.RetryCapMS <= 0 {
		c.Catalog.RetryCapMS = 30000
	}
	if c.Catalog.ChunkTimeoutSec <= 0 {
		c.Catalog.ChunkTimeoutSec = 30
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 15
	}
	if c.Search.RetryAttempts == 0 {
		c.Search.RetryAttempts = 2
	} else if c.Search.RetryAttempts < 0 {
		c.Search.RetryAttempts = 0
	}
	if c.Search.RetryDelayMS <= 0 {
		c.Search.RetryDelayMS = 500
	}
	if c.Search.PollTimeoutSec <= 0 {
		c.Search.PollTimeoutSec = 10
	}
	if c.Search.PollThreshold <= 0 {
		c.Search.PollThreshold = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.GCP.ProjectID == "" {
		return fmt.Errorf("gcp.project_id is required")
	}
	if c.GCP.ProductSetID == "" {
		return fmt.Errorf("gcp.product_set_id is required")
	}
	if c.Catalog.BatchSize > 500 {
		return fmt.Errorf("catalog.batch_size must not exceed 500, got %d", c.Catalog.BatchSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
