package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Database          string        `yaml:"database,omitempty"`           // SQLite file (fallback: data.db)
	Storage           StorageConfig `yaml:"storage,omitempty"`
	MQTT              MQTTConfig    `yaml:"mqtt,omitempty"`
	Log               LogConfig     `yaml:"log,omitempty"`
	UploadConcurrency int           `yaml:"upload_concurrency,omitempty"` // Parallel file operations (fallback: 3)
	MaxBillingDays    int           `yaml:"max_billing_days,omitempty"`   // Longest accepted bill (fallback: 70)
}

// StorageConfig selects where evidence file contents live
type StorageConfig struct {
	Driver string      `yaml:"driver,omitempty"` // "dir" or "minio"
	Dir    string      `yaml:"dir,omitempty"`
	Minio  MinioConfig `yaml:"minio,omitempty"`
}

// MinioConfig holds S3 compatible object storage settings
type MinioConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region,omitempty"`
	UseSSL          bool   `yaml:"use_ssl,omitempty"`
}

// MQTTConfig holds MQTT broker settings for publishing submitted entries
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`                 // e.g., "localhost:1883"
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"` // fallback: "usageledger"
	ClientID    string `yaml:"client_id,omitempty"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // console or json
	Output string `yaml:"output,omitempty"` // stderr, stdout or a file path
}

// Load reads the config file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetDatabase returns the database path with a default of data.db
func (c *Config) GetDatabase() string {
	if c.Database == "" {
		return "data.db"
	}
	return c.Database
}

// GetStorageDriver returns the blob storage driver, "dir" unless set
func (c *Config) GetStorageDriver() string {
	if c.Storage.Driver == "" {
		return "dir"
	}
	return c.Storage.Driver
}

// GetStorageDir returns the local evidence directory with a default of evidence
func (c *Config) GetStorageDir() string {
	if c.Storage.Dir == "" {
		return "evidence"
	}
	return c.Storage.Dir
}

// GetTopicPrefix returns the MQTT topic prefix
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return "usageledger"
	}
	return c.MQTT.TopicPrefix
}

// GetUploadConcurrency returns the number of parallel file operations with a default of 3
func (c *Config) GetUploadConcurrency() int {
	if c.UploadConcurrency <= 0 {
		return 3
	}
	return c.UploadConcurrency
}

// GetMaxBillingDays returns the longest accepted billing period with a default of 70
func (c *Config) GetMaxBillingDays() int {
	if c.MaxBillingDays <= 0 {
		return 70
	}
	return c.MaxBillingDays
}
