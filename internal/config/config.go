package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	AWS        AWSConfig        `yaml:"aws"`
	JWT        JWTConfig        `yaml:"jwt"`
	Log        LogConfig        `yaml:"log"`
	Moderation ModerationConfig `yaml:"moderation"`
	Push       PushConfig       `yaml:"push"`
	Maps       MapsConfig       `yaml:"maps"`
	Retention  RetentionConfig  `yaml:"retention"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int    `yaml:"port"`
	Host           string `yaml:"host"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// AWSConfig holds object-storage configuration
type AWSConfig struct {
	Region     string `yaml:"region"`
	S3Bucket   string `yaml:"s3_bucket"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Endpoint   string `yaml:"endpoint"` // custom endpoint for S3-compatible storage
	DisableSSL bool   `yaml:"disable_ssl"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// ModerationConfig holds the ban gate and admin settings
type ModerationConfig struct {
	AdminToken string `yaml:"admin_token"`
	IPSalt     string `yaml:"ip_salt"`
}

// PushConfig holds APNs push notification settings
type PushConfig struct {
	Enabled      bool   `yaml:"enabled"`
	CertPath     string `yaml:"cert_path"`
	CertPassword string `yaml:"cert_password"`
	Topic        string `yaml:"topic"`
	Production   bool   `yaml:"production"`
	QueueSize    int    `yaml:"queue_size"`
}

// MapsConfig holds static-map rendering settings. URLTemplate is expanded
// with fmt.Sprintf(template, lon, lat).
type MapsConfig struct {
	URLTemplate   string   `yaml:"url_template"`
	MaxAttempts   int      `yaml:"max_attempts"`
	RetryBackoff  Duration `yaml:"retry_backoff"`
	FetchInterval Duration `yaml:"fetch_interval"`
	BatchSize     int      `yaml:"batch_size"`
}

// RetentionConfig holds the cleanup sweep thresholds. A never-matched photo
// is reclaimed after ReadyTTL; an exchanged photo is kept for ExchangedTTL
// before soft deletion; soft-deleted photos are purged after DeletedGrace.
type RetentionConfig struct {
	SweepInterval Duration `yaml:"sweep_interval"`
	ReadyTTL      Duration `yaml:"ready_ttl"`
	ExchangedTTL  Duration `yaml:"exchanged_ttl"`
	DeletedGrace  Duration `yaml:"deleted_grace"`
	BatchSize     int      `yaml:"batch_size"`
}

// Duration wraps time.Duration so YAML values like "15m" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 10 << 20
	}
	if c.Push.QueueSize <= 0 {
		c.Push.QueueSize = 256
	}
	if c.Maps.MaxAttempts <= 0 {
		c.Maps.MaxAttempts = 5
	}
	if c.Maps.RetryBackoff == 0 {
		c.Maps.RetryBackoff = Duration(5 * time.Minute)
	}
	if c.Maps.FetchInterval == 0 {
		c.Maps.FetchInterval = Duration(time.Minute)
	}
	if c.Maps.BatchSize <= 0 {
		c.Maps.BatchSize = 20
	}
	if c.Retention.SweepInterval == 0 {
		c.Retention.SweepInterval = Duration(time.Hour)
	}
	if c.Retention.ReadyTTL == 0 {
		c.Retention.ReadyTTL = Duration(7 * 24 * time.Hour)
	}
	if c.Retention.ExchangedTTL == 0 {
		c.Retention.ExchangedTTL = Duration(30 * 24 * time.Hour)
	}
	if c.Retention.DeletedGrace == 0 {
		c.Retention.DeletedGrace = Duration(3 * 24 * time.Hour)
	}
	if c.Retention.BatchSize <= 0 {
		c.Retention.BatchSize = 100
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
