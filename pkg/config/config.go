/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/docport/pkg/archive"
	"github.com/ssargent/docport/pkg/codec"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "DOCPORT_"

// Config represents the docport configuration
type Config struct {
	DataDir  string   `yaml:"data_dir"`
	Server   Server   `yaml:"server"`
	Transfer Transfer `yaml:"transfer"`
	Logging  Logging  `yaml:"logging"`
}

// Server configures the HTTP API
type Server struct {
	Bind           string `yaml:"bind"`
	Port           int    `yaml:"port"`
	APIKey         string `yaml:"api_key"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// Transfer configures export and import
type Transfer struct {
	DefaultFormat    string        `yaml:"default_format"`
	OpenRetries      int           `yaml:"open_retries"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	MaxConcurrency   int           `yaml:"max_concurrency"`
	CompressionLevel int           `yaml:"compression_level"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	ac := archive.DefaultConfig()
	return &Config{
		DataDir: "./data",
		Server: Server{
			Bind:           "127.0.0.1",
			Port:           8080,
			MaxUploadBytes: 64 << 20,
		},
		Transfer: Transfer{
			DefaultFormat:    string(codec.FormatJSON),
			OpenRetries:      ac.Retries,
			RetryDelay:       ac.RetryDelay,
			MaxConcurrency:   ac.MaxConcurrency,
			CompressionLevel: ac.CompressionLevel,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// ArchiveConfig converts the transfer section into archive settings.
func (t Transfer) ArchiveConfig() archive.Config {
	ac := archive.DefaultConfig()
	ac.Retries = t.OpenRetries
	ac.RetryDelay = t.RetryDelay
	ac.MaxConcurrency = t.MaxConcurrency
	ac.CompressionLevel = t.CompressionLevel
	return ac
}

// Addr returns the listen address of the HTTP API.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Bind, s.Port)
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600, the file may hold the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration with a freshly generated
// API key.
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./docport.yaml"
	}
	return filepath.Join(homeDir, ".config", "docport", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// ApplyEnv overlays DOCPORT_* variables found through lookup onto config.
// Pass os.LookupEnv outside of tests.
func ApplyEnv(config *Config, lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}

	str("DATA_DIR", &config.DataDir)
	str("BIND", &config.Server.Bind)
	integer("PORT", &config.Server.Port)
	str("API_KEY", &config.Server.APIKey)
	if v, ok := lookup(EnvPrefix + "MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_UPLOAD_BYTES: %w", EnvPrefix, err))
		} else {
			config.Server.MaxUploadBytes = n
		}
	}
	str("DEFAULT_FORMAT", &config.Transfer.DefaultFormat)
	integer("OPEN_RETRIES", &config.Transfer.OpenRetries)
	if v, ok := lookup(EnvPrefix + "RETRY_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRETRY_DELAY: %w", EnvPrefix, err))
		} else {
			config.Transfer.RetryDelay = d
		}
	}
	integer("MAX_CONCURRENCY", &config.Transfer.MaxConcurrency)
	integer("COMPRESSION_LEVEL", &config.Transfer.CompressionLevel)
	str("LOG_LEVEL", &config.Logging.Level)
	str("LOG_FORMAT", &config.Logging.Format)

	return errors.Join(errs...)
}

// Validate reports every problem with the configuration in one error.
func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	if _, err := codec.ParseFormat(c.Transfer.DefaultFormat); err != nil {
		errs = append(errs, fmt.Errorf("transfer.default_format: %w", err))
	}
	if err := c.Transfer.ArchiveConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}

	return errors.Join(errs...)
}
