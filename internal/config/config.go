// Package config provides configuration management for the Depot engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Config is the configuration contract between a host application and the
// engine. The base API origin is the only required value; everything else
// has a default.
//
// Config file location: ~/.config/depot/engine.ini
//
// INI format:
//
//	[depot]
//	base_url = https://portal.example.com
//	api_key = <token>
//	chunk_size_mb = 8
//	transport_retries = 0
//
//	[depot.compatibility]
//	eligible_software_ids = 3, 7
//
//	[depot.notifications]
//	enabled = true
//	desktop = false
type Config struct {
	// BaseURL is the API origin the engine talks to. Required.
	BaseURL string `ini:"base_url"`

	// APIKey authenticates every request. Required.
	APIKey string `ini:"api_key"`

	// ChunkSizeMB is the fixed chunk size for resumable uploads, in MiB.
	// Fixed per session at creation time. Default: 8.
	ChunkSizeMB int `ini:"chunk_size_mb"`

	// TransportRetries is the retry budget of the underlying HTTP transport.
	// The engine itself never retries; this stays 0 unless a host opts in.
	TransportRetries int `ini:"transport_retries"`

	// CompatibilityEligibleSoftwareIDs lists the software products whose
	// items solicit the secondary compatible-with version relation.
	CompatibilityEligibleSoftwareIDs []int

	// Notifications configures user-visible notices.
	Notifications NotificationConfig
}

// NotificationConfig contains settings for user-visible notices.
type NotificationConfig struct {
	// Enabled indicates whether notices are emitted at all. Default: true.
	Enabled bool `ini:"enabled"`

	// Desktop mirrors notices to desktop toasts. Default: false.
	Desktop bool `ini:"desktop"`
}

// Validation errors.
var (
	ErrMissingBaseURL = errors.New("base_url is required")
	ErrMissingAPIKey  = errors.New("api_key is required")
	ErrInvalidChunkMB = errors.New("chunk_size_mb must be between 1 and 512")
	ErrInvalidRetries = errors.New("transport_retries must be between 0 and 10")
)

// Default returns a config with defaults applied and no connection values.
func Default() *Config {
	return &Config{
		ChunkSizeMB: 8,
		Notifications: NotificationConfig{
			Enabled: true,
		},
	}
}

// DefaultPath returns the default location of the engine config file.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "depot", "engine.ini"), nil
}

// Load reads the config file at path, applies environment overrides
// (DEPOT_BASE_URL, DEPOT_API_KEY) and validates the result. A missing file
// is not an error as long as the environment supplies the required values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	f, err := ini.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := f.Section("depot").MapTo(cfg); err != nil {
		return fmt.Errorf("failed to parse [depot] section: %w", err)
	}
	if err := f.Section("depot.notifications").MapTo(&cfg.Notifications); err != nil {
		return fmt.Errorf("failed to parse [depot.notifications] section: %w", err)
	}

	raw := f.Section("depot.compatibility").Key("eligible_software_ids").String()
	ids, err := parseIDList(raw)
	if err != nil {
		return fmt.Errorf("failed to parse eligible_software_ids: %w", err)
	}
	cfg.CompatibilityEligibleSoftwareIDs = ids

	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DEPOT_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("DEPOT_API_KEY"); v != "" {
		cfg.APIKey = v
	}
}

// Validate checks the config for completeness and sane ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.ChunkSizeMB < 1 || c.ChunkSizeMB > 512 {
		return ErrInvalidChunkMB
	}
	if c.TransportRetries < 0 || c.TransportRetries > 10 {
		return ErrInvalidRetries
	}
	return nil
}

// ChunkSize returns the chunk size in bytes.
func (c *Config) ChunkSize() int64 {
	return int64(c.ChunkSizeMB) * 1024 * 1024
}

// CompatibilityEligible reports whether items of the given software product
// solicit the compatible-with relation.
func (c *Config) CompatibilityEligible(softwareID int) bool {
	for _, id := range c.CompatibilityEligibleSoftwareIDs {
		if id == softwareID {
			return true
		}
	}
	return false
}

func parseIDList(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
