// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete kbchat configuration.
type Config struct {
	// ServerURL is the base URL of the chat/knowledge backend.
	ServerURL string `toml:"server_url"`

	// AssistantName is the display name shown for the assistant.
	// Empty means the generic label is used.
	AssistantName string `toml:"assistant_name"`

	// UserName is the display name substituted for the end user.
	// Empty means the generic label is used.
	UserName string `toml:"user_name"`

	// MaxMessages caps the messages per conversation. Enforced as a hard
	// submission guard: at the cap, sending is rejected before any
	// network call.
	MaxMessages int `toml:"max_messages"`

	// TimeoutSecs is the per-request timeout for backend calls.
	TimeoutSecs int `toml:"timeout_secs"`

	// UploadDir is the local directory the knowledge-base panel offers
	// files from. Empty means the current working directory.
	UploadDir string `toml:"upload_dir"`
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		ServerURL:   "http://localhost:8000",
		MaxMessages: 20,
		TimeoutSecs: 30,
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the kbchat configuration directory (~/.kbchat).
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".kbchat"), nil
}

// ConfigPath returns the path of the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration file, fills defaults, and applies environment
// overrides. A missing file is not an error; defaults are used.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads the configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillDefaults replaces zero values with the built-in defaults.
func (c *Config) fillDefaults() {
	def := Default()
	if c.ServerURL == "" {
		c.ServerURL = def.ServerURL
	}
	if c.MaxMessages == 0 {
		c.MaxMessages = def.MaxMessages
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = def.TimeoutSecs
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies KBCHAT_* environment variables on top of the
// loaded configuration. Unparsable numeric values are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("KBCHAT_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("KBCHAT_ASSISTANT_NAME"); v != "" {
		c.AssistantName = v
	}
	if v := os.Getenv("KBCHAT_USER_NAME"); v != "" {
		c.UserName = v
	}
	if v := os.Getenv("KBCHAT_MAX_MESSAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxMessages = n
		}
	}
	if v := os.Getenv("KBCHAT_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TimeoutSecs = n
		}
	}
	if v := os.Getenv("KBCHAT_UPLOAD_DIR"); v != "" {
		c.UploadDir = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ValidationError{Field: "server_url", Message: "must be an absolute http(s) URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: "server_url", Message: "scheme must be http or https"}
	}
	if c.MaxMessages < 1 {
		return ValidationError{Field: "max_messages", Message: "must be at least 1"}
	}
	if c.TimeoutSecs < 1 {
		return ValidationError{Field: "timeout_secs", Message: "must be at least 1"}
	}
	if c.UploadDir != "" {
		if info, err := os.Stat(c.UploadDir); err != nil || !info.IsDir() {
			return ValidationError{Field: "upload_dir", Message: "must be an existing directory"}
		}
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration as TOML to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// =============================================================================
// DISPLAY LABELS
// =============================================================================

// AssistantLabel returns the assistant display name, falling back to a
// generic label.
func (c *Config) AssistantLabel() string {
	if c.AssistantName != "" {
		return c.AssistantName
	}
	return "Assistant"
}

// UserLabel returns the user display name, falling back to a generic label.
func (c *Config) UserLabel() string {
	if c.UserName != "" {
		return c.UserName
	}
	return "You"
}

// UploadDirOrDefault returns the upload directory, falling back to the
// current working directory.
func (c *Config) UploadDirOrDefault() string {
	if c.UploadDir != "" {
		return c.UploadDir
	}
	return "."
}

// Title returns the application heading derived from the assistant name.
func (c *Config) Title() string {
	if c.AssistantName != "" {
		return c.AssistantName + " Chatbot"
	}
	return "Chatbot"
}
