// Package config manages stq configuration and the .stq directory structure.
// It handles loading, saving, and initializing the repository configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilupskalvis/stq/internal/models"
	"github.com/pelletier/go-toml/v2"
)

const (
	STQDir       = ".stq"
	ConfigFile   = "config"
	DatabaseFile = "stq.db"
	ScratchDir   = "scratch"

	DefaultBranch   = "main"
	DefaultLogLevel = "warn"
)

// Environment variables that override the config file.
const (
	EnvAuthorName  = "STQ_AUTHOR_NAME"
	EnvAuthorEmail = "STQ_AUTHOR_EMAIL"
	EnvLogLevel    = "STQ_LOG_LEVEL"
)

// Config represents the stq configuration
type Config struct {
	AuthorName       string `toml:"author_name"`
	AuthorEmail      string `toml:"author_email"`
	DefaultBranch    string `toml:"default_branch"`
	LogLevel         string `toml:"log_level"`
	EditInstructions bool   `toml:"edit_instructions"` // Include guidance comments in edit templates
	path             string // path to .stq directory
}

// FindRoot finds the .stq directory by walking up from current directory
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		stqPath := filepath.Join(dir, STQDir)
		if info, err := os.Stat(stqPath); err == nil && info.IsDir() {
			return stqPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not an stq repository (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .stq directory and applies
// environment overrides.
func Load() (*Config, error) {
	stqPath, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return LoadFrom(stqPath)
}

// LoadFrom loads the configuration stored in the given .stq directory.
func LoadFrom(stqPath string) (*Config, error) {
	configPath := filepath.Join(stqPath, ConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = stqPath
	cfg.applyEnv()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		DefaultBranch:    DefaultBranch,
		LogLevel:         DefaultLogLevel,
		EditInstructions: true,
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAuthorName); v != "" {
		c.AuthorName = v
	}
	if v := os.Getenv(EnvAuthorEmail); v != "" {
		c.AuthorEmail = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configPath := filepath.Join(c.path, ConfigFile)
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// Path returns the path to the .stq directory
func (c *Config) Path() string {
	return c.path
}

// DatabasePath returns the path to the SQLite database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// ScratchPath returns the directory holding edit templates
func (c *Config) ScratchPath() string {
	return filepath.Join(c.path, ScratchDir)
}

// Author returns the default patch author stamped with the current time.
func (c *Config) Author() (models.Signature, error) {
	if c.AuthorName == "" || c.AuthorEmail == "" {
		return models.Signature{}, fmt.Errorf("author not configured (set author_name and author_email in %s, or %s and %s)",
			filepath.Join(c.path, ConfigFile), EnvAuthorName, EnvAuthorEmail)
	}
	return models.SignatureNow(c.AuthorName, c.AuthorEmail), nil
}

// Initialize creates a new .stq directory in dir with initial configuration
func Initialize(dir, authorName, authorEmail string) (*Config, error) {
	stqPath := filepath.Join(dir, STQDir)

	// Check if already initialized
	if _, err := os.Stat(stqPath); err == nil {
		return nil, fmt.Errorf("stq repository already exists")
	}

	if err := os.MkdirAll(filepath.Join(stqPath, ScratchDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create .stq directory: %w", err)
	}

	cfg := defaults()
	cfg.AuthorName = authorName
	cfg.AuthorEmail = authorEmail
	cfg.path = stqPath

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(stqPath)
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}
