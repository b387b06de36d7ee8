package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// StateDirName is the per-project directory holding promptsync state.
	StateDirName = ".promptsync"
	// FileName is the config file name inside the state directory.
	FileName = "config.yaml"
)

// Config represents promptsync configuration options
type Config struct {
	// Extensions is the scan allow-set. Entries starting with "." match file
	// extensions, others match exact file names. Empty accepts every file.
	Extensions []string `yaml:"extensions"`

	// SpecialNames are entry names never scanned. Nil keeps the built-in list.
	SpecialNames []string `yaml:"special_names"`

	// IgnoreFiles are the ignore file names discovered in every directory
	IgnoreFiles []string `yaml:"ignore_files"`

	// MarkdownExtensions are written verbatim when a plan is applied
	MarkdownExtensions []string `yaml:"markdown_extensions"`

	// CheckInterval is the tracker rescan interval (0 disables rescans)
	CheckInterval time.Duration `yaml:"check_interval"`

	// LogLevel sets the logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where diagnostic logs will be written
	LogDir string `yaml:"log_dir"`

	// HistoryDB is the path to the application history database.
	// Empty means $PROMPTSYNC_HOME/history.db.
	HistoryDB string `yaml:"history_db"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Extensions:         nil, // Accept every file
		SpecialNames:       nil,
		IgnoreFiles:        []string{".gitignore", ".promptignore"},
		MarkdownExtensions: []string{".md", ".markdown"},
		CheckInterval:      5 * time.Second,
		LogLevel:           "info",
		LogDir:             filepath.Join(StateDirName, "logs"),
		HistoryDB:          "",
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are read as strings so "2s" and "1m30s" both parse
	type yamlConfig struct {
		Extensions         []string `yaml:"extensions"`
		SpecialNames       []string `yaml:"special_names"`
		IgnoreFiles        []string `yaml:"ignore_files"`
		MarkdownExtensions []string `yaml:"markdown_extensions"`
		CheckInterval      string   `yaml:"check_interval"`
		LogLevel           string   `yaml:"log_level"`
		LogDir             string   `yaml:"log_dir"`
		HistoryDB          string   `yaml:"history_db"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// List fields are replaced only when the key is present, so an explicit
	// empty list can clear a default.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	present := func(key string) bool {
		_, ok := rawMap[key]
		return ok
	}

	if present("extensions") {
		cfg.Extensions = normalizeExtensions(yamlCfg.Extensions)
	}
	if present("special_names") {
		cfg.SpecialNames = nonNil(yamlCfg.SpecialNames)
	}
	if present("ignore_files") {
		cfg.IgnoreFiles = nonNil(yamlCfg.IgnoreFiles)
	}
	if present("markdown_extensions") {
		cfg.MarkdownExtensions = normalizeExtensions(yamlCfg.MarkdownExtensions)
	}
	if yamlCfg.CheckInterval != "" {
		interval, err := time.ParseDuration(yamlCfg.CheckInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid check_interval format %q: %w", yamlCfg.CheckInterval, err)
		}
		cfg.CheckInterval = interval
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.HistoryDB != "" {
		cfg.HistoryDB = yamlCfg.HistoryDB
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .promptsync/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, StateDirName, FileName))
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(checkInterval *time.Duration, logLevel *string, logDir *string) {
	if checkInterval != nil {
		c.CheckInterval = *checkInterval
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
}

// ResolveLogDir returns LogDir, joined onto root when relative
func (c *Config) ResolveLogDir(root string) string {
	if c.LogDir == "" || filepath.IsAbs(c.LogDir) {
		return c.LogDir
	}
	return filepath.Join(root, c.LogDir)
}

// ResolveHistoryDB returns the history database path, falling back to the
// promptsync home directory
func (c *Config) ResolveHistoryDB() (string, error) {
	if c.HistoryDB != "" {
		return c.HistoryDB, nil
	}
	return GetHistoryDBPath()
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}

	if c.CheckInterval < 0 {
		return fmt.Errorf("check_interval must be >= 0, got %v", c.CheckInterval)
	}

	for _, name := range c.IgnoreFiles {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("ignore_files cannot contain an empty name")
		}
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("ignore_files entry %q must be a plain file name", name)
		}
	}

	for _, ext := range c.MarkdownExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("markdown_extensions entry %q must start with '.'", ext)
		}
	}

	return nil
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
