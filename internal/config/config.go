// Package config handles Gilbert's configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ConfigurationError indicates a missing or invalid required setting.
// It is fatal at startup; nothing in the runtime path produces one.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

// Config is the root configuration for Gilbert.
type Config struct {
	Version      int                `yaml:"version"`
	Slack        SlackConfig        `yaml:"slack"`
	OpenAI       OpenAIConfig       `yaml:"openai"`
	Sheets       SheetsConfig       `yaml:"sheets"`
	Files        FilesConfig        `yaml:"files"`
	Tasks        TasksConfig        `yaml:"tasks"`
	Conversation ConversationConfig `yaml:"conversation"`
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// SlackConfig configures the Slack channel adapter.
type SlackConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Token    string `yaml:"token"`     // Bot token (xoxb-...)
	AppToken string `yaml:"app_token"` // App-level token for socket mode (xapp-...)
}

// OpenAIConfig configures the completion provider.
type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"` // Optional, for OpenAI-compatible endpoints
	MaxTokens int    `yaml:"max_tokens"`
}

// SheetsConfig configures the spreadsheet-backed memory and directory source.
type SheetsConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id"`
	Token         string `yaml:"token"`
	BaseURL       string `yaml:"base_url"`
	MemorySheet   string `yaml:"memory_sheet"`
	ClientRange   string `yaml:"client_range"`
	ProjectRange  string `yaml:"project_range"`
	MirrorPath    string `yaml:"mirror_path"` // Local SQLite mirror of memory notes
}

// FilesConfig configures the file-storage collaborator.
type FilesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// TasksConfig configures the task-tracker collaborator.
type TasksConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Token     string `yaml:"token"`
	BaseURL   string `yaml:"base_url"`
	ProjectID string `yaml:"project_id"`
}

// ConversationConfig configures the short-term context cache.
type ConversationConfig struct {
	MaxTurns int `yaml:"max_turns"`
}

// ServerConfig configures the health-check HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	File   string `yaml:"file"`   // empty = stdout
}

// Default returns a configuration with sensible defaults.
// Secrets default to environment variable references so a config file
// checked into a repo never needs to contain them.
func Default() *Config {
	return &Config{
		Version: 1,
		Slack: SlackConfig{
			Enabled:  true,
			Token:    "${SLACK_BOT_TOKEN}",
			AppToken: "${SLACK_APP_TOKEN}",
		},
		OpenAI: OpenAIConfig{
			APIKey:    "${OPENAI_API_KEY}",
			Model:     "gpt-4o",
			MaxTokens: 500,
		},
		Sheets: SheetsConfig{
			SpreadsheetID: "${SPREADSHEET_ID}",
			Token:         "${SHEETS_TOKEN}",
			BaseURL:       "https://sheets.googleapis.com/v4",
			MemorySheet:   "Memory",
			ClientRange:   "Clients!A2:E",
			ProjectRange:  "Projects!A2:F",
			MirrorPath:    defaultMirrorPath(),
		},
		Files: FilesConfig{
			Enabled: false,
			Token:   "${DROPBOX_TOKEN}",
			BaseURL: "https://api.dropboxapi.com/2",
		},
		Tasks: TasksConfig{
			Enabled: false,
			Token:   "${ASANA_TOKEN}",
			BaseURL: "https://app.asana.com/api/1.0",
		},
		Conversation: ConversationConfig{
			MaxTurns: 10,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// defaultMirrorPath returns the default location for the local memory mirror.
func defaultMirrorPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gilbert-memory.db"
	}
	return filepath.Join(home, ".gilbert", "memory.db")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gilbert.yaml"
	}
	return filepath.Join(home, ".gilbert", "config.yaml")
}

// Load reads configuration from the given path, or the default path when
// path is empty. Secret values written as ${ENV_VAR} are expanded from the
// environment after parsing.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ExpandEnv()
	return cfg, nil
}

// Save writes the configuration to the given path, or the default path when
// path is empty. Parent directories are created as needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold tokens once a user replaces the env references
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

var envRefPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// ExpandEnv resolves ${ENV_VAR} references in secret-bearing fields.
// An unset variable expands to empty, which Validate then reports.
func (c *Config) ExpandEnv() {
	fields := []*string{
		&c.Slack.Token,
		&c.Slack.AppToken,
		&c.OpenAI.APIKey,
		&c.Sheets.SpreadsheetID,
		&c.Sheets.Token,
		&c.Files.Token,
		&c.Tasks.Token,
	}
	for _, f := range fields {
		if m := envRefPattern.FindStringSubmatch(*f); m != nil {
			*f = os.Getenv(m[1])
		}
	}
}

// Validate checks that every setting required for server mode is present.
// The first missing setting is returned as a ConfigurationError.
func (c *Config) Validate() error {
	if c.Slack.Enabled {
		if c.Slack.Token == "" {
			return &ConfigurationError{Setting: "slack.token", Reason: "bot token is required"}
		}
		if c.Slack.AppToken == "" {
			return &ConfigurationError{Setting: "slack.app_token", Reason: "app-level token is required for socket mode"}
		}
	}
	if c.OpenAI.APIKey == "" {
		return &ConfigurationError{Setting: "openai.api_key", Reason: "API key is required"}
	}
	if c.OpenAI.Model == "" {
		return &ConfigurationError{Setting: "openai.model", Reason: "model name is required"}
	}
	if c.Files.Enabled && c.Files.Token == "" {
		return &ConfigurationError{Setting: "files.token", Reason: "file-storage token is required when files integration is enabled"}
	}
	if c.Tasks.Enabled && c.Tasks.Token == "" {
		return &ConfigurationError{Setting: "tasks.token", Reason: "task-tracker token is required when tasks integration is enabled"}
	}
	if c.Conversation.MaxTurns <= 0 {
		return &ConfigurationError{Setting: "conversation.max_turns", Reason: "must be positive"}
	}
	return nil
}
