package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Store contains configuration for the record store backends: the remote
// tabular primary and the local fallback database.
type Store struct {
	SheetBaseURL   string `toml:"sheet_base_url"`
	SheetID        string `toml:"sheet_id"`
	APIToken       string `toml:"api_token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Generator contains connection settings for the content generation engine
// (an OpenAI-compatible chat completions API).
type Generator struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Images contains configuration for the photo search service.
type Images struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Platform contains configuration for the social platform page.
type Platform struct {
	PageID         string `toml:"page_id"`
	AccessToken    string `toml:"access_token"`
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Schedule contains loop timing, quota, and gating configuration.
type Schedule struct {
	GenerationSlots       []string `toml:"generation_slots"`
	DailyLimit            int      `toml:"daily_limit"`
	OpenHour              int      `toml:"open_hour"`
	CloseHour             int      `toml:"close_hour"`
	MinSpacingMinutes     int      `toml:"min_spacing_minutes"`
	RetryCooldownMinutes  int      `toml:"retry_cooldown_minutes"`
	PublishPollSeconds    int      `toml:"publish_poll_seconds"`
	MonitorPollSeconds    int      `toml:"monitor_poll_seconds"`
	CommentMaxAgeDays     int      `toml:"comment_max_age_days"`
	ReplyDelaySeconds     int      `toml:"reply_delay_seconds"`
	PostPublishDelay      int      `toml:"post_publish_delay_seconds"`
	ErrorCooldownSeconds  int      `toml:"error_cooldown_seconds"`
	SlotRecheckSeconds    int      `toml:"slot_recheck_seconds"`
	ExternalCallTimeout   int      `toml:"external_call_timeout_seconds"`
	ReconcileBeforeTicks  bool     `toml:"reconcile_before_ticks"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for beacon.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Store: remote tabular primary + local fallback settings
//   - Generator: content/reply generation engine connection
//   - Images: photo search service
//   - Platform: social platform page credentials
//   - Schedule: quota, slots, window, spacing, poll intervals
//   - Logging: log format and level
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	Generator     Generator     `toml:"generator"`
	Images        Images        `toml:"images"`
	Platform      Platform      `toml:"platform"`
	Schedule      Schedule      `toml:"schedule"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/beacon/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("beacon.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LocalStorePath returns the path of the local fallback database.
func (c *Config) LocalStorePath() string {
	return filepath.Join(c.Paths.DataDir, "records.db")
}

// SocketPath returns the IPC control socket path.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "beacond.sock")
}

// LockPath returns the single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "beacond.lock")
}

// MinSpacing returns the minimum inter-publication spacing.
func (c *Config) MinSpacing() time.Duration {
	return time.Duration(c.Schedule.MinSpacingMinutes) * time.Minute
}

// RetryCooldown returns the cooldown before a failed publish is retried.
func (c *Config) RetryCooldown() time.Duration {
	return time.Duration(c.Schedule.RetryCooldownMinutes) * time.Minute
}

// PublishPollInterval returns the publication engine tick interval.
func (c *Config) PublishPollInterval() time.Duration {
	return time.Duration(c.Schedule.PublishPollSeconds) * time.Second
}

// MonitorPollInterval returns the comment monitor tick interval.
func (c *Config) MonitorPollInterval() time.Duration {
	return time.Duration(c.Schedule.MonitorPollSeconds) * time.Second
}

// CommentMaxAge returns the rolling age limit for comments to consider.
func (c *Config) CommentMaxAge() time.Duration {
	return time.Duration(c.Schedule.CommentMaxAgeDays) * 24 * time.Hour
}

// ReplyDelay returns the pause between consecutive reply posts.
func (c *Config) ReplyDelay() time.Duration {
	return time.Duration(c.Schedule.ReplyDelaySeconds) * time.Second
}

// PostPublishDelay returns the pause after a successful publication.
func (c *Config) PostPublishDelay() time.Duration {
	return time.Duration(c.Schedule.PostPublishDelay) * time.Second
}

// ErrorCooldown returns the pause after a failed tick.
func (c *Config) ErrorCooldown() time.Duration {
	return time.Duration(c.Schedule.ErrorCooldownSeconds) * time.Second
}

// SlotRecheck returns how often the scheduler re-evaluates its next slot.
func (c *Config) SlotRecheck() time.Duration {
	return time.Duration(c.Schedule.SlotRecheckSeconds) * time.Second
}

// ExternalCallTimeout bounds a single call to any external service.
func (c *Config) ExternalCallTimeout() time.Duration {
	return time.Duration(c.Schedule.ExternalCallTimeout) * time.Second
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
