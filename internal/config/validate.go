package config

import (
	"fmt"
	"strings"

	"beacon/internal/policy"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	defaults := Default()
	if len(c.Schedule.GenerationSlots) == 0 {
		c.Schedule.GenerationSlots = defaults.Schedule.GenerationSlots
	}
	if c.Schedule.DailyLimit <= 0 {
		c.Schedule.DailyLimit = defaults.Schedule.DailyLimit
	}
	if c.Schedule.PublishPollSeconds <= 0 {
		c.Schedule.PublishPollSeconds = defaults.Schedule.PublishPollSeconds
	}
	if c.Schedule.MonitorPollSeconds <= 0 {
		c.Schedule.MonitorPollSeconds = defaults.Schedule.MonitorPollSeconds
	}
	if c.Schedule.CommentMaxAgeDays <= 0 {
		c.Schedule.CommentMaxAgeDays = defaults.Schedule.CommentMaxAgeDays
	}
	if c.Schedule.RetryCooldownMinutes <= 0 {
		c.Schedule.RetryCooldownMinutes = defaults.Schedule.RetryCooldownMinutes
	}
	if c.Schedule.ErrorCooldownSeconds <= 0 {
		c.Schedule.ErrorCooldownSeconds = defaults.Schedule.ErrorCooldownSeconds
	}
	if c.Schedule.SlotRecheckSeconds <= 0 {
		c.Schedule.SlotRecheckSeconds = defaults.Schedule.SlotRecheckSeconds
	}
	if c.Schedule.ExternalCallTimeout <= 0 {
		c.Schedule.ExternalCallTimeout = defaults.Schedule.ExternalCallTimeout
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	return nil
}

// Validate rejects configurations the loops cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths: data_dir is required")
	}
	if c.Schedule.OpenHour < 0 || c.Schedule.OpenHour > 23 {
		return fmt.Errorf("schedule: open_hour %d out of range", c.Schedule.OpenHour)
	}
	if c.Schedule.CloseHour < 0 || c.Schedule.CloseHour > 23 {
		return fmt.Errorf("schedule: close_hour %d out of range", c.Schedule.CloseHour)
	}
	if c.Schedule.OpenHour > c.Schedule.CloseHour {
		return fmt.Errorf("schedule: open_hour %d after close_hour %d", c.Schedule.OpenHour, c.Schedule.CloseHour)
	}
	if c.Schedule.MinSpacingMinutes < 0 {
		return fmt.Errorf("schedule: min_spacing_minutes must not be negative")
	}
	if _, err := policy.ParseSlots(c.Schedule.GenerationSlots); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging: unsupported format %q", c.Logging.Format)
	}
	return nil
}

// GenerationSlots returns the parsed, sorted generation slots. Validate
// guarantees the strings parse.
func (c *Config) GenerationSlots() []policy.Slot {
	slots, err := policy.ParseSlots(c.Schedule.GenerationSlots)
	if err != nil {
		return nil
	}
	return slots
}
