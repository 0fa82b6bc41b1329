package config

// Default returns the built-in configuration values. Paths stay relative
// until normalize expands them.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: "~/.local/share/beacon",
			LogDir:  "~/.local/share/beacon/logs",
		},
		Store: Store{
			SheetBaseURL:   "https://sheets.googleapis.com/v4/spreadsheets",
			RequestTimeout: 15,
		},
		Generator: Generator{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 30,
		},
		Images: Images{
			Enabled:        true,
			BaseURL:        "https://api.unsplash.com",
			TimeoutSeconds: 15,
		},
		Platform: Platform{
			BaseURL:        "https://graph.facebook.com/v19.0",
			RequestTimeout: 20,
		},
		Schedule: Schedule{
			GenerationSlots:      []string{"09:00", "14:00", "19:00"},
			DailyLimit:           3,
			OpenHour:             8,
			CloseHour:            22,
			MinSpacingMinutes:    30,
			RetryCooldownMinutes: 60,
			PublishPollSeconds:   60,
			MonitorPollSeconds:   300,
			CommentMaxAgeDays:    7,
			ReplyDelaySeconds:    2,
			PostPublishDelay:     60,
			ErrorCooldownSeconds: 120,
			SlotRecheckSeconds:   60,
			ExternalCallTimeout:  30,
			ReconcileBeforeTicks: true,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
	}
}
