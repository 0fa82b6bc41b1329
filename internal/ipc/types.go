package ipc

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// LoopStatus mirrors one background loop's snapshot for status display.
type LoopStatus struct {
	Running     bool   `json:"running"`
	LastOutcome string `json:"last_outcome"`
	LastError   string `json:"last_error"`
	LastTick    string `json:"last_tick"`
}

// StatusResponse represents combined daemon, loop, and store status.
type StatusResponse struct {
	Running          bool   `json:"running"`
	PID              int    `json:"pid"`
	QuotaUsed        int    `json:"quota_used"`
	QuotaLimit       int    `json:"quota_limit"`
	NextSlot         string `json:"next_slot"`
	StoreDegraded    bool   `json:"store_degraded"`
	StorePendingSync int    `json:"store_pending_sync"`
	LocalStorePath   string `json:"local_store_path"`
	LockPath         string `json:"lock_path"`

	Generation  LoopStatus `json:"generation"`
	Publication LoopStatus `json:"publication"`
	Monitoring  LoopStatus `json:"monitoring"`

	NextEligiblePublication string `json:"next_eligible_publication"`
}

// StartRequest launches the pipeline loops.
type StartRequest struct{}

// StartResponse reports whether the loops were launched.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest halts the pipeline loops while the daemon stays up.
type StopRequest struct{}

// StopResponse reports whether the loops were halted.
type StopResponse struct {
	Stopped bool   `json:"stopped"`
	Message string `json:"message"`
}

// GenerateRequest triggers one on-demand generation.
type GenerateRequest struct{}

// GenerateResponse reports the generation outcome. A quota skip is not an
// error; it comes back as Generated=false with an explanatory message.
type GenerateResponse struct {
	Generated bool   `json:"generated"`
	Message   string `json:"message"`
}

// SyncRequest replays pending records into the primary store.
type SyncRequest struct{}

// SyncResponse reports how many records were replayed.
type SyncResponse struct {
	Synced int `json:"synced"`
}

// Record mirrors a stored content record for CLI display.
type Record struct {
	RecordUID         string `json:"record_uid"`
	Title             string `json:"title"`
	Theme             string `json:"theme"`
	Service           string `json:"service"`
	Style             string `json:"style"`
	State             string `json:"state"`
	PlatformPostID    string `json:"platform_post_id"`
	PublishedAt       string `json:"published_at"`
	LastError         string `json:"last_error"`
	PositiveReactions int    `json:"positive_reactions"`
	CommentsHandled   int    `json:"comments_handled"`
	PendingSync       bool   `json:"pending_sync"`
	CreatedAt         string `json:"created_at"`
}

// RecordListRequest filters the record listing by state.
type RecordListRequest struct {
	States []string `json:"states"`
}

// RecordListResponse contains stored records.
type RecordListResponse struct {
	Items []Record `json:"items"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
