package content

import (
	"strings"
	"time"
)

// State represents the lifecycle of a content item.
type State string

const (
	// StateGenerated is the initial state after the generation engine
	// produced the item; it awaits publication.
	StateGenerated State = "generated"
	// StatePublishFailed marks a failed publish attempt. The item becomes
	// eligible again once the retry cooldown has elapsed.
	StatePublishFailed State = "publish_failed"
	// StatePublished means the platform accepted the post.
	StatePublished State = "published"
	// StateMonitored means the comment monitor has processed the item at
	// least once. Monitored items keep being polled indefinitely.
	StateMonitored State = "monitored"
)

var allStates = []State{
	StateGenerated,
	StatePublishFailed,
	StatePublished,
	StateMonitored,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// Item is a content record persisted in the record store.
type Item struct {
	ID                int64
	RecordUID         string
	Title             string
	Theme             string
	Service           string
	Style             string
	BodyText          string
	ScriptText        string
	State             State
	PlatformPostID    string
	Published         bool
	PublishedAt       *time.Time
	LastAttemptAt     *time.Time
	LastError         string
	PositiveReactions int
	CommentsHandled   int
	ImageRef          string
	ImageCredit       string
	PendingSync       bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AlreadyPublished reports whether the item has reached the platform.
// Both the post id and the explicit publication flag are checked: a crash
// between the platform call succeeding and the store update succeeding must
// never cause a second publish.
func (i *Item) AlreadyPublished() bool {
	return strings.TrimSpace(i.PlatformPostID) != "" || i.Published
}

// PublishEligible reports whether the publication engine may pick the item
// up at the given time, honoring the retry cooldown after failures.
func (i *Item) PublishEligible(now time.Time, retryCooldown time.Duration) bool {
	if i.AlreadyPublished() {
		return false
	}
	switch i.State {
	case StateGenerated:
		return true
	case StatePublishFailed:
		if i.LastAttemptAt == nil {
			return true
		}
		return now.Sub(*i.LastAttemptAt) >= retryCooldown
	default:
		return false
	}
}

// MarkPublished transitions the item after a successful platform publish.
func (i *Item) MarkPublished(postID string, at time.Time) {
	i.State = StatePublished
	i.PlatformPostID = postID
	i.Published = true
	t := at.UTC()
	i.PublishedAt = &t
	i.LastAttemptAt = &t
	i.LastError = ""
}

// MarkPublishFailed records a failed publish attempt.
func (i *Item) MarkPublishFailed(at time.Time, message string) {
	i.State = StatePublishFailed
	t := at.UTC()
	i.LastAttemptAt = &t
	i.LastError = message
}

// Draft is the unit the generation engine returns before persistence.
type Draft struct {
	Title      string
	Theme      string
	Service    string
	Style      string
	BodyText   string
	ScriptText string
}

// Comment is the platform's view of an audience comment. It is ephemeral:
// the core persists only the handled-comment ledger, never full comments.
type Comment struct {
	ID         string
	PostID     string
	Author     string
	Text       string
	CreatedAt  time.Time
	ReplyCount int
}

// HasReply reports whether the platform already shows a reply.
func (c Comment) HasReply() bool {
	return c.ReplyCount > 0
}
