package sheetapi

import (
	"strconv"
	"strings"
	"time"

	"beacon/internal/content"
)

// columns is the canonical header the client maintains. Sheets may carry
// extra columns added by hand; those are ignored on read and left untouched
// on write because updates only address known-column cells.
var columns = []string{
	"record_uid",
	"title",
	"theme",
	"service",
	"style",
	"body_text",
	"script_text",
	"state",
	"platform_post_id",
	"published",
	"published_at",
	"last_attempt_at",
	"last_error",
	"positive_reactions",
	"comments_handled",
	"image_ref",
	"image_credit",
	"created_at",
	"updated_at",
}

func itemCells(item *content.Item) map[string]string {
	return map[string]string{
		"record_uid":         item.RecordUID,
		"title":              item.Title,
		"theme":              item.Theme,
		"service":            item.Service,
		"style":              item.Style,
		"body_text":          item.BodyText,
		"script_text":        item.ScriptText,
		"state":              string(item.State),
		"platform_post_id":   item.PlatformPostID,
		"published":          formatBool(item.Published),
		"published_at":       formatTime(item.PublishedAt),
		"last_attempt_at":    formatTime(item.LastAttemptAt),
		"last_error":         item.LastError,
		"positive_reactions": strconv.Itoa(item.PositiveReactions),
		"comments_handled":   strconv.Itoa(item.CommentsHandled),
		"image_ref":          item.ImageRef,
		"image_credit":       item.ImageCredit,
		"created_at":         formatTime(&item.CreatedAt),
		"updated_at":         formatTime(&item.UpdatedAt),
	}
}

func itemFromCells(cells map[string]string) *content.Item {
	item := &content.Item{
		RecordUID:         cells["record_uid"],
		Title:             cells["title"],
		Theme:             cells["theme"],
		Service:           cells["service"],
		Style:             cells["style"],
		BodyText:          cells["body_text"],
		ScriptText:        cells["script_text"],
		State:             content.State(strings.TrimSpace(cells["state"])),
		PlatformPostID:    cells["platform_post_id"],
		Published:         parseBool(cells["published"]),
		LastError:         cells["last_error"],
		PositiveReactions: parseInt(cells["positive_reactions"]),
		CommentsHandled:   parseInt(cells["comments_handled"]),
		ImageRef:          cells["image_ref"],
		ImageCredit:       cells["image_credit"],
	}
	item.PublishedAt = parseTimePtr(cells["published_at"])
	item.LastAttemptAt = parseTimePtr(cells["last_attempt_at"])
	if t := parseTimePtr(cells["created_at"]); t != nil {
		item.CreatedAt = *t
	}
	if t := parseTimePtr(cells["updated_at"]); t != nil {
		item.UpdatedAt = *t
	}
	return item
}

func formatBool(value bool) string {
	if value {
		return "true"
	}
	return "false"
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func parseInt(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}

func formatTime(value *time.Time) string {
	if value == nil || value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimePtr(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// columnLetter converts a zero-based column index to A1 notation.
func columnLetter(index int) string {
	letters := make([]byte, 0, 2)
	for index >= 0 {
		letters = append([]byte{byte('A' + index%26)}, letters...)
		index = index/26 - 1
	}
	return string(letters)
}

func cellToString(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return formatBool(v)
	case nil:
		return ""
	default:
		return ""
	}
}
