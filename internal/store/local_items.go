package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"beacon/internal/content"
)

const recordColumns = "id, record_uid, title, theme, service, style, body_text, script_text, state, platform_post_id, published, published_at, last_attempt_at, last_error, positive_reactions, comments_handled, image_ref, image_credit, pending_sync, created_at, updated_at"

// Append inserts a new record. The item's RecordUID must already be set.
func (l *Local) Append(ctx context.Context, item *content.Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	if item.RecordUID == "" {
		return errors.New("record uid is empty")
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	res, err := l.execWithRetry(
		ctx,
		`INSERT INTO records (
            record_uid, title, theme, service, style, body_text, script_text,
            state, platform_post_id, published, published_at, last_attempt_at,
            last_error, positive_reactions, comments_handled, image_ref,
            image_credit, pending_sync, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.RecordUID,
		nullableString(item.Title),
		nullableString(item.Theme),
		nullableString(item.Service),
		nullableString(item.Style),
		nullableString(item.BodyText),
		nullableString(item.ScriptText),
		string(item.State),
		nullableString(item.PlatformPostID),
		boolToInt(item.Published),
		nullableTime(item.PublishedAt),
		nullableTime(item.LastAttemptAt),
		nullableString(item.LastError),
		item.PositiveReactions,
		item.CommentsHandled,
		nullableString(item.ImageRef),
		nullableString(item.ImageCredit),
		boolToInt(item.PendingSync),
		item.CreatedAt.Format(time.RFC3339Nano),
		item.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	item.ID = id
	return nil
}

// GetByUID fetches a record by its stable identifier. Returns nil when the
// record does not exist.
func (l *Local) GetByUID(ctx context.Context, uid string) (*content.Item, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE record_uid = ?`, uid)
	item, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return item, nil
}

// List returns records filtered by state set (or all records when no state is
// provided) ordered by creation time.
func (l *Local) List(ctx context.Context, states ...content.State) ([]*content.Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + recordColumns + ` FROM records`
	orderClause := ` ORDER BY created_at, id`

	if len(states) == 0 {
		rows, err = l.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(states))
		args := make([]any, len(states))
		for i, state := range states {
			args[i] = string(state)
		}
		query := baseQuery + ` WHERE state IN (` + placeholders + `)` + orderClause
		rows, err = l.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var items []*content.Item
	for rows.Next() {
		item, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Update persists changes to an existing record, keyed by record_uid.
func (l *Local) Update(ctx context.Context, item *content.Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	if item.RecordUID == "" {
		return errors.New("record uid is empty")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := l.execWithoutResultRetry(
		ctx,
		`UPDATE records
         SET title = ?, theme = ?, service = ?, style = ?, body_text = ?,
             script_text = ?, state = ?, platform_post_id = ?, published = ?,
             published_at = ?, last_attempt_at = ?, last_error = ?,
             positive_reactions = ?, comments_handled = ?, image_ref = ?,
             image_credit = ?, pending_sync = ?, updated_at = ?
         WHERE record_uid = ?`,
		nullableString(item.Title),
		nullableString(item.Theme),
		nullableString(item.Service),
		nullableString(item.Style),
		nullableString(item.BodyText),
		nullableString(item.ScriptText),
		string(item.State),
		nullableString(item.PlatformPostID),
		boolToInt(item.Published),
		nullableTime(item.PublishedAt),
		nullableTime(item.LastAttemptAt),
		nullableString(item.LastError),
		item.PositiveReactions,
		item.CommentsHandled,
		nullableString(item.ImageRef),
		nullableString(item.ImageCredit),
		boolToInt(item.PendingSync),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.RecordUID,
	); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

// PendingSync returns records whose latest write never reached the primary.
func (l *Local) PendingSync(ctx context.Context) ([]*content.Item, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE pending_sync = 1 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list pending records: %w", err)
	}
	defer rows.Close()

	var items []*content.Item
	for rows.Next() {
		item, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkSynced clears the pending-sync flag after a successful replay.
func (l *Local) MarkSynced(ctx context.Context, uid string) error {
	if err := l.execWithoutResultRetry(ctx,
		`UPDATE records SET pending_sync = 0, updated_at = ? WHERE record_uid = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), uid,
	); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// PendingSyncCount reports how many records await replay into the primary.
func (l *Local) PendingSyncCount(ctx context.Context) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM records WHERE pending_sync = 1`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending records: %w", err)
	}
	return count, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*content.Item, error) {
	var (
		id                int64
		recordUID         string
		title             sql.NullString
		theme             sql.NullString
		service           sql.NullString
		style             sql.NullString
		bodyText          sql.NullString
		scriptText        sql.NullString
		stateStr          string
		platformPostID    sql.NullString
		published         sql.NullInt64
		publishedRaw      sql.NullString
		lastAttemptRaw    sql.NullString
		lastError         sql.NullString
		positiveReactions sql.NullInt64
		commentsHandled   sql.NullInt64
		imageRef          sql.NullString
		imageCredit       sql.NullString
		pendingSync       sql.NullInt64
		createdRaw        sql.NullString
		updatedRaw        sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&recordUID,
		&title,
		&theme,
		&service,
		&style,
		&bodyText,
		&scriptText,
		&stateStr,
		&platformPostID,
		&published,
		&publishedRaw,
		&lastAttemptRaw,
		&lastError,
		&positiveReactions,
		&commentsHandled,
		&imageRef,
		&imageCredit,
		&pendingSync,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &content.Item{
		ID:                id,
		RecordUID:         recordUID,
		Title:             title.String,
		Theme:             theme.String,
		Service:           service.String,
		Style:             style.String,
		BodyText:          bodyText.String,
		ScriptText:        scriptText.String,
		State:             content.State(stateStr),
		PlatformPostID:    platformPostID.String,
		Published:         published.Valid && published.Int64 != 0,
		LastError:         lastError.String,
		PositiveReactions: int(positiveReactions.Int64),
		CommentsHandled:   int(commentsHandled.Int64),
		ImageRef:          imageRef.String,
		ImageCredit:       imageCredit.String,
		PendingSync:       pendingSync.Valid && pendingSync.Int64 != 0,
	}

	if publishedRaw.Valid {
		if t, err := parseTimeString(publishedRaw.String); err == nil {
			item.PublishedAt = &t
		}
	}
	if lastAttemptRaw.Valid {
		if t, err := parseTimeString(lastAttemptRaw.String); err == nil {
			item.LastAttemptAt = &t
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
