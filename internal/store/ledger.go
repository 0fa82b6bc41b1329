package store

import (
	"context"
	"fmt"
	"time"
)

// CommentHandled reports whether a reply was already recorded for the comment.
// The ledger survives restarts, so a comment is never answered twice even when
// the platform's reply listing lags.
func (l *Local) CommentHandled(ctx context.Context, commentID string) (bool, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM handled_comments WHERE comment_id = ?`, commentID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check handled comment: %w", err)
	}
	return count > 0, nil
}

// MarkCommentHandled records that a reply was posted for the comment.
// Re-marking an already handled comment is a no-op.
func (l *Local) MarkCommentHandled(ctx context.Context, commentID, postID string) error {
	if err := l.execWithoutResultRetry(ctx,
		`INSERT OR IGNORE INTO handled_comments (comment_id, post_id, handled_at) VALUES (?, ?, ?)`,
		commentID, postID, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("mark comment handled: %w", err)
	}
	return nil
}

// HandledCommentCount returns how many comments were answered for a post.
func (l *Local) HandledCommentCount(ctx context.Context, postID string) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM handled_comments WHERE post_id = ?`, postID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count handled comments: %w", err)
	}
	return count, nil
}
