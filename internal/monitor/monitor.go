// Package monitor runs the comment loop: it polls comments on published
// posts, answers new ones exactly once, and refreshes reaction counts. The
// handled-comment ledger is the dedup authority; the platform's own reply
// count only serves as a secondary guard.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"beacon/internal/content"
	"beacon/internal/logging"
	"beacon/internal/notify"
	"beacon/internal/services"
)

// RecordStore is the slice of the record store the monitor needs.
type RecordStore interface {
	ReadAll(ctx context.Context) ([]*content.Item, error)
	Update(ctx context.Context, item *content.Item) error
}

// Ledger is the persistent handled-comment record.
type Ledger interface {
	CommentHandled(ctx context.Context, commentID string) (bool, error)
	MarkCommentHandled(ctx context.Context, commentID, postID string) error
}

// Platform is the comment surface of the social API.
type Platform interface {
	ListComments(ctx context.Context, postID string) ([]content.Comment, error)
	Reply(ctx context.Context, commentID, message string) (string, error)
	CountReactions(ctx context.Context, postID string) (int, error)
}

// Replier generates reply text for a comment.
type Replier interface {
	GenerateReply(ctx context.Context, comment content.Comment) (string, error)
}

// Options configures a Monitor.
type Options struct {
	CommentMaxAge time.Duration
	ReplyDelay    time.Duration
	PollInterval  time.Duration
	ErrorCooldown time.Duration
}

// Monitor owns the comment loop.
type Monitor struct {
	store    RecordStore
	ledger   Ledger
	platform Platform
	replier  Replier
	notifier notify.Service
	logger   *slog.Logger
	opts     Options
	now      func() time.Time
	track    services.LoopTracker
}

// New builds a monitor. logger may be nil.
func New(store RecordStore, ledger Ledger, platform Platform, replier Replier, notifier notify.Service, logger *slog.Logger, opts Options) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Minute
	}
	if opts.ErrorCooldown <= 0 {
		opts.ErrorCooldown = 2 * time.Minute
	}
	return &Monitor{
		store:    store,
		ledger:   ledger,
		platform: platform,
		replier:  replier,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "monitor"),
		opts:     opts,
		now:      time.Now,
	}
}

// Run drives the loop until the context is canceled.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info("comment loop started")
	m.track.SetRunning(true)
	defer func() {
		m.track.SetRunning(false)
		m.logger.Info("comment loop stopped")
	}()

	for {
		wait := m.opts.PollInterval
		if err := m.Tick(ctx); err != nil {
			m.logger.Error("comment tick failed", logging.Error(err))
			_ = m.notifier.NotifyError(ctx, err, "comment monitoring")
			wait = m.opts.ErrorCooldown
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// Tick processes every published or monitored record once and records the
// outcome for status reporting.
func (m *Monitor) Tick(ctx context.Context) error {
	processed, err := m.tick(ctx)
	switch {
	case err != nil:
		m.track.RecordTick("failed", err)
	case processed == 0:
		m.track.RecordTick("idle", nil)
	default:
		m.track.RecordTick("processed", nil)
	}
	return err
}

// tick runs one pass. Per-post failures do not stop the pass; they are
// joined into the returned error.
func (m *Monitor) tick(ctx context.Context) (int, error) {
	items, err := m.store.ReadAll(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	var errs []error
	for _, item := range items {
		if !monitorable(item) {
			continue
		}
		processed++
		if err := m.processItem(ctx, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return processed, err
			}
			errs = append(errs, err)
		}
	}
	return processed, errors.Join(errs...)
}

// Status reports the loop's liveness and last tick outcome.
func (m *Monitor) Status() services.LoopStatus {
	return m.track.Status()
}

func monitorable(item *content.Item) bool {
	if item.PlatformPostID == "" {
		return false
	}
	return item.State == content.StatePublished || item.State == content.StateMonitored
}

func (m *Monitor) processItem(ctx context.Context, item *content.Item) error {
	ctx = services.WithRecordUID(ctx, item.RecordUID)
	replied, err := m.answerComments(ctx, item)
	if err != nil {
		return err
	}

	changed := replied > 0

	if reactions, err := m.platform.CountReactions(ctx, item.PlatformPostID); err != nil {
		m.logger.Warn("reaction refresh failed",
			logging.String(logging.FieldPostID, item.PlatformPostID),
			logging.Error(err))
	} else if reactions != item.PositiveReactions {
		item.PositiveReactions = reactions
		changed = true
	}

	// First pass over a published item promotes it to monitored. The
	// transition is idempotent: a monitored item stays monitored.
	if item.State == content.StatePublished {
		item.State = content.StateMonitored
		changed = true
	}

	if changed {
		if err := m.store.Update(ctx, item); err != nil {
			return err
		}
	}
	if replied > 0 {
		_ = m.notifier.NotifyRepliesPosted(ctx, item.PlatformPostID, replied)
	}
	return nil
}

// answerComments replies to every fresh, unhandled comment on the item's
// post. Each reply is recorded in the ledger before the next comment is
// considered, so a crash mid-pass cannot cause a double reply later.
func (m *Monitor) answerComments(ctx context.Context, item *content.Item) (int, error) {
	comments, err := m.platform.ListComments(ctx, item.PlatformPostID)
	if err != nil {
		return 0, err
	}

	replied := 0
	cutoff := m.now().Add(-m.opts.CommentMaxAge)
	for _, comment := range comments {
		if m.opts.CommentMaxAge > 0 && !comment.CreatedAt.IsZero() && comment.CreatedAt.Before(cutoff) {
			continue
		}
		if comment.HasReply() {
			continue
		}
		handled, err := m.ledger.CommentHandled(ctx, comment.ID)
		if err != nil {
			return replied, err
		}
		if handled {
			continue
		}

		reply, err := m.replier.GenerateReply(ctx, comment)
		if err != nil {
			return replied, err
		}
		if _, err := m.platform.Reply(ctx, comment.ID, reply); err != nil {
			return replied, err
		}
		if err := m.ledger.MarkCommentHandled(ctx, comment.ID, item.PlatformPostID); err != nil {
			return replied, err
		}

		item.CommentsHandled++
		replied++
		m.logger.Info("replied to comment",
			logging.String(logging.FieldPostID, item.PlatformPostID),
			logging.String(logging.FieldCommentID, comment.ID))

		if m.opts.ReplyDelay > 0 {
			select {
			case <-ctx.Done():
				return replied, ctx.Err()
			case <-time.After(m.opts.ReplyDelay):
			}
		}
	}
	return replied, nil
}
