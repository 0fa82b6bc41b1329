// Package publisher runs the publication loop: it picks the oldest eligible
// record, posts it to the platform inside the allowed window, and records the
// outcome. A post must never reach the platform twice, so a successful
// publish whose store update fails is held in memory and flushed before any
// further publishing.
package publisher

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"beacon/internal/content"
	"beacon/internal/logging"
	"beacon/internal/notify"
	"beacon/internal/policy"
	"beacon/internal/services"
)

// RecordStore is the slice of the record store the publisher needs.
type RecordStore interface {
	ReadAll(ctx context.Context) ([]*content.Item, error)
	Update(ctx context.Context, item *content.Item) error
	Reconcile(ctx context.Context) (int, error)
	Degraded() bool
}

// Platform posts content and returns the platform post id.
type Platform interface {
	Publish(ctx context.Context, message, imageURL string) (string, error)
}

// Options configures a Publisher.
type Options struct {
	OpenHour         int
	CloseHour        int
	MinSpacing       time.Duration
	RetryCooldown    time.Duration
	PollInterval     time.Duration
	PostPublishDelay time.Duration
	ErrorCooldown    time.Duration
	ReconcileFirst   bool
}

// Publisher owns the publication loop.
type Publisher struct {
	store    RecordStore
	platform Platform
	notifier notify.Service
	logger   *slog.Logger
	opts     Options
	now      func() time.Time
	track    services.LoopTracker

	// heldUpdate is a post-publish store update that has not landed yet.
	// While set, no new publish may happen: flushing it comes first.
	heldUpdate *content.Item

	mu      sync.Mutex
	lastPub time.Time
}

// Status reports the loop's liveness, last tick outcome, and when the next
// publication becomes eligible under the spacing rule.
type Status struct {
	services.LoopStatus
	NextEligible time.Time
}

// New builds a publisher. logger may be nil.
func New(store RecordStore, platform Platform, notifier notify.Service, logger *slog.Logger, opts Options) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Minute
	}
	if opts.ErrorCooldown <= 0 {
		opts.ErrorCooldown = 2 * time.Minute
	}
	return &Publisher{
		store:    store,
		platform: platform,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "publisher"),
		opts:     opts,
		now:      time.Now,
	}
}

// Run drives the loop until the context is canceled.
func (p *Publisher) Run(ctx context.Context) {
	p.logger.Info("publication loop started",
		logging.Int("open_hour", p.opts.OpenHour),
		logging.Int("close_hour", p.opts.CloseHour))
	p.track.SetRunning(true)
	defer func() {
		p.track.SetRunning(false)
		p.logger.Info("publication loop stopped")
	}()

	for {
		published, err := p.Tick(ctx)

		wait := p.opts.PollInterval
		switch {
		case err != nil && !services.IsSkip(err):
			p.logger.Error("publication tick failed", logging.Error(err))
			_ = p.notifier.NotifyError(ctx, err, "publication")
			wait = p.opts.ErrorCooldown
		case published && p.opts.PostPublishDelay > 0:
			wait = p.opts.PollInterval + p.opts.PostPublishDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// Tick performs one publication pass, reports whether a post went out, and
// records the outcome for status reporting.
func (p *Publisher) Tick(ctx context.Context) (bool, error) {
	published, err := p.tick(ctx)
	switch {
	case err == nil && published:
		p.track.RecordTick("published", nil)
	case err == nil:
		p.track.RecordTick("idle", nil)
	case services.IsSkip(err):
		p.track.RecordTick("skipped: "+err.Error(), nil)
	default:
		p.track.RecordTick("failed", err)
	}
	return published, err
}

// tick flushes any held outcome, then publishes at most one record.
func (p *Publisher) tick(ctx context.Context) (bool, error) {
	// A held post-publish update blocks everything else: the platform
	// already accepted that post, and publishing anything before the store
	// reflects it could publish the same record twice after a crash.
	if p.heldUpdate != nil {
		if err := p.store.Update(ctx, p.heldUpdate); err != nil {
			return false, services.Wrap(services.ErrStore, "publisher", "flush",
				"held publish outcome still not persisted", err)
		}
		p.logger.Info("held publish outcome persisted",
			logging.String(logging.FieldRecordUID, p.heldUpdate.RecordUID))
		p.heldUpdate = nil
	}

	if p.opts.ReconcileFirst && p.store.Degraded() {
		if replayed, err := p.store.Reconcile(ctx); err != nil {
			p.logger.Warn("reconcile attempt failed", logging.Error(err))
		} else if replayed > 0 {
			_ = p.notifier.NotifyStoreRecovered(ctx, replayed)
		}
	}

	now := p.now()
	if !policy.InWindow(now, p.opts.OpenHour, p.opts.CloseHour) {
		return false, services.Wrap(services.ErrOutsideWindow, "publisher", "tick", "", nil)
	}

	items, err := p.store.ReadAll(ctx)
	if err != nil {
		return false, err
	}

	last := lastPublication(items)
	p.setLastPublication(last)
	if !policy.EnoughSpacing(last, now, p.opts.MinSpacing) {
		return false, services.Wrap(services.ErrOutsideWindow, "publisher", "tick", "minimum spacing not elapsed", nil)
	}

	item := nextEligible(items, now, p.opts.RetryCooldown)
	if item == nil {
		return false, nil
	}

	return true, p.publish(ctx, item)
}

func (p *Publisher) publish(ctx context.Context, item *content.Item) error {
	ctx = services.WithRecordUID(ctx, item.RecordUID)
	p.logger.Info("publishing",
		logging.String(logging.FieldRecordUID, item.RecordUID),
		logging.String("title", item.Title))

	postID, err := p.platform.Publish(ctx, composeMessage(item), item.ImageRef)
	if err != nil {
		item.MarkPublishFailed(p.now(), err.Error())
		if updateErr := p.store.Update(ctx, item); updateErr != nil {
			p.logger.Warn("failed to record publish failure", logging.Error(updateErr))
		}
		_ = p.notifier.NotifyPublishFailed(ctx, item.Title, err)
		return err
	}

	item.MarkPublished(postID, p.now())
	p.setLastPublication(*item.PublishedAt)
	if err := p.store.Update(ctx, item); err != nil {
		// The platform accepted the post. Hold the outcome and keep
		// retrying it before any new publish, so the record can never be
		// picked up again as unpublished.
		p.heldUpdate = item
		p.logger.Warn("publish succeeded but store update failed, holding outcome",
			logging.String(logging.FieldRecordUID, item.RecordUID),
			logging.String(logging.FieldPostID, postID),
			logging.Error(err))
	}

	p.logger.Info("published",
		logging.String(logging.FieldRecordUID, item.RecordUID),
		logging.String(logging.FieldPostID, postID))
	_ = p.notifier.NotifyPublished(ctx, item.Title, postID)
	return nil
}

func (p *Publisher) setLastPublication(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.After(p.lastPub) {
		p.lastPub = t
	}
}

// Status reports the loop snapshot. NextEligible is zero until a publication
// time is known.
func (p *Publisher) Status() Status {
	p.mu.Lock()
	last := p.lastPub
	p.mu.Unlock()

	st := Status{LoopStatus: p.track.Status()}
	if !last.IsZero() {
		st.NextEligible = last.Add(p.opts.MinSpacing)
	}
	return st
}

// nextEligible returns the oldest record that may be published now.
func nextEligible(items []*content.Item, now time.Time, retryCooldown time.Duration) *content.Item {
	for _, item := range items {
		if item.PublishEligible(now, retryCooldown) {
			return item
		}
	}
	return nil
}

// lastPublication returns the newest publication time across all records.
func lastPublication(items []*content.Item) time.Time {
	var last time.Time
	for _, item := range items {
		if item.PublishedAt != nil && item.PublishedAt.After(last) {
			last = *item.PublishedAt
		}
	}
	return last
}

func composeMessage(item *content.Item) string {
	message := item.BodyText
	if strings.TrimSpace(message) == "" {
		message = item.Title
	}
	if item.ImageCredit != "" && item.ImageRef != "" {
		message = message + "\n\nPhoto: " + item.ImageCredit
	}
	return message
}
