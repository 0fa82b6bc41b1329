// Package scheduler runs the generation loop: at each configured time slot it
// asks the generation engine for a draft and appends the record, bounded by
// the daily quota.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"beacon/internal/content"
	"beacon/internal/images"
	"beacon/internal/logging"
	"beacon/internal/notify"
	"beacon/internal/policy"
	"beacon/internal/services"
)

// RecordStore is the slice of the record store the scheduler needs.
type RecordStore interface {
	ReadAll(ctx context.Context) ([]*content.Item, error)
	Append(ctx context.Context, item *content.Item) error
}

// Generator produces drafts and condenses themes into photo search queries.
type Generator interface {
	Generate(ctx context.Context, history []*content.Item) (content.Draft, error)
	ImageKeywords(ctx context.Context, theme string) string
}

// ImageSearcher finds an illustration photo. May be nil when images are
// disabled.
type ImageSearcher interface {
	Search(ctx context.Context, query string) (*images.Photo, error)
}

// Options configures a Scheduler.
type Options struct {
	Slots          []policy.Slot
	SlotRecheck    time.Duration
	ErrorCooldown  time.Duration
	ExternalBudget time.Duration
}

// Scheduler owns the generation loop.
type Scheduler struct {
	store    RecordStore
	engine   Generator
	images   ImageSearcher
	quota    *policy.QuotaState
	notifier notify.Service
	logger   *slog.Logger
	opts     Options
	now      func() time.Time
	track    services.LoopTracker
}

// New builds a scheduler. images may be nil; logger may be nil.
func New(store RecordStore, engine Generator, images ImageSearcher, quota *policy.QuotaState, notifier notify.Service, logger *slog.Logger, opts Options) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.SlotRecheck <= 0 {
		opts.SlotRecheck = time.Minute
	}
	if opts.ErrorCooldown <= 0 {
		opts.ErrorCooldown = 2 * time.Minute
	}
	return &Scheduler{
		store:    store,
		engine:   engine,
		images:   images,
		quota:    quota,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		opts:     opts,
		now:      time.Now,
	}
}

// NextSlot reports when the next generation slot fires.
func (s *Scheduler) NextSlot() time.Time {
	return policy.NextSlot(s.now(), s.opts.Slots)
}

// Run drives the loop until the context is canceled. The wait is re-evaluated
// at most every SlotRecheck so host clock adjustments cannot strand the loop.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("generation loop started", logging.Int("slots", len(s.opts.Slots)))
	s.track.SetRunning(true)
	defer func() {
		s.track.SetRunning(false)
		s.logger.Info("generation loop stopped")
	}()

	for {
		next := policy.NextSlot(s.now(), s.opts.Slots)
		wait := next.Sub(s.now())
		if wait > s.opts.SlotRecheck {
			wait = s.opts.SlotRecheck
		}
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if s.now().Before(next) {
			continue
		}

		if err := s.GenerateOnce(ctx); err != nil && !services.IsSkip(err) {
			s.logger.Error("slot generation failed", logging.Error(err))
			_ = s.notifier.NotifyError(ctx, err, "generation")
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.opts.ErrorCooldown):
			}
		}
	}
}

// GenerateOnce performs one generation and records its outcome for status
// reporting.
func (s *Scheduler) GenerateOnce(ctx context.Context) error {
	err := s.generate(ctx)
	switch {
	case err == nil:
		s.track.RecordTick("generated", nil)
	case services.IsSkip(err):
		s.track.RecordTick("skipped: quota reached", nil)
	default:
		s.track.RecordTick("failed", err)
	}
	return err
}

// generate runs one generation: quota check, draft, optional image, append.
// Quota is consumed only after the record is durably appended, so a failed
// attempt never burns a slot.
func (s *Scheduler) generate(ctx context.Context) error {
	now := s.now()
	if !s.quota.CanGenerate(now) {
		used, limit := s.quota.Usage(now)
		s.logger.Info("daily quota reached, skipping slot",
			logging.Int("used", used), logging.Int("limit", limit))
		return services.Wrap(services.ErrQuotaExceeded, "scheduler", "generate", "", nil)
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if s.opts.ExternalBudget > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.opts.ExternalBudget)
		defer cancel()
	}

	history, err := s.store.ReadAll(callCtx)
	if err != nil {
		return err
	}

	draft, err := s.engine.Generate(callCtx, history)
	if err != nil {
		return err
	}

	item := &content.Item{
		Title:      draft.Title,
		Theme:      draft.Theme,
		Service:    draft.Service,
		Style:      draft.Style,
		BodyText:   draft.BodyText,
		ScriptText: draft.ScriptText,
		State:      content.StateGenerated,
	}

	// Image search is best effort: a post without an image is still a post.
	if s.images != nil {
		query := s.engine.ImageKeywords(callCtx, draft.Theme)
		photo, err := s.images.Search(callCtx, query)
		if err != nil {
			s.logger.Warn("image search failed, continuing without image", logging.Error(err))
		} else if photo != nil {
			item.ImageRef = photo.URL
			item.ImageCredit = photo.Credit
		}
	}

	if err := s.store.Append(ctx, item); err != nil {
		return err
	}
	s.quota.Consume(s.now())

	used, limit := s.quota.Usage(s.now())
	s.logger.Info("draft generated",
		logging.String(logging.FieldRecordUID, item.RecordUID),
		logging.String("title", item.Title),
		logging.Int("quota_used", used),
		logging.Int("quota_limit", limit))
	_ = s.notifier.NotifyGenerated(ctx, item.Title)
	return nil
}

// QuotaUsage reports the current quota counters.
func (s *Scheduler) QuotaUsage() (used, limit int) {
	return s.quota.Usage(s.now())
}

// Status reports the loop's liveness and last tick outcome.
func (s *Scheduler) Status() services.LoopStatus {
	return s.track.Status()
}
