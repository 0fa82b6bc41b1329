// Package orchestrator wires the record store, the external service clients,
// and the three pipeline loops into a single daemon lifecycle. A file lock
// prevents a second instance from running against the same data directory.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"beacon/internal/config"
	"beacon/internal/content"
	"beacon/internal/generator"
	"beacon/internal/images"
	"beacon/internal/logging"
	"beacon/internal/monitor"
	"beacon/internal/notify"
	"beacon/internal/platform"
	"beacon/internal/policy"
	"beacon/internal/publisher"
	"beacon/internal/scheduler"
	"beacon/internal/services"
	"beacon/internal/store"
	"beacon/internal/store/sheetapi"
)

// Orchestrator owns the daemon lifecycle: store, clients, and loops.
type Orchestrator struct {
	cfg      *config.Config
	logger   *slog.Logger
	records  *store.Store
	notifier notify.Service
	page     *platform.Client

	sched *scheduler.Scheduler
	pub   *publisher.Publisher
	mon   *monitor.Monitor

	lockPath string
	lock     *flock.Flock

	lifecycle sync.Mutex
	running   atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Status is a snapshot of the daemon for IPC status calls.
type Status struct {
	Running    bool
	PID        int
	QuotaUsed  int
	QuotaLimit int
	NextSlot   time.Time
	Store      store.Status
	LockPath   string

	Generation  services.LoopStatus
	Publication publisher.Status
	Monitoring  services.LoopStatus
}

// New builds the full pipeline from configuration. The local fallback
// database is opened immediately; remote clients are constructed lazily
// enough that missing credentials surface on first use, not here.
func New(cfg *config.Config, logger *slog.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("orchestrator requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	local, err := store.OpenLocal(cfg.LocalStorePath())
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	var remote store.Remote
	if strings.TrimSpace(cfg.Store.SheetID) != "" {
		remote = sheetapi.New(
			cfg.Store.SheetBaseURL,
			cfg.Store.SheetID,
			cfg.Store.APIToken,
			time.Duration(cfg.Store.RequestTimeout)*time.Second,
		)
	}
	records := store.New(remote, local, logger)

	notifier := notify.NewService(cfg)

	chat := generator.NewClient(
		cfg.Generator.BaseURL,
		cfg.Generator.APIKey,
		cfg.Generator.Model,
		time.Duration(cfg.Generator.TimeoutSeconds)*time.Second,
	)
	engine := generator.NewEngine(chat, logger)

	var searcher scheduler.ImageSearcher
	if cfg.Images.Enabled && strings.TrimSpace(cfg.Images.APIKey) != "" {
		searcher = images.NewClient(
			cfg.Images.BaseURL,
			cfg.Images.APIKey,
			time.Duration(cfg.Images.TimeoutSeconds)*time.Second,
		)
	}

	page := platform.NewClient(
		cfg.Platform.BaseURL,
		cfg.Platform.PageID,
		cfg.Platform.AccessToken,
		time.Duration(cfg.Platform.RequestTimeout)*time.Second,
		logger,
	)

	quota := policy.NewQuotaState(cfg.Schedule.DailyLimit)

	sched := scheduler.New(records, engine, searcher, quota, notifier, logger, scheduler.Options{
		Slots:          cfg.GenerationSlots(),
		SlotRecheck:    cfg.SlotRecheck(),
		ErrorCooldown:  cfg.ErrorCooldown(),
		ExternalBudget: cfg.ExternalCallTimeout(),
	})
	pub := publisher.New(records, page, notifier, logger, publisher.Options{
		OpenHour:         cfg.Schedule.OpenHour,
		CloseHour:        cfg.Schedule.CloseHour,
		MinSpacing:       cfg.MinSpacing(),
		RetryCooldown:    cfg.RetryCooldown(),
		PollInterval:     cfg.PublishPollInterval(),
		PostPublishDelay: cfg.PostPublishDelay(),
		ErrorCooldown:    cfg.ErrorCooldown(),
		ReconcileFirst:   cfg.Schedule.ReconcileBeforeTicks,
	})
	mon := monitor.New(records, local, page, engine, notifier, logger, monitor.Options{
		CommentMaxAge: cfg.CommentMaxAge(),
		ReplyDelay:    cfg.ReplyDelay(),
		PollInterval:  cfg.MonitorPollInterval(),
		ErrorCooldown: cfg.ErrorCooldown(),
	})

	return &Orchestrator{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
		records:  records,
		notifier: notifier,
		page:     page,
		sched:    sched,
		pub:      pub,
		mon:      mon,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}, nil
}

// Start acquires the instance lock and launches the three loops.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	if o.running.Load() {
		return errors.New("orchestrator already running")
	}

	ok, err := o.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another beacon daemon instance is already running")
	}

	if strings.TrimSpace(o.cfg.Platform.PageID) != "" {
		if err := o.page.CheckCredentials(ctx); err != nil {
			o.logger.Warn("platform credential check failed", logging.Error(err))
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(3)
	go func() {
		defer o.wg.Done()
		o.sched.Run(loopCtx)
	}()
	go func() {
		defer o.wg.Done()
		o.pub.Run(loopCtx)
	}()
	go func() {
		defer o.wg.Done()
		o.mon.Run(loopCtx)
	}()

	o.running.Store(true)
	o.logger.Info("beacon daemon started", logging.String("lock", o.lockPath))
	return nil
}

// Stop cancels the loops, waits for them to drain, and releases the lock.
func (o *Orchestrator) Stop() {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	if !o.running.Load() {
		return
	}

	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.wg.Wait()
	if err := o.lock.Unlock(); err != nil {
		o.logger.Warn("failed to release instance lock", logging.Error(err))
	}
	o.running.Store(false)
	o.logger.Info("beacon daemon stopped")
}

// Close stops the loops and releases the local database.
func (o *Orchestrator) Close() error {
	o.Stop()
	return o.records.Close()
}

// Store exposes the record store for IPC and test callers.
func (o *Orchestrator) Store() *store.Store {
	return o.records
}

// Running reports whether the loops are active.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Status summarizes the daemon for status reporting.
func (o *Orchestrator) Status(ctx context.Context) Status {
	used, limit := o.sched.QuotaUsage()
	return Status{
		Running:     o.running.Load(),
		PID:         os.Getpid(),
		QuotaUsed:   used,
		QuotaLimit:  limit,
		NextSlot:    o.sched.NextSlot(),
		Store:       o.records.Status(ctx),
		LockPath:    o.lockPath,
		Generation:  o.sched.Status(),
		Publication: o.pub.Status(),
		Monitoring:  o.mon.Status(),
	}
}

// GenerateNow runs one generation outside the slot schedule. The daily
// quota still applies.
func (o *Orchestrator) GenerateNow(ctx context.Context) error {
	return o.sched.GenerateOnce(ctx)
}

// Sync replays pending-sync records into the primary store.
func (o *Orchestrator) Sync(ctx context.Context) (int, error) {
	return o.records.Reconcile(ctx)
}

// ListItems returns records, optionally filtered by state.
func (o *Orchestrator) ListItems(ctx context.Context, states []content.State) ([]*content.Item, error) {
	items, err := o.records.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return items, nil
	}
	wanted := make(map[content.State]struct{}, len(states))
	for _, state := range states {
		wanted[state] = struct{}{}
	}
	filtered := make([]*content.Item, 0, len(items))
	for _, item := range items {
		if _, ok := wanted[item.State]; ok {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// TestNotification sends a test push through the configured notifier.
func (o *Orchestrator) TestNotification(ctx context.Context) error {
	return o.notifier.TestNotification(ctx)
}
