// Package store persists content records across a dual backend: a remote
// tabular primary and a local SQLite fallback. The local database holds every
// record ever appended, so the daemon keeps operating when the primary is
// unreachable and replays missed writes once it recovers.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"beacon/internal/content"
	"beacon/internal/logging"
	"beacon/internal/services"
)

// Remote is the primary backend interface satisfied by sheetapi.Client.
type Remote interface {
	ReadAll(ctx context.Context) ([]*content.Item, error)
	Append(ctx context.Context, item *content.Item) error
	Update(ctx context.Context, item *content.Item) error
	Has(ctx context.Context, uid string) (bool, error)
}

// Store coordinates the remote primary and the local fallback. A nil remote
// runs the store in local-only mode.
type Store struct {
	remote   Remote
	local    *Local
	logger   *slog.Logger
	degraded atomic.Bool
}

// Status is a snapshot of the store's health for status reporting.
type Status struct {
	Degraded    bool   `json:"degraded"`
	PendingSync int    `json:"pending_sync"`
	LocalPath   string `json:"local_path"`
}

// New wires a dual-backed store. The logger may be nil.
func New(remote Remote, local *Local, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		remote: remote,
		local:  local,
		logger: logging.NewComponentLogger(logger, "store"),
	}
}

// Local exposes the fallback database for ledger access.
func (s *Store) Local() *Local {
	return s.local
}

// Degraded reports whether the last primary call failed.
func (s *Store) Degraded() bool {
	return s.degraded.Load()
}

// ReadAll returns every record. The primary is consulted first; on any
// primary failure the local fallback serves the read and the store enters
// degraded mode with a single warning.
func (s *Store) ReadAll(ctx context.Context) ([]*content.Item, error) {
	if s.remote != nil {
		items, err := s.remote.ReadAll(ctx)
		if err == nil {
			s.markHealthy()
			return s.mergePending(ctx, items), nil
		}
		s.markDegraded("read", err)
	}
	items, err := s.local.List(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "read", "local fallback read failed", err)
	}
	return items, nil
}

// mergePending folds local rows that never reached the primary into a
// primary read, so records appended during an outage stay visible before
// Reconcile replays them.
func (s *Store) mergePending(ctx context.Context, items []*content.Item) []*content.Item {
	pending, err := s.local.PendingSync(ctx)
	if err != nil {
		s.logger.Warn("pending-sync lookup failed during read", logging.Error(err))
		return items
	}
	if len(pending) == 0 {
		return items
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		seen[item.RecordUID] = struct{}{}
	}
	for _, item := range pending {
		if _, ok := seen[item.RecordUID]; !ok {
			items = append(items, item)
		}
	}
	return items
}

// Append persists a new record. A fresh record uid is assigned when the item
// carries none. The local fallback is always written; the call succeeds as
// long as one backend accepted the record. A record that missed the primary
// is flagged pending-sync for later replay.
func (s *Store) Append(ctx context.Context, item *content.Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	if item.RecordUID == "" {
		item.RecordUID = uuid.NewString()
	}
	if item.State == "" {
		item.State = content.StateGenerated
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.UpdatedAt = item.CreatedAt

	var primaryErr error
	if s.remote != nil {
		primaryErr = s.remote.Append(ctx, item)
		if primaryErr == nil {
			s.markHealthy()
		} else {
			s.markDegraded("append", primaryErr)
		}
	}
	item.PendingSync = primaryErr != nil

	localErr := s.local.Append(ctx, item)
	if localErr != nil && primaryErr != nil {
		return services.Wrap(services.ErrStore, "store", "append", "both backends rejected record",
			errors.Join(primaryErr, localErr))
	}
	if localErr != nil {
		s.logger.Warn("local append failed, record lives only on primary",
			logging.String(logging.FieldRecordUID, item.RecordUID),
			logging.Error(localErr))
	}
	return nil
}

// Update rewrites an existing record on both backends, keyed by record uid.
// The local write is authoritative; a missed primary write flags the record
// pending-sync.
func (s *Store) Update(ctx context.Context, item *content.Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	if item.RecordUID == "" {
		return errors.New("record uid is empty")
	}
	item.UpdatedAt = time.Now().UTC()

	var primaryErr error
	if s.remote != nil {
		primaryErr = s.remote.Update(ctx, item)
		if primaryErr == nil {
			s.markHealthy()
		} else {
			s.markDegraded("update", primaryErr)
		}
	}
	item.PendingSync = primaryErr != nil

	localErr := s.local.Update(ctx, item)
	if localErr != nil && primaryErr != nil {
		return services.Wrap(services.ErrStore, "store", "update", "both backends rejected update",
			errors.Join(primaryErr, localErr))
	}
	if localErr != nil {
		s.logger.Warn("local update failed, change lives only on primary",
			logging.String(logging.FieldRecordUID, item.RecordUID),
			logging.Error(localErr))
	}
	return nil
}

// Reconcile replays pending-sync records into a recovered primary. Records
// the primary already holds are updated in place; missing ones are appended.
// Replay stops at the first primary error so a still-down primary is not
// hammered. Returns how many records were synced.
func (s *Store) Reconcile(ctx context.Context) (int, error) {
	if s.remote == nil {
		return 0, nil
	}
	pending, err := s.local.PendingSync(ctx)
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "store", "reconcile", "list pending records", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	synced := 0
	for _, item := range pending {
		exists, err := s.remote.Has(ctx, item.RecordUID)
		if err != nil {
			s.markDegraded("reconcile", err)
			return synced, err
		}
		if exists {
			err = s.remote.Update(ctx, item)
		} else {
			err = s.remote.Append(ctx, item)
		}
		if err != nil {
			s.markDegraded("reconcile", err)
			return synced, err
		}
		if err := s.local.MarkSynced(ctx, item.RecordUID); err != nil {
			return synced, fmt.Errorf("clear pending flag for %s: %w", item.RecordUID, err)
		}
		synced++
	}
	s.markHealthy()
	if synced > 0 {
		s.logger.Info("replayed pending records into primary", logging.Int("count", synced))
	}
	return synced, nil
}

// Status summarizes backend health for IPC status calls.
func (s *Store) Status(ctx context.Context) Status {
	pending, err := s.local.PendingSyncCount(ctx)
	if err != nil {
		pending = -1
	}
	return Status{
		Degraded:    s.Degraded(),
		PendingSync: pending,
		LocalPath:   s.local.Path(),
	}
}

// Close releases the local database.
func (s *Store) Close() error {
	return s.local.Close()
}

func (s *Store) markDegraded(operation string, err error) {
	if s.degraded.CompareAndSwap(false, true) {
		s.logger.Warn("primary unreachable, serving from local fallback",
			logging.String("operation", operation),
			logging.String(logging.FieldBackend, "local"),
			logging.Error(err))
	}
}

func (s *Store) markHealthy() {
	if s.degraded.CompareAndSwap(true, false) {
		s.logger.Info("primary recovered", logging.String(logging.FieldBackend, "primary"))
	}
}
