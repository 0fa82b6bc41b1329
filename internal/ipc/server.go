package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"beacon/internal/content"
	"beacon/internal/logging"
	"beacon/internal/orchestrator"
	"beacon/internal/services"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, orch *orchestrator.Orchestrator, logger *slog.Logger) (*Server, error) {
	if orch == nil {
		return nil, errors.New("ipc server requires orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{orch: orch, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Beacon", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.orch.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.QuotaUsed = status.QuotaUsed
	resp.QuotaLimit = status.QuotaLimit
	if !status.NextSlot.IsZero() {
		resp.NextSlot = status.NextSlot.Format(time.RFC3339)
	}
	resp.StoreDegraded = status.Store.Degraded
	resp.StorePendingSync = status.Store.PendingSync
	resp.LocalStorePath = status.Store.LocalPath
	resp.LockPath = status.LockPath
	resp.Generation = fromLoopStatus(status.Generation)
	resp.Publication = fromLoopStatus(status.Publication.LoopStatus)
	resp.Monitoring = fromLoopStatus(status.Monitoring)
	if !status.Publication.NextEligible.IsZero() {
		resp.NextEligiblePublication = status.Publication.NextEligible.Format(time.RFC3339)
	}
	return nil
}

func fromLoopStatus(status services.LoopStatus) LoopStatus {
	out := LoopStatus{
		Running:     status.Running,
		LastOutcome: status.LastOutcome,
		LastError:   status.LastError,
	}
	if !status.LastTick.IsZero() {
		out.LastTick = status.LastTick.Format(time.RFC3339)
	}
	return out
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("loop start requested")
	if err := s.orch.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "pipeline loops started"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("loop stop requested")
	if !s.orch.Running() {
		resp.Stopped = false
		resp.Message = "pipeline loops are not running"
		return nil
	}
	s.orch.Stop()
	resp.Stopped = true
	resp.Message = "pipeline loops stopped"
	return nil
}

func (s *service) Generate(_ GenerateRequest, resp *GenerateResponse) error {
	s.logger.Debug("on-demand generation requested")
	err := s.orch.GenerateNow(s.ctx)
	switch {
	case err == nil:
		resp.Generated = true
		resp.Message = "draft generated"
	case services.IsSkip(err):
		resp.Generated = false
		resp.Message = err.Error()
	default:
		return err
	}
	return nil
}

func (s *service) Sync(_ SyncRequest, resp *SyncResponse) error {
	s.logger.Debug("store sync requested")
	synced, err := s.orch.Sync(s.ctx)
	resp.Synced = synced
	return err
}

func (s *service) RecordList(req RecordListRequest, resp *RecordListResponse) error {
	states := make([]content.State, 0, len(req.States))
	for _, value := range req.States {
		parsed, ok := content.ParseState(value)
		if !ok {
			continue
		}
		states = append(states, parsed)
	}
	items, err := s.orch.ListItems(s.ctx, states)
	if err != nil {
		return err
	}
	resp.Items = make([]Record, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		resp.Items = append(resp.Items, fromItem(item))
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if err := s.orch.TestNotification(s.ctx); err != nil {
		resp.Sent = false
		resp.Message = err.Error()
		return nil
	}
	resp.Sent = true
	resp.Message = "test notification sent"
	return nil
}

func fromItem(item *content.Item) Record {
	record := Record{
		RecordUID:         item.RecordUID,
		Title:             item.Title,
		Theme:             item.Theme,
		Service:           item.Service,
		Style:             item.Style,
		State:             string(item.State),
		PlatformPostID:    item.PlatformPostID,
		LastError:         item.LastError,
		PositiveReactions: item.PositiveReactions,
		CommentsHandled:   item.CommentsHandled,
		PendingSync:       item.PendingSync,
	}
	if item.PublishedAt != nil {
		record.PublishedAt = item.PublishedAt.Format(time.RFC3339)
	}
	if !item.CreatedAt.IsZero() {
		record.CreatedAt = item.CreatedAt.Format(time.RFC3339)
	}
	return record
}
