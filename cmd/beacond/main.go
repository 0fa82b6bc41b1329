package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"beacon/internal/config"
	"beacon/internal/ipc"
	"beacon/internal/logging"
	"beacon/internal/orchestrator"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir, "beacond.log")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	orch, err := orchestrator.New(cfg, logger)
	if err != nil {
		logger.Error("create orchestrator", logging.Error(err))
		return
	}
	defer orch.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), orch, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := orch.Start(ctx); err != nil {
		logger.Error("start pipeline loops", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("beacond shutting down")
}
