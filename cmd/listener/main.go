package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-streamer/cmd/listener/internal/listener"
	"github.com/shubham-shewale/stock-streamer/pkg/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	conn, err := listener.Listen(cfg.Listener.Addr)
	if err != nil {
		logger.Fatal("Failed to bind", zap.String("addr", cfg.Listener.Addr), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := listener.NewListener(conn, logger, cfg.Listener.BufferSize)
	if err := l.Run(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Listener stopped", zap.Error(err))
		return
	}
	logger.Info("Listener exited cleanly")
}
