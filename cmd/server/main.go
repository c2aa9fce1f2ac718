package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiryu-dev/tictactoe-web/internal/config"
	"github.com/kiryu-dev/tictactoe-web/internal/transport/ws"
	"github.com/kiryu-dev/tictactoe-web/internal/usecase/hub"
	"github.com/kiryu-dev/tictactoe-web/internal/usecase/opponent"
	"github.com/kiryu-dev/tictactoe-web/internal/usecase/scheduler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfgPath := flag.String("config", "./config.yml", "path to config")
	flag.Parse()
	cfg, err := config.New(*cfgPath)
	if err != nil {
		panic(err)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.Level())
	logger, err := zapCfg.Build()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	var (
		policy       = opponent.New()
		newScheduler = func() hub.Scheduler {
			return scheduler.New(cfg.ComputerMoveDelay, logger)
		}
		games  = hub.New(policy, newScheduler, cfg.Session.TTL, cfg.Session.JanitorPeriod, logger)
		server = ws.New(cfg.ListenAddr, games, logger)
	)
	defer games.Close()
	errGroup, ctx := errgroup.WithContext(context.Background())
	errGroup.Go(func() error {
		var reason error
		select {
		case s := <-sigChan:
			reason = errors.Errorf("captured signal: %v", s)
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Info("failed to shutdown http server: " + err.Error())
		}
		return reason
	})
	errGroup.Go(func() error {
		if err := server.ListenAndServe(ctx); err != nil {
			return err
		}
		return errors.New("server stopped")
	})
	if err := errGroup.Wait(); err != nil {
		logger.Info("gracefully shutting down the server: " + err.Error())
	}
}
