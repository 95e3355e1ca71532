package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/michroucka/UPS-SP/internal/api"
	"github.com/michroucka/UPS-SP/internal/config"
	"github.com/michroucka/UPS-SP/internal/db"
	"github.com/michroucka/UPS-SP/internal/hub"
	"github.com/michroucka/UPS-SP/internal/logger"
	"github.com/michroucka/UPS-SP/internal/statelog"
	"github.com/michroucka/UPS-SP/internal/telemetry"
	"github.com/michroucka/UPS-SP/internal/transport"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		config.Usage(os.Stderr, os.Args[0])
		os.Exit(1)
	}

	ctx := context.Background()

	// Telemetry is best effort: a missing collector never blocks startup.
	shutdownTelemetry, err := telemetry.Init(ctx, cfg.OtelAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
	}
	defer func() {
		if err := shutdownTelemetry(ctx); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	closeLog, err := logger.Init(cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	sinks, err := buildSinks(ctx, cfg)
	if err != nil {
		slog.Error("state journal setup failed", "error", err)
		os.Exit(1)
	}
	emitter := statelog.NewEmitter(sinks...)
	defer emitter.Close()

	h := hub.New(hub.Options{
		MaxClients: cfg.MaxClients,
		MaxRooms:   cfg.MaxRooms,
		Emitter:    emitter,
	})
	hubCtx, stopHub := context.WithCancel(ctx)
	go h.Run(hubCtx)

	listener := transport.NewListener(cfg.Addr(), h)
	if err := listener.Start(); err != nil {
		slog.Error("cannot listen", "addr", cfg.Addr(), "error", err)
		os.Exit(1)
	}
	slog.Info("game server listening", "addr", listener.Addr())

	var adminSrv *api.Server
	if cfg.AdminAddr != "" {
		adminSrv = api.NewServer(h, cfg.AdminAddr)
		go func() {
			if err := adminSrv.Start(); err != nil {
				slog.Error("admin API failed", "error", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if adminSrv != nil {
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("admin API shutdown failed", "error", err)
		}
	}
	listener.Stop()
	stopHub()

	slog.Info("server exiting")
}

// buildSinks assembles the configured state journal sinks.
func buildSinks(ctx context.Context, cfg *config.Config) ([]statelog.Sink, error) {
	var sinks []statelog.Sink

	if cfg.JournalFile != "" {
		sink, err := statelog.NewFileSink(cfg.JournalFile)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	if cfg.JournalDB != "" {
		pool, err := db.OpenJournal(cfg.JournalDB)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, statelog.NewSQLiteSink(pool))
	}

	if cfg.RedisAddr != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, statelog.NewRedisSink(rdb))
	}

	return sinks, nil
}
