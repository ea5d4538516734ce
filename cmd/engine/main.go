// Package main is the entry point for the signal engine: a scheduled
// cycle loop that scans its configured symbol universe, runs each
// symbol's assigned strategy, and submits resulting orders through the
// broker adapter.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlas-desktop/signal-engine/internal/broker"
	"github.com/atlas-desktop/signal-engine/internal/config"
	"github.com/atlas-desktop/signal-engine/internal/cycle"
	"github.com/atlas-desktop/signal-engine/internal/journal"
	"github.com/atlas-desktop/signal-engine/internal/marketdata"
	"github.com/atlas-desktop/signal-engine/internal/observability"
	"github.com/atlas-desktop/signal-engine/internal/statusapi"
	"github.com/atlas-desktop/signal-engine/internal/strategy"
	"github.com/atlas-desktop/signal-engine/internal/strategy/catalog"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (yaml/json/toml, viper-resolved)")
	dataDir := flag.String("data", "./data", "Data directory for journal and persisted model state")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger := setupLogger(level)
	defer logger.Sync()

	logger.Info("starting signal engine",
		zap.String("config", *configPath),
		zap.String("dataDir", *dataDir),
		zap.Int("symbols", len(cfg.Trading.Symbols)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brokerAdapter := broker.New(logger, broker.Config{
		Host:       cfg.IBServer.Host,
		Port:       cfg.IBServer.Port,
		ClientID:   cfg.IBServer.ClientID,
		MaxRetries: cfg.IBServer.MaxRetries,
	})

	marketAdapter := marketdata.New(logger, marketdata.Config{
		BaseURL:       cfg.DataServer.BaseURL,
		RetryAttempts: cfg.DataServer.RetryAttempts,
		CacheDuration: cfg.DataServer.CacheDuration,
		HTTPTimeout:   12 * time.Second,
	})

	registry := strategy.NewRegistry()
	catalog.RegisterAll(registry)
	logger.Info("registered strategy types", zap.Strings("types", registry.Types()))

	tradeJournal := journal.New(logger, *dataDir+"/trades.json", 100)
	perfSidecar := journal.NewPerformanceSidecar(logger, *dataDir+"/signal_performance.csv")

	recorder := observability.NewRecorder(prometheus.DefaultRegisterer)

	controller := cycle.New(logger, cfg, brokerAdapter, marketAdapter, registry, tradeJournal, perfSidecar, recorder)

	statusAddr := cfg.StatusAddr
	if statusAddr == "" {
		statusAddr = ":8090"
	}
	status := statusapi.New(logger, statusapi.Config{Addr: statusAddr}, controller)
	go func() {
		if err := status.Start(); err != nil {
			logger.Error("status server error", zap.Error(err))
		}
	}()

	go func() {
		if err := controller.Start(ctx); err != nil {
			logger.Error("cycle controller stopped with an error", zap.Error(err))
		}
	}()

	logger.Info("signal engine started", zap.String("statusAddr", statusAddr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutdown signal received")

	cancel()
	controller.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := status.Stop(shutdownCtx); err != nil {
		logger.Error("error during status server shutdown", zap.Error(err))
	}

	logger.Info("signal engine stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
