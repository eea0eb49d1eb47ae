package main

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"beepstream/internal/config"
	"beepstream/internal/logger"
	"beepstream/internal/watch"
)

func main() {
	cfgPath := os.Getenv("BEEP_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("BEEP_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reconciler := &watch.Reconciler{
		Beeper: &watch.BellBeeper{},
		Period: cfg.Watch.BeepPeriod,
		Logger: logger,
	}
	watcher := &watch.Watcher{Reconciler: reconciler, Logger: logger}
	stream := watch.NewStream(watch.StreamOptions{
		URL:    cfg.Watch.ServerURL,
		Logger: logger,
	})
	poller := &watch.Poller{
		BaseURL:    cfg.Watch.ServerURL,
		Interval:   cfg.Watch.PollInterval,
		HTTP:       &http.Client{Timeout: cfg.Watch.DialTimeout},
		Reconciler: reconciler,
		Logger:     logger,
	}

	go func() {
		if err := stream.Run(ctx, watcher.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("stream stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("poller stopped", zap.Error(err))
		}
	}()

	// Minimal operator console: "stop" silences the local alarm, "kill"
	// relays STOP to every other connected client.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
			case "stop":
				reconciler.StopAlarm()
				logger.Info("alarm silenced")
			case "kill":
				if err := stream.SendKillSwitch(ctx); err != nil {
					logger.Warn("kill switch failed", zap.Error(err))
				} else {
					logger.Info("kill switch sent")
				}
				reconciler.StopAlarm()
			}
		}
	}()

	logger.Info("watcher started",
		zap.String("server", cfg.Watch.ServerURL),
		zap.Duration("poll_interval", cfg.Watch.PollInterval),
	)

	<-ctx.Done()
	reconciler.StopAlarm()
	logger.Info("watcher stopped")
}
