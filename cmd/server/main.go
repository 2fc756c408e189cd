package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auditchat/internal/analyzer/activity"
	"auditchat/internal/analyzer/anomaly"
	"auditchat/internal/analyzer/security"
	"auditchat/internal/auditapi"
	"auditchat/internal/bot"
	"auditchat/internal/eventtypes"
	"auditchat/internal/nlp/entity"
	"auditchat/internal/nlp/intent"
	"auditchat/internal/platform/config"
	"auditchat/internal/platform/httpserver"
	"auditchat/internal/platform/logger"
	"auditchat/internal/platform/metrics"
	httptransport "auditchat/internal/transport/http"
	"auditchat/internal/users"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	m := metrics.New()
	loc := cfg.BusinessLocation()
	tables := eventtypes.Default()

	client, err := auditapi.New(cfg.APIBaseURL, cfg.APIToken, cfg.OrgID,
		auditapi.WithLogger(log),
		auditapi.WithMetrics(m),
		auditapi.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		auditapi.WithRetryPolicy(cfg.RetryMaxAttempts, cfg.RetryBaseDelay))
	if err != nil {
		return fmt.Errorf("audit api client: %w", err)
	}

	userSvc, err := users.New(client, cfg.OrgID,
		users.WithLogger(log),
		users.WithMetrics(m),
		users.WithCache(cfg.UserCacheSize, cfg.UserCacheTTL))
	if err != nil {
		return fmt.Errorf("users service: %w", err)
	}

	securityAnalyzer, err := security.New(tables)
	if err != nil {
		return fmt.Errorf("security analyzer: %w", err)
	}
	activityAnalyzer, err := activity.New(userSvc, activity.WithLogger(log))
	if err != nil {
		return fmt.Errorf("activity analyzer: %w", err)
	}

	anomalyCfg := anomaly.DefaultConfig()
	anomalyCfg.BusinessStartHour = cfg.BusinessStartHour
	anomalyCfg.BusinessEndHour = cfg.BusinessEndHour
	anomalyCfg.Location = loc
	detector, err := anomaly.New(tables, anomalyCfg)
	if err != nil {
		return fmt.Errorf("anomaly detector: %w", err)
	}

	botSvc, err := bot.New(client, intent.New(), entity.New(), userSvc,
		securityAnalyzer, activityAnalyzer, detector, tables,
		bot.WithLogger(log),
		bot.WithMetrics(m),
		bot.WithLocation(loc),
		bot.WithBusinessHours(cfg.BusinessStartHour, cfg.BusinessEndHour))
	if err != nil {
		return fmt.Errorf("bot service: %w", err)
	}

	handler := httptransport.NewHandler(botSvc, log)
	router := httptransport.NewRouter(handler, cfg.WebhookSecret, log)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting auditchat", "addr", cfg.Addr, "business_tz", cfg.BusinessTZ)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
