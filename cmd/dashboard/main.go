package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"support-insights-go/internal/backend"
	"support-insights-go/internal/config"
	"support-insights-go/internal/dashboard"
	"support-insights-go/internal/logger"
	"support-insights-go/internal/metrics"
	"support-insights-go/internal/scoring"
	"support-insights-go/internal/transcription"
	"support-insights-go/internal/web"
)

func main() {
	_ = godotenv.Load() // loads .env

	cfg := config.Load()
	log := logger.NewWithOptions(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
	log.WithField("service", "support-dashboard").Info("starting service")

	m := metrics.New()
	caller := backend.NewCaller(&http.Client{}, backend.WithMetrics(m), backend.WithLogger(log.Component("backend")))
	transcripts := transcription.New(cfg.AudioServiceURL, cfg.TextServiceURL, caller)
	scores := scoring.New(cfg.ScoringServiceURL, caller)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the dashboard still starts when a backend is down; panels degrade
	hosts := transcripts.Hosts()
	hosts["scoring"] = scores.Base()
	var probes []web.Probe
	for name, base := range hosts {
		probes = append(probes, web.Probe{Name: name, Check: func(ctx context.Context) error { return caller.Ping(ctx, base) }})
		if err := caller.WaitReachable(ctx, name, base, cfg.ProbeMaxElapsed); err != nil {
			log.WithError(err).WithField("backend", name).Warn("backend not reachable yet")
			continue
		}
		log.WithField("backend", name).WithField("url", base).Info("backend reachable")
	}

	hub := web.NewHub(log, m)
	go hub.Run(ctx)

	sessions := dashboard.NewManager(dashboard.Backends{
		Ingest:      transcripts,
		Analyzer:    scores,
		Transcripts: transcripts,
		Summaries:   transcripts,
		Scores:      scores,
	}, dashboard.Settings{
		Log:            log,
		Metrics:        m,
		FetchTimeout:   cfg.FetchTimeout,
		UploadTimeout:  cfg.UploadTimeout,
		AnalyzeTimeout: cfg.AnalyzeTimeout,
	}, cfg.SessionTTL, hub.Notify)
	go sessions.Run(ctx, time.Minute)

	server := web.NewServer(sessions, hub, web.Options{
		Log:            log,
		Metrics:        m,
		MaxUploadBytes: cfg.MaxUploadBytes,
		SecureCookie:   cfg.Environment != "local",
		Probes:         probes,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	// uploads wait for transcription before answering
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       cfg.UploadTimeout,
		WriteTimeout:      cfg.UploadTimeout + cfg.FetchTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
	sessions.CloseAll()
}
