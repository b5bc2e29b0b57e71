package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/TharinduDesh/incidenthub/internal/config"
	"github.com/TharinduDesh/incidenthub/internal/db"
	"github.com/TharinduDesh/incidenthub/internal/notifications"
	"github.com/TharinduDesh/incidenthub/internal/observability"
	"github.com/TharinduDesh/incidenthub/internal/queue/worker"
	"github.com/TharinduDesh/incidenthub/internal/repo/postgres"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "incidenthub-worker", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		cctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(cctx)
	}()

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	prom := observability.NewProm()
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	// Real SMTP when configured, the logging stub otherwise. Either
	// way the circuit breaker sits in front.
	var sink notifications.Notifier
	if cfg.SMTPHost != "" {
		sink = notifications.NewSMTPNotifier(notifications.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
		})
		log.Info("notifier: smtp", "host", cfg.SMTPHost)
	} else {
		sink = notifications.NewLogNotifier()
		log.Info("notifier: log stub")
	}
	notifier := notifications.NewProtectedNotifier(sink, notifications.ProtectedNotifierConfig{})

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  100 * time.Millisecond,
		WorkerID:      workerID,
		Concurrency:   4,
		ShutdownGrace: 10 * time.Second,
	}, jobsRepo, notifier, prom, log)

	healthSrv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port+1),
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
