// Command local runs the Lambda handler as a plain HTTP server with Prometheus metrics on /metrics.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/UKHomeOffice/voiceinsight/internal/cache"
	"github.com/UKHomeOffice/voiceinsight/internal/client"
	"github.com/UKHomeOffice/voiceinsight/internal/config"
	"github.com/UKHomeOffice/voiceinsight/internal/health"
	"github.com/UKHomeOffice/voiceinsight/internal/logger"
	"github.com/UKHomeOffice/voiceinsight/internal/metrics"
	"github.com/UKHomeOffice/voiceinsight/pkg/app"
	"github.com/UKHomeOffice/voiceinsight/pkg/handler"
)

func main() {

	// a missing .env is fine, the real environment still applies
	_ = godotenv.Load()

	cfg, cerr := config.Load()
	log := logger.Must(cfg.LogLevel, true)
	defer log.Sync()
	if cerr != nil {
		log.Error("using default configuration", zap.Error(cerr))
	}

	cc := cache.NewConfig(cfg.CacheDir)
	cache.Setup(cc, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewPrometheus(reg, cfg.MetricsNamespace, log)

	var inf *client.Client
	if cfg.InferenceURL != "" {
		var err error
		inf, err = client.New(cfg.InferenceURL, cfg.InferenceTimeout)
		if err != nil {
			log.Error("inference backend disabled", zap.Error(err))
		}
	}

	info := health.Info{Environment: cfg.Environment, Version: cfg.Version}
	h := handler.New(
		app.NewRouter(app.Options{Cache: cc, Health: info, Inference: inf, Metrics: rec, Logger: log}),
		cc,
		handler.WithMetrics(rec),
		handler.WithLogger(log),
		handler.WithDebug(cfg.Debug()),
		handler.WithHealth(info),
		handler.WithBinaryMediaTypes(handler.DefaultBinaryMediaTypes...),
	)

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Handle("/*", h)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		log.Error("could not shut down cleanly", zap.Error(err))
	}
}
