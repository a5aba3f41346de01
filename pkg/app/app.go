// Package app is the HTTP application served behind the Lambda adapters.
// Health is answered locally, everything else under /api is relayed to the inference backend.
package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/UKHomeOffice/voiceinsight/internal/cache"
	"github.com/UKHomeOffice/voiceinsight/internal/caller"
	"github.com/UKHomeOffice/voiceinsight/internal/client"
	"github.com/UKHomeOffice/voiceinsight/internal/health"
	"github.com/UKHomeOffice/voiceinsight/internal/metrics"
)

// Options configure the application
type Options struct {
	Cache     cache.Config
	Health    health.Info
	Inference *client.Client
	Metrics   metrics.Recorder
	Logger    *zap.Logger
	Now       func() time.Time
}

type server struct {
	opts Options
}

// NewRouter returns the application handler
func NewRouter(opts Options) http.Handler {

	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &server{opts: opts}

	r := chi.NewRouter()
	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Handle("/*", http.HandlerFunc(s.forward))
	})
	return r
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	s.opts.Metrics.Record(r.Context(), metrics.Datum{Name: metrics.HealthCheck, Value: 1, Unit: metrics.Count})
	writeJSON(w, http.StatusOK, health.Build(s.opts.Health, s.opts.Cache, s.opts.Now()))
}

func (s *server) forward(w http.ResponseWriter, r *http.Request) {

	if s.opts.Inference == nil {
		writeJSON(w, http.StatusServiceUnavailable, detail{Detail: "inference backend not configured"})
		return
	}

	rep, err := caller.Call(r.Context(), s.opts.Inference, r)
	if err != nil {
		s.opts.Logger.Error("could not relay request", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, detail{Detail: "inference backend unavailable"})
		return
	}

	if rep.ContentType != "" {
		w.Header().Set("Content-Type", rep.ContentType)
	}
	w.WriteHeader(rep.StatusCode)
	w.Write(rep.Body)
}

// detail mirrors the error shape the frontend reads
type detail struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
