// Function serverless serves the application behind API Gateway without custom metrics.
// Audio and form payloads are returned base64 encoded.
package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/UKHomeOffice/voiceinsight/internal/cache"
	"github.com/UKHomeOffice/voiceinsight/internal/client"
	"github.com/UKHomeOffice/voiceinsight/internal/config"
	"github.com/UKHomeOffice/voiceinsight/internal/health"
	"github.com/UKHomeOffice/voiceinsight/internal/logger"
	"github.com/UKHomeOffice/voiceinsight/pkg/app"
	"github.com/UKHomeOffice/voiceinsight/pkg/handler"
)

var h *handler.Handler

func init() {

	cfg, cerr := config.Load()
	log := logger.Must(cfg.LogLevel, false)
	if cerr != nil {
		log.Error("using default configuration", zap.Error(cerr))
	}

	cc := cache.NewConfig(cfg.CacheDir)
	cache.Setup(cc, log)

	var inf *client.Client
	if cfg.InferenceURL != "" {
		var err error
		inf, err = client.New(cfg.InferenceURL, cfg.InferenceTimeout)
		if err != nil {
			log.Error("inference backend disabled", zap.Error(err))
		}
	}

	info := health.Info{Environment: cfg.Environment, Version: cfg.Version}
	router := app.NewRouter(app.Options{
		Cache:     cc,
		Health:    info,
		Inference: inf,
		Logger:    log,
	})

	h = handler.New(router, cc,
		handler.WithLogger(log),
		handler.WithDebug(cfg.Debug()),
		handler.WithHealth(info),
		handler.WithBinaryMediaTypes(handler.DefaultBinaryMediaTypes...),
	)
}

func handle(ctx context.Context, event json.RawMessage) (handler.Response, error) {
	return h.Handle(ctx, event)
}

func main() {
	lambda.Start(handle)
}
