// Function api serves the application behind API Gateway and records CloudWatch metrics for every request.
package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
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

var h *handler.Handler

func init() {

	cfg, cerr := config.Load()
	log := logger.Must(cfg.LogLevel, false)
	if cerr != nil {
		log.Error("using default configuration", zap.Error(cerr))
	}

	// the cache layout must exist before anything reads the model paths
	cc := cache.NewConfig(cfg.CacheDir)
	cache.Setup(cc, log)

	var cw metrics.Putter
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Region))
	if err != nil {
		log.Error("could not load AWS config, metrics disabled", zap.Error(err))
	} else {
		cw = cloudwatch.NewFromConfig(awsCfg)
		log.Info("cloudwatch client initialised")
	}
	rec := metrics.NewCloudWatch(cw, cfg.MetricsNamespace, log)

	var inf *client.Client
	if cfg.InferenceURL != "" {
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
		Metrics:   rec,
		Logger:    log,
		Now:       time.Now,
	})

	h = handler.New(router, cc,
		handler.WithMetrics(rec),
		handler.WithLogger(log),
		handler.WithDebug(cfg.Debug()),
		handler.WithHealth(info),
	)
}

func handle(ctx context.Context, event json.RawMessage) (handler.Response, error) {
	return h.Handle(ctx, event)
}

func main() {
	lambda.Start(handle)
}
