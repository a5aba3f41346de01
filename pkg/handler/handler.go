// Package handler adapts API Gateway invocations to the HTTP application.
// It logs cache state, optionally records CloudWatch metrics around each request
// and turns any failure into a fixed 500 response.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"go.uber.org/zap"

	"github.com/UKHomeOffice/voiceinsight/internal/cache"
	"github.com/UKHomeOffice/voiceinsight/internal/health"
	"github.com/UKHomeOffice/voiceinsight/internal/metrics"
)

// DefaultBinaryMediaTypes are returned base64 encoded by the serverless deployment
var DefaultBinaryMediaTypes = []string{
	"audio/*",
	"application/octet-stream",
	"multipart/form-data",
}

// endpoints maps path substrings to their request counter, in match order
var endpoints = []struct {
	substrings []string
	metric     string
}{
	{[]string{"/emotion", "/process-audio"}, metrics.EmotionAnalysisRequests},
	{[]string{"/speech", "/transcribe"}, metrics.SpeechToTextRequests},
	{[]string{"/wellness"}, metrics.WellnessRequests},
	{[]string{"/health"}, metrics.HealthCheckRequests},
}

// Handler is the Lambda entry point wrapping an http.Handler
type Handler struct {
	v1 *httpadapter.HandlerAdapter
	v2 *httpadapter.HandlerAdapterV2

	cache       cache.Config
	info        health.Info
	metrics     metrics.Recorder
	log         *zap.Logger
	debug       bool
	binary      []string
	memoryLimit int
	now         func() time.Time
}

// Option configures a Handler
type Option func(*Handler)

// WithMetrics records invocation metrics to r
func WithMetrics(r metrics.Recorder) Option {
	return func(h *Handler) {
		if r != nil {
			h.metrics = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithDebug returns real error messages to callers
func WithDebug(on bool) Option {
	return func(h *Handler) { h.debug = on }
}

// WithBinaryMediaTypes base64 encodes response bodies of the given media types
func WithBinaryMediaTypes(types ...string) Option {
	return func(h *Handler) { h.binary = types }
}

// WithHealth sets the deployment details reported by HealthCheck
func WithHealth(info health.Info) Option {
	return func(h *Handler) { h.info = info }
}

// WithMemoryLimit overrides the memory limit read from the Lambda environment
func WithMemoryLimit(mb int) Option {
	return func(h *Handler) { h.memoryLimit = mb }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// New returns a Handler serving app
func New(app http.Handler, cc cache.Config, opts ...Option) *Handler {

	h := &Handler{
		v1:          httpadapter.New(app),
		v2:          httpadapter.NewV2(app),
		cache:       cc,
		metrics:     metrics.Nop{},
		log:         zap.NewNop(),
		memoryLimit: lambdacontext.MemoryLimitInMB,
		now:         time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Handle serves one invocation. The returned error is always nil: failures are
// reported to the caller as a 500 response.
func (h *Handler) Handle(ctx context.Context, event json.RawMessage) (Response, error) {

	inv := h.begin(ctx, event)

	h.log.Info("processing request",
		zap.String("request_id", inv.requestID),
		zap.String("method", inv.method),
		zap.String("path", inv.path),
		zap.Stringer("event", inv.kind),
	)
	h.logCacheStatus(inv)

	h.record(ctx, metrics.RequestStarted, 1, metrics.Count, map[string]string{
		metrics.DimMethod: inv.method,
		metrics.DimPath:   lastSegment(inv.path),
	})

	resp, err := h.delegate(ctx, inv, event)
	if err != nil {
		return h.fail(ctx, inv, err), nil
	}

	h.complete(ctx, inv, resp)
	return encodeBinary(resp, h.binary), nil
}

// HealthCheck reports the cache state without touching the application
func (h *Handler) HealthCheck(ctx context.Context) Response {

	h.record(ctx, metrics.HealthCheck, 1, metrics.Count, nil)

	body, err := json.Marshal(health.Build(h.info, h.cache, h.now()))
	if err != nil {
		h.log.Error("could not marshal health report", zap.Error(err))
		body = []byte(`{"status":"healthy"}`)
	}

	return Response{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}
}

func (h *Handler) begin(ctx context.Context, event []byte) invocation {
	inv := invocation{requestID: "unknown", start: h.now()}
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		inv.requestID = lc.AwsRequestID
	}
	inv.kind, inv.method, inv.path = classify(event)
	return inv
}

func (h *Handler) logCacheStatus(inv invocation) {
	for _, st := range cache.Status(h.cache.Probed()) {
		h.log.Info("cache directory status",
			zap.String("request_id", inv.requestID),
			zap.String("path", st.Path),
			zap.Bool("exists", st.Exists),
			zap.Bool("writable", st.Writable),
		)
	}
}

// delegate hands the event to the protocol adapter, recovering application panics
func (h *Handler) delegate(ctx context.Context, inv invocation, event []byte) (resp Response, err error) {

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	switch inv.kind {
	case kindREST:
		var req events.APIGatewayProxyRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return Response{}, fmt.Errorf("could not decode REST API event: %w", err)
		}
		res, err := h.v1.ProxyWithContext(ctx, req)
		if err != nil {
			return Response{}, fmt.Errorf("could not proxy request: %w", err)
		}
		return fromREST(res), nil
	case kindHTTP:
		var req events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return Response{}, fmt.Errorf("could not decode HTTP API event: %w", err)
		}
		res, err := h.v2.ProxyWithContext(ctx, req)
		if err != nil {
			return Response{}, fmt.Errorf("could not proxy request: %w", err)
		}
		return fromHTTP(res), nil
	case kindWarmup:
		return h.HealthCheck(ctx), nil
	default:
		return Response{}, fmt.Errorf("unsupported event")
	}
}

func (h *Handler) complete(ctx context.Context, inv invocation, resp Response) {

	elapsed := h.now().Sub(inv.start)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 400

	name := metrics.APIError
	if ok {
		name = metrics.APISuccess
	}
	h.record(ctx, name, 1, metrics.Count, map[string]string{
		metrics.DimMethod:     inv.method,
		metrics.DimStatusCode: strconv.Itoa(resp.StatusCode),
	})
	h.record(ctx, metrics.ProcessingTime, millis(elapsed), metrics.Milliseconds, map[string]string{
		metrics.DimMethod:  inv.method,
		metrics.DimSuccess: strconv.FormatBool(ok),
	})

	if ep := endpointMetric(inv.path); ep != "" {
		h.record(ctx, ep, 1, metrics.Count, nil)
	}
	if h.memoryLimit > 0 {
		h.record(ctx, metrics.MemoryLimit, float64(h.memoryLimit), metrics.Megabytes, nil)
	}
	if deadline, ok := ctx.Deadline(); ok {
		h.record(ctx, metrics.RemainingTime, millis(deadline.Sub(h.now())), metrics.Milliseconds, nil)
	}

	h.log.Info("request completed",
		zap.String("request_id", inv.requestID),
		zap.Int("status", resp.StatusCode),
		zap.Float64("elapsed_ms", millis(elapsed)),
	)
}

func (h *Handler) fail(ctx context.Context, inv invocation, err error) Response {

	diag := newDiagnostic(inv, err, h.now().Sub(inv.start), h.cache)

	h.record(ctx, metrics.APIError, 1, metrics.Count, map[string]string{
		metrics.DimMethod:    inv.method,
		metrics.DimErrorType: diag.ErrorType,
	})
	h.record(ctx, metrics.ErrorTime, millis(diag.Elapsed), metrics.Milliseconds, nil)

	diag.log(h.log)
	return errorResponse(diag.RequestID, diag.Err, h.debug)
}

// record never fails the request, a misbehaving recorder is logged and ignored
func (h *Handler) record(ctx context.Context, name string, v float64, u metrics.Unit, dims map[string]string) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("metric recorder panicked", zap.String("metric", name), zap.Any("panic", r))
		}
	}()
	h.metrics.Record(ctx, metrics.Datum{Name: name, Value: v, Unit: u, Dimensions: dims})
}
