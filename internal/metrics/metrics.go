// Package metrics records invocation metrics to CloudWatch or Prometheus.
package metrics

import "context"

// Unit is a metric unit as understood by CloudWatch
type Unit string

// Units in use
const (
	Count        Unit = "Count"
	Milliseconds Unit = "Milliseconds"
	Megabytes    Unit = "Megabytes"
)

// Metric names
const (
	RequestStarted          = "RequestStarted"
	APISuccess              = "APISuccess"
	APIError                = "APIError"
	ProcessingTime          = "ProcessingTime"
	ErrorTime               = "ErrorTime"
	EmotionAnalysisRequests = "EmotionAnalysisRequests"
	SpeechToTextRequests    = "SpeechToTextRequests"
	WellnessRequests        = "WellnessRequests"
	HealthCheckRequests     = "HealthCheckRequests"
	MemoryLimit             = "MemoryLimit"
	RemainingTime           = "RemainingTime"
	HealthCheck             = "HealthCheck"
)

// Dimension names
const (
	DimMethod     = "Method"
	DimPath       = "Path"
	DimStatusCode = "StatusCode"
	DimSuccess    = "Success"
	DimErrorType  = "ErrorType"
)

// Datum is a single metric observation
type Datum struct {
	Name       string
	Value      float64
	Unit       Unit
	Dimensions map[string]string
}

// Recorder accepts metric observations.
// Implementations must not fail the caller: errors are handled internally.
type Recorder interface {
	Record(ctx context.Context, d Datum)
}

// Nop discards every observation
type Nop struct{}

// Record implements Recorder
func (Nop) Record(context.Context, Datum) {}
