package handler

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/UKHomeOffice/voiceinsight/internal/cache"
)

// PanicError wraps a value recovered from the application
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a panicked error value
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// errorType names the concrete type of err for the ErrorType dimension, looking through
// fmt wrappers. Recovered panics are always reported as PanicError.
func errorType(err error) string {
	var pe *PanicError
	if errors.As(err, &pe) {
		return "PanicError"
	}
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil || !fmtWrapper(err) {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	if t == nil {
		return "unknown"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// fmtWrapper reports whether err only adds context via fmt.Errorf's %w
func fmtWrapper(err error) bool {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() == "fmt"
}

// invocation is the transient record of one request
type invocation struct {
	requestID string
	kind      eventKind
	method    string
	path      string
	start     time.Time
}

// Diagnostic describes a failed invocation
type Diagnostic struct {
	RequestID string
	Method    string
	Path      string
	ErrorType string
	Err       error
	Elapsed   time.Duration
	Listings  []cache.Listing
}

func newDiagnostic(inv invocation, err error, elapsed time.Duration, cc cache.Config) Diagnostic {
	return Diagnostic{
		RequestID: inv.requestID,
		Method:    inv.method,
		Path:      inv.path,
		ErrorType: errorType(err),
		Err:       err,
		Elapsed:   elapsed,
		Listings:  cache.List(cc.Inspected()),
	}
}

// log writes the diagnostic with the cache state that usually explains model load failures
func (d Diagnostic) log(log *zap.Logger) {

	log.Error("request failed",
		zap.String("request_id", d.RequestID),
		zap.String("method", d.Method),
		zap.String("path", d.Path),
		zap.String("error_type", d.ErrorType),
		zap.Float64("elapsed_ms", millis(d.Elapsed)),
		zap.Error(d.Err),
	)

	for _, l := range d.Listings {
		switch {
		case l.Err != nil:
			log.Error("could not list cache directory", zap.String("path", l.Path), zap.Error(l.Err))
		case !l.Exists:
			log.Error("cache directory does not exist", zap.String("path", l.Path))
		default:
			log.Error("cache directory contents", zap.String("path", l.Path), zap.Strings("entries", l.Entries))
		}
	}

	vars := make([]zap.Field, 0, 4)
	for _, k := range []string{"WHISPER_CACHE", "TRANSFORMERS_CACHE", "HF_HOME", "TORCH_HOME"} {
		v, ok := os.LookupEnv(k)
		if !ok {
			v = "not set"
		}
		vars = append(vars, zap.String(k, v))
	}
	log.Error("cache environment", vars...)

	var pe *PanicError
	if errors.As(d.Err, &pe) {
		log.Error("recovered panic", zap.ByteString("stack", pe.Stack))
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
