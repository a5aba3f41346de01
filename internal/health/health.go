// Package health builds the health report returned by the health endpoints.
package health

import (
	"os"
	"time"

	"github.com/UKHomeOffice/voiceinsight/internal/cache"
)

// reported are the cache variables echoed back in the report
var reported = []string{"WHISPER_CACHE", "TRANSFORMERS_CACHE", "HF_HOME", "TORCH_HOME"}

// Info identifies the running deployment
type Info struct {
	Environment string
	Version     string
}

// Report is the health check body
type Report struct {
	Status               string                     `json:"status"`
	Timestamp            float64                    `json:"timestamp"`
	Environment          string                     `json:"environment"`
	Version              string                     `json:"version"`
	CacheDirectories     map[string]cache.DirStatus `json:"cache_directories"`
	EnvironmentVariables map[string]string          `json:"environment_variables"`
}

// Build inspects the probed cache directories and the exported cache variables
func Build(info Info, c cache.Config, now time.Time) Report {

	r := Report{
		Status:               "healthy",
		Timestamp:            float64(now.UnixNano()) / float64(time.Second),
		Environment:          info.Environment,
		Version:              info.Version,
		CacheDirectories:     make(map[string]cache.DirStatus),
		EnvironmentVariables: make(map[string]string, len(reported)),
	}
	if r.Environment == "" {
		r.Environment = "development"
	}
	if r.Version == "" {
		r.Version = "1.0.0"
	}

	for _, st := range cache.Status(c.Probed()) {
		r.CacheDirectories[st.Path] = st
	}
	for _, k := range reported {
		v, ok := os.LookupEnv(k)
		if !ok {
			v = "not set"
		}
		r.EnvironmentVariables[k] = v
	}
	return r
}
