package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {

	tt := []struct {
		name  string
		env   map[string]string
		debug bool
		want  func(c *Config)
		err   string
	}{
		{name: "defaults", env: map[string]string{}},
		{name: "debug", env: map[string]string{"DEBUG": "yes"}, debug: true,
			want: func(c *Config) { c.DebugFlag = "yes" }},
		{name: "overrides", env: map[string]string{
			"ENVIRONMENT":       "production",
			"CACHE_DIR":         "/mnt/cache",
			"INFERENCE_URL":     "http://inference.local",
			"INFERENCE_TIMEOUT": "5s",
			"METRICS_NAMESPACE": "VoiceInsightDev",
		}, want: func(c *Config) {
			c.Environment = "production"
			c.CacheDir = "/mnt/cache"
			c.InferenceURL = "http://inference.local"
			c.InferenceTimeout = 5 * time.Second
			c.MetricsNamespace = "VoiceInsightDev"
		}},
		{name: "unhappy", env: map[string]string{"INFERENCE_TIMEOUT": "soon"}, err: "could not parse environment"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {

			for _, k := range []string{"DEBUG", "ENVIRONMENT", "APP_VERSION", "CACHE_DIR", "METRICS_NAMESPACE",
				"AWS_REGION", "INFERENCE_URL", "INFERENCE_TIMEOUT", "LOG_LEVEL", "LISTEN_ADDR"} {
				t.Setenv(k, "")
				os.Unsetenv(k)
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			c, err := Load()
			if tc.err != "" {
				if err == nil || !strings.Contains(err.Error(), tc.err) {
					t.Fatalf("expected error %q, got: %v", tc.err, err)
				}
				if diff := cmp.Diff(Default(), c); diff != "" {
					t.Errorf("expected defaults on error (-want +got):\n%s", diff)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := Default()
			if tc.want != nil {
				tc.want(&want)
			}
			if diff := cmp.Diff(want, c); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
			if c.Debug() != tc.debug {
				t.Errorf("expected debug %v, got %v", tc.debug, c.Debug())
			}
		})
	}
}
