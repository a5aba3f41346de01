package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/UKHomeOffice/voiceinsight/internal/cache"
	"github.com/UKHomeOffice/voiceinsight/internal/client"
	"github.com/UKHomeOffice/voiceinsight/internal/health"
	"github.com/UKHomeOffice/voiceinsight/internal/metrics"
)

type mockRecorder struct {
	mu   sync.Mutex
	data []metrics.Datum
}

func (m *mockRecorder) Record(_ context.Context, d metrics.Datum) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append(m.data, d)
}

func TestHealth(t *testing.T) {

	for _, path := range []string{"/health", "/api/health"} {
		t.Run(path, func(t *testing.T) {

			rec := &mockRecorder{}
			c := cache.NewConfig(filepath.Join(t.TempDir(), ".cache"))
			h := NewRouter(Options{
				Cache:   c,
				Health:  health.Info{Environment: "test", Version: "9.9.9"},
				Metrics: rec,
				Logger:  zaptest.NewLogger(t),
				Now:     func() time.Time { return time.Unix(1700000000, 0) },
			})

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var rep health.Report
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
			assert.Equal(t, "healthy", rep.Status)
			assert.Equal(t, "test", rep.Environment)
			assert.Equal(t, "9.9.9", rep.Version)
			assert.Len(t, rep.CacheDirectories, 3)

			require.Len(t, rec.data, 1)
			assert.Equal(t, metrics.HealthCheck, rec.data[0].Name)
		})
	}
}

func TestForward(t *testing.T) {

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/detect-language" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"detail":"no speech"}`))
			return
		}
		w.Write([]byte(`{"path":"` + r.URL.Path + `","query":"` + r.URL.RawQuery + `","size":` + strconv.Itoa(len(body)) + `}`))
	}))
	defer upstream.Close()

	cl, err := client.New(upstream.URL, 5*time.Second)
	require.NoError(t, err)

	tt := []struct {
		name   string
		method string
		target string
		body   string
		status int
		want   string
	}{
		{name: "process audio", method: http.MethodPost, target: "/api/process-audio?auto_detect=true",
			body: "RIFF", status: http.StatusOK, want: `{"path":"/api/process-audio","query":"auto_detect=true","size":4}`},
		{name: "supported emotions", method: http.MethodGet, target: "/api/supported-emotions",
			status: http.StatusOK, want: `{"path":"/api/supported-emotions","query":"","size":0}`},
		{name: "upstream status", method: http.MethodPost, target: "/api/detect-language",
			status: http.StatusUnprocessableEntity, want: `{"detail":"no speech"}`},
	}

	h := NewRouter(Options{Inference: cl, Logger: zaptest.NewLogger(t)})

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
			r.Header.Set("Content-Type", "audio/wav")
			h.ServeHTTP(w, r)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.want, w.Body.String())
		})
	}
}

func TestForwardUnavailable(t *testing.T) {

	down := httptest.NewServer(http.NotFoundHandler())
	cl, err := client.New(down.URL, time.Second)
	require.NoError(t, err)
	down.Close()

	tt := []struct {
		name   string
		opts   Options
		status int
	}{
		{name: "not configured", opts: Options{}, status: http.StatusServiceUnavailable},
		{name: "unreachable", opts: Options{Inference: cl}, status: http.StatusBadGateway},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewRouter(tc.opts).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/model-info", nil))

			assert.Equal(t, tc.status, w.Code)
			var d detail
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
			assert.NotEmpty(t, d.Detail)
		})
	}
}
