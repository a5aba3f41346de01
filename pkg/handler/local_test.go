package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UKHomeOffice/voiceinsight/internal/metrics"
)

func TestServeHTTP(t *testing.T) {

	rec := &mockRecorder{}
	srv := httptest.NewServer(newTestHandler(t, rec))
	defer srv.Close()

	res, err := http.Post(srv.URL+"/api/transcribe?language=en", "application/json", strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(body))
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	assert.Len(t, rec.find(metrics.SpeechToTextRequests), 1)
}

func TestServeHTTPFailure(t *testing.T) {

	h := newTestHandler(t, nil, WithDebug(true))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/boom", bytes.NewReader([]byte{0xff, 0xfe, 0x00})))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	var eb errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &eb))
	assert.Equal(t, "panic: model weights missing", eb.Message)
	_, err := uuid.Parse(eb.RequestID)
	assert.NoError(t, err, "request id should be a uuid")
}

func TestServeHTTPBinary(t *testing.T) {

	h := newTestHandler(t, nil, WithBinaryMediaTypes(DefaultBinaryMediaTypes...))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/audio", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
	assert.Equal(t, "RIFFdata", w.Body.String())
}
