package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/backoffice/internal/metrics"
	pkghttp "github.com/BradenHooton/backoffice/pkg/http"
)

func TestSecureLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	m := metrics.NewMetrics(prometheus.NewRegistry())

	router := chi.NewRouter()
	router.Use(SecureLogger(logger, pkghttp.NewIPConfig([]string{"10.0.0.0/8"}), m))
	router.Post("/api/auth/reset-password/{resetToken}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/reset-password/supersecret?token=abc", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.NotContains(t, buf.String(), "supersecret")
	assert.NotContains(t, buf.String(), "abc")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http_request", entry["msg"])
	assert.Equal(t, "/api/auth/reset-password/[REDACTED]?[REDACTED]", entry["path"])
	assert.Equal(t, float64(400), entry["status"])
	assert.Equal(t, "203.0.113.9", entry["client_ip"])

	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequests, "backoffice_http_request_duration_seconds"))
}
