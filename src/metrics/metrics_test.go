package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notes-app/src/metrics"

	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestObserveRemoteCall(t *testing.T) {
	metrics.ObserveRemoteCall("storage", "metrics_test_put", time.Now(), nil)
	metrics.ObserveRemoteCall("storage", "metrics_test_put", time.Now(), errors.New("denied"))

	// 成功と失敗で別の系列になる
	body := scrape(t)
	assert.Contains(t, body, `notes_app_remote_calls_total{operation="metrics_test_put",service="storage",success="true"} 1`)
	assert.Contains(t, body, `notes_app_remote_calls_total{operation="metrics_test_put",service="storage",success="false"} 1`)
	assert.Contains(t, body, `notes_app_remote_call_duration_seconds_count{operation="metrics_test_put",service="storage"} 2`)
}

func TestRecordHTTPRequest(t *testing.T) {
	metrics.RecordHTTPRequest(http.MethodGet, "/health", http.StatusOK, 5*time.Millisecond)
	metrics.RecordHTTPRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)
	metrics.SetPublishedNotes(3)

	body := scrape(t)
	assert.Contains(t, body, `notes_app_http_requests_total{method="GET",path="/health",status="200"}`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.Contains(t, body, "notes_app_notes_last_published_count 3")
}
