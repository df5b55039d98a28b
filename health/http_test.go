package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
)

func TestHandlers(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register(static("redis", Degraded("redis unreachable", errors.New("dial tcp"))))

	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"status\":\"ok\"}\n" {
		t.Errorf("liveness = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	ReadinessHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("readiness code = %d, degraded must stay ready", rec.Code)
	}

	rec = httptest.NewRecorder()
	DetailedHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" || resp.Checks["redis"].Error != "dial tcp" {
		t.Errorf("detailed = %+v", resp)
	}

	agg.Register(static("memory", Unhealthy("heap at 99%", ErrThreshold)))
	rec = httptest.NewRecorder()
	ReadinessHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness code = %d, want 503", rec.Code)
	}
}
