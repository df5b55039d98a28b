package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusHealthy:   "healthy",
		StatusDegraded:  "degraded",
		StatusUnhealthy: "unhealthy",
		Status(9):       "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestCheckFunc(t *testing.T) {
	boom := errors.New("boom")
	c := CheckFunc("store", func(context.Context) Result {
		return Degraded("slow", boom).With(map[string]any{"latency_ms": 900})
	})
	if c.Name() != "store" {
		t.Errorf("Name() = %q", c.Name())
	}
	r := c.Check(context.Background())
	if r.Status != StatusDegraded || r.Message != "slow" || !errors.Is(r.Err, boom) {
		t.Errorf("Check() = %+v", r)
	}
	if r.Details["latency_ms"] != 900 {
		t.Errorf("Details = %v", r.Details)
	}
}
