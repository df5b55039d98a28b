package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTimeout_Expires(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: 20 * time.Millisecond})

	err := to.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestTimeout_PassesResult(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: time.Second})
	if err := to.Execute(context.Background(), func(context.Context) error { return errUpstream }); !errors.Is(err, errUpstream) {
		t.Fatalf("err = %v, want errUpstream", err)
	}
}
