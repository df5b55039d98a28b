package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// HTTPService runs an http.Server under a suture supervisor.
type HTTPService struct {
	srv             *http.Server
	shutdownTimeout time.Duration

	// listen is overridable so tests can bind an ephemeral port.
	listen func() (net.Listener, error)
}

// NewHTTPService wraps srv. Shutdown waits up to shutdownTimeout for
// in-flight requests.
func NewHTTPService(srv *http.Server, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{
		srv:             srv,
		shutdownTimeout: shutdownTimeout,
		listen:          func() (net.Listener, error) { return net.Listen("tcp", srv.Addr) },
	}
}

// Serve implements suture.Service.
func (h *HTTPService) Serve(ctx context.Context) error {
	ln, err := h.listen()
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", h.srv.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		err := h.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.shutdownTimeout)
		defer cancel()
		if err := h.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		<-errCh
		return suture.ErrDoNotRestart
	}
}

func (h *HTTPService) String() string { return "http-server" }

// NewSupervisor returns the root supervisor with supervisor events logged
// through logger.
func NewSupervisor(logger *slog.Logger, shutdownTimeout time.Duration) *suture.Supervisor {
	hook := (&sutureslog.Handler{Logger: logger}).MustHook()
	return suture.New("pinog", suture.Spec{
		EventHook:        hook,
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          shutdownTimeout,
	})
}
