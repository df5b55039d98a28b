package server

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jonwraymond/pinog/observe"
)

const requestIDHeader = "X-Request-ID"

// requestID propagates X-Request-ID, minting a UUID when absent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(observe.ContextWithRequestID(r.Context(), id)))
	})
}

func accessLog(logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []observe.Field{
				{Key: "method", Value: r.Method},
				{Key: "path", Value: r.URL.Path},
				{Key: "status", Value: ww.Status()},
				{Key: "bytes", Value: ww.BytesWritten()},
				{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
				{Key: "remote_ip", Value: r.RemoteAddr},
			}
			if xc := ww.Header().Get("X-Cache"); xc != "" {
				fields = append(fields, observe.Field{Key: "cache", Value: xc})
			}
			if ww.Status() >= http.StatusInternalServerError {
				logger.Warn(r.Context(), "request failed", fields...)
				return
			}
			logger.Info(r.Context(), "request", fields...)
		})
	}
}
