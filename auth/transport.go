package auth

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/jonwraymond/pinog/observe"
)

// RequireAuth is HTTP middleware that rejects requests the authenticator
// does not accept with 401. A nil authenticator lets every request through.
func RequireAuth(a Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		if a == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			res, err := a.Authenticate(ctx, r.Header)
			if err != nil {
				logger.Error(ctx, "authentication error", observe.Err(err))
				writeUnauthorized(w, http.StatusInternalServerError, "authentication unavailable")
				return
			}
			if !res.Authenticated {
				logger.Info(ctx, "preview request rejected",
					observe.Field{Key: "method", Value: string(res.Method)},
					observe.Err(res.Error),
				)
				writeUnauthorized(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, res.Identity)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="pinog"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
