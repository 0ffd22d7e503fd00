package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/curiouscoder/blogcms/internal/telemetry/metrics"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

// PanicRecovery turns a handler panic into a 500, and reports it to Sentry
// when Sentry is set up. http.ErrAbortHandler is passed on to net/http.
func PanicRecovery(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(respWriter http.ResponseWriter, req *http.Request) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(r)
				}

				log.Errorf("http: panic serving [%s] %s: %v\n%s", req.Method, req.URL.Path, r, debug.Stack())
				sentry.CurrentHub().RecoverWithContext(req.Context(), r)
				if metricsManager != nil {
					metricsManager.CounterHandleRequestPanic.Inc()
				}
				http.Error(respWriter, "internal server error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(respWriter, req)
		})
	}
}
