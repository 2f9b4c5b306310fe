package recovery

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"

	"github.com/fosterlabs/blink-engine/shared/logging"
)

// PanicHandler converts handler panics into 500 responses instead of
// tearing down the connection.
type PanicHandler struct {
	logger   *logging.Logger
	logStack bool
}

// Option configures PanicHandler
type Option func(*PanicHandler)

// WithStackLogging enables stack trace logging
func WithStackLogging(enabled bool) Option {
	return func(ph *PanicHandler) {
		ph.logStack = enabled
	}
}

// NewPanicHandler creates a new panic handler
func NewPanicHandler(logger *logging.Logger, opts ...Option) *PanicHandler {
	ph := &PanicHandler{
		logger:   logger,
		logStack: true,
	}
	for _, opt := range opts {
		opt(ph)
	}
	return ph
}

// Middleware wraps an HTTP handler with panic recovery.
func (ph *PanicHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				ph.handlePanic(recovered, r)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"message":"internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (ph *PanicHandler) handlePanic(recovered interface{}, r *http.Request) {
	err := fmt.Errorf("panic: %v", recovered)

	event := ph.logger.WithError(err).
		WithField("method", r.Method).
		WithField("path", r.URL.Path)
	if ph.logStack {
		event = event.WithField("stack", string(debug.Stack()))
	}
	event.Error("recovered from panic")

	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("path", r.URL.Path)
			hub.Recover(recovered)
		})
	}
}
