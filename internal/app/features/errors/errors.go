// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/playtweet/internal/app/system/apierror"
	"github.com/dalemusser/playtweet/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

// ErrorLogger wraps the zap logger for error logging.
type ErrorLogger struct {
	logger *zap.Logger
}

// NewErrorLogger creates a new ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{logger: logger}
}

// LogWithFields logs an error with additional fields.
func (e *ErrorLogger) LogWithFields(r *http.Request, msg string, err error, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	}, fields...)
	e.logger.Error(msg, allFields...)
}

// Respond writes err as the JSON failure envelope. Errors that are not an
// *apierror.Error become a generic 500. Server-side failures are logged with
// the wrapped cause, which is never written to the client.
func (e *ErrorLogger) Respond(w http.ResponseWriter, r *http.Request, err error) {
	ae := apierror.From(err)
	if ae == nil {
		return
	}
	if ae.Internal() {
		e.LogWithFields(r, "request failed", ae, zap.Int("status", ae.Status))
	}
	jsonutil.Error(w, ae.Status, ae.Message, ae.Errors...)
}

// Handler provides the JSON catch-all handlers.
type Handler struct{}

// NewHandler creates a new error Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound renders the 404 envelope for unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	jsonutil.NotFound(w, "Route "+r.URL.Path+" not found")
}

// MethodNotAllowed renders the 405 envelope.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	jsonutil.Error(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed on "+r.URL.Path)
}
