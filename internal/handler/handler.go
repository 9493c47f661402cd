package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/artiefy/course-actions/internal/models"
	"github.com/artiefy/course-actions/pkg/logger"
)

// maxEventSize caps the size of an invocation event
const maxEventSize = 1 << 20

// Invoker handles one raw invocation event and always returns an envelope
type Invoker interface {
	Handle(ctx context.Context, payload []byte) *models.ResponseEnvelope
}

// ActionHandler exposes the action adapter over HTTP
type ActionHandler struct {
	invoker Invoker
	log     *zap.Logger
}

// NewActionHandler creates a new action handler
func NewActionHandler(invoker Invoker, log *zap.Logger) *ActionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActionHandler{
		invoker: invoker,
		log:     log,
	}
}

// ServeHTTP handles all HTTP requests
func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	traceID := extractTraceID(r)
	if traceID == "" {
		traceID = generateTraceID()
	}

	r = r.WithContext(logger.ContextWithTraceID(r.Context(), traceID))

	log := h.log.With(zap.String("trace_id", traceID))
	log.Info("request received",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote_addr", r.RemoteAddr),
	)

	w.Header().Set("X-Trace-ID", traceID)

	switch r.URL.Path {
	case "/health":
		h.handleHealth(w, r, log)
	case "/invoke":
		h.handleInvoke(w, r, log)
	default:
		h.handleError(w, r, http.StatusNotFound, "not_found", "Endpoint not found", log)
	}

	log.Info("request completed",
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
}

// handleHealth handles health check requests
func (h *ActionHandler) handleHealth(w http.ResponseWriter, r *http.Request, log *zap.Logger) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// handleInvoke runs one invocation event. The transport status is always 200;
// the outcome travels in the envelope's httpStatusCode.
func (h *ActionHandler) handleInvoke(w http.ResponseWriter, r *http.Request, log *zap.Logger) {
	if r.Method != http.MethodPost {
		h.handleError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST method is allowed", log)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.handleError(w, r, http.StatusRequestEntityTooLarge, "request_too_large",
				fmt.Sprintf("Event exceeds %d bytes", tooLarge.Limit), log)
			return
		}
		h.handleError(w, r, http.StatusBadRequest, "read_error", "Failed to read request body", log)
		return
	}
	defer r.Body.Close()

	log.Debug("raw invocation event", zap.String("body", string(body)))

	env := h.invoker.Handle(r.Context(), body)

	log.Info("invocation handled",
		zap.String("action_group", env.Response.ActionGroup),
		zap.Int("http_status_code", env.Response.HTTPStatusCode),
	)

	writeJSON(w, http.StatusOK, env)
}

// handleError writes an HTTP-level error outside the envelope contract
func (h *ActionHandler) handleError(w http.ResponseWriter, r *http.Request, status int, errType, message string, log *zap.Logger) {
	log.Warn("request error",
		zap.String("error_type", errType),
		zap.String("message", message),
		zap.Int("status", status),
	)

	writeJSON(w, status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Type:    errType,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// extractTraceID extracts trace ID from various possible headers
func extractTraceID(r *http.Request) string {
	headers := []string{
		"X-Trace-ID",
		"X-Request-ID",
		"X-Correlation-ID",
		"X-Amzn-Trace-Id",
	}

	for _, header := range headers {
		if id := r.Header.Get(header); id != "" {
			return id
		}
	}

	return ""
}

// generateTraceID generates a new trace ID
func generateTraceID() string {
	return uuid.New().String()[:16]
}
