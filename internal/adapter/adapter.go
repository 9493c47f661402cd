// Package adapter turns agent action invocations into course searches and
// wraps every outcome, success or failure, in the response envelope the agent
// framework expects.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/artiefy/course-actions/internal/models"
	"github.com/artiefy/course-actions/internal/search"
	"github.com/artiefy/course-actions/pkg/logger"
)

// Adapter handles one invocation event per call. It keeps no state between
// calls and is safe for concurrent use.
type Adapter struct {
	provider      search.Provider
	mode          SerializationMode
	strictRouting bool
	log           *zap.Logger
}

// Option configures an Adapter
type Option func(*Adapter)

// WithSerializationMode selects structured or stringified bodies
func WithSerializationMode(mode SerializationMode) Option {
	return func(a *Adapter) {
		a.mode = mode
	}
}

// WithStrictRouting rejects events addressed to another method or path
func WithStrictRouting(strict bool) Option {
	return func(a *Adapter) {
		a.strictRouting = strict
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(log *zap.Logger) Option {
	return func(a *Adapter) {
		a.log = log
	}
}

// New creates an adapter backed by provider
func New(provider search.Provider, opts ...Option) *Adapter {
	a := &Adapter{
		provider: provider,
		mode:     ModeStructured,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle decodes a raw JSON event and handles it. It always returns an envelope.
func (a *Adapter) Handle(ctx context.Context, payload []byte) *models.ResponseEnvelope {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return a.fail(models.NewInvocationEvent(), NewValidationError(msgInvalidEvent), a.logger(ctx).With(zap.Error(err)))
	}
	// The payload must hold exactly one JSON value
	if _, err := dec.Token(); err != io.EOF {
		return a.fail(models.NewInvocationEvent(), NewValidationError(msgInvalidEvent), a.logger(ctx).With(zap.String("reason", "trailing data after event")))
	}
	return a.HandleEvent(ctx, raw)
}

// HandleEvent handles an already decoded event: a JSON object, or a list
// whose first element is one. It always returns an envelope.
func (a *Adapter) HandleEvent(ctx context.Context, raw interface{}) (env *models.ResponseEnvelope) {
	log := a.logger(ctx)
	event := models.NewInvocationEvent()

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling invocation", zap.Any("panic", r), zap.Stack("stack"))
			env = a.fail(event, NewInternalError(fmt.Errorf("panic: %v", r)), log)
		}
	}()

	var err error
	event, err = normalizeEvent(raw)
	if err != nil {
		return a.fail(event, err, log)
	}

	log = log.With(
		zap.String("action_group", event.ActionGroup),
		zap.String("api_path", event.APIPath),
	)

	status, body, err := a.process(ctx, event, log)
	if err != nil {
		return a.fail(event, err, log)
	}

	log.Info("invocation completed", zap.Int("status", status))
	return buildEnvelope(event, status, body, a.mode)
}

// process runs validation, the downstream call and response mapping
func (a *Adapter) process(ctx context.Context, event models.InvocationEvent, log *zap.Logger) (int, interface{}, error) {
	if a.strictRouting {
		if err := checkRoute(event); err != nil {
			return 0, nil, err
		}
	}

	req, err := buildSearchRequest(event.Parameters)
	if err != nil {
		return 0, nil, err
	}

	log.Debug("searching courses",
		zap.String("provider", a.provider.Name()),
		zap.String("prompt", req.Prompt),
		zap.Int("limit", req.Limit),
	)

	resp, err := a.provider.Search(ctx, req)
	if err != nil {
		return 0, nil, NewTransportError(err)
	}

	if !resp.OK() {
		return 0, nil, NewUpstreamHTTPError(resp.StatusCode, resp.Body)
	}

	body, err := decodeResults(resp)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// decodeResults accepts a JSON object with a results key and returns it verbatim
func decodeResults(resp *search.Response) (json.RawMessage, error) {
	var parsed json.RawMessage
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, NewUnparseableResponseError(resp.StatusCode, resp.Body, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(parsed, &fields); err != nil || fields == nil {
		return nil, NewMissingResultsError(resp.StatusCode, parsed)
	}
	if _, ok := fields["results"]; !ok {
		return nil, NewMissingResultsError(resp.StatusCode, parsed)
	}
	return parsed, nil
}

// checkRoute treats an empty httpMethod or apiPath as absent
func checkRoute(event models.InvocationEvent) error {
	if event.HTTPMethod != "" && event.HTTPMethod != models.DefaultHTTPMethod {
		return NewValidationError(fmt.Sprintf("unsupported httpMethod %s", event.HTTPMethod))
	}
	if event.APIPath != "" && event.APIPath != models.DefaultAPIPath {
		return NewValidationError(fmt.Sprintf("unsupported apiPath %s", event.APIPath))
	}
	return nil
}

// fail converts any error into an envelope, logging it once
func (a *Adapter) fail(event models.InvocationEvent, err error, log *zap.Logger) *models.ResponseEnvelope {
	var aerr *Error
	if !errors.As(err, &aerr) {
		aerr = NewInternalError(err)
	}

	fields := []zap.Field{
		zap.String("kind", string(aerr.Kind)),
		zap.Int("status", aerr.Status),
		zap.String("message", aerr.Message),
	}
	switch aerr.Kind {
	case KindUpstreamTransport, KindInternal:
		log.Error("invocation failed", append(fields, zap.Error(aerr.Err))...)
	default:
		log.Warn("invocation rejected", fields...)
	}

	return buildEnvelope(event, aerr.Status, aerr.Body, a.mode)
}

func (a *Adapter) logger(ctx context.Context) *zap.Logger {
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		return a.log.With(zap.String("trace_id", traceID))
	}
	return a.log
}
