package adapter

import (
	"fmt"
	"net/http"

	"github.com/artiefy/course-actions/internal/models"
)

// Kind classifies a failure that ends the pipeline
type Kind string

const (
	KindValidation        Kind = "validation"
	KindUpstreamHTTP      Kind = "upstream_http"
	KindUpstreamMalformed Kind = "upstream_malformed"
	KindUpstreamTransport Kind = "upstream_transport"
	KindInternal          Kind = "internal"
)

// Messages surfaced in envelope bodies.
const (
	msgParametersNotObject = "parameters must be an object"
	msgPromptRequired      = "prompt is required and must be a non-empty string"
	msgInvalidEvent        = "event must be valid JSON"
	msgInvalidResponse     = "Invalid API response"
	msgMissingResults      = "API response does not contain 'results'"
	msgInternal            = "Internal server error"
)

// Error is a pipeline failure carrying the status code and body it maps to.
// It never reaches the adapter's caller; Handle turns it into an envelope.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Body    interface{}
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError returns a 400 for malformed or missing input
func NewValidationError(msg string) *Error {
	return &Error{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Message: msg,
		Body:    models.ErrorBody{Error: msg},
	}
}

// NewUpstreamHTTPError propagates a non-2xx status from the search API
func NewUpstreamHTTPError(status int, raw []byte) *Error {
	msg := fmt.Sprintf("API responded with status %d", status)
	return &Error{
		Kind:    KindUpstreamHTTP,
		Status:  status,
		Message: msg,
		Body:    models.UpstreamErrorBody{Error: msg, Body: string(raw)},
	}
}

// NewUnparseableResponseError keeps the 2xx status of a reply that is not JSON
func NewUnparseableResponseError(status int, raw []byte, parseErr error) *Error {
	return &Error{
		Kind:    KindUpstreamMalformed,
		Status:  status,
		Message: msgInvalidResponse,
		Body: models.MalformedBody{
			Error:     msgInvalidResponse,
			Body:      string(raw),
			Exception: parseErr.Error(),
		},
		Err: parseErr,
	}
}

// NewMissingResultsError keeps the 2xx status of a JSON reply without results
func NewMissingResultsError(status int, parsed interface{}) *Error {
	return &Error{
		Kind:    KindUpstreamMalformed,
		Status:  status,
		Message: msgMissingResults,
		Body:    models.MalformedBody{Error: msgMissingResults, Body: parsed},
	}
}

// NewTransportError returns a 500 for a call that produced no reply
func NewTransportError(err error) *Error {
	return &Error{
		Kind:    KindUpstreamTransport,
		Status:  http.StatusInternalServerError,
		Message: err.Error(),
		Body:    models.ErrorBody{Error: err.Error()},
		Err:     err,
	}
}

// NewInternalError returns a 500 whose body carries no internal details
func NewInternalError(cause error) *Error {
	return &Error{
		Kind:    KindInternal,
		Status:  http.StatusInternalServerError,
		Message: msgInternal,
		Body:    models.ErrorBody{Error: msgInternal},
		Err:     cause,
	}
}
