package models

// ==================== Action Invocation Models ====================

// Fallback values echoed when the inbound event does not carry the field.
const (
	DefaultActionGroup    = "search_courses"
	DefaultAPIPath        = "/api/search-courses"
	DefaultHTTPMethod     = "POST"
	DefaultMessageVersion = 1
)

// ContentTypeJSON is the single key of every responseBody
const ContentTypeJSON = "application/json"

// InvocationEvent is the normalized action invocation received from the agent framework
type InvocationEvent struct {
	ActionGroup    string
	APIPath        string
	HTTPMethod     string
	MessageVersion interface{} // echoed as received, DefaultMessageVersion when absent
	Parameters     map[string]interface{}
}

// NewInvocationEvent returns an event with every echoed field at its fallback
func NewInvocationEvent() InvocationEvent {
	return InvocationEvent{
		ActionGroup:    DefaultActionGroup,
		APIPath:        DefaultAPIPath,
		HTTPMethod:     DefaultHTTPMethod,
		MessageVersion: DefaultMessageVersion,
	}
}

// ==================== Search Models ====================

// SearchRequest is the payload posted to the course search API
type SearchRequest struct {
	Prompt string `json:"prompt"`
	Limit  int    `json:"limit"`
}

// ==================== Envelope Models ====================

// ResponseEnvelope is the fixed wrapper the agent framework expects for every response
type ResponseEnvelope struct {
	Response       ActionResponse `json:"response"`
	MessageVersion interface{}    `json:"messageVersion"`
}

// ActionResponse echoes the invoked action and carries the outcome
type ActionResponse struct {
	ActionGroup    string                     `json:"actionGroup"`
	APIPath        string                     `json:"apiPath"`
	HTTPMethod     string                     `json:"httpMethod"`
	HTTPStatusCode int                        `json:"httpStatusCode"`
	ResponseBody   map[string]ResponseContent `json:"responseBody"`
}

// ResponseContent holds either a structured object or its serialized string
type ResponseContent struct {
	Body interface{} `json:"body"`
}

// ==================== Envelope Body Models ====================

// ErrorBody is the body for validation, transport and internal failures
type ErrorBody struct {
	Error string `json:"error"`
}

// UpstreamErrorBody is the body for a non-2xx reply from the search API
type UpstreamErrorBody struct {
	Error string `json:"error"`
	Body  string `json:"body"`
}

// MalformedBody is the body for a 2xx reply that cannot be used
type MalformedBody struct {
	Error     string      `json:"error"`
	Body      interface{} `json:"body"`
	Exception string      `json:"exception,omitempty"`
}

// ==================== Transport Models ====================

// ErrorResponse represents an HTTP-level error outside the envelope contract
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
