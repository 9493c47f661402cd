package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/artiefy/course-actions/internal/models"
)

// SerializationMode selects how the envelope carries its body
type SerializationMode string

const (
	// ModeStructured puts the JSON object itself in body
	ModeStructured SerializationMode = "structured"
	// ModeStringified puts the JSON text of the object in body
	ModeStringified SerializationMode = "stringified"
)

// ParseSerializationMode maps a config value to a mode
func ParseSerializationMode(s string) (SerializationMode, error) {
	switch SerializationMode(s) {
	case ModeStructured, "":
		return ModeStructured, nil
	case ModeStringified:
		return ModeStringified, nil
	default:
		return "", fmt.Errorf("unknown serialization mode %q", s)
	}
}

// encodeBody renders a body for the mode.
// json.RawMessage is downstream text and is never re-encoded in stringified mode.
func (m SerializationMode) encodeBody(body interface{}) interface{} {
	if m != ModeStringified {
		return body
	}

	if raw, ok := body.(json.RawMessage); ok {
		return string(raw)
	}
	data, err := json.Marshal(body)
	if err != nil {
		data, _ = json.Marshal(models.ErrorBody{Error: msgInternal})
	}
	return string(data)
}

// buildEnvelope wraps a status code and body, echoing the event's identity fields
func buildEnvelope(event models.InvocationEvent, status int, body interface{}, mode SerializationMode) *models.ResponseEnvelope {
	return &models.ResponseEnvelope{
		Response: models.ActionResponse{
			ActionGroup:    event.ActionGroup,
			APIPath:        event.APIPath,
			HTTPMethod:     event.HTTPMethod,
			HTTPStatusCode: status,
			ResponseBody: map[string]models.ResponseContent{
				models.ContentTypeJSON: {Body: mode.encodeBody(body)},
			},
		},
		MessageVersion: event.MessageVersion,
	}
}
