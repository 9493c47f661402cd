package adapter

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/artiefy/course-actions/internal/models"
)

// Limit bounds. Values outside [MinLimit, MaxLimit] reset to DefaultLimit.
const (
	MinLimit     = 1
	MaxLimit     = 5
	DefaultLimit = 5
)

// normalizeEvent reads the echoed fields and the parameter mapping from a decoded event.
// The returned event always has its echoed fields set, even when err is non-nil.
func normalizeEvent(raw interface{}) (models.InvocationEvent, error) {
	event := models.NewInvocationEvent()

	// An event delivered as a list carries the real event first
	if list, ok := raw.([]interface{}); ok {
		if len(list) == 0 {
			raw = nil
		} else {
			raw = list[0]
		}
	}

	obj, _ := raw.(map[string]interface{})

	if s, ok := obj["actionGroup"].(string); ok {
		event.ActionGroup = s
	}
	if s, ok := obj["apiPath"].(string); ok {
		event.APIPath = s
	}
	if s, ok := obj["httpMethod"].(string); ok {
		event.HTTPMethod = s
	}
	if v, ok := obj["messageVersion"]; ok && v != nil {
		event.MessageVersion = v
	}

	params, err := extractParameters(obj)
	if err != nil {
		return event, err
	}
	event.Parameters = params

	return event, nil
}

// extractParameters unwraps nested lists around the parameter mapping
func extractParameters(obj map[string]interface{}) (map[string]interface{}, error) {
	raw, ok := obj["parameters"]
	if !ok {
		return map[string]interface{}{}, nil
	}

	for {
		list, ok := raw.([]interface{})
		if !ok || len(list) == 0 {
			break
		}
		raw = list[0]
	}

	params, ok := raw.(map[string]interface{})
	if !ok {
		return nil, NewValidationError(msgParametersNotObject)
	}
	return params, nil
}

// buildSearchRequest validates the prompt and applies the limit rule
func buildSearchRequest(params map[string]interface{}) (models.SearchRequest, error) {
	prompt, ok := params["prompt"].(string)
	if !ok || strings.TrimSpace(prompt) == "" {
		return models.SearchRequest{}, NewValidationError(msgPromptRequired)
	}

	return models.SearchRequest{
		Prompt: prompt,
		Limit:  resolveLimit(params["limit"]),
	}, nil
}

// resolveLimit is the limit rule: a missing or non-integer value falls back to
// DefaultLimit, and so does any integer outside [MinLimit, MaxLimit].
func resolveLimit(raw interface{}) int {
	n, ok := coerceInt(raw)
	if !ok || n < MinLimit || n > MaxLimit {
		return DefaultLimit
	}
	return n
}

// coerceInt converts JSON scalars to an integer.
// Non-integral numbers truncate toward zero, booleans map to 1/0 and strings
// must hold a base-10 integer.
func coerceInt(raw interface{}) (int, bool) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return clampInt64(n), true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return truncFloat(f)
	case float64:
		return truncFloat(v)
	case int:
		return v, true
	case int64:
		return clampInt64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return clampInt64(n), true
	default:
		return 0, false
	}
}

func truncFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	t := math.Trunc(f)
	if t > math.MaxInt32 {
		return math.MaxInt32, true
	}
	if t < math.MinInt32 {
		return math.MinInt32, true
	}
	return int(t), true
}

// clampInt64 keeps out-of-range values out of range on 32-bit platforms
func clampInt64(n int64) int {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	if n < math.MinInt32 {
		return math.MinInt32
	}
	return int(n)
}
