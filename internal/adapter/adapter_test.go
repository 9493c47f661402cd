package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artiefy/course-actions/internal/config"
	"github.com/artiefy/course-actions/internal/models"
	"github.com/artiefy/course-actions/internal/search"
)

// --- Test helpers ---

type stubProvider struct {
	calls    int
	lastReq  models.SearchRequest
	response *search.Response
	err      error
	panicVal interface{}
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Search(_ context.Context, req models.SearchRequest) (*search.Response, error) {
	s.calls++
	s.lastReq = req
	if s.panicVal != nil {
		panic(s.panicVal)
	}
	return s.response, s.err
}

func okProvider(body string) *stubProvider {
	return &stubProvider{response: &search.Response{StatusCode: http.StatusOK, Body: []byte(body)}}
}

// envelopeJSON marshals env and decodes it generically, as the agent framework sees it
func envelopeJSON(t *testing.T, env *models.ResponseEnvelope) map[string]interface{} {
	t.Helper()
	require.NotNil(t, env)
	data, err := json.Marshal(env)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

// bodyOf extracts response.responseBody["application/json"].body
func bodyOf(t *testing.T, env *models.ResponseEnvelope) interface{} {
	t.Helper()
	out := envelopeJSON(t, env)
	resp := out["response"].(map[string]interface{})
	rb := resp["responseBody"].(map[string]interface{})
	require.Len(t, rb, 1)
	content := rb["application/json"].(map[string]interface{})
	return content["body"]
}

func bodyMap(t *testing.T, env *models.ResponseEnvelope) map[string]interface{} {
	t.Helper()
	m, ok := bodyOf(t, env).(map[string]interface{})
	require.True(t, ok, "body should be an object")
	return m
}

// --- Tests ---

func TestHandle_EndToEnd(t *testing.T) {
	var got models.SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.Write([]byte(`{"results":[{"id":1,"title":"Python Basics"}]}`))
	}))
	defer srv.Close()

	a := New(search.NewCourseProvider(config.SearchConfig{Endpoint: srv.URL, Timeout: 5}))
	env := a.Handle(context.Background(), []byte(`{"actionGroup":"search_courses","apiPath":"/api/search-courses","httpMethod":"POST","parameters":{"prompt":"python basics","limit":2}}`))

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"response": {
			"actionGroup": "search_courses",
			"apiPath": "/api/search-courses",
			"httpMethod": "POST",
			"httpStatusCode": 200,
			"responseBody": {"application/json": {"body": {"results": [{"id": 1, "title": "Python Basics"}]}}}
		},
		"messageVersion": 1
	}`, string(data))
	assert.Equal(t, models.SearchRequest{Prompt: "python basics", Limit: 2}, got)
}

func TestHandle_EchoesEventFields(t *testing.T) {
	a := New(okProvider(`{"results":[]}`))
	env := a.Handle(context.Background(), []byte(`{"actionGroup":"courses","apiPath":"/custom","httpMethod":"GET","messageVersion":"1.0","parameters":{"prompt":"go"}}`))

	assert.Equal(t, "courses", env.Response.ActionGroup)
	assert.Equal(t, "/custom", env.Response.APIPath)
	assert.Equal(t, "GET", env.Response.HTTPMethod)
	assert.Equal(t, "1.0", env.MessageVersion)
	assert.Equal(t, http.StatusOK, env.Response.HTTPStatusCode)
}

func TestHandle_EventAsList(t *testing.T) {
	p := okProvider(`{"results":[]}`)
	a := New(p)
	env := a.Handle(context.Background(), []byte(`[{"actionGroup":"ag","parameters":{"prompt":"go","limit":3}}]`))

	assert.Equal(t, "ag", env.Response.ActionGroup)
	assert.Equal(t, http.StatusOK, env.Response.HTTPStatusCode)
	assert.Equal(t, 3, p.lastReq.Limit)
}

func TestHandle_EmptyEventList(t *testing.T) {
	p := okProvider(`{"results":[]}`)
	a := New(p)
	env := a.Handle(context.Background(), []byte(`[]`))

	assert.Equal(t, http.StatusBadRequest, env.Response.HTTPStatusCode)
	assert.Equal(t, models.DefaultActionGroup, env.Response.ActionGroup)
	assert.Equal(t, 0, p.calls)
}

func TestHandle_NestedParameters(t *testing.T) {
	flat := okProvider(`{"results":[]}`)
	nested := okProvider(`{"results":[]}`)

	envFlat := New(flat).Handle(context.Background(), []byte(`{"parameters":{"prompt":"sql","limit":4}}`))
	envNested := New(nested).Handle(context.Background(), []byte(`{"parameters":[[[{"prompt":"sql","limit":4}]]]}`))

	assert.Equal(t, envelopeJSON(t, envFlat), envelopeJSON(t, envNested))
	assert.Equal(t, flat.lastReq, nested.lastReq)
	assert.Equal(t, models.SearchRequest{Prompt: "sql", Limit: 4}, nested.lastReq)
}

func TestHandle_ParametersNotObject(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"string", `{"parameters":"prompt=go"}`},
		{"null", `{"parameters":null}`},
		{"number", `{"parameters":42}`},
		{"empty list", `{"parameters":[]}`},
		{"nested empty list", `{"parameters":[[]]}`},
		{"list of strings", `{"parameters":["go"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := okProvider(`{"results":[]}`)
			env := New(p).Handle(context.Background(), []byte(`{"actionGroup":"ag","messageVersion":2,`+tt.payload[1:]))

			assert.Equal(t, http.StatusBadRequest, env.Response.HTTPStatusCode)
			assert.Equal(t, "parameters must be an object", bodyMap(t, env)["error"])
			assert.Equal(t, "ag", env.Response.ActionGroup)
			assert.Equal(t, models.DefaultAPIPath, env.Response.APIPath)
			assert.Equal(t, models.DefaultHTTPMethod, env.Response.HTTPMethod)
			assert.Equal(t, json.Number("2"), env.MessageVersion)
			assert.Equal(t, 0, p.calls)
		})
	}
}

func TestHandle_PromptValidation(t *testing.T) {
	tests := []struct {
		name   string
		params string
	}{
		{"empty", `{"prompt":""}`},
		{"blank", `{"prompt":"   "}`},
		{"tabs and newlines", `{"prompt":"\t\n"}`},
		{"missing", `{"limit":3}`},
		{"number", `{"prompt":12}`},
		{"null", `{"prompt":null}`},
		{"no parameters", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := okProvider(`{"results":[]}`)
			payload := `{}`
			if tt.params != "" {
				payload = `{"parameters":` + tt.params + `}`
			}
			env := New(p).Handle(context.Background(), []byte(payload))

			assert.Equal(t, http.StatusBadRequest, env.Response.HTTPStatusCode)
			assert.Equal(t, "prompt is required and must be a non-empty string", bodyMap(t, env)["error"])
			assert.Equal(t, 0, p.calls)
		})
	}
}

func TestHandle_PromptSentUntrimmed(t *testing.T) {
	p := okProvider(`{"results":[]}`)
	New(p).Handle(context.Background(), []byte(`{"parameters":{"prompt":"  data science "}}`))

	assert.Equal(t, "  data science ", p.lastReq.Prompt)
}

func TestHandle_LimitRule(t *testing.T) {
	tests := []struct {
		name  string
		limit string
		want  int
	}{
		{"absent", ``, 5},
		{"preserved", `3`, 3},
		{"lower bound", `1`, 1},
		{"upper bound", `5`, 5},
		{"zero", `0`, 5},
		{"six", `6`, 5},
		{"negative", `-3`, 5},
		{"non numeric string", `"abc"`, 5},
		{"numeric string", `"2"`, 2},
		{"padded numeric string", `" 4 "`, 4},
		{"decimal string", `"3.5"`, 5},
		{"float truncates", `2.9`, 2},
		{"float below one", `0.5`, 5},
		{"true", `true`, 1},
		{"false", `false`, 5},
		{"null", `null`, 5},
		{"object", `{"n":3}`, 5},
		{"huge", `1e300`, 5},
		{"huge integer", `99999999999999999999`, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := okProvider(`{"results":[]}`)
			params := `{"prompt":"go"`
			if tt.limit != "" {
				params += `,"limit":` + tt.limit
			}
			params += `}`

			env := New(p).Handle(context.Background(), []byte(`{"parameters":`+params+`}`))

			assert.Equal(t, http.StatusOK, env.Response.HTTPStatusCode)
			assert.Equal(t, tt.want, p.lastReq.Limit)
		})
	}
}

func TestHandle_UpstreamHTTPError(t *testing.T) {
	p := &stubProvider{response: &search.Response{StatusCode: http.StatusServiceUnavailable, Body: []byte("upstream down")}}
	env := New(p).Handle(context.Background(), []byte(`{"parameters":{"prompt":"go"}}`))

	assert.Equal(t, http.StatusServiceUnavailable, env.Response.HTTPStatusCode)
	body := bodyMap(t, env)
	assert.Equal(t, "API responded with status 503", body["error"])
	assert.Equal(t, "upstream down", body["body"])
}

func TestHandle_UpstreamNon200Success(t *testing.T) {
	p := &stubProvider{response: &search.Response{StatusCode: http.StatusCreated, Body: []byte(`{"results":[1]}`)}}
	env := New(p).Handle(context.Background(), []byte(`{"parameters":{"prompt":"go"}}`))

	assert.Equal(t, http.StatusCreated, env.Response.HTTPStatusCode)
	assert.Equal(t, []interface{}{float64(1)}, bodyMap(t, env)["results"])
}

func TestHandle_TransportError(t *testing.T) {
	p := &stubProvider{err: errors.New("failed to send request: context deadline exceeded")}
	env := New(p).Handle(context.Background(), []byte(`{"parameters":{"prompt":"go"}}`))

	assert.Equal(t, http.StatusInternalServerError, env.Response.HTTPStatusCode)
	body := bodyMap(t, env)
	assert.Equal(t, "failed to send request: context deadline exceeded", body["error"])
	assert.Len(t, body, 1)
}

func TestHandle_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	provider := search.NewCourseProvider(config.SearchConfig{Endpoint: srv.URL},
		search.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))

	env := New(provider).Handle(context.Background(), []byte(`{"parameters":{"prompt":"go"}}`))

	assert.Equal(t, http.StatusInternalServerError, env.Response.HTTPStatusCode)
	msg, ok := bodyMap(t, env)["error"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, msg)
}

func TestHandle_MissingResults(t *testing.T) {
	env := New(okProvider(`{"unexpected": true}`)).Handle(context.Background(), []byte(`{"parameters":{"prompt":"go"}}`))

	assert.Equal(t, http.StatusOK, env.Response.HTTPStatusCode)
	body := bodyMap(t, env)
	assert.Equal(t, "API response does not contain 'results'", body["error"])
	assert.Equal(t, map[string]interface{}{"unexpected": true}, body["body"])
}

func TestHandle_NonObjectJSON(t *testing.T) {
	for _, reply := range []string{`[1,2]`, `"results"`, `null`, `42`} {
		t.Run(reply, func(t *testing.T) {
			env := New(okProvider(reply)).Handle(context.Background(), []byte(`{"parameters":{"prompt":"go"}}`))

			assert.Equal(t, http.StatusOK, env.Response.HTTPStatusCode)
			assert.Equal(t, "API response does not contain 'results'", bodyMap(t, env)["error"])
		})
	}
}

func TestHandle_UnparseableResponse(t *testing.T) {
	env := New(okProvider(`<html>oops</html>`)).Handle(context.Background(), []byte(`{"parameters":{"prompt":"go"}}`))

	assert.Equal(t, http.StatusOK, env.Response.HTTPStatusCode)
	body := bodyMap(t, env)
	assert.Equal(t, "Invalid API response", body["error"])
	assert.Equal(t, "<html>oops</html>", body["body"])
	assert.NotEmpty(t, body["exception"])
}

func TestHandle_EmptyResponse(t *testing.T) {
	p := &stubProvider{response: &search.Response{StatusCode: http.StatusNoContent}}
	env := New(p).Handle(context.Background(), []byte(`{"parameters":{"prompt":"go"}}`))

	assert.Equal(t, http.StatusNoContent, env.Response.HTTPStatusCode)
	assert.Equal(t, "Invalid API response", bodyMap(t, env)["error"])
}

func TestHandle_InvalidJSONEvent(t *testing.T) {
	payloads := []string{
		``,
		`{`,
		`not json`,
		`{"parameters":{"prompt":"go"}} not json`,
		`{"parameters":{"prompt":"go"}}{"x":1}`,
		`{"parameters":{"prompt":"go"}} []`,
	}
	for _, payload := range payloads {
		t.Run(payload, func(t *testing.T) {
			p := okProvider(`{"results":[]}`)
			env := New(p).Handle(context.Background(), []byte(payload))

			assert.Equal(t, 0, p.calls)

			out := envelopeJSON(t, env)
			assert.Equal(t, float64(1), out["messageVersion"])
			assert.Equal(t, http.StatusBadRequest, env.Response.HTTPStatusCode)
			assert.Equal(t, models.DefaultActionGroup, env.Response.ActionGroup)
			assert.Equal(t, models.DefaultAPIPath, env.Response.APIPath)
			assert.Equal(t, models.DefaultHTTPMethod, env.Response.HTTPMethod)
			assert.Equal(t, "event must be valid JSON", bodyMap(t, env)["error"])
		})
	}
}

func TestHandle_TrailingWhitespaceAccepted(t *testing.T) {
	p := okProvider(`{"results":[]}`)
	env := New(p).Handle(context.Background(), []byte("{\"parameters\":{\"prompt\":\"go\"}}\n\t "))

	assert.Equal(t, http.StatusOK, env.Response.HTTPStatusCode)
	assert.Equal(t, 1, p.calls)
}

func TestHandle_NonObjectEvent(t *testing.T) {
	env := New(okProvider(`{"results":[]}`)).Handle(context.Background(), []byte(`"hello"`))

	assert.Equal(t, http.StatusBadRequest, env.Response.HTTPStatusCode)
	assert.Equal(t, "prompt is required and must be a non-empty string", bodyMap(t, env)["error"])
}

func TestHandle_PanicBecomesInternalError(t *testing.T) {
	p := &stubProvider{panicVal: "secret internal detail"}
	env := New(p).Handle(context.Background(), []byte(`{"actionGroup":"ag","parameters":{"prompt":"go"}}`))

	assert.Equal(t, http.StatusInternalServerError, env.Response.HTTPStatusCode)
	assert.Equal(t, "ag", env.Response.ActionGroup)
	body := bodyMap(t, env)
	assert.Equal(t, "Internal server error", body["error"])
	assert.Len(t, body, 1)
}

func TestHandle_StringifiedMode(t *testing.T) {
	t.Run("success passes text through", func(t *testing.T) {
		reply := `{"results": [ {"id": 1} ], "count": 1}`
		a := New(okProvider(reply), WithSerializationMode(ModeStringified))
		env := a.Handle(context.Background(), []byte(`{"parameters":{"prompt":"go"}}`))

		assert.Equal(t, http.StatusOK, env.Response.HTTPStatusCode)
		assert.Equal(t, reply, bodyOf(t, env))
	})

	t.Run("errors are serialized", func(t *testing.T) {
		a := New(okProvider(`{}`), WithSerializationMode(ModeStringified))
		env := a.Handle(context.Background(), []byte(`{"parameters":{"prompt":""}}`))

		s, ok := bodyOf(t, env).(string)
		require.True(t, ok, "body should be a string")
		assert.JSONEq(t, `{"error":"prompt is required and must be a non-empty string"}`, s)
	})

	t.Run("upstream error is serialized", func(t *testing.T) {
		p := &stubProvider{response: &search.Response{StatusCode: http.StatusBadGateway, Body: []byte("bad")}}
		env := New(p, WithSerializationMode(ModeStringified)).Handle(context.Background(), []byte(`{"parameters":{"prompt":"go"}}`))

		assert.Equal(t, http.StatusBadGateway, env.Response.HTTPStatusCode)
		s, ok := bodyOf(t, env).(string)
		require.True(t, ok)
		assert.JSONEq(t, `{"error":"API responded with status 502","body":"bad"}`, s)
	})
}

func TestHandle_StrictRouting(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		status  int
		message string
	}{
		{"defaults pass", `{"parameters":{"prompt":"go"}}`, http.StatusOK, ""},
		{"explicit match", `{"apiPath":"/api/search-courses","httpMethod":"POST","parameters":{"prompt":"go"}}`, http.StatusOK, ""},
		{"wrong method", `{"httpMethod":"GET","parameters":{"prompt":"go"}}`, http.StatusBadRequest, "unsupported httpMethod GET"},
		{"wrong path", `{"apiPath":"/api/other","parameters":{"prompt":"go"}}`, http.StatusBadRequest, "unsupported apiPath /api/other"},
		{"empty method treated as absent", `{"httpMethod":"","parameters":{"prompt":"go"}}`, http.StatusOK, ""},
		{"empty path treated as absent", `{"apiPath":"","parameters":{"prompt":"go"}}`, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := okProvider(`{"results":[]}`)
			env := New(p, WithStrictRouting(true)).Handle(context.Background(), []byte(tt.payload))

			assert.Equal(t, tt.status, env.Response.HTTPStatusCode)
			if tt.message != "" {
				assert.Equal(t, tt.message, bodyMap(t, env)["error"])
				assert.Equal(t, 0, p.calls)
			}
		})
	}
}

func TestHandleEvent_DecodedValues(t *testing.T) {
	p := okProvider(`{"results":[]}`)
	event := map[string]interface{}{
		"actionGroup": "ag",
		"parameters": []interface{}{
			map[string]interface{}{"prompt": "go", "limit": float64(2)},
		},
	}

	env := New(p).HandleEvent(context.Background(), event)

	assert.Equal(t, http.StatusOK, env.Response.HTTPStatusCode)
	assert.Equal(t, 2, p.lastReq.Limit)
	assert.Equal(t, models.DefaultMessageVersion, env.MessageVersion)
}
