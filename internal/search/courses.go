package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/artiefy/course-actions/internal/config"
	"github.com/artiefy/course-actions/internal/models"
	"github.com/artiefy/course-actions/pkg/logger"
)

const (
	defaultEndpoint = "https://artiefy.com/api/search-courses"
	defaultTimeout  = 10

	// maxBodySize caps how much of a reply is read
	maxBodySize = 10 * 1024 * 1024
)

// CourseProvider posts queries to the course search API over HTTP
type CourseProvider struct {
	endpoint string
	timeout  time.Duration
	headers  map[string]string
	client   *http.Client
	log      *zap.Logger
}

// Option configures a CourseProvider
type Option func(*CourseProvider)

// WithHTTPClient replaces the default client
func WithHTTPClient(client *http.Client) Option {
	return func(p *CourseProvider) {
		p.client = client
	}
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(log *zap.Logger) Option {
	return func(p *CourseProvider) {
		p.log = log
	}
}

// NewCourseProvider creates a provider from the search configuration
func NewCourseProvider(cfg config.SearchConfig, opts ...Option) *CourseProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	p := &CourseProvider{
		endpoint: cfg.Endpoint,
		timeout:  timeout,
		headers:  cfg.Headers,
		client: &http.Client{
			Timeout: timeout,
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name
func (p *CourseProvider) Name() string {
	return "courses"
}

// Search posts {prompt, limit} to the endpoint and returns the raw reply
func (p *CourseProvider) Search(ctx context.Context, req models.SearchRequest) (*Response, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-bedrock-agent", "true")
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		httpReq.Header.Set("X-Trace-ID", traceID)
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	p.log.Info("course search completed",
		zap.String("endpoint", p.endpoint),
		zap.Int("limit", req.Limit),
		zap.Int("status", resp.StatusCode),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	p.log.Debug("course search response", zap.String("body", string(body)))

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
