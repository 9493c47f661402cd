package search

import (
	"context"

	"github.com/artiefy/course-actions/internal/models"
)

// Provider defines the interface for course search backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Search sends one query and returns the raw reply.
	// A non-nil error means no reply was obtained (transport failure).
	Search(ctx context.Context, req models.SearchRequest) (*Response, error)
}

// Response is the raw reply of a search backend, unparsed
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status code is 2xx
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
