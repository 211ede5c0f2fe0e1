package search

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/yow-cloud/shoplens/internal/domain"
)

// HTTPProbe checks image URLs with a HEAD request.
type HTTPProbe struct {
	client *http.Client
}

// NewHTTPProbe creates a probe with a bounded-timeout HTTP client.
func NewHTTPProbe(timeout time.Duration) *HTTPProbe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProbe{client: &http.Client{Timeout: timeout}}
}

// Probe returns domain.ErrImageUnavailable when the URL cannot be fetched or
// answers with a non-2xx status.
func (p *HTTPProbe) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrImageUnavailable, url)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrImageUnavailable, url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s answered %d", domain.ErrImageUnavailable, url, resp.StatusCode)
	}
	return nil
}
