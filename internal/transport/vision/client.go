package vision

import (
	"context"
	"fmt"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"google.golang.org/api/option"

	"github.com/yow-cloud/shoplens/internal/metrics"
)

// Config identifies the remote product set.
type Config struct {
	ProjectID    string
	Location     string
	ProductSetID string
}

// Client adapts Google Cloud Vision Product Search to the catalog, index and
// matcher contracts. All remote errors are classified into domain sentinels.
type Client struct {
	search    *vision.ProductSearchClient
	annotator *vision.ImageAnnotatorClient
	cfg       Config
}

// NewClient creates the Vision clients. opts carries credentials overrides
// (tests, emulators); production relies on ambient ADC.
func NewClient(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	if cfg.ProjectID == "" || cfg.Location == "" || cfg.ProductSetID == "" {
		return nil, fmt.Errorf("project id, location and product set id are required")
	}

	search, err := vision.NewProductSearchClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("product search client: %w", err)
	}
	annotator, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		_ = search.Close()
		return nil, fmt.Errorf("image annotator client: %w", err)
	}

	return &Client{search: search, annotator: annotator, cfg: cfg}, nil
}

// Close shuts down both underlying clients.
func (c *Client) Close() error {
	var firstErr error
	if err := c.search.Close(); err != nil {
		firstErr = err
	}
	if err := c.annotator.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (c *Client) locationPath() string {
	return fmt.Sprintf("projects/%s/locations/%s", c.cfg.ProjectID, c.cfg.Location)
}

func (c *Client) productSetPath() string {
	return fmt.Sprintf("%s/productSets/%s", c.locationPath(), c.cfg.ProductSetID)
}

func (c *Client) productPath(id string) string {
	return fmt.Sprintf("%s/products/%s", c.locationPath(), id)
}

// observe records one remote call in the Prometheus collectors.
func observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RemoteRequestsTotal.WithLabelValues("vision", op, status).Inc()
	metrics.RemoteRequestDuration.WithLabelValues("vision", op).Observe(time.Since(start).Seconds())
}
