package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yow-cloud/shoplens/internal/metrics"
)

// maxImageBytes caps a single mirrored image download.
const maxImageBytes = 20 << 20

// Mirror copies http(s) reference images into a bucket the visual search
// backend can read. Object names are keyed by product id, so re-importing a
// product overwrites its previous image.
type Mirror struct {
	storage *storage.Client
	http    *http.Client
	bucket  string
	prefix  string
}

// NewMirror creates a mirror writing into gs://bucket/prefix.
func NewMirror(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Mirror, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &Mirror{
		storage: client,
		http:    &http.Client{Timeout: 30 * time.Second},
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
	}, nil
}

// Close shuts down the storage client.
func (m *Mirror) Close() error {
	return m.storage.Close()
}

// Mirror downloads imageURL and uploads it under the product's object name,
// returning the gs:// URI.
func (m *Mirror) Mirror(ctx context.Context, imageURL, productID string) (_ string, err error) {
	defer func(start time.Time) {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.RemoteRequestsTotal.WithLabelValues("gcs", "mirror_image", status).Inc()
		metrics.RemoteRequestDuration.WithLabelValues("gcs", "mirror_image").Observe(time.Since(start).Seconds())
	}(time.Now())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch image %s: %w", imageURL, err)
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch image %s: status %d", imageURL, resp.StatusCode)
	}

	object := m.objectName(imageURL, productID)
	w := m.storage.Bucket(m.bucket).Object(object).NewWriter(ctx)
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.ContentType = ct
	}

	if _, err := io.Copy(w, io.LimitReader(resp.Body, maxImageBytes)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload image for %s: %w", productID, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload image for %s: %w", productID, err)
	}

	return fmt.Sprintf("gs://%s/%s", m.bucket, object), nil
}

func (m *Mirror) objectName(imageURL, productID string) string {
	ext := path.Ext(imageURL)
	if ext == "" || len(ext) > 5 || strings.ContainsAny(ext, "?&=") {
		ext = ".jpg"
	}
	name := productID + ext
	if m.prefix == "" {
		return name
	}
	return m.prefix + "/" + name
}
