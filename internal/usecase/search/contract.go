package search

import (
	"context"

	"github.com/yow-cloud/shoplens/internal/domain/search/result"
)

// Matcher runs one visual match against the remote index. Exactly one of
// imageBytes and imageURI is set. filter uses the native remote syntax.
type Matcher interface {
	Match(ctx context.Context, imageBytes []byte, imageURI, filter string, maxResults int) ([]result.Result, error)
}

// ImageProbe verifies that a remote image URL is reachable before the query
// is dispatched.
type ImageProbe interface {
	Probe(ctx context.Context, url string) error
}
