package index

import (
	"context"
	"time"

	"github.com/yow-cloud/shoplens/internal/domain/index"
)

// RemoteIndex is the remote product set lifecycle surface.
type RemoteIndex interface {
	// EnsureProductSet creates the product set if missing. Idempotent.
	EnsureProductSet(ctx context.Context) error
	// IndexTime returns the last remote index build time, zero when the
	// backend has never built the index.
	IndexTime(ctx context.Context) (time.Time, error)
}

// Repository persists the lifecycle snapshot across restarts.
type Repository interface {
	Save(ctx context.Context, productSetID string, s index.State) error
	Load(ctx context.Context, productSetID string) (index.State, error)
}
