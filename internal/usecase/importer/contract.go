package importer

import (
	"context"

	"github.com/yow-cloud/shoplens/internal/domain/index"
	"github.com/yow-cloud/shoplens/internal/domain/product"
	"github.com/yow-cloud/shoplens/internal/source"
)

// CatalogWriter upserts products into the remote catalog. Upsert is
// idempotent on product id; re-submitting the same product is safe.
type CatalogWriter interface {
	UpsertProduct(ctx context.Context, p product.Product) error
}

// ImageMirror copies an http(s) image into object storage and returns the
// gs:// URI the remote backend can read.
type ImageMirror interface {
	Mirror(ctx context.Context, imageURL, productID string) (string, error)
}

// Lifecycle is the slice of the index lifecycle the importer drives.
type Lifecycle interface {
	EnsureIndex(ctx context.Context) error
	MarkImport(ctx context.Context, count int) (index.State, error)
}

// Normalizer converts raw source records into canonical products.
type Normalizer interface {
	Normalize(rec source.Record) (product.Product, error)
}
