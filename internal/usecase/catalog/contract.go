package catalog

import (
	"context"

	"github.com/yow-cloud/shoplens/internal/domain/product"
)

// ProductLister reads products back from the remote catalog.
type ProductLister interface {
	ListProducts(ctx context.Context, limit int) ([]product.Product, error)
}

// ProductRemover deletes a product from the remote catalog.
type ProductRemover interface {
	DeleteProduct(ctx context.Context, id string) error
}
