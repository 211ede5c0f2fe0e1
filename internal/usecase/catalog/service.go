package catalog

import (
	"context"
	"fmt"

	"github.com/yow-cloud/shoplens/internal/domain/product"
)

// Service handles catalog read and delete operations against the remote
// product catalog.
type Service struct {
	lister  ProductLister
	remover ProductRemover
}

// New creates a catalog service.
func New(lister ProductLister, remover ProductRemover) *Service {
	return &Service{lister: lister, remover: remover}
}

// List returns up to limit products currently in the remote catalog.
func (s *Service) List(ctx context.Context, limit int) ([]product.Product, error) {
	products, err := s.lister.ListProducts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Delete removes a product from the remote catalog by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.remover.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}
