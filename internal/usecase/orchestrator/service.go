package orchestrator

import (
	"context"

	"github.com/yow-cloud/shoplens/internal/domain/imports"
	"github.com/yow-cloud/shoplens/internal/domain/index"
	"github.com/yow-cloud/shoplens/internal/domain/product"
	"github.com/yow-cloud/shoplens/internal/domain/search/query"
	"github.com/yow-cloud/shoplens/internal/domain/search/result"
	"github.com/yow-cloud/shoplens/internal/source"
)

// Service is the single entry point the transport layer talks to. It owns no
// logic of its own; each call lands on exactly one underlying use case.
type Service struct {
	importer  Importer
	lifecycle Lifecycle
	searcher  Searcher
	catalog   Catalog
}

// New creates the orchestrator facade.
func New(importer Importer, lifecycle Lifecycle, searcher Searcher, catalog Catalog) *Service {
	return &Service{
		importer:  importer,
		lifecycle: lifecycle,
		searcher:  searcher,
		catalog:   catalog,
	}
}

// Import submits catalog records and returns the per-batch report.
func (s *Service) Import(ctx context.Context, records []source.Record) (imports.Report, error) {
	return s.importer.Import(ctx, records)
}

// Status polls the remote index and returns the refreshed snapshot.
func (s *Service) Status(ctx context.Context) index.State {
	return s.lifecycle.Poll(ctx)
}

// CachedStatus returns the snapshot without a remote round trip.
func (s *Service) CachedStatus() index.State {
	return s.lifecycle.Status()
}

// Search dispatches one visual query.
func (s *Service) Search(ctx context.Context, q query.Query) ([]result.Result, error) {
	return s.searcher.Dispatch(ctx, q)
}

// ListProducts returns up to limit products from the remote catalog.
func (s *Service) ListProducts(ctx context.Context, limit int) ([]product.Product, error) {
	return s.catalog.List(ctx, limit)
}

// DeleteProduct removes one product from the remote catalog.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.catalog.Delete(ctx, id)
}
