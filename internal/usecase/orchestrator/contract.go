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

// Importer submits catalog records to the remote index.
type Importer interface {
	Import(ctx context.Context, records []source.Record) (imports.Report, error)
}

// Lifecycle exposes the index lifecycle snapshot.
type Lifecycle interface {
	Poll(ctx context.Context) index.State
	Status() index.State
}

// Searcher dispatches visual queries.
type Searcher interface {
	Dispatch(ctx context.Context, q query.Query) ([]result.Result, error)
}

// Catalog reads and mutates the remote catalog.
type Catalog interface {
	List(ctx context.Context, limit int) ([]product.Product, error)
	Delete(ctx context.Context, id string) error
}
