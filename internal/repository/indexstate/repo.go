package indexstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/yow-cloud/shoplens/internal/db"
	"github.com/yow-cloud/shoplens/internal/domain"
	"github.com/yow-cloud/shoplens/internal/domain/index"
)

// store is the consumer interface for index-state persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo persists the index lifecycle snapshot so restarts do not lose the
// last-import watermark.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates an index-state repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// Save stores the lifecycle snapshot for the given product set.
func (r *Repo) Save(ctx context.Context, productSetID string, s index.State) error {
	data, err := stateToJSON(s)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, r.key(productSetID), data); err != nil {
		return fmt.Errorf("set index state %s: %w", productSetID, err)
	}
	return nil
}

// Load retrieves the lifecycle snapshot for the given product set.
// Returns domain.ErrNotFound when no snapshot was ever stored.
func (r *Repo) Load(ctx context.Context, productSetID string) (index.State, error) {
	data, err := r.store.Get(ctx, r.key(productSetID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return index.State{}, domain.ErrNotFound
		}
		return index.State{}, fmt.Errorf("get index state %s: %w", productSetID, err)
	}
	return stateFromJSON(data)
}

// Valkey key pattern: shoplens:indexstate:{product_set_id}

func (r *Repo) key(productSetID string) string {
	return fmt.Sprintf("%sindexstate:%s", r.keyPrefix, productSetID)
}
