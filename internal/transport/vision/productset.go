package vision

import (
	"context"
	"errors"
	"fmt"
	"time"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yow-cloud/shoplens/internal/domain"
)

// EnsureProductSet creates the product set if missing. An AlreadyExists
// answer from the backend means a previous run won the race; both outcomes
// leave the set in place.
func (c *Client) EnsureProductSet(ctx context.Context) (err error) {
	defer func(start time.Time) { observe("create_product_set", start, err) }(time.Now())

	_, rpcErr := c.search.CreateProductSet(ctx, &visionpb.CreateProductSetRequest{
		Parent:       c.locationPath(),
		ProductSetId: c.cfg.ProductSetID,
		ProductSet: &visionpb.ProductSet{
			DisplayName: c.cfg.ProductSetID,
		},
	})
	if rpcErr != nil {
		classified := classify(rpcErr)
		if errors.Is(classified, domain.ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create product set: %w", classified)
	}
	return nil
}

// IndexTime returns the last remote index build time. The backend reports a
// zero (epoch) timestamp until the first build completes; that maps to a zero
// time.Time here.
func (c *Client) IndexTime(ctx context.Context) (_ time.Time, err error) {
	defer func(start time.Time) { observe("get_product_set", start, err) }(time.Now())

	ps, rpcErr := c.search.GetProductSet(ctx, &visionpb.GetProductSetRequest{
		Name: c.productSetPath(),
	})
	if rpcErr != nil {
		return time.Time{}, fmt.Errorf("get product set: %w", classify(rpcErr))
	}

	ts := ps.GetIndexTime()
	if ts == nil {
		return time.Time{}, nil
	}
	t := ts.AsTime()
	// The API reports the Unix epoch for a never-built index.
	if t.Unix() <= 0 {
		return time.Time{}, nil
	}
	return t, nil
}

// HealthCheck verifies the product set is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.IndexTime(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}
