package vision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/iterator"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/yow-cloud/shoplens/internal/domain"
	"github.com/yow-cloud/shoplens/internal/domain/product"
)

// referenceImageID is the fixed reference image slot per product. One product
// carries exactly one reference image; upserts replace it in place.
const referenceImageID = "primary"

// UpsertProduct creates or updates a product, replaces its reference image
// and makes sure it is a member of the product set. Idempotent on product id.
func (c *Client) UpsertProduct(ctx context.Context, p product.Product) (err error) {
	defer func(start time.Time) { observe("upsert_product", start, err) }(time.Now())

	labels := productLabels(p)
	_, rpcErr := c.search.CreateProduct(ctx, &visionpb.CreateProductRequest{
		Parent:    c.locationPath(),
		ProductId: p.ID(),
		Product: &visionpb.Product{
			DisplayName:     p.DisplayName(),
			ProductCategory: product.Category,
			ProductLabels:   labels,
		},
	})
	if rpcErr != nil {
		classified := classify(rpcErr)
		if !errors.Is(classified, domain.ErrAlreadyExists) {
			return fmt.Errorf("create product %s: %w", p.ID(), classified)
		}
		if err := c.updateProduct(ctx, p, labels); err != nil {
			return err
		}
	}

	if err := c.replaceReferenceImage(ctx, p); err != nil {
		return err
	}

	rpcErr = c.search.AddProductToProductSet(ctx, &visionpb.AddProductToProductSetRequest{
		Name:    c.productSetPath(),
		Product: c.productPath(p.ID()),
	})
	if rpcErr != nil {
		return fmt.Errorf("add product %s to set: %w", p.ID(), classify(rpcErr))
	}
	return nil
}

func (c *Client) updateProduct(ctx context.Context, p product.Product, labels []*visionpb.Product_KeyValue) error {
	_, rpcErr := c.search.UpdateProduct(ctx, &visionpb.UpdateProductRequest{
		Product: &visionpb.Product{
			Name:          c.productPath(p.ID()),
			DisplayName:   p.DisplayName(),
			ProductLabels: labels,
		},
		UpdateMask: &fieldmaskpb.FieldMask{
			Paths: []string{"display_name", "product_labels"},
		},
	})
	if rpcErr != nil {
		return fmt.Errorf("update product %s: %w", p.ID(), classify(rpcErr))
	}
	return nil
}

// replaceReferenceImage points the product's single image slot at the current
// reference URI. An existing slot is dropped first; the URI may have changed.
func (c *Client) replaceReferenceImage(ctx context.Context, p product.Product) error {
	create := func() error {
		_, rpcErr := c.search.CreateReferenceImage(ctx, &visionpb.CreateReferenceImageRequest{
			Parent:           c.productPath(p.ID()),
			ReferenceImageId: referenceImageID,
			ReferenceImage: &visionpb.ReferenceImage{
				Uri: p.ImageURI(),
			},
		})
		return rpcErr
	}

	rpcErr := create()
	if rpcErr == nil {
		return nil
	}
	classified := classify(rpcErr)
	if !errors.Is(classified, domain.ErrAlreadyExists) {
		return fmt.Errorf("create reference image for %s: %w", p.ID(), classified)
	}

	delErr := c.search.DeleteReferenceImage(ctx, &visionpb.DeleteReferenceImageRequest{
		Name: fmt.Sprintf("%s/referenceImages/%s", c.productPath(p.ID()), referenceImageID),
	})
	if delErr != nil {
		return fmt.Errorf("replace reference image for %s: %w", p.ID(), classify(delErr))
	}
	if rpcErr := create(); rpcErr != nil {
		return fmt.Errorf("recreate reference image for %s: %w", p.ID(), classify(rpcErr))
	}
	return nil
}

// DeleteProduct removes a product from the set and deletes it. A product
// missing from the set is still deleted; a fully unknown id maps to
// domain.ErrNotFound.
func (c *Client) DeleteProduct(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_product", start, err) }(time.Now())

	rpcErr := c.search.RemoveProductFromProductSet(ctx, &visionpb.RemoveProductFromProductSetRequest{
		Name:    c.productSetPath(),
		Product: c.productPath(id),
	})
	if rpcErr != nil {
		classified := classify(rpcErr)
		if !errors.Is(classified, domain.ErrNotFound) {
			return fmt.Errorf("remove product %s from set: %w", id, classified)
		}
	}

	if rpcErr := c.search.DeleteProduct(ctx, &visionpb.DeleteProductRequest{
		Name: c.productPath(id),
	}); rpcErr != nil {
		return fmt.Errorf("delete product %s: %w", id, classify(rpcErr))
	}
	return nil
}

// ListProducts returns up to limit products of the set. Reference image and
// price are not hydrated; the listing carries identity and labels only.
func (c *Client) ListProducts(ctx context.Context, limit int) (_ []product.Product, err error) {
	defer func(start time.Time) { observe("list_products", start, err) }(time.Now())

	it := c.search.ListProductsInProductSet(ctx, &visionpb.ListProductsInProductSetRequest{
		Name: c.productSetPath(),
	})

	var products []product.Product
	for limit <= 0 || len(products) < limit {
		p, iterErr := it.Next()
		if iterErr == iterator.Done {
			break
		}
		if iterErr != nil {
			return nil, fmt.Errorf("list products: %w", classify(iterErr))
		}
		products = append(products, product.Reconstruct(
			lastPathSegment(p.GetName()),
			p.GetDisplayName(),
			"",
			labelsToMap(p.GetProductLabels()),
			nil,
		))
	}
	return products, nil
}

func productLabels(p product.Product) []*visionpb.Product_KeyValue {
	attrs := p.Attributes()
	if len(attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	labels := make([]*visionpb.Product_KeyValue, 0, len(keys))
	for _, k := range keys {
		labels = append(labels, &visionpb.Product_KeyValue{Key: k, Value: attrs[k]})
	}
	return labels
}

func labelsToMap(labels []*visionpb.Product_KeyValue) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	m := make(map[string]string, len(labels))
	for _, l := range labels {
		m[l.GetKey()] = l.GetValue()
	}
	return m
}

func lastPathSegment(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}
