package vision

import (
	"context"
	"fmt"
	"time"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/grpc/codes"

	"github.com/yow-cloud/shoplens/internal/domain/product"
	"github.com/yow-cloud/shoplens/internal/domain/search/result"
)

// Match runs one PRODUCT_SEARCH annotation. Exactly one of imageBytes and
// imageURI is set; filter uses the native backend syntax and may be empty.
func (c *Client) Match(ctx context.Context, imageBytes []byte, imageURI, filter string, maxResults int) (_ []result.Result, err error) {
	defer func(start time.Time) { observe("product_search", start, err) }(time.Now())

	img := &visionpb.Image{}
	if len(imageBytes) > 0 {
		img.Content = imageBytes
	} else {
		img.Source = &visionpb.ImageSource{ImageUri: imageURI}
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: img,
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_PRODUCT_SEARCH, MaxResults: int32(maxResults)},
				},
				ImageContext: &visionpb.ImageContext{
					ProductSearchParams: &visionpb.ProductSearchParams{
						ProductSet:        c.productSetPath(),
						ProductCategories: []string{product.Category},
						Filter:            filter,
					},
				},
			},
		},
	}

	resp, rpcErr := c.annotator.BatchAnnotateImages(ctx, req)
	if rpcErr != nil {
		return nil, fmt.Errorf("product search: %w", classify(rpcErr))
	}
	if len(resp.GetResponses()) == 0 {
		return nil, nil
	}

	r0 := resp.GetResponses()[0]
	if respErr := r0.GetError(); respErr != nil {
		return nil, fmt.Errorf("product search: %w",
			classifyCode(codes.Code(respErr.GetCode()), respErr.GetMessage()))
	}

	psr := r0.GetProductSearchResults()
	if psr == nil {
		return nil, nil
	}

	results := make([]result.Result, 0, len(psr.GetResults()))
	for _, hit := range psr.GetResults() {
		p := hit.GetProduct()
		if p == nil {
			continue
		}
		results = append(results, result.New(
			lastPathSegment(p.GetName()),
			p.GetDisplayName(),
			float64(hit.GetScore()),
			hit.GetImage(),
			labelsToMap(p.GetProductLabels()),
		))
	}
	return results, nil
}
