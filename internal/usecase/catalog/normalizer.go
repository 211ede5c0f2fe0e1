package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yow-cloud/shoplens/internal/domain"
	"github.com/yow-cloud/shoplens/internal/domain/product"
	"github.com/yow-cloud/shoplens/internal/source"
)

// Reserved ingest columns. Everything else on a record is a candidate
// attribute label.
const (
	colID       = "id"
	colName     = "name"
	colImageURL = "image_url"
	colPrice    = "price"
)

// Normalizer converts raw source records into canonical products.
// Attribute keys outside the vocabulary are dropped with a warning, never
// rejected; a record only fails on missing required fields or invalid values.
type Normalizer struct {
	vocab  product.Vocabulary
	logger *zap.Logger
}

// NewNormalizer creates a record normalizer.
func NewNormalizer(vocab product.Vocabulary, logger *zap.Logger) *Normalizer {
	return &Normalizer{vocab: vocab, logger: logger}
}

// Normalize converts one raw record into a Product.
// Required fields: id, name, image_url. Attribute keys and values are
// lowercased to match the remote label comparison rules. Price is parsed
// best-effort; an unparseable price yields a product without one.
func (n *Normalizer) Normalize(rec source.Record) (product.Product, error) {
	id := strings.TrimSpace(rec.Fields[colID])
	if id == "" {
		return product.Product{}, fmt.Errorf("record has no id: %w", domain.ErrMissingField)
	}
	name := strings.TrimSpace(rec.Fields[colName])
	if name == "" {
		return product.Product{}, fmt.Errorf("record %s has no name: %w", id, domain.ErrMissingField)
	}
	imageURL := strings.TrimSpace(rec.Fields[colImageURL])
	if imageURL == "" {
		return product.Product{}, fmt.Errorf("record %s has no image_url: %w", id, domain.ErrMissingField)
	}

	attrs := make(map[string]string)
	for k, v := range rec.Fields {
		switch k {
		case colID, colName, colImageURL, colPrice:
			continue
		}
		key := strings.ToLower(strings.TrimSpace(k))
		val := strings.ToLower(strings.TrimSpace(v))
		if val == "" {
			continue
		}
		if !n.vocab.Contains(key) {
			n.logger.Warn("dropping attribute outside vocabulary",
				zap.String("product_id", id),
				zap.String("key", key),
			)
			continue
		}
		attrs[key] = val
	}
	if len(attrs) == 0 {
		attrs = nil
	}

	price := parsePrice(rec.Fields[colPrice])
	if rec.Fields[colPrice] != "" && price == nil {
		n.logger.Debug("unparseable price ignored",
			zap.String("product_id", id),
			zap.String("price", rec.Fields[colPrice]),
		)
	}

	p, err := product.New(id, name, imageURL, attrs, price, n.vocab)
	if err != nil {
		return product.Product{}, fmt.Errorf("normalize record %s: %w", id, err)
	}
	return p, nil
}

func parsePrice(raw string) *float64 {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}
