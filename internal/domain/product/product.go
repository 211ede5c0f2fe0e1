package product

import (
	"fmt"
	"regexp"
	"strings"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Category is the remote product category for all catalog entries.
// Vision Product Search requires one of a fixed set; this catalog is apparel.
const Category = "apparel"

// Product is the canonical catalog entity (immutable value object).
type Product struct {
	id          string
	displayName string
	imageURI    string
	attributes  map[string]string
	price       *float64
}

// New validates and creates a Product.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. ImageURI: http(s):// or gs://.
// Attribute keys must already be members of the given vocabulary; the
// normalizer drops unknown keys before construction.
func New(id, displayName, imageURI string, attributes map[string]string, price *float64, vocab Vocabulary) (Product, error) {
	if id == "" {
		return Product{}, fmt.Errorf("product ID is required")
	}
	if len(id) > 256 {
		return Product{}, fmt.Errorf("product ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Product{}, fmt.Errorf("product ID must be alphanumeric with underscores and hyphens")
	}
	if displayName == "" {
		return Product{}, fmt.Errorf("display name is required")
	}
	if !validImageURI(imageURI) {
		return Product{}, fmt.Errorf("image URI %q must be http(s):// or gs://", imageURI)
	}
	for k := range attributes {
		if !vocab.Contains(k) {
			return Product{}, fmt.Errorf("attribute %q is not in the vocabulary", k)
		}
	}

	return Product{
		id:          id,
		displayName: displayName,
		imageURI:    imageURI,
		attributes:  cloneStringMap(attributes),
		price:       price,
	}, nil
}

// Reconstruct creates a Product without validation (remote hydration).
func Reconstruct(id, displayName, imageURI string, attributes map[string]string, price *float64) Product {
	return Product{id: id, displayName: displayName, imageURI: imageURI, attributes: attributes, price: price}
}

// ID returns the stable catalog identifier (idempotency key).
func (p *Product) ID() string { return p.id }

// DisplayName returns the human label.
func (p *Product) DisplayName() string { return p.displayName }

// ImageURI returns the reference image location.
func (p *Product) ImageURI() string { return p.imageURI }

// Attributes returns the filterable attribute labels.
func (p *Product) Attributes() map[string]string { return p.attributes }

// Price returns the informational price, nil when unknown.
func (p *Product) Price() *float64 { return p.price }

// WithImageURI returns a copy pointing at a different reference image.
// Used after mirroring an http(s) image into object storage.
func (p *Product) WithImageURI(uri string) Product {
	return Product{
		id: p.id, displayName: p.displayName, imageURI: uri,
		attributes: p.attributes, price: p.price,
	}
}

func validImageURI(uri string) bool {
	return strings.HasPrefix(uri, "http://") ||
		strings.HasPrefix(uri, "https://") ||
		strings.HasPrefix(uri, "gs://")
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
