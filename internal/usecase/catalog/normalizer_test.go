package catalog

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/yow-cloud/shoplens/internal/domain"
	"github.com/yow-cloud/shoplens/internal/domain/product"
	"github.com/yow-cloud/shoplens/internal/source"
)

func record(fields map[string]string) source.Record {
	return source.Record{Kind: source.CSVRow, Fields: fields}
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(product.DefaultVocabulary(), zap.NewNop())

	p, err := n.Normalize(record(map[string]string{
		"id":        "sku-001",
		"name":      "Blue Summer Dress",
		"image_url": "https://cdn.example.com/1.jpg",
		"price":     "39.99",
		"color":     "Blue",
		"Category":  "Dresses",
	}))
	if err != nil {
		t.Fatalf("Normalize() unexpected error: %v", err)
	}

	if p.ID() != "sku-001" {
		t.Errorf("ID() = %q, want sku-001", p.ID())
	}
	if p.DisplayName() != "Blue Summer Dress" {
		t.Errorf("DisplayName() = %q", p.DisplayName())
	}
	if p.Price() == nil || *p.Price() != 39.99 {
		t.Errorf("Price() = %v, want 39.99", p.Price())
	}

	attrs := p.Attributes()
	if attrs["color"] != "blue" {
		t.Errorf("color = %q, want lowercased blue", attrs["color"])
	}
	if attrs["category"] != "dresses" {
		t.Errorf("category = %q, want lowercased dresses", attrs["category"])
	}
}

func TestNormalize_MissingRequiredFields(t *testing.T) {
	n := NewNormalizer(product.DefaultVocabulary(), zap.NewNop())

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{
			name:   "missing id",
			fields: map[string]string{"name": "Dress", "image_url": "https://x/1.jpg"},
		},
		{
			name:   "missing name",
			fields: map[string]string{"id": "sku-001", "image_url": "https://x/1.jpg"},
		},
		{
			name:   "missing image_url",
			fields: map[string]string{"id": "sku-001", "name": "Dress"},
		},
		{
			name:   "blank id",
			fields: map[string]string{"id": "  ", "name": "Dress", "image_url": "https://x/1.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(record(tt.fields))
			if !errors.Is(err, domain.ErrMissingField) {
				t.Fatalf("Normalize() error = %v, want %v", err, domain.ErrMissingField)
			}
		})
	}
}

func TestNormalize_DropsUnknownAttributes(t *testing.T) {
	n := NewNormalizer(product.DefaultVocabulary(), zap.NewNop())

	p, err := n.Normalize(record(map[string]string{
		"id":        "sku-001",
		"name":      "Dress",
		"image_url": "https://cdn.example.com/1.jpg",
		"fit":       "slim",
		"color":     "blue",
	}))
	if err != nil {
		t.Fatalf("Normalize() unexpected error: %v", err)
	}

	attrs := p.Attributes()
	if _, ok := attrs["fit"]; ok {
		t.Error("unknown attribute 'fit' should be dropped")
	}
	if attrs["color"] != "blue" {
		t.Errorf("color = %q, want blue", attrs["color"])
	}
}

func TestNormalize_PriceBestEffort(t *testing.T) {
	n := NewNormalizer(product.DefaultVocabulary(), zap.NewNop())

	tests := []struct {
		name      string
		price     string
		wantPrice *float64
	}{
		{name: "plain number", price: "19.5", wantPrice: ptr(19.5)},
		{name: "dollar prefix", price: "$19.50", wantPrice: ptr(19.5)},
		{name: "unparseable", price: "n/a", wantPrice: nil},
		{name: "negative ignored", price: "-3", wantPrice: nil},
		{name: "empty", price: "", wantPrice: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := n.Normalize(record(map[string]string{
				"id":        "sku-001",
				"name":      "Dress",
				"image_url": "https://cdn.example.com/1.jpg",
				"price":     tt.price,
			}))
			if err != nil {
				t.Fatalf("Normalize() unexpected error: %v", err)
			}
			switch {
			case tt.wantPrice == nil && p.Price() != nil:
				t.Errorf("Price() = %v, want nil", *p.Price())
			case tt.wantPrice != nil && (p.Price() == nil || *p.Price() != *tt.wantPrice):
				t.Errorf("Price() = %v, want %v", p.Price(), *tt.wantPrice)
			}
		})
	}
}

func ptr(f float64) *float64 { return &f }
