package query

import "fmt"

// Modality is the input form of a search query.
type Modality string

// Query modalities.
const (
	Upload Modality = "upload"
	URL    Modality = "url"
	Inline Modality = "inline"
)

// Result count bounds.
const (
	DefaultMaxResults = 10
	MaxMaxResults     = 100
)

// Query is a single visual search request (immutable value object).
// Exactly one payload field is populated, matching the modality.
type Query struct {
	modality   Modality
	imageBytes []byte
	imageURL   string
	inline     string
	rawFilter  string
	maxResults int
}

// NewUpload creates a query from raw uploaded image bytes.
func NewUpload(image []byte, rawFilter string, maxResults int) (Query, error) {
	if len(image) == 0 {
		return Query{}, fmt.Errorf("image bytes are required")
	}
	return build(Query{modality: Upload, imageBytes: image, rawFilter: rawFilter}, maxResults)
}

// NewURL creates a query referencing a remote image URL.
func NewURL(imageURL, rawFilter string, maxResults int) (Query, error) {
	if imageURL == "" {
		return Query{}, fmt.Errorf("image URL is required")
	}
	return build(Query{modality: URL, imageURL: imageURL, rawFilter: rawFilter}, maxResults)
}

// NewInline creates a query from a base64-encoded image payload.
func NewInline(encoded, rawFilter string, maxResults int) (Query, error) {
	if encoded == "" {
		return Query{}, fmt.Errorf("encoded image is required")
	}
	return build(Query{modality: Inline, inline: encoded, rawFilter: rawFilter}, maxResults)
}

func build(q Query, maxResults int) (Query, error) {
	if maxResults == 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults < 1 || maxResults > MaxMaxResults {
		return Query{}, fmt.Errorf("max_results must be between 1 and %d", MaxMaxResults)
	}
	q.maxResults = maxResults
	return q, nil
}

// Modality returns the input form.
func (q *Query) Modality() Modality { return q.modality }

// ImageBytes returns the uploaded bytes (upload modality only).
func (q *Query) ImageBytes() []byte { return q.imageBytes }

// ImageURL returns the remote image URL (url modality only).
func (q *Query) ImageURL() string { return q.imageURL }

// InlinePayload returns the base64 payload (inline modality only).
func (q *Query) InlinePayload() string { return q.inline }

// RawFilter returns the uncompiled filter expression, empty for match-all.
func (q *Query) RawFilter() string { return q.rawFilter }

// MaxResults returns the result cap, within [1, 100].
func (q *Query) MaxResults() int { return q.maxResults }
