package result

// Result is a single search hit (immutable, built fresh per query).
type Result struct {
	productID   string
	displayName string
	score       float64
	imageURI    string
	labels      map[string]string
}

// New creates a search result. Labels may be nil when the matched product
// resolves to no known attributes.
func New(productID, displayName string, score float64, imageURI string, labels map[string]string) Result {
	return Result{
		productID:   productID,
		displayName: displayName,
		score:       score,
		imageURI:    imageURI,
		labels:      labels,
	}
}

// ProductID returns the matched catalog identifier.
func (r *Result) ProductID() string { return r.productID }

// DisplayName returns the matched product label.
func (r *Result) DisplayName() string { return r.displayName }

// Score returns the similarity score in [0, 1].
func (r *Result) Score() float64 { return r.score }

// ImageURI returns the matched reference image location.
func (r *Result) ImageURI() string { return r.imageURI }

// Labels returns the matched product attributes, empty when unresolvable.
func (r *Result) Labels() map[string]string { return r.labels }
