package domain

import "errors"

var (
	// ErrMissingField signals a catalog row missing a required field.
	ErrMissingField = errors.New("missing required field")
	// ErrUnknownAttribute signals an attribute key outside the vocabulary.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrFilterParse signals a malformed filter expression.
	ErrFilterParse = errors.New("filter parse failure")
	// ErrInvalidFilter signals a search rejected for its filter before dispatch.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrImageUnavailable signals an unreachable query image URL.
	ErrImageUnavailable = errors.New("image unavailable")
	// ErrBadImage signals a query image the backend cannot process.
	ErrBadImage = errors.New("bad image")
	// ErrRateLimited signals an exhausted remote quota.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable signals a remote failure that survived retries.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
)
