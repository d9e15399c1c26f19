package source

import "errors"

// Sentinel errors for data sources.
var (
	ErrNotFound      = errors.New("document not found")
	ErrUnknownKind   = errors.New("unknown data source kind")
	ErrUnknownFacet  = errors.New("unknown facet field")
	ErrUnavailable   = errors.New("data source unavailable")
	ErrInvalidConfig = errors.New("invalid data source config")
)
