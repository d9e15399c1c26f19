package ingest

import "errors"

// Sentinel errors for ingestion.
var (
	ErrEmptyPayload = errors.New("empty payload")
	ErrMalformed    = errors.New("malformed payload")
	ErrNotObject    = errors.New("record is not a JSON object")
	ErrMissingTitle = errors.New("missing titulo")
	ErrBadPrice     = errors.New("invalid precio_valor")
	ErrBadDate      = errors.New("invalid fecha_extraccion")
)
