package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("ingest queue full")
	ErrNotStarted   = errors.New("service not started")
)
