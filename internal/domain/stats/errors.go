package stats

import "errors"

// ErrNoData is returned when an analysis has no prices to work on.
var ErrNoData = errors.New("no data")
