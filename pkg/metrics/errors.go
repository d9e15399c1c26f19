package metrics

import (
	"errors"
)

// ErrNoManager is returned by SetGlobal when given a nil manager.
var ErrNoManager = errors.New("metrics: nil manager")
