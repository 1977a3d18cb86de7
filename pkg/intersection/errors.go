package intersection

import "github.com/pkg/errors"

// ErrNotImplemented is returned when an assembly requests an acceleration structure algorithm
// that is not available.
var ErrNotImplemented = errors.New("intersection: not implemented")
