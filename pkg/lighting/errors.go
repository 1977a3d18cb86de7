package lighting

import "github.com/pkg/errors"

// ErrNoLights is reported when a scene has neither emitting shapes nor non-physical lights.
// Sampling never returns it; samplers report a miss instead.
var ErrNoLights = errors.New("lighting: scene has no lights")
