package scene

import "github.com/pkg/errors"

// ErrUnknownScene is returned when a built-in scene name is not registered.
var ErrUnknownScene = errors.New("scene: unknown built-in scene")
