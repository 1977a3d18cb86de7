package bsdf

import "github.com/pkg/errors"

var (
	// ErrUnknownDistribution is returned for microfacet distribution names that are not implemented
	ErrUnknownDistribution = errors.New("bsdf: microfacet distribution not implemented")

	// ErrUnknownModel is returned for reflection models that are not implemented
	ErrUnknownModel = errors.New("bsdf: reflection model not implemented")
)
