package bsdf

import (
	"testing"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestFresnelDielectric(t *testing.T) {
	tests := []struct {
		name     string
		cosI     float64
		eta      float64
		expected float64
	}{
		{"normal incidence glass", 1, 1.5, 0.04},
		{"grazing", 0, 1.5, 1},
		{"matched indices", 0.7, 1, 0},
		{"total internal reflection", 0.1, 1 / 1.5, 1},
		{"inside glass at normal incidence", -1, 1 / 1.5, 0.04},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, FresnelDielectric(tt.cosI, tt.eta), 1e-9)
		})
	}
}

func TestFresnelDielectricIncreasesTowardGrazing(t *testing.T) {
	previous := FresnelDielectric(1, 1.5)
	for cos := 0.9; cos > 0.05; cos -= 0.1 {
		r := FresnelDielectric(cos, 1.5)
		assert.GreaterOrEqual(t, r, previous-1e-12, "cos=%v", cos)
		previous = r
	}
}

func TestFresnelSchlick(t *testing.T) {
	f0 := core.NewVec3(0.9, 0.6, 0.1)
	assert.Equal(t, f0, FresnelSchlick(f0, 1))
	grazing := FresnelSchlick(f0, 0)
	assert.InDelta(t, 1, grazing.X, 1e-12)
	assert.InDelta(t, 1, grazing.Y, 1e-12)
	assert.InDelta(t, 1, grazing.Z, 1e-12)

	mid := FresnelSchlick(f0, 0.5)
	assert.InDelta(t, 0.9+0.1/32, mid.X, 1e-12)
	assert.InDelta(t, 0.1+0.9/32, mid.Z, 1e-12)
}
