package bsdf

import (
	"math"

	"github.com/df07/go-light-kernel/pkg/core"
)

// FresnelDielectric returns the unpolarized reflectance of a dielectric interface. cosI is the
// cosine of the incident angle and eta the ratio of the transmitted to incident indices. Total
// internal reflection returns 1.
func FresnelDielectric(cosI, eta float64) float64 {
	cosI = math.Max(-1, math.Min(1, cosI))
	if cosI < 0 {
		eta = 1 / eta
		cosI = -cosI
	}

	sin2T := (1 - cosI*cosI) / (eta * eta)
	if sin2T >= 1 {
		return 1
	}
	cosT := math.Sqrt(1 - sin2T)

	parallel := (eta*cosI - cosT) / (eta*cosI + cosT)
	perpendicular := (cosI - eta*cosT) / (cosI + eta*cosT)
	return (parallel*parallel + perpendicular*perpendicular) / 2
}

// FresnelSchlick approximates the reflectance for the normal incidence color f0
func FresnelSchlick(f0 core.Vec3, cos float64) core.Vec3 {
	m := math.Pow(1-math.Max(0, math.Min(1, cos)), 5)
	return f0.Add(core.NewVec3(1, 1, 1).Subtract(f0).Multiply(m))
}
