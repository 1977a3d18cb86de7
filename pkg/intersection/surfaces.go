package intersection

import (
	"math"

	"github.com/df07/go-light-kernel/pkg/core"
	"github.com/df07/go-light-kernel/pkg/scene"
)

// Analytic surfaces are intersected in the local space of their object. Rays are not renormalized
// by instance transforms, so distances found here are valid in every enclosing space.

// intersectSurface returns the closest hit of the ray with the surface in [tMin, tMax)
// together with the surface parameters of the hit point.
func intersectSurface(object scene.SurfaceObject, ray *core.Ray, tMin, tMax float64) (float64, core.Vec2, bool) {
	switch s := object.(type) {
	case *scene.SphereObject:
		return intersectSphere(s, ray, tMin, tMax)
	case *scene.RectObject:
		return intersectRect(s, ray, tMin, tMax)
	case *scene.DiskObject:
		return intersectDisk(s, ray, tMin, tMax)
	}
	return 0, core.Vec2{}, false
}

func intersectSphere(s *scene.SphereObject, ray *core.Ray, tMin, tMax float64) (float64, core.Vec2, bool) {
	oc := ray.Origin.Subtract(s.Center)
	a := ray.Direction.Dot(ray.Direction)
	halfB := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if a == 0 || discriminant < 0 {
		return 0, core.Vec2{}, false
	}

	sqrtD := math.Sqrt(discriminant)
	root := (-halfB - sqrtD) / a
	if root < tMin || root >= tMax {
		root = (-halfB + sqrtD) / a
		if root < tMin || root >= tMax {
			return 0, core.Vec2{}, false
		}
	}

	return root, sphereParams(s, ray.At(root)), true
}

func sphereParams(s *scene.SphereObject, p core.Vec3) core.Vec2 {
	theta, phi := core.SphericalCoordinates(p.Subtract(s.Center).Normalize())
	return core.NewVec2(phi/(2*math.Pi), theta/math.Pi)
}

func intersectRect(r *scene.RectObject, ray *core.Ray, tMin, tMax float64) (float64, core.Vec2, bool) {
	n := r.X.Cross(r.Y)
	nn := n.LengthSquared()
	denominator := ray.Direction.Dot(n)
	if nn == 0 || math.Abs(denominator) < 1e-12*math.Sqrt(nn) {
		return 0, core.Vec2{}, false
	}

	t := n.Dot(r.Origin.Subtract(ray.Origin)) / denominator
	if t < tMin || t >= tMax {
		return 0, core.Vec2{}, false
	}

	uv := rectParams(r, ray.At(t))
	if uv.X < 0 || uv.X > 1 || uv.Y < 0 || uv.Y > 1 {
		return 0, core.Vec2{}, false
	}
	return t, uv, true
}

func rectParams(r *scene.RectObject, p core.Vec3) core.Vec2 {
	n := r.X.Cross(r.Y)
	nn := n.LengthSquared()
	if nn == 0 {
		return core.Vec2{}
	}
	h := p.Subtract(r.Origin)
	return core.NewVec2(n.Dot(h.Cross(r.Y))/nn, n.Dot(r.X.Cross(h))/nn)
}

func intersectDisk(d *scene.DiskObject, ray *core.Ray, tMin, tMax float64) (float64, core.Vec2, bool) {
	denominator := d.Normal.Dot(ray.Direction)
	if math.Abs(denominator) < 1e-12 {
		return 0, core.Vec2{}, false
	}

	t := d.Normal.Dot(d.Center.Subtract(ray.Origin)) / denominator
	if t < tMin || t >= tMax {
		return 0, core.Vec2{}, false
	}

	p := ray.At(t)
	if p.Subtract(d.Center).LengthSquared() > d.Radius*d.Radius {
		return 0, core.Vec2{}, false
	}
	return t, diskParams(d, p), true
}

// Disk parameters are the normalized radius and the normalized angle around the normal
func diskParams(d *scene.DiskObject, p core.Vec3) core.Vec2 {
	if d.Radius == 0 {
		return core.Vec2{}
	}
	local := core.NewBasis(d.Normal).ToLocal(p.Subtract(d.Center))
	phi := math.Atan2(local.Y, local.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	r := math.Sqrt(local.X*local.X+local.Y*local.Y) / d.Radius
	return core.NewVec2(math.Min(1, r), phi/(2*math.Pi))
}

// surfaceParams maps a local point on the surface to its parameters
func surfaceParams(object scene.SurfaceObject, p core.Vec3) core.Vec2 {
	switch s := object.(type) {
	case *scene.SphereObject:
		return sphereParams(s, p)
	case *scene.RectObject:
		return rectParams(s, p)
	case *scene.DiskObject:
		return diskParams(s, p)
	}
	return core.Vec2{}
}

type surfaceFrame struct {
	point  core.Vec3
	normal core.Vec3
	dpdu   core.Vec3
	dpdv   core.Vec3
}

// evaluateSurface returns the local point, unit normal and parametric derivatives at uv
func evaluateSurface(object scene.SurfaceObject, uv core.Vec2) surfaceFrame {
	switch s := object.(type) {
	case *scene.SphereObject:
		theta := uv.Y * math.Pi
		phi := uv.X * 2 * math.Pi
		sinTheta, cosTheta := math.Sin(theta), math.Cos(theta)
		sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
		dir := core.NewVec3(sinTheta*cosPhi, cosTheta, sinTheta*sinPhi)
		return surfaceFrame{
			point:  s.Center.Add(dir.Multiply(s.Radius)),
			normal: dir,
			dpdu:   core.NewVec3(-sinTheta*sinPhi, 0, sinTheta*cosPhi).Multiply(2 * math.Pi * s.Radius),
			dpdv:   core.NewVec3(cosTheta*cosPhi, -sinTheta, cosTheta*sinPhi).Multiply(math.Pi * s.Radius),
		}

	case *scene.RectObject:
		return surfaceFrame{
			point:  s.Origin.Add(s.X.Multiply(uv.X)).Add(s.Y.Multiply(uv.Y)),
			normal: s.Normal(),
			dpdu:   s.X,
			dpdv:   s.Y,
		}

	case *scene.DiskObject:
		basis := core.NewBasis(s.Normal)
		phi := uv.Y * 2 * math.Pi
		sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
		radial := basis.U.Multiply(cosPhi).Add(basis.V.Multiply(sinPhi))
		tangent := basis.V.Multiply(cosPhi).Subtract(basis.U.Multiply(sinPhi))
		return surfaceFrame{
			point:  s.Center.Add(radial.Multiply(uv.X * s.Radius)),
			normal: s.Normal,
			dpdu:   radial.Multiply(s.Radius),
			dpdv:   tangent.Multiply(2 * math.Pi * uv.X * s.Radius),
		}
	}
	return surfaceFrame{}
}
