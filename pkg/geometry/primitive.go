package geometry

import (
	"errors"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/material"
)

var (
	// ErrAxisIndex is the panic value for a cube axis or extent index outside {0,1,2}
	ErrAxisIndex = errors.New("geometry: axis index out of range")
	// ErrDegenerate is returned by constructors given geometry that cannot be traced
	ErrDegenerate = errors.New("geometry: degenerate primitive")
)

// Primitive is a traceable shape. The set of implementations is closed:
// *Sphere, *Plane, *Triangle and *Cube.
type Primitive interface {
	// Intersect returns the distance along the ray to the surface, or false on a miss.
	// Implementations may report negative distances; callers validate them.
	Intersect(ray core.Ray) (float64, bool)

	// NormalAt returns the surface normal at ray.At(distance)
	NormalAt(ray core.Ray, distance float64) core.Vec3

	// Surface returns the primitive's material
	Surface() material.Material

	primitive()
}
