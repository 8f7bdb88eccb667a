package geometry

import (
	"fmt"
	"math"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/material"
)

// parallelEpsilon is the smallest |dot(N, direction)| treated as non-parallel
const parallelEpsilon = 1e-9

// Plane represents an infinite plane dot(Normal, P) + Distance = 0
type Plane struct {
	Normal   core.Vec3 // Unit normal
	Distance float64   // Plane constant d
	Material material.Material
}

// NewPlane creates a plane from a normal (normalized here) and the plane
// constant. The constant is used as given, it is not rescaled.
func NewPlane(normal core.Vec3, distance float64, mat material.Material) (*Plane, error) {
	n, err := normal.TryNormalize()
	if err != nil {
		return nil, fmt.Errorf("%w: plane normal: %v", ErrDegenerate, err)
	}
	return &Plane{
		Normal:   n,
		Distance: distance,
		Material: mat,
	}, nil
}

// Intersect returns the ray parameter where it crosses the plane.
// Rays parallel to the plane and crossings behind the origin are misses.
func (p *Plane) Intersect(ray core.Ray) (float64, bool) {
	denominator := p.Normal.Dot(ray.Direction)
	if math.Abs(denominator) < parallelEpsilon {
		return 0, false
	}

	t := -(p.Normal.Dot(ray.Origin) + p.Distance) / denominator
	if t < 0 {
		return 0, false
	}
	return t, true
}

// NormalAt returns the stored normal; it is never flipped toward the viewer
func (p *Plane) NormalAt(ray core.Ray, distance float64) core.Vec3 {
	return p.Normal
}

// Surface returns the plane's material
func (p *Plane) Surface() material.Material { return p.Material }

func (*Plane) primitive() {}
