package geometry

import (
	"math"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/material"
)

// Sphere represents a sphere shape
type Sphere struct {
	Center   core.Vec3
	Radius   float64
	Material material.Material
}

// NewSphere creates a new sphere
func NewSphere(center core.Vec3, radius float64, mat material.Material) *Sphere {
	return &Sphere{
		Center:   center,
		Radius:   radius,
		Material: mat,
	}
}

// Intersect tests the ray against the sphere using the closest-approach form.
// The direction is expected to be unit length. A sphere whose center lies
// behind the origin is a miss, and an origin inside the sphere yields a
// negative distance.
func (s *Sphere) Intersect(ray core.Ray) (float64, bool) {
	toCenter := s.Center.Subtract(ray.Origin)

	closestApproach := toCenter.Dot(ray.Direction)
	if closestApproach < 0 {
		return 0, false
	}

	// squared half chord: r² minus squared distance from center to the ray line
	halfChord2 := s.Radius*s.Radius - toCenter.LengthSquared() + closestApproach*closestApproach
	if halfChord2 < 0 {
		return 0, false
	}

	return closestApproach - math.Sqrt(halfChord2), true
}

// NormalAt returns the outward unit normal at the hit point
func (s *Sphere) NormalAt(ray core.Ray, distance float64) core.Vec3 {
	point := ray.At(distance)
	return point.Subtract(s.Center).Multiply(1.0 / s.Radius).Normalize()
}

// Surface returns the sphere's material
func (s *Sphere) Surface() material.Material { return s.Material }

func (*Sphere) primitive() {}
