package geometry

import (
	"fmt"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/material"
)

// determinantEpsilon bounds |det| below which a ray is treated as lying in the triangle's plane
const determinantEpsilon = 1e-6

// Triangle represents a single triangle defined by three vertices
type Triangle struct {
	A, B, C  core.Vec3
	Material material.Material
}

// NewTriangle creates a new triangle from three vertices.
// Zero-area triangles are rejected with ErrDegenerate.
func NewTriangle(a, b, c core.Vec3, mat material.Material) (*Triangle, error) {
	if b.Subtract(a).Cross(c.Subtract(a)).LengthSquared() == 0 {
		return nil, fmt.Errorf("%w: zero-area triangle %v %v %v", ErrDegenerate, a, b, c)
	}
	return &Triangle{A: a, B: b, C: c, Material: mat}, nil
}

// Intersect tests if a ray intersects the triangle using the Möller-Trumbore
// algorithm. Both faces are hit.
func (t *Triangle) Intersect(ray core.Ray) (float64, bool) {
	edge1 := t.B.Subtract(t.A)
	edge2 := t.C.Subtract(t.A)

	pvec := ray.Direction.Cross(edge2)
	det := edge1.Dot(pvec)
	if det > -determinantEpsilon && det < determinantEpsilon {
		return 0, false
	}
	invDet := 1.0 / det

	tvec := ray.Origin.Subtract(t.A)
	u := tvec.Dot(pvec) * invDet
	if u < 0.0 || u > 1.0 {
		return 0, false
	}

	qvec := tvec.Cross(edge1)
	v := ray.Direction.Dot(qvec) * invDet
	if v < 0.0 || u+v > 1.0 {
		return 0, false
	}

	distance := edge2.Dot(qvec) * invDet
	if distance < 0.0 {
		return 0, false
	}
	return distance, true
}

// NormalAt returns the face normal. It is constant over the triangle and its
// sign follows the vertex winding.
func (t *Triangle) NormalAt(ray core.Ray, distance float64) core.Vec3 {
	return t.B.Subtract(t.A).Cross(t.C.Subtract(t.A)).Normalize()
}

// Surface returns the triangle's material
func (t *Triangle) Surface() material.Material { return t.Material }

func (*Triangle) primitive() {}
