package geometry

import (
	"fmt"
	"math"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/material"
)

// orthogonalEpsilon is the largest |dot(look, up)| accepted for a cube basis
const orthogonalEpsilon = 1e-9

// Cube is an oriented box: a center, an orthonormal basis and a half-width
// along each basis axis.
type Cube struct {
	Center                    core.Vec3
	AxisX, AxisY, AxisZ       core.Vec3
	ExtentX, ExtentY, ExtentZ float64
	Material                  material.Material
}

// NewCube creates an oriented box looking along look with the given up
// direction. AxisZ = look, AxisY = up and AxisX = cross(look, up), all unit length.
func NewCube(center, look, up core.Vec3, extentX, extentY, extentZ float64, mat material.Material) (*Cube, error) {
	z, err := look.TryNormalize()
	if err != nil {
		return nil, fmt.Errorf("%w: cube look direction: %v", ErrDegenerate, err)
	}
	y, err := up.TryNormalize()
	if err != nil {
		return nil, fmt.Errorf("%w: cube up direction: %v", ErrDegenerate, err)
	}
	if math.Abs(z.Dot(y)) > orthogonalEpsilon {
		return nil, fmt.Errorf("%w: cube look %v and up %v are not perpendicular", ErrDegenerate, look, up)
	}
	if extentX <= 0 || extentY <= 0 || extentZ <= 0 {
		return nil, fmt.Errorf("%w: cube extents must be positive, got %g %g %g", ErrDegenerate, extentX, extentY, extentZ)
	}

	return &Cube{
		Center:   center,
		AxisX:    z.Cross(y),
		AxisY:    y,
		AxisZ:    z,
		ExtentX:  extentX,
		ExtentY:  extentY,
		ExtentZ:  extentZ,
		Material: mat,
	}, nil
}

// Axis returns basis axis i (0=X, 1=Y, 2=Z). Any other index panics with ErrAxisIndex.
func (c *Cube) Axis(i int) core.Vec3 {
	switch i {
	case 0:
		return c.AxisX
	case 1:
		return c.AxisY
	case 2:
		return c.AxisZ
	}
	panic(fmt.Errorf("%w: %d", ErrAxisIndex, i))
}

// Extent returns the half-width along axis i. Any other index panics with ErrAxisIndex.
func (c *Cube) Extent(i int) float64 {
	switch i {
	case 0:
		return c.ExtentX
	case 1:
		return c.ExtentY
	case 2:
		return c.ExtentZ
	}
	panic(fmt.Errorf("%w: %d", ErrAxisIndex, i))
}

// SetExtent replaces the half-width along axis i. Any other index panics with ErrAxisIndex.
func (c *Cube) SetExtent(i int, f float64) {
	switch i {
	case 0:
		c.ExtentX = f
	case 1:
		c.ExtentY = f
	case 2:
		c.ExtentZ = f
	default:
		panic(fmt.Errorf("%w: %d", ErrAxisIndex, i))
	}
}

// Intersect decides hit or miss with the slab and separating-axis tests on
// the three box axes, then reports the entry distance from the per-axis slab
// intervals. From inside the box the exit distance is reported.
func (c *Cube) Intersect(ray core.Ray) (float64, bool) {
	var wd, awd, dd [3]float64
	diff := ray.Origin.Subtract(c.Center)

	// outside a slab and moving away from it
	for i := 0; i < 3; i++ {
		axis := c.Axis(i)
		wd[i] = ray.Direction.Dot(axis)
		awd[i] = math.Abs(wd[i])
		dd[i] = diff.Dot(axis)
		if math.Abs(dd[i]) > c.Extent(i) && dd[i]*wd[i] >= 0 {
			return 0, false
		}
	}

	// separating axes from the cross products of the direction with each box axis
	wxd := ray.Direction.Cross(diff)
	for i := 0; i < 3; i++ {
		j, k := (i+1)%3, (i+2)%3
		rhs := c.Extent(j)*awd[k] + c.Extent(k)*awd[j]
		if math.Abs(wxd.Dot(c.Axis(i))) > rhs {
			return 0, false
		}
	}

	tNear, tFar := math.Inf(-1), math.Inf(1)
	for i := 0; i < 3; i++ {
		e := c.Extent(i)
		if awd[i] < parallelEpsilon {
			if math.Abs(dd[i]) > e {
				return 0, false
			}
			continue
		}
		t1 := (-e - dd[i]) / wd[i]
		t2 := (e - dd[i]) / wd[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tNear = math.Max(tNear, t1)
		tFar = math.Min(tFar, t2)
		if tNear > tFar {
			return 0, false
		}
	}

	if tFar < 0 {
		return 0, false
	}
	if tNear >= 0 {
		return tNear, true
	}
	return tFar, true
}

// NormalAt returns the outward axis of the face containing the hit point:
// the axis along which the point is relatively farthest from the center.
func (c *Cube) NormalAt(ray core.Ray, distance float64) core.Vec3 {
	local := ray.At(distance).Subtract(c.Center)

	normal := c.AxisZ
	best := -1.0
	for i := 0; i < 3; i++ {
		axis := c.Axis(i)
		d := local.Dot(axis)
		ratio := math.Abs(d) / c.Extent(i)
		if ratio > best {
			best = ratio
			normal = axis
			if d < 0 {
				normal = axis.Negate()
			}
		}
	}
	return normal
}

// Surface returns the cube's material
func (c *Cube) Surface() material.Material { return c.Material }

func (*Cube) primitive() {}
