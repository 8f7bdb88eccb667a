package scene

import (
	"math"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/lights"
	"github.com/df07/go-whitted-raytracer/pkg/material"
)

// NewMirrorsScene creates a ring of mutually reflecting spheres around a
// small matte sphere. Rays bounce between the mirrors until the recursion
// limit stops them.
func NewMirrorsScene() *Scene {
	s := New(DefaultOptions())

	mirror := material.New(rgb(230, 230, 240)).WithDiffuse(0.1).WithSpecular(1).WithReflectivity(0.9)
	const (
		count      = 6
		ringRadius = 320.0
		radius     = 120.0
	)
	for i := 0; i < count; i++ {
		angle := 2 * math.Pi * float64(i) / count
		center := core.NewVec3(ringRadius*math.Cos(angle), ringRadius*math.Sin(angle), 200)
		s.AddObject(geometry.NewSphere(center, radius, mirror))
	}

	target := geometry.NewSphere(core.NewVec3(0, 0, 200), 90,
		material.New(rgb(200, 120, 30)).WithDiffuse(0.9).WithSpecular(0.6))
	s.AddObject(target)
	s.Controlled = target

	s.AddLight(lights.NewPointLight(core.NewVec3(0, 0, -400)))
	return s
}

// NewShapesScene shows every primitive kind: a floor plane, an oriented
// cube, a triangle pair and a sphere, lit by a directional and a point light.
func NewShapesScene() *Scene {
	s := New(DefaultOptions())

	floor, err := geometry.NewPlane(core.NewVec3(0, 1, 0), 250,
		material.New(rgb(200, 200, 200)).WithDiffuse(0.8).WithReflectivity(0.2))
	if err != nil {
		panic(err)
	}
	s.AddObject(floor)

	cube, err := geometry.NewCube(core.NewVec3(-280, -130, 150),
		core.NewVec3(1, 0, 1), core.NewVec3(0, 1, 0), 110, 120, 110,
		material.New(rgb(180, 40, 40)).WithDiffuse(0.8).WithSpecular(0.5).WithReflectivity(0.3))
	if err != nil {
		panic(err)
	}
	s.AddObject(cube)

	gold := material.New(rgb(210, 170, 40)).WithDiffuse(0.9).WithSpecular(0.8)
	apex := core.NewVec3(260, 150, 200)
	left, err := geometry.NewTriangle(core.NewVec3(120, -250, 120), core.NewVec3(400, -250, 120), apex, gold)
	if err != nil {
		panic(err)
	}
	right, err := geometry.NewTriangle(core.NewVec3(400, -250, 120), core.NewVec3(400, -250, 320), apex, gold)
	if err != nil {
		panic(err)
	}
	s.AddObject(left)
	s.AddObject(right)

	ball := geometry.NewSphere(core.NewVec3(0, -150, -50), 100,
		material.New(rgb(40, 90, 200)).WithDiffuse(0.7).WithSpecular(1).WithReflectivity(0.6))
	s.AddObject(ball)
	s.Controlled = ball

	s.AddLight(lights.NewDirectionalLight(core.NewVec3(0.3, 1, -0.5)))
	s.AddLight(lights.NewPointLight(core.NewVec3(0, 600, -400)))
	s.AddLight(lights.NewSpotLight())
	return s
}
