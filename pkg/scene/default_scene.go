package scene

import (
	"image/color"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/lights"
	"github.com/df07/go-whitted-raytracer/pkg/material"
)

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 255} }

// NewDefaultScene creates the demo scene: a tilted floor plane, four
// reflective spheres and one point light. The green sphere is the
// interactively controlled one.
func NewDefaultScene() *Scene {
	s := New(DefaultOptions())

	floor, err := geometry.NewPlane(core.NewVec3(0, 1, -0.05), 250,
		material.New(rgb(255, 255, 255)).WithDiffuse(1))
	if err != nil {
		panic(err) // constant non-zero normal
	}

	red := geometry.NewSphere(core.NewVec3(0, 0, 0), 150,
		material.New(rgb(150, 50, 50)).WithDiffuse(0.5).WithSpecular(0.5).WithReflectivity(1))
	green := geometry.NewSphere(core.NewVec3(100, 250, 100), 100,
		material.New(rgb(20, 150, 20)).WithDiffuse(1).WithSpecular(1).WithReflectivity(1))
	blue := geometry.NewSphere(core.NewVec3(350, -50, 180), 60,
		material.New(rgb(20, 20, 150)).WithSpecular(1).WithReflectivity(1))
	grey := geometry.NewSphere(core.NewVec3(-300, 50, 100), 150,
		material.New(rgb(50, 50, 50)).WithDiffuse(1).WithSpecular(1).WithReflectivity(1))

	s.AddObject(floor)
	s.AddObject(red)
	s.AddObject(green)
	s.AddObject(blue)
	s.AddObject(grey)
	s.AddLight(lights.NewPointLight(core.NewVec3(50, 500, -100)))

	s.Controlled = green
	return s
}
