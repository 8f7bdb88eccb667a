package scene

import (
	"image/color"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/lights"
)

// Defaults for a new scene
const (
	DefaultWidth       = 640
	DefaultHeight      = 480
	DefaultFocalLength = 10000.0
	DefaultFarDistance = 16000.0 + 20000.0 // eye distance plus the scene depth limit
)

var (
	// DefaultEye is the fixed camera position
	DefaultEye = core.NewVec3(0, 0, -16000)
	// DefaultBackground is written for camera rays that hit nothing
	DefaultBackground = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// Options holds the camera and frame settings of a scene
type Options struct {
	Width       int        // Frame width in pixels
	Height      int        // Frame height in pixels
	Eye         core.Vec3  // Origin of every camera ray
	FocalLength float64    // Distance from the eye to the image plane, in pixels
	FarDistance float64    // Hits at or beyond this distance are ignored
	Background  color.RGBA // Colour of pixels whose camera ray misses
}

// DefaultOptions returns the 640x480 camera looking down +Z from DefaultEye
func DefaultOptions() Options {
	return Options{
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		Eye:         DefaultEye,
		FocalLength: DefaultFocalLength,
		FarDistance: DefaultFarDistance,
		Background:  DefaultBackground,
	}
}

// SetFrame overrides the frame size and focal length. Zero values keep the
// current setting.
func (o *Options) SetFrame(width, height int, focalLength float64) {
	if width > 0 {
		o.Width = width
	}
	if height > 0 {
		o.Height = height
	}
	if focalLength > 0 {
		o.FocalLength = focalLength
	}
}

// Scene holds the primitives and lights to be traced, in insertion order,
// together with the shading toggles.
//
// A Scene is not safe for concurrent use. It must not be mutated while a
// render is in progress.
type Scene struct {
	Options Options

	// Controlled is the sphere moved by interactive input, if any
	Controlled *geometry.Sphere

	objects  []geometry.Primitive
	lights   []lights.Light
	shadows  bool
	specular bool
}

// New creates an empty scene with shadows and specular highlights enabled
func New(opts Options) *Scene {
	return &Scene{
		Options:  opts,
		objects:  make([]geometry.Primitive, 0),
		lights:   make([]lights.Light, 0),
		shadows:  true,
		specular: true,
	}
}

// Objects returns the primitives in insertion order. The slice is shared; do not modify it.
func (s *Scene) Objects() []geometry.Primitive { return s.objects }

// Lights returns the lights in insertion order. The slice is shared; do not modify it.
func (s *Scene) Lights() []lights.Light { return s.lights }

// AddObject appends a primitive. Adding the same primitive twice traces it twice.
func (s *Scene) AddObject(p geometry.Primitive) {
	s.objects = append(s.objects, p)
}

// RemoveObject removes the first entry that is p itself and reports whether one was found
func (s *Scene) RemoveObject(p geometry.Primitive) bool {
	for i, o := range s.objects {
		if o == p {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			return true
		}
	}
	return false
}

// AddLight appends a light
func (s *Scene) AddLight(l lights.Light) {
	s.lights = append(s.lights, l)
}

// RemoveLight removes the first entry that is l itself and reports whether one was found
func (s *Scene) RemoveLight(l lights.Light) bool {
	for i, o := range s.lights {
		if o == l {
			s.lights = append(s.lights[:i], s.lights[i+1:]...)
			return true
		}
	}
	return false
}

// SetShadows turns shadow rays toward point lights on or off
func (s *Scene) SetShadows(enabled bool) { s.shadows = enabled }

// Shadows reports whether shadow rays are cast
func (s *Scene) Shadows() bool { return s.shadows }

// SetSpecular turns specular highlights on or off
func (s *Scene) SetSpecular(enabled bool) { s.specular = enabled }

// Specular reports whether specular highlights are added
func (s *Scene) Specular() bool { return s.specular }

// GetPrimitiveCount returns the number of primitives in the scene
func (s *Scene) GetPrimitiveCount() int { return len(s.objects) }
