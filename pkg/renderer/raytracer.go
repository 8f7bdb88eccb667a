package renderer

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/lights"
	"github.com/df07/go-whitted-raytracer/pkg/material"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

const (
	// RecursionLimit is the deepest reflection level that is traced
	RecursionLimit = 6
	// Epsilon offsets secondary ray origins off the surface they leave
	Epsilon = 0.01
	// HitEpsilon is the smallest distance accepted as a hit
	HitEpsilon = 1e-6
	// SpecularExponent is the Phong exponent for highlights
	SpecularExponent = 20
)

// ErrFrameSize is returned by Render when the sink does not match the direction table
var ErrFrameSize = errors.New("renderer: frame size does not match camera")

// Hit describes the nearest intersection found by RayTrace
type Hit struct {
	Primitive geometry.Primitive
	Distance  float64
	Point     core.Vec3
	Normal    core.Vec3
}

// Raytracer traces a scene with Whitted-style shading: diffuse and specular
// terms per light plus recursive mirror reflection.
//
// A Raytracer is not safe for concurrent use.
type Raytracer struct {
	scene  *scene.Scene
	camera *Camera
	stats  TraceStats
}

// NewRaytracer creates a raytracer for s and builds the direction table for
// a width x height frame from the scene's eye and focal length.
func NewRaytracer(s *scene.Scene, width, height int) *Raytracer {
	return &Raytracer{
		scene:  s,
		camera: NewCamera(s.Options.Eye, s.Options.FocalLength, width, height),
	}
}

// Resize rebuilds the direction table for a new frame size
func (rt *Raytracer) Resize(width, height int) {
	rt.camera = NewCamera(rt.scene.Options.Eye, rt.scene.Options.FocalLength, width, height)
}

// Scene returns the scene being traced
func (rt *Raytracer) Scene() *scene.Scene { return rt.scene }

// Camera returns the current direction table
func (rt *Raytracer) Camera() *Camera { return rt.camera }

// Stats returns the trace counters accumulated since the last reset
func (rt *Raytracer) Stats() TraceStats { return rt.stats }

// ResetStats clears the trace counters
func (rt *Raytracer) ResetStats() { rt.stats = TraceStats{} }

// RayTrace returns the unclamped colour seen along ray and the nearest hit,
// or a zero colour and nil when nothing is hit or depth exceeds RecursionLimit.
// Primary rays use depth 0.
func (rt *Raytracer) RayTrace(ray core.Ray, depth int) (core.Vec3, *Hit) {
	rt.stats.Calls++
	if depth > RecursionLimit {
		return core.Vec3{}, nil
	}
	if depth > rt.stats.MaxDepth {
		rt.stats.MaxDepth = depth
	}

	hit := rt.nearestHit(ray)
	if hit == nil {
		return core.Vec3{}, nil
	}

	mat := hit.Primitive.Surface()
	colour := rt.directLighting(ray, hit, mat)

	if mat.IsReflective() {
		reflected := ray.Direction.Subtract(hit.Normal.Multiply(2 * ray.Direction.Dot(hit.Normal)))
		if dir, err := reflected.TryNormalize(); err == nil {
			rt.stats.Reflections++
			bounce := core.NewRay(hit.Point.Add(dir.Multiply(Epsilon)), dir)
			incoming, _ := rt.RayTrace(bounce, depth+1)
			colour = colour.Add(incoming.MultiplyVec(mat.ColorVec()).Multiply(mat.Reflectivity))
		}
	}

	return colour, hit
}

// nearestHit scans every primitive in insertion order. The first primitive
// found at the smallest distance wins.
func (rt *Raytracer) nearestHit(ray core.Ray) *Hit {
	var closest geometry.Primitive
	best := rt.scene.Options.FarDistance

	for _, p := range rt.scene.Objects() {
		if d, ok := p.Intersect(ray); ok && d > HitEpsilon && d < best {
			closest = p
			best = d
		}
	}
	if closest == nil {
		return nil
	}

	return &Hit{
		Primitive: closest,
		Distance:  best,
		Point:     ray.At(best),
		Normal:    closest.NormalAt(ray, best),
	}
}

// directLighting sums the diffuse and specular contribution of every light
func (rt *Raytracer) directLighting(ray core.Ray, hit *Hit, mat material.Material) core.Vec3 {
	var colour core.Vec3

	for _, light := range rt.scene.Lights() {
		switch l := light.(type) {
		case *lights.DirectionalLight:
			dir, err := l.Direction.TryNormalize()
			if err != nil {
				core.Logger().Debug("skipping directional light with zero direction")
				continue
			}
			colour = colour.Add(rt.lightContribution(ray, hit, mat, dir, l.ColorVec(), 1))

		case *lights.PointLight:
			toLight := l.Position.Subtract(hit.Point)
			dir, err := toLight.TryNormalize()
			if err != nil {
				continue
			}
			shade := 1.0
			if rt.scene.Shadows() && rt.occluded(hit, dir, toLight.Length()) {
				shade = 0
			}
			colour = colour.Add(rt.lightContribution(ray, hit, mat, dir, l.ColorVec(), shade))

		case *lights.SpotLight:
			// no cone model; spot lights do not illuminate
		}
	}
	return colour
}

// lightContribution returns the diffuse plus specular term for one light
// arriving along unit direction toLight, scaled by shade.
func (rt *Raytracer) lightContribution(ray core.Ray, hit *Hit, mat material.Material, toLight, lightColor core.Vec3, shade float64) core.Vec3 {
	var colour core.Vec3

	if mat.Diffuse > 0 {
		if cos := toLight.Dot(hit.Normal); cos > 0 {
			colour = mat.ColorVec().MultiplyVec(lightColor).Multiply(mat.Diffuse * cos * shade)
		}
	}

	if rt.scene.Specular() && mat.Specular > 0 {
		r := toLight.Subtract(hit.Normal.Multiply(2 * toLight.Dot(hit.Normal)))
		if s := ray.Direction.Dot(r); s > 0 {
			colour = colour.Add(lightColor.Multiply(math.Pow(s, SpecularExponent) * mat.Specular * shade))
		}
	}
	return colour
}

// occluded reports whether another primitive lies between the hit point and
// a point light distance away along dir.
func (rt *Raytracer) occluded(hit *Hit, dir core.Vec3, distance float64) bool {
	shadowRay := core.NewRay(hit.Point.Add(dir.Multiply(Epsilon)), dir)
	for _, p := range rt.scene.Objects() {
		if p == hit.Primitive {
			continue
		}
		if d, ok := p.Intersect(shadowRay); ok && d > HitEpsilon && d < distance {
			return true
		}
	}
	return false
}

// TracePixel traces the camera ray for pixel (x, y) without touching the trace counters
func (rt *Raytracer) TracePixel(x, y int) (core.Vec3, *Hit) {
	saved := rt.stats
	defer func() { rt.stats = saved }()
	return rt.RayTrace(rt.camera.GetRay(x, y), 0)
}

// Render traces every pixel in row-major order and writes it to sink exactly
// once. Pixels whose camera ray misses get the scene background. A pixel
// whose trace panics or produces a non-finite colour is also given the
// background and counted in RenderStats.Faults; the frame continues.
//
// Sinks implementing Locker are locked for the duration of the loop and
// sinks implementing Presenter are presented afterwards.
func (rt *Raytracer) Render(sink FrameSink) (RenderStats, error) {
	width, height := rt.camera.Width(), rt.camera.Height()
	if sink.Width() != width || sink.Height() != height {
		return RenderStats{}, fmt.Errorf("%w: frame is %dx%d, camera is %dx%d",
			ErrFrameSize, sink.Width(), sink.Height(), width, height)
	}

	stats, err := rt.traceFrame(sink)
	if err != nil {
		return stats, err
	}

	if presenter, ok := sink.(Presenter); ok {
		if err := presenter.Present(); err != nil {
			return stats, fmt.Errorf("failed to present frame: %w", err)
		}
	}

	core.Logger().Info("frame rendered",
		"width", width, "height", height,
		"hits", stats.Hits, "faults", stats.Faults,
		"rays", stats.Trace.Calls, "duration", stats.Duration)
	return stats, nil
}

// traceFrame fills sink pixel by pixel, holding the sink's lock when it
// has one. The lock is released even if the sink panics.
func (rt *Raytracer) traceFrame(sink FrameSink) (RenderStats, error) {
	if locker, ok := sink.(Locker); ok {
		if err := locker.Lock(); err != nil {
			return RenderStats{}, fmt.Errorf("failed to lock frame: %w", err)
		}
		defer locker.Unlock()
	}

	rt.ResetStats()
	width, height := rt.camera.Width(), rt.camera.Height()
	stats := RenderStats{Width: width, Height: height}
	start := time.Now()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c, hit, fault := rt.renderPixel(x, y)
			if hit {
				stats.Hits++
			}
			if fault {
				stats.Faults++
			}
			sink.PutPixel(x, y, c)
			stats.Pixels++
		}
	}

	stats.Trace = rt.stats
	stats.Duration = time.Since(start)
	return stats, nil
}

// renderPixel returns the final colour for pixel (x, y), whether the camera
// ray hit anything and whether tracing failed.
func (rt *Raytracer) renderPixel(x, y int) (c color.RGBA, hit bool, fault bool) {
	background := rt.scene.Options.Background
	defer func() {
		if r := recover(); r != nil {
			core.Logger().Debug("pixel trace failed", "x", x, "y", y, "panic", r)
			c, hit, fault = background, false, true
		}
	}()

	colour, h := rt.RayTrace(rt.camera.GetRay(x, y), 0)
	if h == nil {
		return background, false, false
	}
	if !colour.IsFinite() {
		core.Logger().Debug("pixel colour not finite", "x", x, "y", y, "colour", colour)
		return background, true, true
	}
	return core.VecToColor(colour), true, false
}
