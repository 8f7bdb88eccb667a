package renderer

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/lights"
	"github.com/df07/go-whitted-raytracer/pkg/material"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

func vecNear(a, b core.Vec3, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// recordingSink collects pixels and the order of sink calls
type recordingSink struct {
	img     *image.RGBA
	writes  []image.Point
	events  []string
	lockErr error
}

func newRecordingSink(w, h int) *recordingSink {
	return &recordingSink{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (s *recordingSink) Width() int  { return s.img.Bounds().Dx() }
func (s *recordingSink) Height() int { return s.img.Bounds().Dy() }
func (s *recordingSink) PutPixel(x, y int, c color.RGBA) {
	s.img.SetRGBA(x, y, c)
	s.writes = append(s.writes, image.Pt(x, y))
	if len(s.writes) == 1 {
		s.events = append(s.events, "first-pixel")
	}
}
func (s *recordingSink) Lock() error {
	s.events = append(s.events, "lock")
	return s.lockErr
}
func (s *recordingSink) Unlock()        { s.events = append(s.events, "unlock") }
func (s *recordingSink) Present() error { s.events = append(s.events, "present"); return nil }

// plainSink implements only FrameSink
type plainSink struct{ img *image.RGBA }

func (s plainSink) Width() int                      { return s.img.Bounds().Dx() }
func (s plainSink) Height() int                     { return s.img.Bounds().Dy() }
func (s plainSink) PutPixel(x, y int, c color.RGBA) { s.img.SetRGBA(x, y, c) }

func newTestScene() *scene.Scene {
	opts := scene.DefaultOptions()
	opts.Width, opts.Height = 4, 4
	return scene.New(opts)
}

var (
	red   = color.RGBA{R: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ahead = core.NewRay(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1))
)

func TestRayTrace_Miss(t *testing.T) {
	s := newTestScene()
	s.AddObject(geometry.NewSphere(core.NewVec3(10, 0, 0), 1, material.New(red)))
	rt := NewRaytracer(s, 4, 4)

	colour, hit := rt.RayTrace(ahead, 0)
	if hit != nil {
		t.Errorf("Expected no hit, got %+v", hit)
	}
	if colour != (core.Vec3{}) {
		t.Errorf("Expected zero colour on miss, got %v", colour)
	}
}

func TestRayTrace_DepthBeyondLimit(t *testing.T) {
	s := newTestScene()
	s.AddObject(geometry.NewSphere(core.Vec3{}, 1, material.New(red)))
	s.AddLight(lights.NewDirectionalLight(core.NewVec3(0, 0, -1)))
	rt := NewRaytracer(s, 4, 4)

	colour, hit := rt.RayTrace(ahead, RecursionLimit+1)
	if hit != nil || colour != (core.Vec3{}) {
		t.Errorf("Expected zero contribution past the limit, got %v %+v", colour, hit)
	}
}

func TestRayTrace_DiffuseShading(t *testing.T) {
	s := newTestScene()
	orange := color.RGBA{R: 255, G: 51, A: 255}
	sphere := geometry.NewSphere(core.Vec3{}, 1, material.New(orange).WithDiffuse(1))
	s.AddObject(sphere)
	// directional light direction points from the scene toward the light
	s.AddLight(lights.NewDirectionalLight(core.NewVec3(0, 0, -1)))
	rt := NewRaytracer(s, 4, 4)

	colour, hit := rt.RayTrace(ahead, 0)
	if hit == nil {
		t.Fatal("Expected hit, got miss")
	}
	if hit.Primitive != sphere || math.Abs(hit.Distance-4) > 1e-9 {
		t.Errorf("Expected sphere hit at distance 4, got %+v", hit)
	}
	if !vecNear(hit.Normal, core.NewVec3(0, 0, -1), 1e-9) {
		t.Errorf("Expected normal (0, 0, -1), got %v", hit.Normal)
	}

	expected := core.NewVec3(1, 0.2, 0)
	if !vecNear(colour, expected, 1e-9) {
		t.Errorf("Expected colour %v, got %v", expected, colour)
	}
}

func TestRayTrace_LightBehindSurface(t *testing.T) {
	s := newTestScene()
	s.AddObject(geometry.NewSphere(core.Vec3{}, 1, material.New(red).WithDiffuse(1).WithSpecular(1)))
	s.AddLight(lights.NewDirectionalLight(core.NewVec3(0, 0, 1)))
	rt := NewRaytracer(s, 4, 4)

	if colour, _ := rt.RayTrace(ahead, 0); colour != (core.Vec3{}) {
		t.Errorf("Expected no light from behind, got %v", colour)
	}
}

func TestRayTrace_SpecularToggle(t *testing.T) {
	s := newTestScene()
	s.AddObject(geometry.NewSphere(core.Vec3{}, 1, material.New(red).WithDiffuse(0).WithSpecular(0.5)))
	s.AddLight(lights.NewDirectionalLight(core.NewVec3(0, 0, -1)))
	rt := NewRaytracer(s, 4, 4)

	// mirror direction of the light equals the view direction: s = 1
	colour, _ := rt.RayTrace(ahead, 0)
	if !vecNear(colour, core.NewVec3(0.5, 0.5, 0.5), 1e-9) {
		t.Errorf("Expected white highlight 0.5, got %v", colour)
	}

	s.SetSpecular(false)
	if colour, _ := rt.RayTrace(ahead, 0); colour != (core.Vec3{}) {
		t.Errorf("Expected no highlight with specular disabled, got %v", colour)
	}
}

func TestRayTrace_SpotLightContributesNothing(t *testing.T) {
	s := newTestScene()
	s.AddObject(geometry.NewSphere(core.Vec3{}, 1, material.New(white).WithDiffuse(1).WithSpecular(1)))
	s.AddLight(lights.NewSpotLight())
	rt := NewRaytracer(s, 4, 4)

	if colour, hit := rt.RayTrace(ahead, 0); hit == nil || colour != (core.Vec3{}) {
		t.Errorf("Expected a black hit, got %v %+v", colour, hit)
	}
}

func TestRayTrace_NonReflectiveDoesNotRecurse(t *testing.T) {
	s := newTestScene()
	s.AddObject(geometry.NewSphere(core.Vec3{}, 1, material.New(red).WithDiffuse(1).WithSpecular(1)))
	s.AddLight(lights.NewPointLight(core.NewVec3(0, 0, -10)))
	rt := NewRaytracer(s, 4, 4)

	if _, hit := rt.RayTrace(ahead, 0); hit == nil {
		t.Fatal("Expected hit, got miss")
	}
	stats := rt.Stats()
	if stats.Calls != 1 || stats.Reflections != 0 {
		t.Errorf("Expected exactly one RayTrace call and no reflections, got %+v", stats)
	}
}

func TestRayTrace_MirrorRecursionBounded(t *testing.T) {
	s := newTestScene()
	mirror := material.New(white).WithReflectivity(1)
	near, err := geometry.NewPlane(core.NewVec3(0, 0, 1), 0, mirror)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	far, err := geometry.NewPlane(core.NewVec3(0, 0, 1), -100, mirror)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	s.AddObject(near)
	s.AddObject(far)
	rt := NewRaytracer(s, 4, 4)

	// bounces between z=0 and z=100 forever without the depth limit
	colour, hit := rt.RayTrace(core.NewRay(core.NewVec3(0, 0, 50), core.NewVec3(0, 0, 1)), 0)
	if hit == nil || hit.Primitive != far {
		t.Fatalf("Expected first hit on the far mirror, got %+v", hit)
	}
	if !colour.IsFinite() {
		t.Errorf("Expected finite colour, got %v", colour)
	}

	stats := rt.Stats()
	if stats.MaxDepth != RecursionLimit {
		t.Errorf("Expected max depth %d, got %d", RecursionLimit, stats.MaxDepth)
	}
	if stats.Calls != RecursionLimit+2 {
		t.Errorf("Expected %d calls (one rejected past the limit), got %d", RecursionLimit+2, stats.Calls)
	}
	if stats.Reflections != RecursionLimit+1 {
		t.Errorf("Expected %d reflections, got %d", RecursionLimit+1, stats.Reflections)
	}
}

func TestRayTrace_Reflection(t *testing.T) {
	s := newTestScene()
	// facing mirror reflects a lit red sphere behind the camera ray origin
	mirror, err := geometry.NewPlane(core.NewVec3(0, 0, -1), 10, material.New(white).WithDiffuse(0).WithReflectivity(0.5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	s.AddObject(mirror)
	s.AddObject(geometry.NewSphere(core.NewVec3(0, 0, -20), 1, material.New(red).WithDiffuse(1)))
	s.AddLight(lights.NewDirectionalLight(core.NewVec3(0, 0, 1)))
	rt := NewRaytracer(s, 4, 4)

	colour, hit := rt.RayTrace(core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1)), 0)
	if hit == nil || hit.Primitive != mirror {
		t.Fatalf("Expected mirror hit, got %+v", hit)
	}
	// sphere front faces +Z: full red diffuse, scaled by mirror colour and reflectivity
	if !vecNear(colour, core.NewVec3(0.5, 0, 0), 1e-9) {
		t.Errorf("Expected reflected red 0.5, got %v", colour)
	}
	if rt.Stats().Reflections != 1 {
		t.Errorf("Expected one reflection, got %d", rt.Stats().Reflections)
	}
}

func TestRayTrace_Shadows(t *testing.T) {
	s := newTestScene()
	floor, err := geometry.NewPlane(core.NewVec3(0, 1, 0), 0, material.New(white).WithDiffuse(1))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	s.AddObject(floor)
	// blocks the path from the origin to the light, not the camera ray
	s.AddObject(geometry.NewSphere(core.NewVec3(5, 5, 0), 1, material.New(white)))
	s.AddLight(lights.NewPointLight(core.NewVec3(10, 10, 0)))
	rt := NewRaytracer(s, 4, 4)

	down := core.NewRay(core.NewVec3(0, 10, 0), core.NewVec3(0, -1, 0))

	colour, hit := rt.RayTrace(down, 0)
	if hit == nil || hit.Primitive != floor {
		t.Fatalf("Expected floor hit, got %+v", hit)
	}
	if colour != (core.Vec3{}) {
		t.Errorf("Expected shadowed floor to be black, got %v", colour)
	}

	s.SetShadows(false)
	colour, _ = rt.RayTrace(down, 0)
	lit := 1 / math.Sqrt2
	if !vecNear(colour, core.NewVec3(lit, lit, lit), 1e-6) {
		t.Errorf("Expected lit floor %f, got %v", lit, colour)
	}
}

func TestRayTrace_NearestHitWins(t *testing.T) {
	s := newTestScene()
	far := geometry.NewSphere(core.NewVec3(0, 0, 10), 1, material.New(white))
	near := geometry.NewSphere(core.NewVec3(0, 0, 3), 1, material.New(red))
	s.AddObject(far)
	s.AddObject(near)
	rt := NewRaytracer(s, 4, 4)

	_, hit := rt.RayTrace(ahead, 0)
	if hit == nil || hit.Primitive != near {
		t.Fatalf("Expected the nearer sphere, got %+v", hit)
	}

	// origin inside a sphere: its negative distance is ignored
	inside := core.NewRay(core.NewVec3(0, 0, 9.5), core.NewVec3(0, 0, 1))
	_, hit = rt.RayTrace(inside, 0)
	if hit != nil {
		t.Errorf("Expected negative sphere distance to be filtered, got %+v", hit)
	}
}

// renders the 4x4 scene. Pixel offsets from the centre run -2..1, so only
// row 0 and column 0 look far enough off-axis (160 > 150) to miss the sphere.
func TestRender_EndToEnd(t *testing.T) {
	s := newTestScene()
	s.Options.FocalLength = 200
	s.AddObject(geometry.NewSphere(core.Vec3{}, 150, material.New(red).WithDiffuse(1)))
	s.AddLight(lights.NewDirectionalLight(core.NewVec3(0, 0, -1)))
	rt := NewRaytracer(s, 4, 4)

	sink := newRecordingSink(4, 4)
	stats, err := rt.Render(sink)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if stats.Pixels != 16 || stats.Hits != 9 || stats.Faults != 0 {
		t.Errorf("Expected 16 pixels, 9 hits, 0 faults, got %+v", stats)
	}

	background := scene.DefaultBackground
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := sink.img.RGBAAt(x, y)
			if x == 0 || y == 0 {
				if c != background {
					t.Errorf("Expected background at (%d,%d), got %v", x, y, c)
				}
				continue
			}
			if c.R <= background.R || c.G != 0 || c.B != 0 {
				t.Errorf("Expected lit red at (%d,%d), got %v", x, y, c)
			}
		}
	}
	if c := sink.img.RGBAAt(2, 2); c != red {
		t.Errorf("Expected head-on pixel to be full red, got %v", c)
	}

	// every pixel exactly once, row-major
	if len(sink.writes) != 16 {
		t.Fatalf("Expected 16 writes, got %d", len(sink.writes))
	}
	for i, p := range sink.writes {
		if expected := image.Pt(i%4, i/4); p != expected {
			t.Fatalf("Write %d went to %v, expected %v", i, p, expected)
		}
	}

	expectedEvents := []string{"lock", "first-pixel", "unlock", "present"}
	if len(sink.events) != len(expectedEvents) {
		t.Fatalf("Expected events %v, got %v", expectedEvents, sink.events)
	}
	for i := range expectedEvents {
		if sink.events[i] != expectedEvents[i] {
			t.Errorf("Expected events %v, got %v", expectedEvents, sink.events)
			break
		}
	}
}

func TestRender_FrameSizeMismatch(t *testing.T) {
	rt := NewRaytracer(newTestScene(), 4, 4)

	_, err := rt.Render(plainSink{image.NewRGBA(image.Rect(0, 0, 3, 3))})
	if !errors.Is(err, ErrFrameSize) {
		t.Fatalf("Expected ErrFrameSize, got %v", err)
	}

	rt.Resize(3, 3)
	if _, err := rt.Render(plainSink{image.NewRGBA(image.Rect(0, 0, 3, 3))}); err != nil {
		t.Errorf("Expected render to succeed after Resize, got %v", err)
	}
}

func TestRender_LockError(t *testing.T) {
	rt := NewRaytracer(newTestScene(), 4, 4)
	sink := newRecordingSink(4, 4)
	sink.lockErr = errors.New("surface busy")

	if _, err := rt.Render(sink); !errors.Is(err, sink.lockErr) {
		t.Errorf("Expected lock error to be returned, got %v", err)
	}
	if len(sink.writes) != 0 {
		t.Errorf("Expected no pixels written, got %d", len(sink.writes))
	}
}

func TestRender_FaultIsolation(t *testing.T) {
	t.Run("panicking primitive", func(t *testing.T) {
		s := newTestScene()
		var broken *geometry.Sphere
		s.AddObject(broken)
		rt := NewRaytracer(s, 4, 4)

		sink := newRecordingSink(4, 4)
		stats, err := rt.Render(sink)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if stats.Faults != 16 || stats.Pixels != 16 {
			t.Errorf("Expected every pixel to fault and still be written, got %+v", stats)
		}
		if c := sink.img.RGBAAt(1, 1); c != scene.DefaultBackground {
			t.Errorf("Expected background for faulted pixel, got %v", c)
		}
	})

	t.Run("non-finite colour", func(t *testing.T) {
		s := newTestScene()
		s.Options.FocalLength = 200
		bad := material.New(red)
		bad.Diffuse = math.Inf(1) // zero green and blue channels become NaN
		s.AddObject(geometry.NewSphere(core.Vec3{}, 150, bad))
		s.AddLight(lights.NewDirectionalLight(core.NewVec3(0, 0, -1)))
		rt := NewRaytracer(s, 4, 4)

		sink := newRecordingSink(4, 4)
		stats, err := rt.Render(sink)
		if err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if stats.Faults != 9 || stats.Hits != 9 {
			t.Errorf("Expected the 9 sphere pixels to fault, got %+v", stats)
		}
		if c := sink.img.RGBAAt(2, 2); c != scene.DefaultBackground {
			t.Errorf("Expected background for faulted pixel, got %v", c)
		}
	})
}

func TestTracePixel_KeepsStats(t *testing.T) {
	s := newTestScene()
	s.Options.FocalLength = 200
	s.AddObject(geometry.NewSphere(core.Vec3{}, 150, material.New(red).WithReflectivity(1)))
	rt := NewRaytracer(s, 4, 4)

	_, hit := rt.TracePixel(2, 2)
	if hit == nil {
		t.Fatal("Expected center pixel to hit the sphere")
	}
	if stats := rt.Stats(); stats != (TraceStats{}) {
		t.Errorf("Expected TracePixel to leave counters untouched, got %+v", stats)
	}
}

func TestRender_MirrorRingHitsRecursionLimit(t *testing.T) {
	s := scene.NewMirrorsScene()
	width, height := s.Options.Width, s.Options.Height
	rt := NewRaytracer(s, width, height)

	stats, err := rt.Render(plainSink{image.NewRGBA(image.Rect(0, 0, width, height))})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if stats.Trace.MaxDepth != RecursionLimit {
		t.Errorf("Expected mirror ring to reach depth %d, got %d", RecursionLimit, stats.Trace.MaxDepth)
	}
	if stats.Faults != 0 {
		t.Errorf("Expected no faults, got %d", stats.Faults)
	}
}

// panickingSink fails on its first pixel
type panickingSink struct{ *recordingSink }

func (s panickingSink) PutPixel(x, y int, c color.RGBA) { panic("surface lost") }

func TestRender_UnlocksWhenSinkPanics(t *testing.T) {
	rt := NewRaytracer(newTestScene(), 4, 4)
	sink := panickingSink{newRecordingSink(4, 4)}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("Expected the sink panic to propagate")
			}
		}()
		_, _ = rt.Render(sink)
	}()

	expected := []string{"lock", "unlock"}
	if len(sink.events) != len(expected) || sink.events[0] != "lock" || sink.events[1] != "unlock" {
		t.Errorf("Expected events %v, got %v", expected, sink.events)
	}
}
