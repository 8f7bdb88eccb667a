package renderer

import (
	"fmt"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

// Camera generates primary rays from a fixed eye through a precomputed
// table of unit directions, one per pixel.
type Camera struct {
	eye         core.Vec3
	focalLength float64
	width       int
	height      int
	directions  []core.Vec3 // row-major, index y*width + x
}

// NewCamera builds the direction table for a width x height frame. Pixel
// (x, y) looks along normalize(x - width/2, -(y - height/2), focalLength),
// so +Y is up on screen. A non-positive focal length falls back to the default.
func NewCamera(eye core.Vec3, focalLength float64, width, height int) *Camera {
	if focalLength <= 0 {
		focalLength = scene.DefaultFocalLength
	}
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	c := &Camera{
		eye:         eye,
		focalLength: focalLength,
		width:       width,
		height:      height,
		directions:  make([]core.Vec3, width*height),
	}

	halfW := float64(width) / 2
	halfH := float64(height) / 2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			d := core.NewVec3(float64(x)-halfW, -(float64(y) - halfH), focalLength)
			c.directions[y*width+x] = d.Normalize()
		}
	}
	return c
}

// Width returns the frame width the table was built for
func (c *Camera) Width() int { return c.width }

// Height returns the frame height the table was built for
func (c *Camera) Height() int { return c.height }

// Eye returns the origin shared by all primary rays
func (c *Camera) Eye() core.Vec3 { return c.eye }

// Direction returns the table entry for pixel (x, y). It panics when the
// pixel lies outside the frame.
func (c *Camera) Direction(x, y int) core.Vec3 {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		panic(fmt.Sprintf("renderer: pixel (%d, %d) outside %dx%d camera", x, y, c.width, c.height))
	}
	return c.directions[y*c.width+x]
}

// GetRay returns the primary ray for pixel (x, y)
func (c *Camera) GetRay(x, y int) core.Ray {
	return core.NewRay(c.eye, c.Direction(x, y))
}
