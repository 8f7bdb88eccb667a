// Package input maps key presses to scene edits for interactive sessions.
package input

import (
	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
)

// Step is how far one key press moves the controlled sphere
const Step = 20.0

// Action tells the caller what to do after a key press
type Action int

const (
	ActionNone   Action = iota // key ignored
	ActionMoved                // sphere moved; a re-render will show it
	ActionRender               // render the current frame
	ActionQuit                 // end the session
)

func (a Action) String() string {
	switch a {
	case ActionMoved:
		return "moved"
	case ActionRender:
		return "render"
	case ActionQuit:
		return "quit"
	}
	return "none"
}

// Controller moves one sphere in response to keys:
// w/s move it along +X/-X, a/d along -Y/+Y, u requests a render and q quits.
type Controller struct {
	target *geometry.Sphere
}

// NewController binds a controller to target. A nil target ignores movement keys.
func NewController(target *geometry.Sphere) *Controller {
	return &Controller{target: target}
}

// Target returns the controlled sphere
func (c *Controller) Target() *geometry.Sphere { return c.target }

// HandleKey applies key and returns the resulting action
func (c *Controller) HandleKey(key rune) Action {
	var delta core.Vec3
	switch key {
	case 'w':
		delta = core.NewVec3(Step, 0, 0)
	case 's':
		delta = core.NewVec3(-Step, 0, 0)
	case 'a':
		delta = core.NewVec3(0, -Step, 0)
	case 'd':
		delta = core.NewVec3(0, Step, 0)
	case 'u':
		return ActionRender
	case 'q':
		return ActionQuit
	default:
		return ActionNone
	}

	if c.target == nil {
		return ActionNone
	}
	c.target.Center = c.target.Center.Add(delta)
	core.Logger().Debug("sphere moved", "key", string(key), "center", c.target.Center)
	return ActionMoved
}
