package lights

import (
	"image/color"

	"github.com/df07/go-whitted-raytracer/pkg/core"
)

// LightType names a kind of light in scene files and inspection output
type LightType string

const (
	LightTypeDirectional LightType = "directional"
	LightTypePoint       LightType = "point"
	LightTypeSpot        LightType = "spot"
)

// White is the colour every light starts with
var White = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Light is a scene light source. The set of implementations is closed:
// *DirectionalLight, *PointLight and *SpotLight.
type Light interface {
	// Type reports which kind of light this is
	Type() LightType

	// ColorVec returns the light colour as a vector with components in [0,1]
	ColorVec() core.Vec3

	light()
}

// DirectionalLight illuminates every point from the same direction.
// Direction points from the scene toward the light.
type DirectionalLight struct {
	Direction core.Vec3
	Color     color.RGBA
}

// NewDirectionalLight creates a white directional light
func NewDirectionalLight(direction core.Vec3) *DirectionalLight {
	return &DirectionalLight{Direction: direction, Color: White}
}

// Type returns LightTypeDirectional
func (l *DirectionalLight) Type() LightType { return LightTypeDirectional }

// ColorVec returns the light colour in [0,1] components
func (l *DirectionalLight) ColorVec() core.Vec3 { return core.ColorToVec(l.Color) }

func (*DirectionalLight) light() {}

// PointLight emits from a single position with no falloff
type PointLight struct {
	Position core.Vec3
	Color    color.RGBA
}

// NewPointLight creates a white point light
func NewPointLight(position core.Vec3) *PointLight {
	return &PointLight{Position: position, Color: White}
}

// Type returns LightTypePoint
func (l *PointLight) Type() LightType { return LightTypePoint }

// ColorVec returns the light colour in [0,1] components
func (l *PointLight) ColorVec() core.Vec3 { return core.ColorToVec(l.Color) }

func (*PointLight) light() {}

// SpotLight is accepted in scenes but contributes no illumination
type SpotLight struct {
	Color color.RGBA
}

// NewSpotLight creates a white spot light
func NewSpotLight() *SpotLight {
	return &SpotLight{Color: White}
}

// Type returns LightTypeSpot
func (l *SpotLight) Type() LightType { return LightTypeSpot }

// ColorVec returns the light colour in [0,1] components
func (l *SpotLight) ColorVec() core.Vec3 { return core.ColorToVec(l.Color) }

func (*SpotLight) light() {}

// WithColor sets the colour of any light and returns it
func WithColor[L Light](l L, c color.RGBA) L {
	switch v := any(l).(type) {
	case *DirectionalLight:
		v.Color = c
	case *PointLight:
		v.Color = c
	case *SpotLight:
		v.Color = c
	}
	return l
}
