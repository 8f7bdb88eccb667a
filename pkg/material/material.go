package material

import (
	"image/color"

	"github.com/df07/go-whitted-raytracer/pkg/core"
)

// Default coefficients for a freshly created material
const (
	DefaultDiffuse      = 0.2
	DefaultSpecular     = 0.0
	DefaultReflectivity = 0.0
)

// Material holds the fixed-function shading coefficients of a primitive.
// It is a plain value; each primitive owns its own copy.
type Material struct {
	Color        color.RGBA // Base colour, alpha ignored
	Diffuse      float64    // Diffuse coefficient, >= 0
	Specular     float64    // Specular coefficient, >= 0
	Reflectivity float64    // Fraction of the mirror reflection added, conceptually in [0,1]
}

// Default returns a material with the default coefficients and a black colour
func Default() Material {
	return Material{
		Diffuse:      DefaultDiffuse,
		Specular:     DefaultSpecular,
		Reflectivity: DefaultReflectivity,
	}
}

// New returns a default material with the given colour
func New(c color.RGBA) Material {
	m := Default()
	m.Color = c
	return m
}

// WithDiffuse returns a copy with the diffuse coefficient replaced
func (m Material) WithDiffuse(d float64) Material {
	m.Diffuse = d
	return m
}

// WithSpecular returns a copy with the specular coefficient replaced
func (m Material) WithSpecular(s float64) Material {
	m.Specular = s
	return m
}

// WithReflectivity returns a copy with the reflectivity replaced
func (m Material) WithReflectivity(r float64) Material {
	m.Reflectivity = r
	return m
}

// ColorVec returns the base colour as a Vec3 with channels in [0,1]
func (m Material) ColorVec() core.Vec3 {
	return core.ColorToVec(m.Color)
}

// IsReflective reports whether hits on this material spawn reflection rays
func (m Material) IsReflective() bool {
	return m.Reflectivity > 0
}
