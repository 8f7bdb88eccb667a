package server

import (
	"fmt"
	"image/color"
	"net/http"
	"strconv"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/material"
	"github.com/df07/go-whitted-raytracer/pkg/renderer"
)

// InspectResponse represents the JSON response for object inspection
type InspectResponse struct {
	Hit          bool                   `json:"hit"`
	GeometryType string                 `json:"geometryType,omitempty"`
	Point        [3]float64             `json:"point"`
	Normal       [3]float64             `json:"normal"`
	Distance     float64                `json:"distance"`
	Color        string                 `json:"color"` // Traced pixel colour
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// extractMaterialInfo extracts the shading coefficients of a material
func extractMaterialInfo(mat material.Material) map[string]interface{} {
	return map[string]interface{}{
		"color":        hexColor(mat.Color),
		"diffuse":      mat.Diffuse,
		"specular":     mat.Specular,
		"reflectivity": mat.Reflectivity,
		"reflective":   mat.IsReflective(),
	}
}

// extractGeometryInfo extracts detailed geometry information
func extractGeometryInfo(prim geometry.Primitive) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch geom := prim.(type) {
	case *geometry.Sphere:
		properties["center"] = vecArray(geom.Center)
		properties["radius"] = geom.Radius
		return "sphere", properties

	case *geometry.Plane:
		properties["normal"] = vecArray(geom.Normal)
		properties["distance"] = geom.Distance
		return "plane", properties

	case *geometry.Triangle:
		properties["vertices"] = [3][3]float64{vecArray(geom.A), vecArray(geom.B), vecArray(geom.C)}
		return "triangle", properties

	case *geometry.Cube:
		properties["center"] = vecArray(geom.Center)
		properties["axes"] = [3][3]float64{vecArray(geom.AxisX), vecArray(geom.AxisY), vecArray(geom.AxisZ)}
		properties["extents"] = [3]float64{geom.ExtentX, geom.ExtentY, geom.ExtentZ}
		return "cube", properties

	default:
		return "unknown", properties
	}
}

// inspectPixel traces the camera ray through (x, y) and describes the
// nearest primitive it hits. The trace counters are left untouched.
func inspectPixel(rt *renderer.Raytracer, x, y int) InspectResponse {
	colour, hit := rt.TracePixel(x, y)
	if hit == nil {
		return InspectResponse{Hit: false, Color: hexColor(rt.Scene().Options.Background)}
	}

	geometryType, geometryProps := extractGeometryInfo(hit.Primitive)
	return InspectResponse{
		Hit:          true,
		GeometryType: geometryType,
		Point:        vecArray(hit.Point),
		Normal:       vecArray(hit.Normal),
		Distance:     hit.Distance,
		Color:        hexColor(core.VecToColor(colour)),
		Properties: map[string]interface{}{
			"material": extractMaterialInfo(hit.Primitive.Surface()),
			"geometry": geometryProps,
		},
	}
}

// handleInspect handles ray casting inspection requests against the live
// scene at the size of the last rendered frame
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	pixelX, err := strconv.Atoi(values.Get("x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid x coordinate")
		return
	}
	pixelY, err := strconv.Atoi(values.Get("y"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid y coordinate")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureSession(values.Get("scene")); err != nil {
		writeSceneError(w, values.Get("scene"), err)
		return
	}

	camera := s.tracer.Camera()
	if pixelX < 0 || pixelX >= camera.Width() || pixelY < 0 || pixelY >= camera.Height() {
		writeError(w, http.StatusBadRequest, "Pixel coordinates out of bounds")
		return
	}

	writeJSON(w, http.StatusOK, inspectPixel(s.tracer, pixelX, pixelY))
}

func vecArray(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
