// Package loaders reads scene descriptions from disk.
package loaders

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/gg"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/geometry"
	"github.com/df07/go-whitted-raytracer/pkg/lights"
	"github.com/df07/go-whitted-raytracer/pkg/material"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

// ErrUnknownType is returned for an object or light type the loader does not know
var ErrUnknownType = errors.New("loaders: unknown type")

// SceneFile is the JSON layout of a scene description
type SceneFile struct {
	Name        string `json:"name"`
	Variant     string `json:"variant"`
	Description string `json:"description"`
	Group       string `json:"group"`

	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FocalLength float64 `json:"focalLength"`
	Eye         *Vec    `json:"eye"`
	Background  string  `json:"background"`
	Shadows     *bool   `json:"shadows"`
	Specular    *bool   `json:"specular"`

	Materials map[string]MaterialSpec `json:"materials"`
	Objects   []ObjectSpec            `json:"objects"`
	Lights    []LightSpec             `json:"lights"`
}

// Vec is a JSON [x, y, z] triple
type Vec [3]float64

func (v Vec) vec3() core.Vec3 { return core.NewVec3(v[0], v[1], v[2]) }

// MaterialSpec describes a material. Omitted coefficients keep their defaults.
type MaterialSpec struct {
	Color        string   `json:"color"`
	Diffuse      *float64 `json:"diffuse"`
	Specular     *float64 `json:"specular"`
	Reflectivity *float64 `json:"reflectivity"`
}

// ObjectSpec describes one primitive or mesh. Material is either the name
// of an entry in SceneFile.Materials or an inline MaterialSpec.
type ObjectSpec struct {
	Type     string          `json:"type"`
	Material json.RawMessage `json:"material"`

	Center Vec     `json:"center"`
	Radius float64 `json:"radius"`

	Normal   Vec     `json:"normal"`
	Distance float64 `json:"distance"`

	Vertices []Vec `json:"vertices"`

	Look    Vec `json:"look"`
	Up      Vec `json:"up"`
	Extents Vec `json:"extents"`

	Path      string  `json:"path"`
	Scale     float64 `json:"scale"`
	Translate Vec     `json:"translate"`

	Controlled bool `json:"controlled"`
}

// LightSpec describes one light
type LightSpec struct {
	Type      string `json:"type"`
	Color     string `json:"color"`
	Position  Vec    `json:"position"`
	Direction Vec    `json:"direction"`
}

// LoadScene reads a JSON scene file. Mesh paths are resolved relative to
// the file's directory.
func LoadScene(filename string) (*scene.Scene, error) {
	if err := validateFilePath(filename, ".json"); err != nil {
		return nil, err
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %w", err)
	}
	defer file.Close()

	s, err := ParseScene(file, filepath.Dir(filename))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return s, nil
}

// FilePrefix marks scene IDs that name a JSON file in the scenes directory
const FilePrefix = "file:"

// Resolve creates the scene with the given ID: "file:<name>" loads
// <scenesDir>/<name>.json and anything else is looked up among the built-in
// scenes.
func Resolve(scenesDir, id string) (*scene.Scene, error) {
	name, isFile := strings.CutPrefix(id, FilePrefix)
	if !isFile {
		return scene.NewBuiltIn(id)
	}
	if name == "" || name != filepath.Base(name) || name == ".." {
		return nil, fmt.Errorf("%w: invalid scene file name %q", scene.ErrUnknownScene, name)
	}
	return LoadScene(filepath.Join(scenesDir, name+".json"))
}

// ParseScene decodes a JSON scene description and builds the scene
func ParseScene(r io.Reader, baseDir string) (*scene.Scene, error) {
	var sf SceneFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("failed to decode scene: %w", err)
	}
	return sf.Build(baseDir)
}

// Build creates the scene described by sf
func (sf *SceneFile) Build(baseDir string) (*scene.Scene, error) {
	opts := scene.DefaultOptions()
	if sf.Width > 0 {
		opts.Width = sf.Width
	}
	if sf.Height > 0 {
		opts.Height = sf.Height
	}
	if sf.FocalLength > 0 {
		opts.FocalLength = sf.FocalLength
	}
	if sf.Eye != nil {
		opts.Eye = sf.Eye.vec3()
	}
	if sf.Background != "" {
		opts.Background = parseColor(sf.Background)
	}

	s := scene.New(opts)
	if sf.Shadows != nil {
		s.SetShadows(*sf.Shadows)
	}
	if sf.Specular != nil {
		s.SetSpecular(*sf.Specular)
	}

	for i, obj := range sf.Objects {
		mat, err := sf.resolveMaterial(obj.Material)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		prims, err := buildObject(obj, mat, baseDir)
		if err != nil {
			return nil, fmt.Errorf("object %d (%s): %w", i, obj.Type, err)
		}
		for _, p := range prims {
			s.AddObject(p)
		}
		if obj.Controlled {
			sphere, ok := prims[0].(*geometry.Sphere)
			if !ok {
				return nil, fmt.Errorf("object %d: only spheres can be controlled", i)
			}
			s.Controlled = sphere
		}
	}

	for i, spec := range sf.Lights {
		l, err := buildLight(spec)
		if err != nil {
			return nil, fmt.Errorf("light %d: %w", i, err)
		}
		s.AddLight(l)
	}

	core.Logger().Debug("scene built", "name", sf.Name,
		"primitives", s.GetPrimitiveCount(), "lights", len(s.Lights()))
	return s, nil
}

func (sf *SceneFile) resolveMaterial(raw json.RawMessage) (material.Material, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return material.Default(), nil
	}

	if raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return material.Material{}, err
		}
		spec, ok := sf.Materials[name]
		if !ok {
			return material.Material{}, fmt.Errorf("undefined material %q", name)
		}
		return spec.build(), nil
	}

	var spec MaterialSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return material.Material{}, fmt.Errorf("invalid material: %w", err)
	}
	return spec.build(), nil
}

func (m MaterialSpec) build() material.Material {
	mat := material.Default()
	if m.Color != "" {
		mat.Color = parseColor(m.Color)
	}
	if m.Diffuse != nil {
		mat.Diffuse = *m.Diffuse
	}
	if m.Specular != nil {
		mat.Specular = *m.Specular
	}
	if m.Reflectivity != nil {
		mat.Reflectivity = *m.Reflectivity
	}
	return mat
}

func buildObject(obj ObjectSpec, mat material.Material, baseDir string) ([]geometry.Primitive, error) {
	switch strings.ToLower(obj.Type) {
	case "sphere":
		if obj.Radius <= 0 {
			return nil, fmt.Errorf("radius must be positive, got %g", obj.Radius)
		}
		return []geometry.Primitive{geometry.NewSphere(obj.Center.vec3(), obj.Radius, mat)}, nil

	case "plane":
		p, err := geometry.NewPlane(obj.Normal.vec3(), obj.Distance, mat)
		if err != nil {
			return nil, err
		}
		return []geometry.Primitive{p}, nil

	case "triangle":
		if len(obj.Vertices) != 3 {
			return nil, fmt.Errorf("triangle needs 3 vertices, got %d", len(obj.Vertices))
		}
		t, err := geometry.NewTriangle(obj.Vertices[0].vec3(), obj.Vertices[1].vec3(), obj.Vertices[2].vec3(), mat)
		if err != nil {
			return nil, err
		}
		return []geometry.Primitive{t}, nil

	case "cube":
		c, err := geometry.NewCube(obj.Center.vec3(), obj.Look.vec3(), obj.Up.vec3(),
			obj.Extents[0], obj.Extents[1], obj.Extents[2], mat)
		if err != nil {
			return nil, err
		}
		return []geometry.Primitive{c}, nil

	case "mesh":
		meshPath, err := resolveMeshPath(baseDir, obj.Path)
		if err != nil {
			return nil, err
		}
		triangles, err := geometry.LoadMesh(meshPath, geometry.MeshOptions{
			Scale:     obj.Scale,
			Translate: obj.Translate.vec3(),
		}, mat)
		if err != nil {
			return nil, err
		}
		if len(triangles) == 0 {
			return nil, fmt.Errorf("mesh %s has no usable faces", obj.Path)
		}
		prims := make([]geometry.Primitive, len(triangles))
		for i, t := range triangles {
			prims[i] = t
		}
		return prims, nil
	}
	return nil, fmt.Errorf("%w: object %q", ErrUnknownType, obj.Type)
}

func buildLight(spec LightSpec) (lights.Light, error) {
	var l lights.Light
	switch strings.ToLower(spec.Type) {
	case "point":
		l = lights.NewPointLight(spec.Position.vec3())
	case "directional":
		d := spec.Direction.vec3()
		if d.LengthSquared() == 0 {
			return nil, fmt.Errorf("directional light needs a non-zero direction")
		}
		l = lights.NewDirectionalLight(d)
	case "spot":
		l = lights.NewSpotLight()
	default:
		return nil, fmt.Errorf("%w: light %q", ErrUnknownType, spec.Type)
	}

	if spec.Color != "" {
		l = lights.WithColor(l, parseColor(spec.Color))
	}
	return l, nil
}

// parseColor converts "#rgb", "#rrggbb" or "#rrggbbaa" to an opaque colour
func parseColor(hex string) color.RGBA {
	c := gg.Hex(hex)
	return color.RGBA{
		R: channel(c.R),
		G: channel(c.G),
		B: channel(c.B),
		A: 255,
	}
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// resolveMeshPath joins a mesh reference to the scene directory and rejects
// paths that leave it
func resolveMeshPath(baseDir, ref string) (string, error) {
	if err := validateFilePath(ref, ".obj", ".stl", ".ply"); err != nil {
		return "", err
	}
	if filepath.IsAbs(ref) {
		return "", fmt.Errorf("mesh path must be relative to the scene file: %s", ref)
	}
	clean := filepath.Clean(ref)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid mesh path: directory traversal not allowed")
	}
	return filepath.Join(baseDir, clean), nil
}

// validateFilePath validates a file path for security issues
func validateFilePath(filename string, extensions ...string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	// Check for null bytes (could indicate path manipulation)
	if strings.Contains(filename, "\x00") {
		return fmt.Errorf("invalid file path: null bytes not allowed")
	}

	if len(filename) > 512 {
		return fmt.Errorf("file path too long: maximum 512 characters allowed")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range extensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("invalid file type %q: allowed %s", ext, strings.Join(extensions, ", "))
}
