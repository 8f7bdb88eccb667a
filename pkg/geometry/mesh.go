package geometry

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fogleman/fauxgl"

	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/material"
)

// MeshOptions places a loaded mesh in the scene
type MeshOptions struct {
	Scale     float64   // Uniform scale applied first; 0 means 1
	Translate core.Vec3 // Offset applied after scaling
}

// LoadMesh reads an OBJ, STL or PLY file and returns one triangle per face,
// all sharing mat. Zero-area faces are skipped.
func LoadMesh(path string, opts MeshOptions, mat material.Material) ([]*Triangle, error) {
	var (
		mesh *fauxgl.Mesh
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		mesh, err = fauxgl.LoadOBJ(path)
	case ".stl":
		mesh, err = fauxgl.LoadSTL(path)
	case ".ply":
		mesh, err = fauxgl.LoadPLY(path)
	default:
		return nil, fmt.Errorf("unsupported mesh format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mesh %s: %w", path, err)
	}

	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}
	offset := fauxgl.V(opts.Translate.X, opts.Translate.Y, opts.Translate.Z)
	mesh.Transform(fauxgl.Scale(fauxgl.V(scale, scale, scale)).Translate(offset))

	place := func(v fauxgl.Vector) core.Vec3 {
		return core.NewVec3(v.X, v.Y, v.Z)
	}

	triangles := make([]*Triangle, 0, len(mesh.Triangles))
	skipped := 0
	for _, face := range mesh.Triangles {
		tri, err := NewTriangle(place(face.V1.Position), place(face.V2.Position), place(face.V3.Position), mat)
		if errors.Is(err, ErrDegenerate) {
			skipped++
			continue
		}
		triangles = append(triangles, tri)
	}

	core.Logger().Debug("mesh loaded", "path", path, "triangles", len(triangles), "skipped", skipped)
	return triangles, nil
}
