package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-whitted-raytracer/pkg/core"
)

func TestNewTriangle_Degenerate(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c core.Vec3
	}{
		{"repeated vertex", core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0)},
		{"collinear", core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1), core.NewVec3(2, 2, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTriangle(tt.a, tt.b, tt.c, testMaterial)
			if !errors.Is(err, ErrDegenerate) {
				t.Errorf("Expected ErrDegenerate, got %v", err)
			}
		})
	}
}

func TestTriangle_Intersect(t *testing.T) {
	tri, err := NewTriangle(
		core.NewVec3(-1, -1, 0),
		core.NewVec3(1, -1, 0),
		core.NewVec3(0, 1, 0),
		testMaterial,
	)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tests := []struct {
		name             string
		ray              core.Ray
		shouldHit        bool
		expectedDistance float64
	}{
		{
			name:             "hit center from front",
			ray:              core.NewRay(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1)),
			shouldHit:        true,
			expectedDistance: 5,
		},
		{
			name:             "hit center from back",
			ray:              core.NewRay(core.NewVec3(0, 0, 3), core.NewVec3(0, 0, -1)),
			shouldHit:        true,
			expectedDistance: 3,
		},
		{
			name:      "miss outside edge",
			ray:       core.NewRay(core.NewVec3(2, 0, -5), core.NewVec3(0, 0, 1)),
			shouldHit: false,
		},
		{
			name:      "triangle behind origin",
			ray:       core.NewRay(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, -1)),
			shouldHit: false,
		},
		{
			name:      "parallel to triangle",
			ray:       core.NewRay(core.NewVec3(0, 0, -1), core.NewVec3(1, 0, 0)),
			shouldHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			distance, hit := tri.Intersect(tt.ray)
			if hit != tt.shouldHit {
				t.Fatalf("Expected hit=%t, got hit=%t", tt.shouldHit, hit)
			}
			if hit && math.Abs(distance-tt.expectedDistance) > tolerance {
				t.Errorf("Expected distance %f, got %f", tt.expectedDistance, distance)
			}
		})
	}
}

func TestTriangle_WindingFlipsNormal(t *testing.T) {
	a, b, c := core.NewVec3(-1, -1, 0), core.NewVec3(1, -1, 0), core.NewVec3(0, 1, 0)
	ccw, err := NewTriangle(a, b, c, testMaterial)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	cw, err := NewTriangle(a, c, b, testMaterial)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ray := core.NewRay(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1))
	d1, hit1 := ccw.Intersect(ray)
	d2, hit2 := cw.Intersect(ray)
	if !hit1 || !hit2 {
		t.Fatalf("Expected both windings to hit, got %t and %t", hit1, hit2)
	}
	if math.Abs(d1-d2) > tolerance {
		t.Errorf("Expected equal distances, got %f and %f", d1, d2)
	}

	n1 := ccw.NormalAt(ray, d1)
	n2 := cw.NormalAt(ray, d2)
	if !vecNear(n1, core.NewVec3(0, 0, 1), tolerance) {
		t.Errorf("Expected normal (0, 0, 1), got %v", n1)
	}
	if !vecNear(n2, n1.Negate(), tolerance) {
		t.Errorf("Expected opposite normals, got %v and %v", n1, n2)
	}
}
