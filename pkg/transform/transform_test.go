package transform

import (
	"errors"
	"path/filepath"
	"testing"

	"breastimage/pkg/affine"
)

func translation(x, y, z float64) [16]float64 {
	return [16]float64{
		1, 0, 0, x,
		0, 1, 0, y,
		0, 0, 1, z,
		0, 0, 0, 1,
	}
}

// TestLinearChain verifies that a chain of linear transforms composes
// child first, then parent
func TestLinearChain(t *testing.T) {
	scale := affine.New([16]float64{
		2, 0, 0, 0,
		0, 2, 0, 0,
		0, 0, 2, 0,
		0, 0, 0, 1,
	})
	parent, err := NewLinear("scale", scale, nil)
	if err != nil {
		t.Fatalf("Failed to create parent: %v", err)
	}
	child, err := NewLinear("shift", affine.New(translation(1, 0, 0)), parent)
	if err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}

	if !child.IsTransformToWorldLinear() {
		t.Fatal("Expected linear chain")
	}

	m, err := child.MatrixTransformToWorld()
	if err != nil {
		t.Fatalf("Failed to compose chain: %v", err)
	}

	// (1,1,1) shifted to (2,1,1), then scaled to (4,2,2)
	p := affine.MultiplyPoint(m, [4]float64{1, 1, 1, 1})
	want := [4]float64{4, 2, 2, 1}
	if p != want {
		t.Errorf("Expected %v, got %v", want, p)
	}
}

// TestNonLinearParent verifies that one non-linear link makes the chain non-linear
func TestNonLinearParent(t *testing.T) {
	warp := &NonLinear{Name: "bspline"}
	child, err := NewLinear("shift", affine.New(translation(1, 2, 3)), warp)
	if err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}

	if child.IsTransformToWorldLinear() {
		t.Error("Expected chain with non-linear parent to be non-linear")
	}
	if _, err := child.MatrixTransformToWorld(); !errors.Is(err, ErrNotLinear) {
		t.Errorf("Expected ErrNotLinear, got %v", err)
	}
	if _, err := warp.MatrixTransformToWorld(); !errors.Is(err, ErrNotLinear) {
		t.Errorf("Expected ErrNotLinear from non-linear node, got %v", err)
	}
}

// TestLoadSaveLinear verifies the YAML transform file format
func TestLoadSaveLinear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transform.yaml")

	orig, err := NewLinear("moved", affine.New(translation(5, -2, 7.5)), nil)
	if err != nil {
		t.Fatalf("Failed to create transform: %v", err)
	}
	if err := SaveLinear(orig, path); err != nil {
		t.Fatalf("Failed to save transform: %v", err)
	}

	loaded, err := LoadLinear(path)
	if err != nil {
		t.Fatalf("Failed to load transform: %v", err)
	}
	if loaded.Name != "moved" {
		t.Errorf("Expected name moved, got %q", loaded.Name)
	}
	if loaded.Matrix.At(2, 3) != 7.5 {
		t.Errorf("Expected z translation 7.5, got %f", loaded.Matrix.At(2, 3))
	}

	if _, err := LoadLinear(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing transform file")
	}
}
