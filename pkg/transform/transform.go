// Package transform models the parent transforms a scene object can sit under.
// Only linear transforms resolve to a matrix; anything else is reported as
// non-linear and left to the caller to ignore.
package transform

import (
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"breastimage/pkg/affine"
)

// ErrNotLinear is returned when a matrix is requested from a transform chain
// that contains a non-linear link
var ErrNotLinear = errors.New("transform to world is not linear")

// Transform is the capability a parent transform node exposes
type Transform interface {
	// IsTransformToWorldLinear reports whether the whole chain up to world
	// can be expressed as a single 4x4 matrix
	IsTransformToWorldLinear() bool

	// MatrixTransformToWorld returns the composed matrix of the chain
	MatrixTransformToWorld() (mat.Matrix, error)
}

// Linear is a linear transform node with an optional parent
type Linear struct {
	Name   string
	Matrix *mat.Dense
	Parent Transform
}

// NewLinear creates a linear transform node from a 4x4 matrix
func NewLinear(name string, m *mat.Dense, parent Transform) (*Linear, error) {
	if err := affine.CheckShape(m); err != nil {
		return nil, fmt.Errorf("transform %q: %w", name, err)
	}
	return &Linear{Name: name, Matrix: m, Parent: parent}, nil
}

// IsTransformToWorldLinear implements Transform
func (l *Linear) IsTransformToWorldLinear() bool {
	if l.Parent == nil {
		return true
	}
	return l.Parent.IsTransformToWorldLinear()
}

// MatrixTransformToWorld implements Transform. The local matrix is applied
// first, then each ancestor in turn.
func (l *Linear) MatrixTransformToWorld() (mat.Matrix, error) {
	local := l.Matrix
	if local == nil {
		local = affine.Identity()
	}
	if l.Parent == nil {
		return mat.DenseCopyOf(local), nil
	}
	if !l.Parent.IsTransformToWorldLinear() {
		return nil, fmt.Errorf("transform %q: %w", l.Name, ErrNotLinear)
	}
	parent, err := l.Parent.MatrixTransformToWorld()
	if err != nil {
		return nil, err
	}
	return affine.Compose(parent, local), nil
}

// NonLinear stands in for a deformable transform (grid, b-spline, thin plate).
// It carries no matrix.
type NonLinear struct {
	Name   string
	Parent Transform
}

// IsTransformToWorldLinear implements Transform
func (n *NonLinear) IsTransformToWorldLinear() bool {
	return false
}

// MatrixTransformToWorld implements Transform
func (n *NonLinear) MatrixTransformToWorld() (mat.Matrix, error) {
	return nil, fmt.Errorf("transform %q: %w", n.Name, ErrNotLinear)
}

// linearFile is the on-disk form of a linear transform
type linearFile struct {
	Name   string    `yaml:"name"`
	Matrix []float64 `yaml:"matrix"`
}

// LoadLinear reads a linear transform from a YAML file holding a row-major
// 4x4 matrix
func LoadLinear(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading transform file: %w", err)
	}

	var f linearFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing transform file: %w", err)
	}

	m, err := affine.FromSlice(f.Matrix)
	if err != nil {
		return nil, fmt.Errorf("transform file %s: %w", path, err)
	}
	return NewLinear(f.Name, m, nil)
}

// SaveLinear writes the local matrix of l to a YAML file
func SaveLinear(l *Linear, path string) error {
	data, err := yaml.Marshal(linearFile{Name: l.Name, Matrix: affine.Rows(l.Matrix)})
	if err != nil {
		return fmt.Errorf("error marshaling transform: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing transform file: %w", err)
	}
	return nil
}
