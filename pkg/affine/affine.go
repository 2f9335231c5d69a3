// Package affine provides the 4x4 homogeneous matrix helpers used to move
// points between RAS world space and IJK voxel space.
package affine

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrSingular is returned when a matrix has no inverse
var ErrSingular = errors.New("matrix is singular")

// ErrShape is returned when a matrix is not 4x4
var ErrShape = errors.New("matrix must be 4x4")

// Identity returns a new 4x4 identity matrix
func Identity() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// New builds a 4x4 matrix from 16 row-major values
func New(rows [16]float64) *mat.Dense {
	data := make([]float64, 16)
	copy(data, rows[:])
	return mat.NewDense(4, 4, data)
}

// FromSlice builds a 4x4 matrix from a row-major slice, as read from
// configuration or header files
func FromSlice(rows []float64) (*mat.Dense, error) {
	if len(rows) != 16 {
		return nil, fmt.Errorf("%w: got %d values", ErrShape, len(rows))
	}
	var a [16]float64
	copy(a[:], rows)
	return New(a), nil
}

// Rows flattens a 4x4 matrix into row-major order
func Rows(m mat.Matrix) []float64 {
	out := make([]float64, 0, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

// CheckShape returns ErrShape unless m is 4x4
func CheckShape(m mat.Matrix) error {
	if m == nil {
		return fmt.Errorf("%w: nil matrix", ErrShape)
	}
	// A nil *mat.Dense in the interface would panic in Dims
	if v := reflect.ValueOf(m); v.Kind() == reflect.Ptr && v.IsNil() {
		return fmt.Errorf("%w: nil %T", ErrShape, m)
	}
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return fmt.Errorf("%w: got %dx%d", ErrShape, r, c)
	}
	return nil
}

// MultiplyPoint applies m to the homogeneous point p
func MultiplyPoint(m mat.Matrix, p [4]float64) [4]float64 {
	in := mat.NewVecDense(4, p[:])
	var out mat.VecDense
	out.MulVec(m, in)
	return [4]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2), out.AtVec(3)}
}

// Point lifts a 3D vector to homogeneous coordinates with w=1
func Point(v r3.Vec) [4]float64 {
	return [4]float64{v.X, v.Y, v.Z, 1}
}

// Inverse returns the inverse of a 4x4 matrix
func Inverse(m mat.Matrix) (*mat.Dense, error) {
	if err := CheckShape(m); err != nil {
		return nil, err
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return &inv, nil
}

// Compose returns a*b, the transform that applies b first and then a
func Compose(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

// IsMutualInverse reports whether a*b is the identity within tol
func IsMutualInverse(a, b mat.Matrix, tol float64) bool {
	if CheckShape(a) != nil || CheckShape(b) != nil {
		return false
	}
	return mat.EqualApprox(Compose(a, b), Identity(), tol)
}

// IJKToRAS builds the voxel-to-world matrix of a volume. Each column i
// holds the unit direction of voxel axis i scaled by its spacing, and the
// translation column holds the world position of voxel (0,0,0).
func IJKToRAS(origin, spacing r3.Vec, directions [3]r3.Vec) *mat.Dense {
	m := Identity()
	scale := [3]float64{spacing.X, spacing.Y, spacing.Z}
	for axis, d := range directions {
		m.Set(0, axis, d.X*scale[axis])
		m.Set(1, axis, d.Y*scale[axis])
		m.Set(2, axis, d.Z*scale[axis])
	}
	m.Set(0, 3, origin.X)
	m.Set(1, 3, origin.Y)
	m.Set(2, 3, origin.Z)
	return m
}

// AxisAligned returns the identity direction cosines
func AxisAligned() [3]r3.Vec {
	return [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
}

// Finite reports whether every component of p is a finite number
func Finite(p [4]float64) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
