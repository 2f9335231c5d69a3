package models

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"breastimage/pkg/affine"
)

// ErrInvalidImage is returned when an image buffer does not match its header
var ErrInvalidImage = errors.New("invalid image")

// InverseTolerance bounds how far RASToIJK*IJKToRAS may stray from identity
const InverseTolerance = 1e-6

// Image is a 3D scalar image stored as a flat buffer.
// Voxel (i,j,k) lives at ((k*ny + j)*nx + i) * elementSize.
type Image struct {
	// Dims holds the number of voxels along i, j and k
	Dims [3]int

	// Scalar is the voxel encoding
	Scalar ScalarType

	// Data is the raw voxel buffer
	Data []byte

	// Spacing is the physical voxel size in mm
	Spacing r3.Vec

	// Origin is the physical position of voxel (0,0,0) in mm
	Origin r3.Vec
}

// NewImage allocates a zeroed image
func NewImage(dims [3]int, scalar ScalarType) (*Image, error) {
	if !scalar.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedScalar, scalar)
	}
	for axis, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("%w: dimension %d is %d", ErrInvalidImage, axis, d)
		}
	}
	return &Image{
		Dims:    dims,
		Scalar:  scalar,
		Data:    make([]byte, dims[0]*dims[1]*dims[2]*scalar.Size()),
		Spacing: r3.Vec{X: 1, Y: 1, Z: 1},
	}, nil
}

// Validate checks that the buffer length agrees with the dimensions and
// scalar type
func (img *Image) Validate() error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	if !img.Scalar.Valid() {
		return fmt.Errorf("%w: %v", ErrUnsupportedScalar, img.Scalar)
	}
	for axis, d := range img.Dims {
		if d <= 0 {
			return fmt.Errorf("%w: dimension %d is %d", ErrInvalidImage, axis, d)
		}
	}
	if want := img.NumVoxels() * img.Scalar.Size(); len(img.Data) != want {
		return fmt.Errorf("%w: buffer holds %d bytes, dimensions need %d", ErrInvalidImage, len(img.Data), want)
	}
	return nil
}

// NumVoxels returns nx*ny*nz
func (img *Image) NumVoxels() int {
	return img.Dims[0] * img.Dims[1] * img.Dims[2]
}

// SliceBytes returns the size in bytes of one k slice
func (img *Image) SliceBytes() int {
	return img.Dims[0] * img.Dims[1] * img.Scalar.Size()
}

// Extent returns the inclusive index range [0,nx-1,0,ny-1,0,nz-1]
func (img *Image) Extent() [6]int {
	return [6]int{0, img.Dims[0] - 1, 0, img.Dims[1] - 1, 0, img.Dims[2] - 1}
}

// Offset returns the byte offset of voxel (i,j,k)
func (img *Image) Offset(i, j, k int) int {
	return ((k*img.Dims[1]+j)*img.Dims[0] + i) * img.Scalar.Size()
}

// Contains reports whether (i,j,k) addresses a voxel of the image
func (img *Image) Contains(i, j, k int) bool {
	return i >= 0 && j >= 0 && k >= 0 &&
		i < img.Dims[0] && j < img.Dims[1] && k < img.Dims[2]
}

// Value decodes voxel (i,j,k) as float64
func (img *Image) Value(i, j, k int) float64 {
	off := img.Offset(i, j, k)
	return img.Scalar.Decode(img.Data[off : off+img.Scalar.Size()])
}

// SetValue encodes v into voxel (i,j,k)
func (img *Image) SetValue(i, j, k int, v float64) {
	off := img.Offset(i, j, k)
	img.Scalar.Encode(img.Data[off:off+img.Scalar.Size()], v)
}

// Clone returns a deep copy of the image
func (img *Image) Clone() *Image {
	out := *img
	out.Data = make([]byte, len(img.Data))
	copy(out.Data, img.Data)
	return &out
}

// Volume is an image placed in world space by a pair of affine matrices
type Volume struct {
	// Name identifies the volume for display
	Name string

	image    *Image
	rasToIJK *mat.Dense
	ijkToRAS *mat.Dense
}

// NewVolume wraps img with the given voxel-to-world matrix. The world-to-voxel
// matrix is derived by inversion.
func NewVolume(name string, img *Image, ijkToRAS *mat.Dense) (*Volume, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	rasToIJK, err := affine.Inverse(ijkToRAS)
	if err != nil {
		return nil, fmt.Errorf("volume %q: %w", name, err)
	}
	return &Volume{
		Name:     name,
		image:    img,
		rasToIJK: rasToIJK,
		ijkToRAS: mat.DenseCopyOf(ijkToRAS),
	}, nil
}

// NewAxisAlignedVolume places img using its own origin and spacing with
// identity direction cosines
func NewAxisAlignedVolume(name string, img *Image) (*Volume, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return NewVolume(name, img, affine.IJKToRAS(img.Origin, img.Spacing, affine.AxisAligned()))
}

// ImageData returns the image buffer of the volume, or nil when the volume
// carries no image
func (v *Volume) ImageData() *Image {
	if v == nil {
		return nil
	}
	return v.image
}

// RASToIJKMatrix returns the world-to-voxel matrix
func (v *Volume) RASToIJKMatrix() mat.Matrix {
	return v.rasToIJK
}

// IJKToRASMatrix returns the voxel-to-world matrix
func (v *Volume) IJKToRASMatrix() mat.Matrix {
	return v.ijkToRAS
}

// Validate checks the image and that the two matrices are mutual inverses
func (v *Volume) Validate() error {
	if v == nil {
		return fmt.Errorf("%w: nil volume", ErrInvalidImage)
	}
	if err := v.image.Validate(); err != nil {
		return fmt.Errorf("volume %q: %w", v.Name, err)
	}
	if !affine.IsMutualInverse(v.rasToIJK, v.ijkToRAS, InverseTolerance) {
		return fmt.Errorf("volume %q: RAS to IJK and IJK to RAS matrices are not inverses", v.Name)
	}
	return nil
}
