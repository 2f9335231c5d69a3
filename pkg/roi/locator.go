// Package roi maps regions of interest drawn in RAS world space onto the
// voxel grid of a volume.
package roi

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"reflect"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"breastimage/internal/models"
	"breastimage/pkg/affine"
	"breastimage/pkg/transform"
)

var (
	// ErrInvalidInput is returned when the volume, ROI or image is missing
	// or cannot be used
	ErrInvalidInput = errors.New("invalid input")

	// ErrDegenerateBox is returned under DegenerateReject when the ROI does
	// not overlap the volume
	ErrDegenerateBox = errors.New("ROI does not overlap the volume")
)

// VolumeNode is what the locator needs from a volume
type VolumeNode interface {
	ImageData() *models.Image
	RASToIJKMatrix() mat.Matrix
}

// ROINode is what the locator needs from an ROI annotation
type ROINode interface {
	XYZ() r3.Vec
	RadiusXYZ() r3.Vec
	ParentTransform() transform.Transform
}

// DegeneratePolicy decides what happens when an ROI falls outside the volume
type DegeneratePolicy int

const (
	// DegenerateWarn returns the collapsed box and logs a warning
	DegenerateWarn DegeneratePolicy = iota

	// DegenerateAllow returns the collapsed box silently
	DegenerateAllow

	// DegenerateReject returns ErrDegenerateBox
	DegenerateReject
)

func (p DegeneratePolicy) String() string {
	switch p {
	case DegenerateAllow:
		return "allow"
	case DegenerateWarn:
		return "warn"
	case DegenerateReject:
		return "reject"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParseDegeneratePolicy maps "allow", "warn" or "reject" to a policy
func ParseDegeneratePolicy(name string) (DegeneratePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "allow":
		return DegenerateAllow, nil
	case "", "warn":
		return DegenerateWarn, nil
	case "reject":
		return DegenerateReject, nil
	}
	return DegenerateWarn, fmt.Errorf("unknown degenerate policy %q (must be allow, warn or reject)", name)
}

// Locator converts ROIs into voxel boxes. It holds configuration only, so a
// single Locator may be shared between goroutines.
type Locator struct {
	policy DegeneratePolicy
	logger *log.Logger
}

// NewLocator creates a locator. A nil logger discards warnings.
func NewLocator(policy DegeneratePolicy, logger *log.Logger) *Locator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Locator{policy: policy, logger: logger}
}

// Policy returns the degenerate box policy of the locator
func (l *Locator) Policy() DegeneratePolicy {
	return l.policy
}

// Locate returns the voxel box covered by an ROI.
//
// The two opposite ROI corners are moved to world space through the ROI's
// parent transform when that transform is linear, mapped into IJK with the
// volume's RAS to IJK matrix, re-ordered per axis, clipped to the image
// extent and truncated to integers.
func (l *Locator) Locate(vol VolumeNode, r ROINode) (models.VoxelBox, error) {
	if isNil(vol) {
		return models.VoxelBox{}, fmt.Errorf("%w: no volume", ErrInvalidInput)
	}
	if isNil(r) {
		return models.VoxelBox{}, fmt.Errorf("%w: no ROI", ErrInvalidInput)
	}
	img := vol.ImageData()
	if img == nil {
		return models.VoxelBox{}, fmt.Errorf("%w: volume has no image data", ErrInvalidInput)
	}
	if err := img.Validate(); err != nil {
		return models.VoxelBox{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	rasToIJK := vol.RASToIJKMatrix()
	if err := affine.CheckShape(rasToIJK); err != nil {
		return models.VoxelBox{}, fmt.Errorf("%w: RAS to IJK: %v", ErrInvalidInput, err)
	}

	// Extent is read before anything else touches the image
	extent := img.Extent()

	center := r.XYZ()
	radius := r.RadiusXYZ()
	minRAS := affine.Point(r3.Sub(center, radius))
	maxRAS := affine.Point(r3.Add(center, radius))

	// Account for the ROI parent transform, if present and linear
	if parent := r.ParentTransform(); !isNil(parent) {
		if parent.IsTransformToWorldLinear() {
			toWorld, err := parent.MatrixTransformToWorld()
			if err == nil {
				err = affine.CheckShape(toWorld)
			}
			if err != nil {
				return models.VoxelBox{}, fmt.Errorf("%w: ROI parent transform: %v", ErrInvalidInput, err)
			}
			minRAS = affine.MultiplyPoint(toWorld, minRAS)
			maxRAS = affine.MultiplyPoint(toWorld, maxRAS)
		} else {
			l.logger.Printf("Warning: ROI parent transform is not linear, using untransformed ROI corners")
		}
	}

	minIJK := affine.MultiplyPoint(rasToIJK, minRAS)
	maxIJK := affine.MultiplyPoint(rasToIJK, maxRAS)
	if !affine.Finite(minIJK) || !affine.Finite(maxIJK) {
		return models.VoxelBox{}, fmt.Errorf("%w: ROI corners map to non-finite voxel coordinates", ErrInvalidInput)
	}

	var lo, hi [3]int
	degenerate := false
	for axis := 0; axis < 3; axis++ {
		// The affine map does not preserve corner ordering
		a := math.Min(minIJK[axis], maxIJK[axis])
		b := math.Max(minIJK[axis], maxIJK[axis])

		// Truncation maps (-1, limit+1) onto voxels 0..limit, so a span
		// only misses the volume when it ends at or beyond those bounds
		limit := float64(extent[2*axis+1])
		switch {
		case b <= -1:
			degenerate = true
			a, b = 0, 0
		case a >= limit+1:
			degenerate = true
			a, b = limit, limit
		default:
			a = math.Min(math.Max(a, 0), limit)
			b = math.Max(math.Min(b, limit), 0)
		}

		lo[axis] = int(a)
		hi[axis] = int(b)
	}

	box := models.NewVoxelBox(lo, hi)
	box.Degenerate = degenerate
	if degenerate {
		switch l.policy {
		case DegenerateReject:
			return models.VoxelBox{}, fmt.Errorf("%w: %s", ErrDegenerateBox, box)
		case DegenerateWarn:
			l.logger.Printf("Warning: ROI does not overlap the volume, collapsed to %s", box)
		}
	}
	return box, nil
}

// Locate uses a locator with the default policy
func Locate(vol VolumeNode, r ROINode) (models.VoxelBox, error) {
	return NewLocator(DegenerateWarn, nil).Locate(vol, r)
}

// isNil catches both nil interfaces and interfaces holding nil pointers
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
		return rv.IsNil()
	}
	return false
}
