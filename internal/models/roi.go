package models

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"breastimage/pkg/transform"
)

// ROI is a box-shaped region of interest defined in RAS millimetres
type ROI struct {
	// Name identifies the ROI, e.g. "R" for the first calcification cluster
	Name string

	// Center is the RAS position of the box centre
	Center r3.Vec

	// Radius is the half size of the box along each RAS axis
	Radius r3.Vec

	// Parent is the optional transform the ROI was moved under
	Parent transform.Transform
}

// XYZ returns the RAS centre
func (r *ROI) XYZ() r3.Vec {
	return r.Center
}

// RadiusXYZ returns the RAS half size
func (r *ROI) RadiusXYZ() r3.Vec {
	return r.Radius
}

// ParentTransform returns the transform the ROI sits under, if any
func (r *ROI) ParentTransform() transform.Transform {
	if r == nil || r.Parent == nil {
		return nil
	}
	return r.Parent
}

// VoxelBox is an ROI expressed as an inclusive voxel index range
type VoxelBox struct {
	// Min and Max are the inclusive lower and upper voxel indices per axis
	Min, Max [3]int

	// Center is Min + Radius per axis
	Center [3]int

	// Radius is (Max - Min) / 2 per axis, using integer division
	Radius [3]int

	// Degenerate is set when the ROI does not overlap the volume on at
	// least one axis. The bounds are then collapsed onto the nearest voxel.
	Degenerate bool
}

// NewVoxelBox derives centre and radius from inclusive bounds
func NewVoxelBox(min, max [3]int) VoxelBox {
	b := VoxelBox{Min: min, Max: max}
	for axis := 0; axis < 3; axis++ {
		b.Radius[axis] = (max[axis] - min[axis]) / 2
		b.Center[axis] = min[axis] + b.Radius[axis]
	}
	return b
}

// Extent returns the box as [minX,maxX,minY,maxY,minZ,maxZ]
func (b VoxelBox) Extent() [6]int {
	return [6]int{b.Min[0], b.Max[0], b.Min[1], b.Max[1], b.Min[2], b.Max[2]}
}

// Size returns the number of voxels covered along each axis
func (b VoxelBox) Size() [3]int {
	return [3]int{b.Max[0] - b.Min[0] + 1, b.Max[1] - b.Min[1] + 1, b.Max[2] - b.Min[2] + 1}
}

// NumVoxels returns the number of voxels inside the box
func (b VoxelBox) NumVoxels() int {
	s := b.Size()
	return s[0] * s[1] * s[2]
}

// Within reports whether the box lies inside an image of the given dimensions
func (b VoxelBox) Within(dims [3]int) bool {
	for axis := 0; axis < 3; axis++ {
		if b.Min[axis] < 0 || b.Max[axis] > dims[axis]-1 || b.Min[axis] > b.Max[axis] {
			return false
		}
	}
	return true
}

func (b VoxelBox) String() string {
	s := fmt.Sprintf("extent=%v center=%v radius=%v", b.Extent(), b.Center, b.Radius)
	if b.Degenerate {
		s += " (degenerate)"
	}
	return s
}
