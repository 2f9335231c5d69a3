package models

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Cluster describes one annotated calcification cluster.
// The descriptive fields follow the BI-RADS calcification lexicon.
type Cluster struct {
	// Index is the 1-based cluster number within a study
	Index int

	// Count is the number of calcifications in the cluster
	Count int

	// Size is the typical calcification size category
	Size string

	// SizeMM is the measured cluster size, zero when no ruler was placed
	SizeMM float64

	// Shape is the morphology descriptor, e.g. "amorphous"
	Shape string

	// Distribution is the distribution descriptor, e.g. "grouped"
	Distribution string

	// CenterRAS and RadiusRAS locate the cluster in world space
	CenterRAS r3.Vec
	RadiusRAS r3.Vec

	// CenterIJK and RadiusIJK locate the cluster in voxel space
	CenterIJK [3]int
	RadiusIJK [3]int
}

// NewCluster records the world and voxel location of an ROI
func NewCluster(index int, roi *ROI, box VoxelBox) Cluster {
	return Cluster{
		Index:     index,
		CenterRAS: roi.Center,
		RadiusRAS: roi.Radius,
		CenterIJK: box.Center,
		RadiusIJK: box.Radius,
	}
}

// Measure sets SizeMM from a ruler placed across the cluster
func (c *Cluster) Measure(r Ruler) {
	c.SizeMM = r.Length()
}
