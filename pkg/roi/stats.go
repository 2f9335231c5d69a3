package roi

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"breastimage/internal/models"
)

// RegionStats summarises the voxel intensities inside a voxel box
type RegionStats struct {
	// Count is the number of voxels sampled
	Count int

	// Min and Max are the intensity range
	Min, Max float64

	// Mean and StdDev are the sample mean and standard deviation
	Mean, StdDev float64

	// Median is the empirical 50% quantile
	Median float64
}

// Stats computes intensity statistics over the voxels of box
func Stats(img *models.Image, box models.VoxelBox) (RegionStats, error) {
	if img == nil {
		return RegionStats{}, fmt.Errorf("%w: no image data", ErrInvalidInput)
	}
	if err := img.Validate(); err != nil {
		return RegionStats{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !box.Within(img.Dims) {
		return RegionStats{}, fmt.Errorf("%w: box %s lies outside image %v", ErrInvalidInput, box, img.Dims)
	}

	values := make([]float64, 0, box.NumVoxels())
	for k := box.Min[2]; k <= box.Max[2]; k++ {
		for j := box.Min[1]; j <= box.Max[1]; j++ {
			for i := box.Min[0]; i <= box.Max[0]; i++ {
				values = append(values, img.Value(i, j, k))
			}
		}
	}

	s := RegionStats{
		Count: len(values),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		s.StdDev = 0
	}

	// Quantile needs sorted input
	sort.Float64s(values)
	s.Median = stat.Quantile(0.5, stat.Empirical, values, nil)

	return s, nil
}
