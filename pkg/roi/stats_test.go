package roi

import (
	"errors"
	"math"
	"testing"

	"breastimage/internal/models"
)

// TestStats verifies statistics over a small box of known values
func TestStats(t *testing.T) {
	img, err := models.NewImage([3]int{4, 4, 2}, models.Uint16)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	// Fill with i + 10*j + 100*k
	for k := 0; k < 2; k++ {
		for j := 0; j < 4; j++ {
			for i := 0; i < 4; i++ {
				img.SetValue(i, j, k, float64(i+10*j+100*k))
			}
		}
	}

	// Box over i in [1,2], j in [0,0], k in [0,1]: values 1,2,101,102
	box := models.NewVoxelBox([3]int{1, 0, 0}, [3]int{2, 0, 1})
	s, err := Stats(img, box)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if s.Count != 4 {
		t.Errorf("Expected 4 voxels, got %d", s.Count)
	}
	if s.Min != 1 || s.Max != 102 {
		t.Errorf("Expected range [1,102], got [%f,%f]", s.Min, s.Max)
	}
	if math.Abs(s.Mean-51.5) > 1e-9 {
		t.Errorf("Expected mean 51.5, got %f", s.Mean)
	}
	if s.Median != 2 {
		t.Errorf("Expected empirical median 2, got %f", s.Median)
	}
	if s.StdDev <= 0 {
		t.Errorf("Expected positive standard deviation, got %f", s.StdDev)
	}
}

// TestStatsSingleVoxel verifies a one-voxel box
func TestStatsSingleVoxel(t *testing.T) {
	img, err := models.NewImage([3]int{2, 2, 1}, models.Float32)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	img.SetValue(1, 1, 0, 7.5)

	s, err := Stats(img, models.NewVoxelBox([3]int{1, 1, 0}, [3]int{1, 1, 0}))
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if s.Count != 1 || s.Mean != 7.5 || s.StdDev != 0 || s.Median != 7.5 {
		t.Errorf("Unexpected stats %+v", s)
	}
}

// TestStatsOutsideBox verifies that boxes outside the image are rejected
func TestStatsOutsideBox(t *testing.T) {
	img, err := models.NewImage([3]int{2, 2, 1}, models.Uint8)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	_, err = Stats(img, models.NewVoxelBox([3]int{0, 0, 0}, [3]int{2, 1, 0}))
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := Stats(nil, models.VoxelBox{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil image, got %v", err)
	}
}
