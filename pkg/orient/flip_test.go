package orient

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"

	"gonum.org/v1/gonum/mat"

	"breastimage/internal/models"
	"breastimage/pkg/affine"
)

// createTestImage creates an image filled by pattern
func createTestImage(t *testing.T, dims [3]int, scalar models.ScalarType, pattern func(i, j, k int) float64) *models.Image {
	t.Helper()
	img, err := models.NewImage(dims, scalar)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	for k := 0; k < dims[2]; k++ {
		for j := 0; j < dims[1]; j++ {
			for i := 0; i < dims[0]; i++ {
				img.SetValue(i, j, k, pattern(i, j, k))
			}
		}
	}
	return img
}

// TestFlipTwoByTwo is the basic example: [[1,2],[3,4]] becomes [[4,3],[2,1]]
func TestFlipTwoByTwo(t *testing.T) {
	values := [2][2]float64{{1, 2}, {3, 4}}
	img := createTestImage(t, [3]int{2, 2, 1}, models.Uint16, func(i, j, k int) float64 {
		return values[j][i]
	})

	if err := Flip(context.Background(), img); err != nil {
		t.Fatalf("Flip failed: %v", err)
	}

	want := [2][2]float64{{4, 3}, {2, 1}}
	for j := 0; j < 2; j++ {
		for i := 0; i < 2; i++ {
			if got := img.Value(i, j, 0); got != want[j][i] {
				t.Errorf("Voxel (%d,%d): expected %f, got %f", i, j, want[j][i], got)
			}
		}
	}
}

// TestFlipMapping verifies the reflection formula on every voxel
func TestFlipMapping(t *testing.T) {
	dims := [3]int{5, 3, 4}
	pattern := func(i, j, k int) float64 { return float64(i + 10*j + 100*k) }
	img := createTestImage(t, dims, models.Uint16, pattern)

	if err := Flip(context.Background(), img); err != nil {
		t.Fatalf("Flip failed: %v", err)
	}

	for k := 0; k < dims[2]; k++ {
		for j := 0; j < dims[1]; j++ {
			for i := 0; i < dims[0]; i++ {
				want := pattern(dims[0]-1-i, dims[1]-1-j, k)
				if got := img.Value(i, j, k); got != want {
					t.Fatalf("Voxel (%d,%d,%d): expected %f, got %f", i, j, k, want, got)
				}
			}
		}
	}

	// Odd nx and ny keep the centre voxel of every slice in place
	for k := 0; k < dims[2]; k++ {
		if got, want := img.Value(2, 1, k), pattern(2, 1, k); got != want {
			t.Errorf("Centre voxel of slice %d moved: expected %f, got %f", k, want, got)
		}
	}
}

// TestFlipInvolution verifies flip(flip(V)) == V for every scalar type
func TestFlipInvolution(t *testing.T) {
	scalars := []models.ScalarType{
		models.Uint8, models.Int8, models.Uint16, models.Int16,
		models.Uint32, models.Int32, models.Float32, models.Float64,
	}
	rng := rand.New(rand.NewSource(7))

	for _, scalar := range scalars {
		t.Run(scalar.String(), func(t *testing.T) {
			img, err := models.NewImage([3]int{7, 6, 3}, scalar)
			if err != nil {
				t.Fatalf("Failed to create image: %v", err)
			}
			rng.Read(img.Data)
			orig := append([]byte(nil), img.Data...)

			if err := Flip(context.Background(), img); err != nil {
				t.Fatalf("First flip failed: %v", err)
			}
			if bytes.Equal(orig, img.Data) {
				t.Fatal("Expected first flip to change the buffer")
			}
			if err := Flip(context.Background(), img); err != nil {
				t.Fatalf("Second flip failed: %v", err)
			}
			if !bytes.Equal(orig, img.Data) {
				t.Error("Expected double flip to restore the buffer")
			}
		})
	}
}

// TestFlipKeepsSlices verifies each slice is a permutation of itself
func TestFlipKeepsSlices(t *testing.T) {
	dims := [3]int{6, 4, 3}
	rng := rand.New(rand.NewSource(11))
	img := createTestImage(t, dims, models.Int16, func(i, j, k int) float64 {
		return float64(rng.Intn(2000) - 1000)
	})
	before := img.Clone()

	if err := Flip(context.Background(), img); err != nil {
		t.Fatalf("Flip failed: %v", err)
	}

	for k := 0; k < dims[2]; k++ {
		a := sliceValues(before, k)
		b := sliceValues(img, k)
		sort.Float64s(a)
		sort.Float64s(b)
		for n := range a {
			if a[n] != b[n] {
				t.Fatalf("Slice %d is not a permutation of its original", k)
			}
		}
	}
}

func sliceValues(img *models.Image, k int) []float64 {
	out := make([]float64, 0, img.Dims[0]*img.Dims[1])
	for j := 0; j < img.Dims[1]; j++ {
		for i := 0; i < img.Dims[0]; i++ {
			out = append(out, img.Value(i, j, k))
		}
	}
	return out
}

// TestFlipParallel verifies that worker count does not change the result
func TestFlipParallel(t *testing.T) {
	dims := [3]int{9, 8, 17}
	pattern := func(i, j, k int) float64 { return float64((i*31 + j*17 + k*7) % 4096) }
	sequential := createTestImage(t, dims, models.Uint16, pattern)
	parallel := createTestImage(t, dims, models.Uint16, pattern)

	if err := Flip(context.Background(), sequential); err != nil {
		t.Fatalf("Sequential flip failed: %v", err)
	}

	var calls, last int
	progress := func(done, total int) {
		calls++
		last = done
		if total != dims[2] {
			t.Errorf("Expected total %d, got %d", dims[2], total)
		}
	}
	if err := Flip(context.Background(), parallel, WithWorkers(4), WithProgress(progress)); err != nil {
		t.Fatalf("Parallel flip failed: %v", err)
	}

	if !bytes.Equal(sequential.Data, parallel.Data) {
		t.Error("Expected parallel flip to match sequential flip")
	}
	if calls != dims[2] || last != dims[2] {
		t.Errorf("Expected %d progress calls ending at %d, got %d ending at %d", dims[2], dims[2], calls, last)
	}
}

// TestFlipCancel verifies that cancellation stops between slices
func TestFlipCancel(t *testing.T) {
	dims := [3]int{4, 4, 5}
	pattern := func(i, j, k int) float64 { return float64(i + 4*j + 16*k) }
	img := createTestImage(t, dims, models.Uint16, pattern)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	progress := func(done, total int) {
		if done == 2 {
			cancel()
		}
	}

	err := Flip(ctx, img, WithProgress(progress))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	// Slices 0 and 1 are flipped, the rest untouched
	for k := 0; k < dims[2]; k++ {
		want := pattern(0, 0, k)
		if k < 2 {
			want = pattern(dims[0]-1, dims[1]-1, k)
		}
		if got := img.Value(0, 0, k); got != want {
			t.Errorf("Slice %d: expected first voxel %f, got %f", k, want, got)
		}
	}
}

// TestFlipCancelParallel verifies that a cancelled context stops the worker pool
func TestFlipCancelParallel(t *testing.T) {
	img := createTestImage(t, [3]int{4, 4, 8}, models.Uint8, func(i, j, k int) float64 { return float64(i) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Flip(ctx, img, WithWorkers(3))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// TestFlipInvalidInput covers missing images
func TestFlipInvalidInput(t *testing.T) {
	if err := Flip(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil image, got %v", err)
	}
	empty := &models.Image{Dims: [3]int{2, 2, 1}, Scalar: models.Uint16}
	if err := Flip(context.Background(), empty); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty buffer, got %v", err)
	}
	unknown := &models.Image{Dims: [3]int{1, 1, 1}, Scalar: models.ScalarUnknown, Data: []byte{1}}
	if err := Flip(context.Background(), unknown); !errors.Is(err, models.ErrUnsupportedScalar) {
		t.Errorf("Expected ErrUnsupportedScalar, got %v", err)
	}
	if err := FlipVolume(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil volume, got %v", err)
	}
	if err := FlipVolume(context.Background(), &models.Volume{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for volume without image, got %v", err)
	}
}

// TestFlipVolumeKeepsGeometry verifies that matrices are not touched
func TestFlipVolumeKeepsGeometry(t *testing.T) {
	img := createTestImage(t, [3]int{3, 3, 2}, models.Uint16, func(i, j, k int) float64 { return float64(i * j) })
	vol, err := models.NewVolume("dbt", img, affine.New([16]float64{
		0.1, 0, 0, -5,
		0, 0.1, 0, 3,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}))
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	before := mat.DenseCopyOf(vol.IJKToRASMatrix())

	if err := FlipVolume(context.Background(), vol); err != nil {
		t.Fatalf("FlipVolume failed: %v", err)
	}

	if !mat.Equal(before, vol.IJKToRASMatrix()) {
		t.Error("Expected IJK to RAS matrix to be unchanged")
	}
	if got := vol.ImageData().Value(0, 0, 0); got != 4 {
		t.Errorf("Expected corner voxel 4 after flip, got %f", got)
	}
}
