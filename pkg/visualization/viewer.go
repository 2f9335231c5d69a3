package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"breastimage/internal/models"
)

// Viewer renders 2D views of a volume image for review and export
type Viewer struct {
	// img is the volume image being viewed
	img *models.Image

	// window is the intensity range mapped onto [0, 65535]
	windowMin float64
	windowMax float64
}

// NewViewer creates a viewer whose display window spans the full intensity
// range of img
func NewViewer(img *models.Image) (*Viewer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}

	v := &Viewer{img: img}
	v.windowMin, v.windowMax = intensityRange(img)
	return v, nil
}

// SetWindow overrides the display window
func (v *Viewer) SetWindow(min, max float64) error {
	if !(max > min) {
		return fmt.Errorf("window max %f must exceed min %f", max, min)
	}
	v.windowMin, v.windowMax = min, max
	return nil
}

// Window returns the current display window
func (v *Viewer) Window() (float64, float64) {
	return v.windowMin, v.windowMax
}

func intensityRange(img *models.Image) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	size := img.Scalar.Size()
	for off := 0; off < len(img.Data); off += size {
		val := img.Scalar.Decode(img.Data[off : off+size])
		if math.IsNaN(val) {
			continue
		}
		lo = math.Min(lo, val)
		hi = math.Max(hi, val)
	}
	if !(hi > lo) {
		// Flat or empty image: any window that contains the value will do
		if math.IsInf(lo, 0) {
			lo = 0
		}
		hi = lo + 1
	}
	return lo, hi
}

// gray maps an intensity through the window
func (v *Viewer) gray(val float64) color.Gray16 {
	t := (val - v.windowMin) / (v.windowMax - v.windowMin)
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, math.Round(t*65535))))}
}

// ExtractSlice extracts a 2D slice along the given axis.
// "z" gives an (i,j) image, "y" an (i,k) image and "x" a (k,j) image.
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray16, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	nx, ny, nz := v.img.Dims[0], v.img.Dims[1], v.img.Dims[2]
	var img *image.Gray16

	switch axis {
	case "x", "X":
		if position >= nx {
			return nil, fmt.Errorf("position %d exceeds width %d", position, nx)
		}
		img = image.NewGray16(image.Rect(0, 0, nz, ny))
		for j := 0; j < ny; j++ {
			for k := 0; k < nz; k++ {
				img.SetGray16(k, j, v.gray(v.img.Value(position, j, k)))
			}
		}

	case "y", "Y":
		if position >= ny {
			return nil, fmt.Errorf("position %d exceeds height %d", position, ny)
		}
		img = image.NewGray16(image.Rect(0, 0, nx, nz))
		for k := 0; k < nz; k++ {
			for i := 0; i < nx; i++ {
				img.SetGray16(i, k, v.gray(v.img.Value(i, position, k)))
			}
		}

	case "z", "Z":
		if position >= nz {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, nz)
		}
		img = image.NewGray16(image.Rect(0, 0, nx, ny))
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				img.SetGray16(i, j, v.gray(v.img.Value(i, j, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// OverlayBox draws the outline of box on a z slice image. Nothing is drawn
// when the slice does not cross the box.
func (v *Viewer) OverlayBox(img *image.Gray16, box models.VoxelBox, slice int) {
	if slice < box.Min[2] || slice > box.Max[2] {
		return
	}
	outline := color.Gray16{Y: 0xffff}
	for i := box.Min[0]; i <= box.Max[0]; i++ {
		img.SetGray16(i, box.Min[1], outline)
		img.SetGray16(i, box.Max[1], outline)
	}
	for j := box.Min[1]; j <= box.Max[1]; j++ {
		img.SetGray16(box.Min[0], j, outline)
		img.SetGray16(box.Max[0], j, outline)
	}
}

// ExtractRegion copies the voxels inside box into a new image. The region
// keeps the scalar type and spacing; its origin is moved to the first voxel
// of the box for axis-aligned volumes.
func (v *Viewer) ExtractRegion(box models.VoxelBox) (*models.Image, error) {
	if !box.Within(v.img.Dims) {
		return nil, fmt.Errorf("region %s extends beyond volume boundaries %v", box, v.img.Dims)
	}

	size := box.Size()
	region, err := models.NewImage(size, v.img.Scalar)
	if err != nil {
		return nil, err
	}
	region.Spacing = v.img.Spacing
	region.Origin = v.img.Origin
	region.Origin.X += float64(box.Min[0]) * v.img.Spacing.X
	region.Origin.Y += float64(box.Min[1]) * v.img.Spacing.Y
	region.Origin.Z += float64(box.Min[2]) * v.img.Spacing.Z

	// Rows along i are contiguous in both buffers
	rowBytes := size[0] * v.img.Scalar.Size()
	for k := 0; k < size[2]; k++ {
		for j := 0; j < size[1]; j++ {
			src := v.img.Offset(box.Min[0], box.Min[1]+j, box.Min[2]+k)
			dst := region.Offset(0, j, k)
			copy(region.Data[dst:dst+rowBytes], v.img.Data[src:src+rowBytes])
		}
	}

	return region, nil
}

// SaveSlice saves an extracted slice, choosing the encoder from the file
// extension (.png, .tif/.tiff or .jpg/.jpeg)
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return png.Encode(file, img)
	case ".tif", ".tiff":
		// 16-bit grayscale survives TIFF export unchanged
		return tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return fmt.Errorf("unsupported image format: %s", filepath.Ext(filename))
	}
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string, format string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.img.Dims[0]
	case "y", "Y":
		maxPos = v.img.Dims[1]
	case "z", "Z":
		maxPos = v.img.Dims[2]
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.%s", axis, pos, format))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
