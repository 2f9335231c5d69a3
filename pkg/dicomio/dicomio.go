// Package dicomio loads DICOM mammography and tomosynthesis images as volumes.
//
// Only the tags needed to place the pixel grid in RAS space are read:
// Rows, Columns, PixelSpacing, ImagePositionPatient, ImageOrientationPatient,
// SpacingBetweenSlices/SliceThickness, BitsAllocated and PixelRepresentation.
// A handful of identifying attributes are kept for display.
package dicomio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"breastimage/internal/models"
	"breastimage/pkg/affine"
)

// ErrNoPixelData is returned for files without usable native pixel data
var ErrNoPixelData = errors.New("no native pixel data")

// displayTags are copied into Series.Attributes when present
var displayTags = map[string]tag.Tag{
	"PatientID":        tag.PatientID,
	"PatientBirthDate": tag.PatientBirthDate,
	"StudyID":          tag.StudyID,
	"StudyDate":        tag.StudyDate,
	"SeriesNumber":     tag.SeriesNumber,
	"ViewPosition":     tag.ViewPosition,
	"Modality":         tag.Modality,
}

// Series is a loaded volume plus the identifying attributes of its source
type Series struct {
	Volume     *models.Volume
	Attributes map[string]string
}

// Geometry is the LPS placement of a DICOM pixel grid
type Geometry struct {
	// Position is ImagePositionPatient of the first slice
	Position [3]float64

	// Orientation is ImageOrientationPatient: row then column direction
	Orientation [6]float64

	// PixelSpacing is the (row, column) spacing in mm
	PixelSpacing [2]float64

	// SliceSpacing is the distance between consecutive slices in mm
	SliceSpacing float64
}

// DefaultGeometry is used for tags that are absent
func DefaultGeometry() Geometry {
	return Geometry{
		Orientation:  [6]float64{1, 0, 0, 0, 1, 0},
		PixelSpacing: [2]float64{1, 1},
		SliceSpacing: 1,
	}
}

// IJKToRAS converts the LPS geometry into a voxel-to-RAS matrix.
// i runs along the row direction, j along the column direction and k along
// their cross product.
func (g Geometry) IJKToRAS() *mat.Dense {
	row := r3.Vec{X: g.Orientation[0], Y: g.Orientation[1], Z: g.Orientation[2]}
	col := r3.Vec{X: g.Orientation[3], Y: g.Orientation[4], Z: g.Orientation[5]}
	normal := r3.Cross(row, col)

	// LPS to RAS flips the first two axes
	lpsToRAS := func(v r3.Vec) r3.Vec { return r3.Vec{X: -v.X, Y: -v.Y, Z: v.Z} }

	// PixelSpacing lists the spacing between rows first, which is the j step
	spacing := r3.Vec{X: g.PixelSpacing[1], Y: g.PixelSpacing[0], Z: g.SliceSpacing}
	origin := lpsToRAS(r3.Vec{X: g.Position[0], Y: g.Position[1], Z: g.Position[2]})

	return affine.IJKToRAS(origin, spacing, [3]r3.Vec{lpsToRAS(row), lpsToRAS(col), lpsToRAS(normal)})
}

// LoadFile reads a single DICOM file. Multi-frame files become one slice per
// frame.
func LoadFile(path string) (*Series, error) {
	dataset, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("error parsing DICOM file %s: %w", path, err)
	}

	px, err := readFrames(dataset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	g := readGeometry(dataset)
	return buildSeries(filepath.Base(path), px, g, readAttributes(dataset))
}

// LoadSeries reads every DICOM file in dir as one slice each, ordered by
// InstanceNumber. Files that do not parse as DICOM are skipped.
func LoadSeries(dir string) (*Series, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type slice struct {
		instance int
		name     string
		px       pixels
		dataset  dicom.Dataset
	}
	var slices []slice

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		dataset, err := dicom.ParseFile(path, nil)
		if err != nil {
			continue
		}
		px, err := readFrames(dataset)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(slices) > 0 {
			first := slices[0].px
			if px.scalar != first.scalar || px.rows != first.rows || px.cols != first.cols {
				return nil, fmt.Errorf("%s: %dx%d %v does not match series %dx%d %v",
					path, px.cols, px.rows, px.scalar, first.cols, first.rows, first.scalar)
			}
		}

		instance := 0
		if v, ok := floatsOf(dataset, tag.InstanceNumber); ok && len(v) > 0 {
			instance = int(v[0])
		}
		slices = append(slices, slice{instance: instance, name: entry.Name(), px: px, dataset: dataset})
	}
	if len(slices) == 0 {
		return nil, fmt.Errorf("no DICOM files found in %s", dir)
	}

	sort.Slice(slices, func(a, b int) bool {
		if slices[a].instance != slices[b].instance {
			return slices[a].instance < slices[b].instance
		}
		return slices[a].name < slices[b].name
	})

	g := readGeometry(slices[0].dataset)
	if len(slices) > 1 {
		if d, ok := sliceDistance(slices[0].dataset, slices[1].dataset, g); ok {
			g.SliceSpacing = d
		}
	}

	// One frame per file; extra frames of a file are ignored
	px := slices[0].px
	px.frames = make([][][]int, len(slices))
	for n := range slices {
		px.frames[n] = slices[n].px.frames[0]
	}
	return buildSeries(filepath.Base(dir), px, g, readAttributes(slices[0].dataset))
}

// pixels holds the native samples of one or more frames. Each frame holds
// rows*cols samples in row-major order.
type pixels struct {
	frames     [][][]int
	rows, cols int
	scalar     models.ScalarType
}

// buildSeries packs per-slice pixel samples into a volume
func buildSeries(name string, px pixels, g Geometry, attrs map[string]string) (*Series, error) {
	img, err := models.NewImage([3]int{px.cols, px.rows, len(px.frames)}, px.scalar)
	if err != nil {
		return nil, err
	}
	for k, frame := range px.frames {
		if len(frame) != px.rows*px.cols {
			return nil, fmt.Errorf("frame %d holds %d samples, expected %d", k, len(frame), px.rows*px.cols)
		}
		for p, sample := range frame {
			if len(sample) == 0 {
				return nil, fmt.Errorf("frame %d: pixel %d has no samples", k, p)
			}
			img.SetValue(p%px.cols, p/px.cols, k, float64(sample[0]))
		}
	}
	img.Spacing = r3.Vec{X: g.PixelSpacing[1], Y: g.PixelSpacing[0], Z: g.SliceSpacing}

	vol, err := models.NewVolume(name, img, g.IJKToRAS())
	if err != nil {
		return nil, err
	}
	// Keep the image origin consistent with the matrix translation
	vol.ImageData().Origin = r3.Vec{X: -g.Position[0], Y: -g.Position[1], Z: g.Position[2]}
	return &Series{Volume: vol, Attributes: attrs}, nil
}

// readFrames extracts the native pixel samples of every frame and the
// scalar type they should be stored as
func readFrames(dataset dicom.Dataset) (pixels, error) {
	el, err := dataset.FindElementByTag(tag.PixelData)
	if err != nil {
		return pixels{}, ErrNoPixelData
	}
	info := dicom.MustGetPixelDataInfo(el.Value)
	if info.IsEncapsulated {
		return pixels{}, fmt.Errorf("%w: encapsulated transfer syntax", ErrNoPixelData)
	}

	bits := 16
	if v, ok := intsOf(dataset, tag.BitsAllocated); ok && len(v) > 0 {
		bits = v[0]
	}
	signed := false
	if v, ok := intsOf(dataset, tag.PixelRepresentation); ok && len(v) > 0 {
		signed = v[0] == 1
	}
	scalar, err := scalarFor(bits, signed)
	if err != nil {
		return pixels{}, err
	}

	px := pixels{scalar: scalar, frames: make([][][]int, 0, len(info.Frames))}
	for _, fr := range info.Frames {
		native, err := fr.GetNativeFrame()
		if err != nil {
			return pixels{}, fmt.Errorf("%w: %v", ErrNoPixelData, err)
		}
		if len(px.frames) == 0 {
			px.rows, px.cols = native.Rows, native.Cols
		} else if native.Rows != px.rows || native.Cols != px.cols {
			return pixels{}, fmt.Errorf("frame size %dx%d differs from %dx%d", native.Cols, native.Rows, px.cols, px.rows)
		}
		px.frames = append(px.frames, native.Data)
	}
	if len(px.frames) == 0 {
		return pixels{}, ErrNoPixelData
	}
	return px, nil
}

// scalarFor maps BitsAllocated and PixelRepresentation to a scalar type
func scalarFor(bits int, signed bool) (models.ScalarType, error) {
	switch {
	case bits == 8 && !signed:
		return models.Uint8, nil
	case bits == 8 && signed:
		return models.Int8, nil
	case bits == 16 && !signed:
		return models.Uint16, nil
	case bits == 16 && signed:
		return models.Int16, nil
	case bits == 32 && !signed:
		return models.Uint32, nil
	case bits == 32 && signed:
		return models.Int32, nil
	}
	return models.ScalarUnknown, fmt.Errorf("%w: %d bits allocated", models.ErrUnsupportedScalar, bits)
}

// readGeometry reads the placement tags, falling back to DefaultGeometry
func readGeometry(dataset dicom.Dataset) Geometry {
	g := DefaultGeometry()
	if v, ok := floatsOf(dataset, tag.ImagePositionPatient); ok && len(v) == 3 {
		copy(g.Position[:], v)
	}
	if v, ok := floatsOf(dataset, tag.ImageOrientationPatient); ok && len(v) == 6 {
		copy(g.Orientation[:], v)
	}
	if v, ok := floatsOf(dataset, tag.PixelSpacing); ok && len(v) == 2 {
		copy(g.PixelSpacing[:], v)
	}
	if v, ok := floatsOf(dataset, tag.SpacingBetweenSlices); ok && len(v) > 0 && v[0] > 0 {
		g.SliceSpacing = v[0]
	} else if v, ok := floatsOf(dataset, tag.SliceThickness); ok && len(v) > 0 && v[0] > 0 {
		g.SliceSpacing = v[0]
	}
	return g
}

// sliceDistance measures the distance between two slice positions along
// the slice normal
func sliceDistance(a, b dicom.Dataset, g Geometry) (float64, bool) {
	pa, okA := floatsOf(a, tag.ImagePositionPatient)
	pb, okB := floatsOf(b, tag.ImagePositionPatient)
	if !okA || !okB || len(pa) != 3 || len(pb) != 3 {
		return 0, false
	}
	row := r3.Vec{X: g.Orientation[0], Y: g.Orientation[1], Z: g.Orientation[2]}
	col := r3.Vec{X: g.Orientation[3], Y: g.Orientation[4], Z: g.Orientation[5]}
	d := r3.Dot(r3.Cross(row, col), r3.Vec{X: pb[0] - pa[0], Y: pb[1] - pa[1], Z: pb[2] - pa[2]})
	if d <= 0 {
		return 0, false
	}
	return d, true
}

func readAttributes(dataset dicom.Dataset) map[string]string {
	attrs := make(map[string]string)
	for name, t := range displayTags {
		if v, ok := stringsOf(dataset, t); ok && len(v) > 0 {
			attrs[name] = strings.TrimSpace(v[0])
		}
	}
	return attrs
}

func stringsOf(dataset dicom.Dataset, t tag.Tag) ([]string, bool) {
	el, err := dataset.FindElementByTag(t)
	if err != nil || el.Value.ValueType() != dicom.Strings {
		return nil, false
	}
	return dicom.MustGetStrings(el.Value), true
}

func intsOf(dataset dicom.Dataset, t tag.Tag) ([]int, bool) {
	el, err := dataset.FindElementByTag(t)
	if err != nil || el.Value.ValueType() != dicom.Ints {
		return nil, false
	}
	return dicom.MustGetInts(el.Value), true
}

// floatsOf reads decimal string (DS) and integer string (IS) values
func floatsOf(dataset dicom.Dataset, t tag.Tag) ([]float64, bool) {
	values, ok := stringsOf(dataset, t)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(values))
	for _, s := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}
