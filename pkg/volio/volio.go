// Package volio reads and writes volumes stored as a raw little-endian voxel
// file described by a YAML header.
package volio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"breastimage/internal/models"
	"breastimage/pkg/affine"
)

// Header is the YAML description of a raw volume
type Header struct {
	Name   string            `yaml:"name,omitempty"`
	Dims   [3]int            `yaml:"dims"`
	Scalar models.ScalarType `yaml:"scalar"`

	// Spacing and Origin are in mm
	Spacing [3]float64 `yaml:"spacing"`
	Origin  [3]float64 `yaml:"origin"`

	// Directions holds the unit RAS direction of the i, j and k axes.
	// Axis-aligned when omitted.
	Directions [][3]float64 `yaml:"directions,omitempty"`

	// IJKToRAS overrides Spacing, Origin and Directions when present
	IJKToRAS []float64 `yaml:"ijkToRAS,omitempty"`

	// Data is the raw file, relative to the header
	Data string `yaml:"data"`
}

// Load reads the header at headerPath and the raw voxel file it names
func Load(headerPath string) (*models.Volume, error) {
	raw, err := os.ReadFile(headerPath)
	if err != nil {
		return nil, fmt.Errorf("error reading volume header: %w", err)
	}

	var h Header
	if err := yaml.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("error parsing volume header: %w", err)
	}
	if h.Data == "" {
		return nil, fmt.Errorf("volume header %s names no data file", headerPath)
	}

	dataPath := h.Data
	if !filepath.IsAbs(dataPath) {
		dataPath = filepath.Join(filepath.Dir(headerPath), dataPath)
	}
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("error reading volume data: %w", err)
	}

	spacing := vecOf(h.Spacing)
	if spacing == (r3.Vec{}) {
		spacing = r3.Vec{X: 1, Y: 1, Z: 1}
	}
	img := &models.Image{
		Dims:    h.Dims,
		Scalar:  h.Scalar,
		Data:    data,
		Spacing: spacing,
		Origin:  vecOf(h.Origin),
	}
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("volume %s: %w", headerPath, err)
	}

	ijkToRAS, err := h.matrix(img)
	if err != nil {
		return nil, fmt.Errorf("volume %s: %w", headerPath, err)
	}

	name := h.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(headerPath), filepath.Ext(headerPath))
	}
	return models.NewVolume(name, img, ijkToRAS)
}

func (h *Header) matrix(img *models.Image) (*mat.Dense, error) {
	if len(h.IJKToRAS) > 0 {
		return affine.FromSlice(h.IJKToRAS)
	}

	directions := affine.AxisAligned()
	if len(h.Directions) > 0 {
		if len(h.Directions) != 3 {
			return nil, fmt.Errorf("expected 3 directions, got %d", len(h.Directions))
		}
		for axis, d := range h.Directions {
			directions[axis] = vecOf(d)
		}
	}
	return affine.IJKToRAS(img.Origin, img.Spacing, directions), nil
}

// Save writes vol as a header at headerPath plus a .raw file next to it
func Save(headerPath string, vol *models.Volume) error {
	if err := vol.Validate(); err != nil {
		return err
	}
	img := vol.ImageData()

	if err := os.MkdirAll(filepath.Dir(headerPath), 0755); err != nil {
		return fmt.Errorf("error creating volume directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(headerPath), filepath.Ext(headerPath))
	dataName := base + ".raw"

	h := Header{
		Name:     vol.Name,
		Dims:     img.Dims,
		Scalar:   img.Scalar,
		Spacing:  [3]float64{img.Spacing.X, img.Spacing.Y, img.Spacing.Z},
		Origin:   [3]float64{img.Origin.X, img.Origin.Y, img.Origin.Z},
		IJKToRAS: affine.Rows(vol.IJKToRASMatrix()),
		Data:     dataName,
	}
	out, err := yaml.Marshal(&h)
	if err != nil {
		return fmt.Errorf("error marshaling volume header: %w", err)
	}

	if err := os.WriteFile(filepath.Join(filepath.Dir(headerPath), dataName), img.Data, 0644); err != nil {
		return fmt.Errorf("error writing volume data: %w", err)
	}
	if err := os.WriteFile(headerPath, out, 0644); err != nil {
		return fmt.Errorf("error writing volume header: %w", err)
	}
	return nil
}

func vecOf(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}
