package models

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedScalar is returned for voxel encodings the module cannot address
var ErrUnsupportedScalar = errors.New("unsupported scalar type")

// ScalarType identifies how a single voxel is encoded in an image buffer.
// All multi-byte encodings are little endian.
type ScalarType int

const (
	ScalarUnknown ScalarType = iota
	Uint8
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Float32
	Float64
)

var scalarNames = map[ScalarType]string{
	Uint8:   "uint8",
	Int8:    "int8",
	Uint16:  "uint16",
	Int16:   "int16",
	Uint32:  "uint32",
	Int32:   "int32",
	Float32: "float32",
	Float64: "float64",
}

// Size returns the element size in bytes, or 0 for unknown types
func (s ScalarType) Size() int {
	switch s {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// Valid reports whether s is one of the supported encodings
func (s ScalarType) Valid() bool {
	return s.Size() > 0
}

func (s ScalarType) String() string {
	if name, ok := scalarNames[s]; ok {
		return name
	}
	return fmt.Sprintf("scalar(%d)", int(s))
}

// ParseScalarType maps a name such as "uint16" to its ScalarType
func ParseScalarType(name string) (ScalarType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range scalarNames {
		if n == name {
			return s, nil
		}
	}
	return ScalarUnknown, fmt.Errorf("%w: %q", ErrUnsupportedScalar, name)
}

// MarshalYAML writes the scalar type by name
func (s ScalarType) MarshalYAML() (interface{}, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedScalar, s)
	}
	return s.String(), nil
}

// UnmarshalYAML reads the scalar type by name
func (s *ScalarType) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	parsed, err := ParseScalarType(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Decode converts one encoded element to float64.
// b must hold at least Size() bytes.
func (s ScalarType) Decode(b []byte) float64 {
	switch s {
	case Uint8:
		return float64(b[0])
	case Int8:
		return float64(int8(b[0]))
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return 0
}

// Encode writes v into b using the encoding of s. Integer encodings
// saturate at the bounds of the type.
func (s ScalarType) Encode(b []byte, v float64) {
	switch s {
	case Uint8:
		b[0] = uint8(clamp(v, 0, math.MaxUint8))
	case Int8:
		b[0] = uint8(int8(clamp(v, math.MinInt8, math.MaxInt8)))
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(clamp(v, 0, math.MaxUint16)))
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(clamp(v, math.MinInt16, math.MaxInt16))))
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(clamp(v, 0, math.MaxUint32)))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(clamp(v, math.MinInt32, math.MaxInt32))))
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, math.Round(v)))
}
