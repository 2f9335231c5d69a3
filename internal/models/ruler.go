package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Ruler is a two-point distance marker placed in RAS space
type Ruler struct {
	Name   string
	P1, P2 r3.Vec
}

// NewRuler builds a ruler from six values: x1,y1,z1,x2,y2,z2
func NewRuler(name string, coords []float64) (Ruler, error) {
	if len(coords) != 6 {
		return Ruler{}, fmt.Errorf("ruler needs 6 coordinates, got %d", len(coords))
	}
	for _, c := range coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return Ruler{}, fmt.Errorf("ruler coordinate %v is not finite", c)
		}
	}
	return Ruler{
		Name: name,
		P1:   r3.Vec{X: coords[0], Y: coords[1], Z: coords[2]},
		P2:   r3.Vec{X: coords[3], Y: coords[4], Z: coords[5]},
	}, nil
}

// Length returns the distance between the two points in mm
func (r Ruler) Length() float64 {
	return r3.Norm(r3.Sub(r.P2, r.P1))
}
