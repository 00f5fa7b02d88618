package physics

import (
	"errors"
	"fmt"
)

var ErrInvalidGearTable = errors.New("invalid gear table")

// GearTable holds the ratios of gears 1..N and the final drive ratio.
type GearTable struct {
	ratios     []float64
	finalDrive float64
}

var (
	FiestaSTRatios     = []float64{3.583, 1.952, 1.290, 0.971, 0.775, 0.651}
	FiestaSTFinalDrive = 4.313
)

func NewGearTable(ratios []float64, finalDrive float64) (*GearTable, error) {
	if len(ratios) == 0 {
		return nil, fmt.Errorf("%w: no gears", ErrInvalidGearTable)
	}
	if finalDrive <= 0 {
		return nil, fmt.Errorf("%w: final drive %v", ErrInvalidGearTable, finalDrive)
	}
	for i, r := range ratios {
		if r <= 0 {
			return nil, fmt.Errorf("%w: gear %d ratio %v", ErrInvalidGearTable, i+1, r)
		}
		if i > 0 && r >= ratios[i-1] {
			return nil, fmt.Errorf("%w: gear %d ratio %v not below gear %d",
				ErrInvalidGearTable, i+1, r, i)
		}
	}
	return &GearTable{ratios: append([]float64(nil), ratios...), finalDrive: finalDrive}, nil
}

func MustGearTable(ratios []float64, finalDrive float64) *GearTable {
	g, err := NewGearTable(ratios, finalDrive)
	if err != nil {
		panic(err)
	}
	return g
}

func DefaultGearTable() *GearTable {
	return MustGearTable(FiestaSTRatios, FiestaSTFinalDrive)
}

// NumGears returns the top gear number.
func (g *GearTable) NumGears() int {
	return len(g.ratios)
}

func (g *GearTable) FinalDrive() float64 {
	return g.finalDrive
}

// FinalRatio returns gear ratio * final drive. gear is 1-based.
// Panics if gear is outside [1, NumGears].
func (g *GearTable) FinalRatio(gear int) float64 {
	if gear < 1 || gear > len(g.ratios) {
		panic(fmt.Sprintf("gear %d out of range [1,%d]", gear, len(g.ratios)))
	}
	return g.ratios[gear-1] * g.finalDrive
}
