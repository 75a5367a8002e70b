package model

import (
	"github.com/FOREXfunguru/FOREX-sub000/internal/pips"
)

// Level is a horizontal price band believed to act as support or
// resistance (a "horizontal area"). Immutable after construction; the
// bounce count and score are annotated by the level detector at
// creation time.
type Level struct {
	Price         float64
	BandWidthPips float64
	Upper         float64
	Lower         float64
	BounceCount   int
	TotalScore    float64
}

// NewLevel builds a Level around price with a half-width of
// bandWidthPips, converted through the instrument's pip divisor.
func NewLevel(instrument string, price, bandWidthPips float64) (Level, error) {
	div, err := pips.Divisor(instrument)
	if err != nil {
		return Level{}, err
	}
	return Level{
		Price:         price,
		BandWidthPips: bandWidthPips,
		Upper:         price + bandWidthPips/div,
		Lower:         price - bandWidthPips/div,
	}, nil
}
