// Package pivots decomposes a candle series into alternating price
// extremes (pivots) and the directional candle runs (segments) between
// them, and consolidates raw zigzag legs into trend legs by merging
// neighboring segments.
package pivots

import (
	"time"

	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
	"github.com/FOREXfunguru/FOREX-sub000/internal/pips"
)

// Direction is the slope sign of a segment.
type Direction int

const (
	DirUp Direction = iota
	DirDown
)

func (d Direction) String() string {
	if d == DirUp {
		return "up"
	}
	return "down"
}

// Segment is a contiguous run of candles between two pivots. It grows
// only through Prepend/Append; it is never shrunk.
type Segment struct {
	Direction  Direction
	instrument string
	candles    []model.Candle
	magnitude  float64
}

// NewSegment builds a segment over candles and computes its magnitude.
func NewSegment(instrument string, direction Direction, candles []model.Candle) *Segment {
	s := &Segment{
		Direction:  direction,
		instrument: instrument,
		candles:    candles,
	}
	s.recalcMagnitude()
	return s
}

// Candles returns the backing candle slice. Callers must not mutate it.
func (s *Segment) Candles() []model.Candle { return s.candles }

// Count returns the number of candles in the segment.
func (s *Segment) Count() int { return len(s.candles) }

// MagnitudePips is the absolute pip difference between the first and
// last close, floored at 1 pip so downstream ratios never divide by
// zero.
func (s *Segment) MagnitudePips() float64 { return s.magnitude }

// Start returns the first candle's time.
func (s *Segment) Start() time.Time { return s.candles[0].Time }

// End returns the last candle's time.
func (s *Segment) End() time.Time { return s.candles[len(s.candles)-1].Time }

// Prepend splices another segment's candles in front of this one and
// recomputes the magnitude.
func (s *Segment) Prepend(other *Segment) {
	merged := make([]model.Candle, 0, len(other.candles)+len(s.candles))
	merged = append(merged, other.candles...)
	merged = append(merged, s.candles...)
	s.candles = merged
	s.recalcMagnitude()
}

// Append splices another segment's candles after this one and
// recomputes the magnitude.
func (s *Segment) Append(other *Segment) {
	s.candles = append(s.candles, other.candles...)
	s.recalcMagnitude()
}

// Copy returns a segment with its own candle slice, so growing the
// copy never mutates the arena original.
func (s *Segment) Copy() *Segment {
	cs := make([]model.Candle, len(s.candles))
	copy(cs, s.candles)
	return &Segment{
		Direction:  s.Direction,
		instrument: s.instrument,
		candles:    cs,
		magnitude:  s.magnitude,
	}
}

func (s *Segment) recalcMagnitude() {
	if len(s.candles) == 0 {
		s.magnitude = 1
		return
	}
	first := s.candles[0].Close
	last := s.candles[len(s.candles)-1].Close
	d, err := pips.Distance(s.instrument, first, last)
	if err != nil || d < 1 {
		d = 1
	}
	s.magnitude = d
}

// SegmentList is the arena of segments produced by one zigzag pass.
// Merging consumes arena entries so a segment absorbed into one pivot
// can never be re-absorbed into another.
type SegmentList struct {
	segments  []*Segment
	consumed  []bool
	tolerance time.Duration
}

// NewSegmentList wraps segments with a lookup tolerance of one
// granularity step plus one hour, covering granularity rounding.
func NewSegmentList(segments []*Segment, step time.Duration) *SegmentList {
	return &SegmentList{
		segments:  segments,
		consumed:  make([]bool, len(segments)),
		tolerance: step + time.Hour,
	}
}

// Len returns the number of segments in the arena.
func (l *SegmentList) Len() int { return len(l.segments) }

// Segment returns the arena segment at index i.
func (l *SegmentList) Segment(i int) *Segment { return l.segments[i] }

// findEndingBefore returns the unconsumed segment whose end timestamp
// immediately precedes t, within the list's tolerance. Returns -1 when
// out of range.
func (l *SegmentList) findEndingBefore(t time.Time) (int, *Segment) {
	best := -1
	for i, s := range l.segments {
		if l.consumed[i] || !s.End().Before(t) {
			continue
		}
		if t.Sub(s.End()) > l.tolerance {
			continue
		}
		if best < 0 || s.End().After(l.segments[best].End()) {
			best = i
		}
	}
	if best < 0 {
		return -1, nil
	}
	return best, l.segments[best]
}

// findStartingAfter is the forward mirror of findEndingBefore.
func (l *SegmentList) findStartingAfter(t time.Time) (int, *Segment) {
	best := -1
	for i, s := range l.segments {
		if l.consumed[i] || !s.Start().After(t) {
			continue
		}
		if s.Start().Sub(t) > l.tolerance {
			continue
		}
		if best < 0 || s.Start().Before(l.segments[best].Start()) {
			best = i
		}
	}
	if best < 0 {
		return -1, nil
	}
	return best, l.segments[best]
}

func (l *SegmentList) consume(i int) { l.consumed[i] = true }
