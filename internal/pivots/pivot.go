package pivots

import (
	"fmt"
	"strings"

	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
)

// PivotType marks a pivot as a local maximum or minimum.
type PivotType int

const (
	Peak PivotType = iota
	Valley
)

func (t PivotType) String() string {
	if t == Peak {
		return "peak"
	}
	return "valley"
}

// ScoreMode selects how a pivot is scored.
type ScoreMode int

const (
	// ScoreDiff scores a pivot by the summed pip magnitudes of its
	// adjoining segments.
	ScoreDiff ScoreMode = iota
	// ScoreCandles scores a pivot by the summed candle counts of its
	// adjoining segments.
	ScoreCandles
)

// Pivot is a local price extreme. Pre is the segment ending at the
// pivot, Aft the segment starting after it; either may be nil at the
// series boundary. Identity is the candle's timestamp.
type Pivot struct {
	Type   PivotType
	Candle model.Candle
	Pre    *Segment
	Aft    *Segment
	Score  float64
}

// CalcScore recomputes and stores the pivot's score. Must be called
// again after any merge.
func (p *Pivot) CalcScore(mode ScoreMode) float64 {
	var score float64
	switch mode {
	case ScoreCandles:
		if p.Pre != nil {
			score += float64(p.Pre.Count())
		}
		if p.Aft != nil {
			score += float64(p.Aft.Count())
		}
	default:
		if p.Pre != nil {
			score += p.Pre.MagnitudePips()
		}
		if p.Aft != nil {
			score += p.Aft.MagnitudePips()
		}
	}
	p.Score = score
	return score
}

// PivotList holds the pivots of one zigzag pass together with the
// segment arena they were cut from. Before merging,
// len(segments) == len(pivots)-1.
type PivotList struct {
	Series   *model.CandleSeries
	Pivots   []*Pivot
	Segments *SegmentList
}

// Len returns the number of pivots.
func (pl *PivotList) Len() int { return len(pl.Pivots) }

// Last returns the most recent pivot, or nil for an empty list.
func (pl *PivotList) Last() *Pivot {
	if len(pl.Pivots) == 0 {
		return nil
	}
	return pl.Pivots[len(pl.Pivots)-1]
}

// AuditLines renders one line per pivot in the form
// "pre.start|pivot.time|aft.end", with "n.a." for missing boundaries.
func (pl *PivotList) AuditLines() []string {
	const na = "n.a."
	lines := make([]string, 0, len(pl.Pivots))
	for _, p := range pl.Pivots {
		pre, aft := na, na
		if p.Pre != nil {
			pre = p.Pre.Start().UTC().Format("2006-01-02T15:04:05")
		}
		if p.Aft != nil {
			aft = p.Aft.End().UTC().Format("2006-01-02T15:04:05")
		}
		lines = append(lines, strings.Join([]string{
			pre,
			p.Candle.Time.UTC().Format("2006-01-02T15:04:05"),
			aft,
		}, "|"))
	}
	return lines
}

// validate checks the pivot/segment count invariant. Violations are
// programmer errors.
func (pl *PivotList) validate() {
	if len(pl.Pivots) > 0 && pl.Segments.Len() != len(pl.Pivots)-1 {
		panic(fmt.Sprintf("pivots: %d segments for %d pivots", pl.Segments.Len(), len(pl.Pivots)))
	}
}
