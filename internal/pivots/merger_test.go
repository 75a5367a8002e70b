package pivots

import (
	"testing"

	"github.com/rs/zerolog"
)

var testLogger = zerolog.Nop()

func TestMergePreAbsorbsSameDirection(t *testing.T) {
	// Up, tiny contrary dip, up again: the dip and the earlier up leg
	// should both be absorbed into the final pivot's pre.
	closes := []float64{1.00, 1.03, 1.06, 1.02, 1.09, 1.12, 1.05}
	pl := Detect(dailySeries(t, closes), 0.02, ClosePrice)
	if pl.Len() < 2 {
		t.Fatalf("expected pivots, got %d", pl.Len())
	}

	last := pl.Last()
	if last.Pre == nil {
		t.Fatal("last pivot has nil pre")
	}
	before := last.Pre.Count()
	startBefore := last.Pre.Start()

	cfg := MergeConfig{NCandles: 3, DiffPercThreshold: 50, Mode: ScoreDiff}
	pl.MergePre(last, cfg, testLogger)

	if last.Pre.Count() < before {
		t.Errorf("merge shrank segment: %d -> %d", before, last.Pre.Count())
	}
	if last.Pre.Start().After(startBefore) {
		t.Errorf("merge moved start toward the pivot: %s -> %s", startBefore, last.Pre.Start())
	}
	if last.Pre.Count() <= before {
		t.Errorf("expected pre to grow past %d candles, got %d", before, last.Pre.Count())
	}
}

func TestMergePreStopsAtLargeCountertrend(t *testing.T) {
	// A long, deep contrary leg must not be absorbed.
	closes := []float64{1.20, 1.15, 1.10, 1.05, 1.00, 1.04, 1.08, 1.12, 1.02}
	pl := Detect(dailySeries(t, closes), 0.02, ClosePrice)

	last := pl.Last()
	if last == nil || last.Pre == nil {
		t.Fatal("expected a last pivot with a pre segment")
	}
	before := last.Pre.Count()
	cfg := MergeConfig{NCandles: 2, DiffPercThreshold: 10, Mode: ScoreDiff}
	pl.MergePre(last, cfg, testLogger)

	if last.Pre.Count() != before {
		t.Errorf("large countertrend absorbed: %d -> %d candles", before, last.Pre.Count())
	}
}

func TestMergeMonotonicity(t *testing.T) {
	closes := []float64{1.00, 1.06, 1.01, 1.07, 1.02, 1.09, 1.03, 1.10, 1.04}
	pl := Detect(dailySeries(t, closes), 0.02, ClosePrice)

	type bounds struct {
		count      int
		start, end int64
	}
	pre := make(map[int]bounds)
	aft := make(map[int]bounds)
	for i, p := range pl.Pivots {
		if p.Pre != nil {
			pre[i] = bounds{p.Pre.Count(), p.Pre.Start().Unix(), p.Pre.End().Unix()}
		}
		if p.Aft != nil {
			aft[i] = bounds{p.Aft.Count(), p.Aft.Start().Unix(), p.Aft.End().Unix()}
		}
	}

	cfg := MergeConfig{NCandles: 3, DiffPercThreshold: 120, Mode: ScoreDiff}
	pl.MergeAll(cfg, testLogger)

	for i, p := range pl.Pivots {
		if p.Pre != nil {
			b := pre[i]
			if p.Pre.Count() < b.count {
				t.Errorf("pivot %d: pre candle count shrank %d -> %d", i, b.count, p.Pre.Count())
			}
			if p.Pre.Start().Unix() > b.start {
				t.Errorf("pivot %d: pre start moved toward pivot", i)
			}
		}
		if p.Aft != nil {
			b := aft[i]
			if p.Aft.Count() < b.count {
				t.Errorf("pivot %d: aft candle count shrank %d -> %d", i, b.count, p.Aft.Count())
			}
			if p.Aft.End().Unix() < b.end {
				t.Errorf("pivot %d: aft end moved toward pivot", i)
			}
		}
	}
}

func TestMergeConsumesSegmentsOnce(t *testing.T) {
	closes := []float64{1.00, 1.06, 1.01, 1.07, 1.02, 1.09, 1.03, 1.10, 1.04}
	pl := Detect(dailySeries(t, closes), 0.02, ClosePrice)

	total := 0
	for i := 0; i < pl.Segments.Len(); i++ {
		total += pl.Segments.Segment(i).Count()
	}

	cfg := MergeConfig{NCandles: 5, DiffPercThreshold: 200, Mode: ScoreDiff}
	pl.MergeAll(cfg, testLogger)

	// Candles absorbed across all pivots' pre segments beyond their
	// original extents must not exceed the arena total: each arena
	// segment feeds at most one pivot.
	for _, p := range pl.Pivots {
		if p.Pre != nil && p.Pre.Count() > total {
			t.Errorf("pivot at %s absorbed more candles than exist: %d > %d",
				p.Candle.Time, p.Pre.Count(), total)
		}
	}
}

func TestCalcScoreModes(t *testing.T) {
	closes := []float64{1.00, 1.01, 1.02, 1.03, 1.04, 1.05, 1.06, 1.07, 1.08, 1.05}
	pl := Detect(dailySeries(t, closes), 0.02, ClosePrice)
	p := pl.Last()

	diff := p.CalcScore(ScoreDiff)
	if diff != p.Pre.MagnitudePips() {
		t.Errorf("diff score = %v, want %v", diff, p.Pre.MagnitudePips())
	}
	candles := p.CalcScore(ScoreCandles)
	if candles != float64(p.Pre.Count()) {
		t.Errorf("candles score = %v, want %v", candles, p.Pre.Count())
	}
}
