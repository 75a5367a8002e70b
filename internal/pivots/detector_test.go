package pivots

import (
	"testing"
	"time"

	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
)

func dailySeries(t *testing.T, closes []float64) *model.CandleSeries {
	t.Helper()
	start := time.Date(2023, 3, 1, 22, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			Time:     start.Add(time.Duration(i) * 24 * time.Hour),
			Open:     c,
			High:     c * 1.001,
			Low:      c * 0.999,
			Close:    c,
			Volume:   100,
			Complete: true,
		}
	}
	s, err := model.NewCandleSeries("EUR_USD", "D", candles)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDetectAscendingThenDescending(t *testing.T) {
	// Rises for nine candles, then one drop of more than 2%.
	closes := []float64{1.00, 1.01, 1.02, 1.03, 1.04, 1.05, 1.06, 1.07, 1.08, 1.05}
	pl := Detect(dailySeries(t, closes), 0.02, ClosePrice)

	if pl.Len() != 2 {
		t.Fatalf("expected 2 pivots, got %d", pl.Len())
	}
	if pl.Pivots[0].Type != Valley {
		t.Errorf("first pivot = %s, want valley", pl.Pivots[0].Type)
	}
	if pl.Pivots[1].Type != Peak {
		t.Errorf("second pivot = %s, want peak", pl.Pivots[1].Type)
	}
	if pl.Pivots[1].Candle.Close != 1.08 {
		t.Errorf("peak close = %v, want 1.08", pl.Pivots[1].Candle.Close)
	}
	if pl.Segments.Len() != 1 {
		t.Fatalf("expected 1 segment, got %d", pl.Segments.Len())
	}
	seg := pl.Segments.Segment(0)
	if seg.Count() != 9 {
		t.Errorf("segment length = %d, want 9", seg.Count())
	}
	if seg.Direction != DirUp {
		t.Errorf("segment direction = %s, want up", seg.Direction)
	}
}

func TestDetectBoundaries(t *testing.T) {
	closes := []float64{1.00, 1.05, 1.00, 1.05, 1.00}
	pl := Detect(dailySeries(t, closes), 0.02, ClosePrice)

	if pl.Len() < 2 {
		t.Fatalf("expected pivots, got %d", pl.Len())
	}
	if pl.Pivots[0].Pre != nil {
		t.Error("first pivot must have nil Pre")
	}
	if pl.Last().Aft != nil {
		t.Error("last pivot must have nil Aft")
	}
	if pl.Segments.Len() != pl.Len()-1 {
		t.Errorf("segments = %d, pivots = %d; want len(segments) == len(pivots)-1",
			pl.Segments.Len(), pl.Len())
	}
}

func TestDetectAlternation(t *testing.T) {
	closes := []float64{1.00, 1.06, 1.01, 1.07, 1.02, 1.09, 1.03, 1.10, 1.04}
	pl := Detect(dailySeries(t, closes), 0.02, ClosePrice)

	for i := 1; i < pl.Len(); i++ {
		if pl.Pivots[i].Type == pl.Pivots[i-1].Type {
			t.Errorf("pivots %d and %d share type %s", i-1, i, pl.Pivots[i].Type)
		}
	}
}

func TestDetectSegmentCoverage(t *testing.T) {
	// Segments must tile every candle up to the last pivot with no
	// gaps or overlaps.
	closes := []float64{1.00, 1.02, 1.06, 1.04, 1.01, 1.03, 1.08}
	series := dailySeries(t, closes)
	pl := Detect(series, 0.02, ClosePrice)

	if pl.Len() < 2 {
		t.Fatalf("expected pivots, got %d", pl.Len())
	}
	var covered []model.Candle
	for i := 0; i < pl.Segments.Len(); i++ {
		covered = append(covered, pl.Segments.Segment(i).Candles()...)
	}
	lastPivot := pl.Last().Candle.Time
	end, ok := series.IndexOf(lastPivot)
	if !ok {
		t.Fatal("last pivot candle not in series")
	}
	if len(covered) != end+1 {
		t.Fatalf("covered %d candles, want %d", len(covered), end+1)
	}
	for i, c := range covered {
		if !c.Time.Equal(series.At(i).Time) {
			t.Errorf("coverage gap or overlap at index %d: %s vs %s", i, c.Time, series.At(i).Time)
		}
	}
}

func TestDetectFlatSeries(t *testing.T) {
	closes := []float64{1.10, 1.10, 1.10, 1.10, 1.10, 1.10}
	pl := Detect(dailySeries(t, closes), 0.02, ClosePrice)

	if pl.Len() != 0 {
		t.Errorf("flat series: expected 0 pivots, got %d", pl.Len())
	}
}

func TestDetectTooShort(t *testing.T) {
	pl := Detect(dailySeries(t, []float64{1.10}), 0.02, ClosePrice)
	if pl.Len() != 0 {
		t.Errorf("single candle: expected 0 pivots, got %d", pl.Len())
	}
}

func TestAuditLines(t *testing.T) {
	closes := []float64{1.00, 1.01, 1.02, 1.03, 1.04, 1.05, 1.06, 1.07, 1.08, 1.05}
	pl := Detect(dailySeries(t, closes), 0.02, ClosePrice)

	lines := pl.AuditLines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 audit lines, got %d", len(lines))
	}
	if lines[0][:4] != "n.a." {
		t.Errorf("first line should start with n.a. sentinel: %s", lines[0])
	}
	last := lines[len(lines)-1]
	if last[len(last)-4:] != "n.a." {
		t.Errorf("last line should end with n.a. sentinel: %s", last)
	}
}
