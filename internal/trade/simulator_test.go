package trade

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
)

func level(t *testing.T, price float64) model.Level {
	t.Helper()
	l, err := model.NewLevel("EUR_USD", price, 5)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func rangeSeries(t *testing.T, ranges [][2]float64) *model.CandleSeries {
	t.Helper()
	start := time.Date(2023, 7, 3, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(ranges))
	for i, r := range ranges {
		candles[i] = model.Candle{
			Time:     start.Add(time.Duration(i) * 24 * time.Hour),
			Open:     r[0],
			High:     r[1],
			Low:      r[0],
			Close:    r[1],
			Complete: true,
		}
	}
	s, err := model.NewCandleSeries("EUR_USD", "D", candles)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func simulator(cfg SimConfig) *Simulator {
	return NewSimulator(nil, cfg, zerolog.Nop())
}

func shortTrade(t *testing.T, start time.Time) *Trade {
	t.Helper()
	tr, err := New(start, "EUR_USD", "D", Short,
		level(t, 1.1000), level(t, 1.1050), WithTarget(level(t, 1.0900)))
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestShortTradeSuccess(t *testing.T) {
	s := rangeSeries(t, [][2]float64{
		{1.0960, 1.1005}, // touches the entry band
		{1.0940, 1.0990},
		{1.0899, 1.0950}, // low touches the target
		{1.0930, 1.0970},
	})
	tr := shortTrade(t, s.First().Time)

	sim := simulator(SimConfig{MaxPeriods: 10, Expires: 5})
	if err := sim.Run(context.Background(), tr, s); err != nil {
		t.Fatal(err)
	}
	if tr.Outcome != Success {
		t.Fatalf("outcome = %s, want success", tr.Outcome)
	}
	if tr.Pips <= 0 {
		t.Errorf("pips = %v, want positive", tr.Pips)
	}
	if !tr.Entered {
		t.Error("trade should have entered")
	}
	if !tr.EndTime.Equal(s.At(2).Time) {
		t.Errorf("end time = %s, want %s", tr.EndTime, s.At(2).Time)
	}
}

func TestShortTradeFailure(t *testing.T) {
	s := rangeSeries(t, [][2]float64{
		{1.0970, 1.1005},
		{1.0990, 1.1055}, // high touches the stop
	})
	tr := shortTrade(t, s.First().Time)

	sim := simulator(SimConfig{MaxPeriods: 10, Expires: 5})
	if err := sim.Run(context.Background(), tr, s); err != nil {
		t.Fatal(err)
	}
	if tr.Outcome != Failure {
		t.Fatalf("outcome = %s, want failure", tr.Outcome)
	}
	if tr.Pips >= 0 {
		t.Errorf("pips = %v, want negative", tr.Pips)
	}
}

func TestEntryCandleNotEvaluatedForOutcome(t *testing.T) {
	// The entry candle also spans the stop band, but evaluation only
	// resumes on the next candle, which reaches the target.
	s := rangeSeries(t, [][2]float64{
		{1.0990, 1.1055},
		{1.0899, 1.0960},
	})
	tr := shortTrade(t, s.First().Time)

	sim := simulator(SimConfig{MaxPeriods: 10, Expires: 5})
	if err := sim.Run(context.Background(), tr, s); err != nil {
		t.Fatal(err)
	}
	if tr.Outcome != Success {
		t.Errorf("outcome = %s, want success (entry candle must not be tested)", tr.Outcome)
	}
}

func TestSameCandleDoubleTouchPolicies(t *testing.T) {
	mk := func() (*Trade, *model.CandleSeries) {
		s := rangeSeries(t, [][2]float64{
			{1.0970, 1.1005},
			{1.0899, 1.1055}, // spans both the stop and the target
		})
		return shortTrade(t, s.First().Time), s
	}

	tr, s := mk()
	sim := simulator(SimConfig{MaxPeriods: 10, Expires: 5, Policy: StopFirst})
	if err := sim.Run(context.Background(), tr, s); err != nil {
		t.Fatal(err)
	}
	if tr.Outcome != Failure {
		t.Errorf("stop_first: outcome = %s, want failure", tr.Outcome)
	}

	tr, s = mk()
	sim = simulator(SimConfig{MaxPeriods: 10, Expires: 5, Policy: TargetFirst})
	if err := sim.Run(context.Background(), tr, s); err != nil {
		t.Fatal(err)
	}
	if tr.Outcome != Success {
		t.Errorf("target_first: outcome = %s, want success", tr.Outcome)
	}

	tr, s = mk()
	sim = simulator(SimConfig{MaxPeriods: 10, Expires: 5, Policy: Ambiguous})
	if err := sim.Run(context.Background(), tr, s); err != nil {
		t.Fatal(err)
	}
	if tr.Outcome != Expired {
		t.Errorf("ambiguous: outcome = %s, want expired", tr.Outcome)
	}
}

func TestGapToFailure(t *testing.T) {
	// A short gapping straight up past the stop without ever filling
	// the entry band first.
	s := rangeSeries(t, [][2]float64{
		{1.0900, 1.0940},
		{1.1060, 1.1100}, // whole range beyond the stop
	})
	tr := shortTrade(t, s.First().Time)

	sim := simulator(SimConfig{MaxPeriods: 10, Expires: 5})
	if err := sim.Run(context.Background(), tr, s); err != nil {
		t.Fatal(err)
	}
	if tr.Outcome != Failure {
		t.Fatalf("outcome = %s, want gap-to-failure", tr.Outcome)
	}
	if tr.Pips >= 0 {
		t.Errorf("pips = %v, want negative", tr.Pips)
	}
}

func TestExpiresWithoutEntry(t *testing.T) {
	s := rangeSeries(t, [][2]float64{
		{1.0700, 1.0750},
		{1.0700, 1.0750},
		{1.0700, 1.0750},
		{1.0700, 1.0750},
		{1.0700, 1.0750},
	})
	tr := shortTrade(t, s.First().Time)

	sim := simulator(SimConfig{MaxPeriods: 10, Expires: 3})
	if err := sim.Run(context.Background(), tr, s); err != nil {
		t.Fatal(err)
	}
	if tr.Outcome != Expired {
		t.Fatalf("outcome = %s, want expired", tr.Outcome)
	}
	if tr.Pips != 0 {
		t.Errorf("pips = %v, want 0", tr.Pips)
	}
	if tr.Entered {
		t.Error("trade must not have entered")
	}
}

func TestMaxPeriodsExpiry(t *testing.T) {
	s := rangeSeries(t, [][2]float64{
		{1.0970, 1.1005}, // enters
		{1.0950, 1.0990},
		{1.0950, 1.0990},
		{1.0950, 1.0990},
	})
	tr := shortTrade(t, s.First().Time)

	sim := simulator(SimConfig{MaxPeriods: 3, Expires: 2})
	if err := sim.Run(context.Background(), tr, s); err != nil {
		t.Fatal(err)
	}
	if tr.Outcome != Expired {
		t.Fatalf("outcome = %s, want expired after max periods", tr.Outcome)
	}
	if tr.Pips != 0 {
		t.Errorf("pips = %v, want 0", tr.Pips)
	}
}

func TestOutcomeSetOnce(t *testing.T) {
	s := rangeSeries(t, [][2]float64{
		{1.0970, 1.1005},
		{1.0899, 1.0950},
	})
	tr := shortTrade(t, s.First().Time)
	sim := simulator(SimConfig{MaxPeriods: 10, Expires: 5})
	if err := sim.Run(context.Background(), tr, s); err != nil {
		t.Fatal(err)
	}
	if tr.Outcome == Pending {
		t.Fatal("trade still pending")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic re-running a terminal trade")
		}
	}()
	_ = sim.Run(context.Background(), tr, s)
}

func TestNewTradeValidation(t *testing.T) {
	start := time.Now()
	if _, err := New(start, "EURUSD", "D", Short, level(t, 1.10), level(t, 1.1050), WithTarget(level(t, 1.09))); err == nil {
		t.Error("expected error for malformed instrument")
	}
	if _, err := New(start, "EUR_USD", "D", Short, level(t, 1.10), level(t, 1.09), WithTarget(level(t, 1.05))); err == nil {
		t.Error("expected error for short stop below entry")
	}
	if _, err := New(start, "EUR_USD", "D", Long, level(t, 1.10), level(t, 1.09), nil); err == nil {
		t.Error("expected error when no target supplied")
	}
}

func TestRiskRatioTarget(t *testing.T) {
	tr, err := New(time.Now(), "EUR_USD", "D", Short,
		level(t, 1.1000), level(t, 1.1050), WithRiskRatio(2))
	if err != nil {
		t.Fatal(err)
	}
	if tr.Target.Price != 1.0900 {
		t.Errorf("derived target = %v, want 1.0900", tr.Target.Price)
	}

	long, err := New(time.Now(), "EUR_USD", "D", Long,
		level(t, 1.1000), level(t, 1.0950), WithRiskRatio(2))
	if err != nil {
		t.Fatal(err)
	}
	if long.Target.Price != 1.1100 {
		t.Errorf("derived long target = %v, want 1.1100", long.Target.Price)
	}
}
