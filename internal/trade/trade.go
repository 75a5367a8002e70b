// Package trade models a hypothetical entry/stop/target trade and
// walks it forward candle-by-candle to a terminal outcome.
package trade

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FOREXfunguru/FOREX-sub000/internal/model"
	"github.com/FOREXfunguru/FOREX-sub000/internal/pips"
)

// Direction of the position.
type Direction int

const (
	Long Direction = iota
	Short
)

func (d Direction) String() string {
	if d == Long {
		return "long"
	}
	return "short"
}

// Outcome is the trade's lifecycle state. Terminal once it leaves
// Pending.
type Outcome int

const (
	Pending Outcome = iota
	Success
	Failure
	Expired
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Expired:
		return "expired"
	default:
		return "pending"
	}
}

// ErrBadTrade is returned for inconsistent trade construction.
var ErrBadTrade = errors.New("trade: invalid construction")

// Trade is a hypothetical position walked forward by the Simulator.
// Mutated only by the Simulator; terminal once Outcome != Pending.
type Trade struct {
	ID        uuid.UUID
	Start     time.Time
	Pair      string
	Timeframe string
	Direction Direction

	Entry  model.Level
	Stop   model.Level
	Target model.Level

	Outcome   Outcome
	Pips      float64
	Entered   bool
	EntryTime time.Time
	EndTime   time.Time
}

// Option customizes trade construction.
type Option func(*Trade) error

// WithTarget sets an explicit target level.
func WithTarget(target model.Level) Option {
	return func(t *Trade) error {
		t.Target = target
		return nil
	}
}

// WithRiskRatio derives the target from the entry-to-stop distance:
// target = entry ± (entry-stop)*rr, sign by direction.
func WithRiskRatio(rr float64) Option {
	return func(t *Trade) error {
		if rr <= 0 {
			return fmt.Errorf("%w: risk ratio %v", ErrBadTrade, rr)
		}
		risk := t.Entry.Price - t.Stop.Price
		price, err := pips.RoundPrice(t.Pair, t.Entry.Price+risk*rr)
		if err != nil {
			return err
		}
		target, err := model.NewLevel(t.Pair, price, t.Entry.BandWidthPips)
		if err != nil {
			return err
		}
		t.Target = target
		return nil
	}
}

// New validates and builds a trade. Exactly one of WithTarget or
// WithRiskRatio must supply the target.
func New(start time.Time, pair, timeframe string, direction Direction, entry, stop model.Level, opt Option) (*Trade, error) {
	if _, err := pips.Divisor(pair); err != nil {
		return nil, err
	}
	t := &Trade{
		ID:        uuid.New(),
		Start:     start,
		Pair:      pair,
		Timeframe: timeframe,
		Direction: direction,
		Entry:     entry,
		Stop:      stop,
		Outcome:   Pending,
	}
	if direction == Long && stop.Price >= entry.Price {
		return nil, fmt.Errorf("%w: long stop %v above entry %v", ErrBadTrade, stop.Price, entry.Price)
	}
	if direction == Short && stop.Price <= entry.Price {
		return nil, fmt.Errorf("%w: short stop %v below entry %v", ErrBadTrade, stop.Price, entry.Price)
	}
	if opt == nil {
		return nil, fmt.Errorf("%w: no target", ErrBadTrade)
	}
	if err := opt(t); err != nil {
		return nil, err
	}
	if direction == Long && t.Target.Price <= entry.Price {
		return nil, fmt.Errorf("%w: long target %v below entry %v", ErrBadTrade, t.Target.Price, entry.Price)
	}
	if direction == Short && t.Target.Price >= entry.Price {
		return nil, fmt.Errorf("%w: short target %v above entry %v", ErrBadTrade, t.Target.Price, entry.Price)
	}
	return t, nil
}
