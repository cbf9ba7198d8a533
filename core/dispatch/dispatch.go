// Package dispatch runs the per-tick auction that matches pending orders to
// drivers under the four dispatch policies.
package dispatch

import (
	"fmt"
	"strings"

	"github.com/sal0-h/snoonu-smart-dispatch/core/bundle"
	"github.com/sal0-h/snoonu-smart-dispatch/core/events"
	"github.com/sal0-h/snoonu-smart-dispatch/core/geo"
	"github.com/sal0-h/snoonu-smart-dispatch/core/logger"
	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
	"github.com/sal0-h/snoonu-smart-dispatch/core/route"
	"github.com/sal0-h/snoonu-smart-dispatch/core/scoring"
	"github.com/sal0-h/snoonu-smart-dispatch/internal/eventbus"
)

// Strategy selects the dispatch policy for a run.
type Strategy string

const (
	StrategyBaseline      Strategy = "baseline"
	StrategySequential    Strategy = "sequential"
	StrategyCombinatorial Strategy = "combinatorial"
	StrategyAdaptive      Strategy = "adaptive"
)

// Strategies lists every policy in presentation order.
var Strategies = []Strategy{StrategyBaseline, StrategySequential, StrategyCombinatorial, StrategyAdaptive}

// ErrUnknownStrategy reports an unrecognized strategy name.
type ErrUnknownStrategy struct{ Name string }

func (e ErrUnknownStrategy) Error() string {
	return fmt.Sprintf("unknown strategy %q (want baseline, sequential, combinatorial or adaptive)", e.Name)
}

// ParseStrategy normalizes a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyBaseline:
		return StrategyBaseline, nil
	case StrategySequential:
		return StrategySequential, nil
	case StrategyCombinatorial:
		return StrategyCombinatorial, nil
	case StrategyAdaptive:
		return StrategyAdaptive, nil
	}
	return "", ErrUnknownStrategy{Name: s}
}

// Tick is the read-only view of simulator state handed to the engine for
// one auction round. Mutation happens only through the engine's assignment
// path.
type Tick struct {
	Now         float64
	Pending     []*model.Order
	Drivers     []*model.Driver
	Index       model.Index
	ArrivalRate float64
}

// Result reports what one auction round assigned.
type Result struct {
	Assigned   []*model.Order
	MarginalKm float64
	Fallbacks  int
}

// Engine is the auctioneer: it announces orders or bundles, collects bids
// and awards work to the cheapest driver.
type Engine struct {
	oracle    geo.Oracle
	optimizer route.Optimizer
	scorer    scoring.Scorer
	bundler   bundle.Generator
	highLoad  float64
	log       logger.Logger
	bus       eventbus.EventBus
}

// NewEngine wires an Engine. bus may be nil when no observer is interested.
func NewEngine(oracle geo.Oracle, scorer scoring.Scorer, bundler bundle.Generator, highLoadThreshold float64, log logger.Logger, bus eventbus.EventBus) (*Engine, error) {
	if oracle == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewEngine")
	}
	return &Engine{
		oracle:    oracle,
		optimizer: route.Optimizer{Oracle: oracle},
		scorer:    scorer,
		bundler:   bundler,
		highLoad:  highLoadThreshold,
		log:       log,
		bus:       bus,
	}, nil
}

// Dispatch runs one auction round under the given policy.
func (e *Engine) Dispatch(st Strategy, t Tick) (Result, error) {
	switch st {
	case StrategyBaseline:
		return e.runBaseline(t)
	case StrategySequential:
		return e.runSequential(t)
	case StrategyCombinatorial:
		return e.runCombinatorial(t)
	case StrategyAdaptive:
		return e.runAdaptive(t)
	}
	return Result{}, ErrUnknownStrategy{Name: string(st)}
}

// AdaptiveMode returns the policy the adaptive strategy selects for the
// given order arrival rate.
func (e *Engine) AdaptiveMode(rate float64) Strategy {
	if rate >= e.highLoad {
		return StrategyCombinatorial
	}
	return StrategySequential
}

// runAdaptive switches policy on the observed order arrival rate.
func (e *Engine) runAdaptive(t Tick) (Result, error) {
	mode := e.AdaptiveMode(t.ArrivalRate)
	e.log.Debugf("adaptive: rate %.2f/min, using %s", t.ArrivalRate, mode)
	if mode == StrategyCombinatorial {
		return e.runCombinatorial(t)
	}
	return e.runSequential(t)
}

// eligible returns the drivers allowed to bid this tick: Idle drivers whose
// shift has started and Accruing drivers with spare capacity. Delivering
// drivers have a frozen route and never bid.
func eligible(t Tick) []*model.Driver {
	out := make([]*model.Driver, 0, len(t.Drivers))
	for _, d := range t.Drivers {
		switch d.Status {
		case model.DriverIdle:
			if d.AvailableFrom <= t.Now {
				out = append(out, d)
			}
		case model.DriverAccruing:
			if d.HasCapacity() {
				out = append(out, d)
			}
		}
	}
	return out
}

// pickedUp returns the IDs of the driver's orders already on board.
func pickedUp(d *model.Driver, idx model.Index) map[string]bool {
	set := make(map[string]bool)
	for _, o := range idx.Resolve(d.AssignedOrders) {
		if o.Status == model.OrderPickedUp {
			set[o.ID] = true
		}
	}
	return set
}

// existingDistances measures each non-idle driver's committed route from its
// current position, the baseline against which marginal bids are priced.
func (e *Engine) existingDistances(t Tick) map[string]float64 {
	out := make(map[string]float64, len(t.Drivers))
	for _, d := range t.Drivers {
		if d.Status != model.DriverIdle && len(d.AssignedOrders) > 0 {
			_, km := e.optimizer.Plan(d.Position, t.Index.Resolve(d.AssignedOrders), pickedUp(d, t.Index))
			out[d.ID] = km
		} else {
			out[d.ID] = 0
		}
	}
	return out
}

// assign commits the winning bundle: the driver's orders and route are
// replaced wholesale, the ETA to the first stop is recomputed and newly won
// orders are promoted to Assigned.
func (e *Engine) assign(d *model.Driver, b model.Bundle, now float64, st Strategy, newOrders []*model.Order, marginalKm float64, fallback bool) error {
	if len(b.Stops) == 0 {
		return fmt.Errorf("dispatch: empty route for driver %s", d.ID)
	}
	d.AssignedOrders = b.OrderIDs()
	d.Route = b.Stops
	d.CurrentStopIndex = 0
	d.Status = model.DriverAccruing
	d.ETANextStop = now + e.oracle.TravelTime(d.Position, b.Stops[0].Coord)

	ids := make([]string, 0, len(newOrders))
	for _, o := range newOrders {
		if err := o.MarkAssigned(); err != nil {
			return err
		}
		ids = append(ids, o.ID)
	}

	assignmentsTotal.WithLabelValues(string(st)).Add(float64(len(newOrders)))
	marginalKmTotal.WithLabelValues(string(st)).Add(marginalKm)
	if fallback {
		fallbackTotal.WithLabelValues(string(st)).Inc()
	}
	if e.bus != nil {
		e.bus.Publish(events.AssignmentEvent{
			Minute:     now,
			Strategy:   string(st),
			DriverID:   d.ID,
			OrderIDs:   ids,
			MarginalKm: marginalKm,
			Fallback:   fallback,
		})
	}
	e.log.Debugw("bundle assigned", map[string]any{
		"driver":      d.ID,
		"orders":      ids,
		"marginal_km": marginalKm,
		"fallback":    fallback,
	})
	return nil
}

// directRoute builds the trivial pickup-then-dropoff bundle for one order,
// priced from the driver's position.
func (e *Engine) directRoute(d *model.Driver, o *model.Order) model.Bundle {
	approach := e.oracle.Distance(d.Position, o.Pickup)
	leg := e.oracle.Distance(o.Pickup, o.Dropoff)
	return model.Bundle{
		Orders:  []*model.Order{o},
		Stops:   []model.Stop{model.PickupStop(o), model.DropoffStop(o)},
		TotalKm: approach + leg,
	}
}

func removeDriver(list []*model.Driver, d *model.Driver) []*model.Driver {
	for i, x := range list {
		if x == d {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func removeOrder(list []*model.Order, o *model.Order) []*model.Order {
	for i, x := range list {
		if x == o {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
