// Package sim drives the discrete-event delivery simulation: a
// tick-synchronous loop advancing driver state, injecting orders, gating
// batches and invoking the dispatch auction.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/sal0-h/snoonu-smart-dispatch/config"
	"github.com/sal0-h/snoonu-smart-dispatch/core/bundle"
	"github.com/sal0-h/snoonu-smart-dispatch/core/dispatch"
	"github.com/sal0-h/snoonu-smart-dispatch/core/events"
	"github.com/sal0-h/snoonu-smart-dispatch/core/geo"
	"github.com/sal0-h/snoonu-smart-dispatch/core/kpi"
	"github.com/sal0-h/snoonu-smart-dispatch/core/logger"
	"github.com/sal0-h/snoonu-smart-dispatch/core/metrics"
	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
	"github.com/sal0-h/snoonu-smart-dispatch/core/scoring"
	"github.com/sal0-h/snoonu-smart-dispatch/internal/eventbus"
)

// Simulation owns all mutable run state. It is single-threaded and
// tick-synchronous: every mutation happens inside the current tick in the
// fixed order advance -> inject -> dispatch -> record.
type Simulation struct {
	cfg    *config.Config
	oracle geo.Oracle
	engine *dispatch.Engine
	log    logger.Logger
	sink   metrics.Sink
	bus    eventbus.EventBus

	drivers []*model.Driver
	backlog []*model.Order
	pending []*model.Order
	index   model.Index

	runID       string
	now         float64
	start, end  float64
	tickMins    float64
	serviceTime float64
	completed   int
	totalOrders int
	arrivals    []float64
	routeLog    map[string][]model.Coordinate
	recorder    *kpi.Recorder
}

// New builds a simulation over the given fleet and order book. sink and bus
// may be nil.
func New(cfg *config.Config, oracle geo.Oracle, drivers []*model.Driver, orders []*model.Order, log logger.Logger, sink metrics.Sink, bus eventbus.EventBus) (*Simulation, error) {
	if cfg == nil || oracle == nil || log == nil {
		return nil, fmt.Errorf("sim: nil parameter provided to New")
	}
	start, err := model.ParseClock(cfg.Simulation.StartTime)
	if err != nil {
		return nil, fmt.Errorf("start time: %w", err)
	}
	end, err := model.ParseClock(cfg.Simulation.EndTime)
	if err != nil {
		return nil, fmt.Errorf("end time: %w", err)
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}

	scorer := scoring.Scorer{
		Oracle:          oracle,
		WDistance:       cfg.Scoring.WDistance,
		WDelay:          cfg.Scoring.WDelay,
		BundleDiscount:  cfg.Scoring.BundleDiscountPerOrder,
		MaxDeliveryMins: cfg.Scoring.MaxDeliveryTimeMins,
		ServiceTimeMins: cfg.Scoring.ServiceTimeMins,
		Penalties: map[model.VehicleClass]float64{
			model.VehicleMotorbike: cfg.Scoring.PenaltyMotorbike,
			model.VehicleBike:      cfg.Scoring.PenaltyBike,
			model.VehicleCar:       cfg.Scoring.PenaltyCar,
		},
	}
	bundler := bundle.Generator{
		Oracle:            oracle,
		MaxBundleSize:     cfg.Bundling.MaxBundleSize,
		MaxPairDistanceKm: cfg.Bundling.MaxPickupDistanceKm,
	}
	engine, err := dispatch.NewEngine(oracle, scorer, bundler, cfg.Dispatch.HighLoadThreshold, log, bus)
	if err != nil {
		return nil, err
	}

	backlog := append([]*model.Order(nil), orders...)
	sort.SliceStable(backlog, func(i, j int) bool {
		if backlog[i].CreatedAt != backlog[j].CreatedAt {
			return backlog[i].CreatedAt < backlog[j].CreatedAt
		}
		return backlog[i].ID < backlog[j].ID
	})

	return &Simulation{
		cfg:         cfg,
		oracle:      oracle,
		engine:      engine,
		log:         log,
		sink:        sink,
		bus:         bus,
		drivers:     drivers,
		backlog:     backlog,
		index:       model.NewIndex(orders),
		runID:       uuid.NewString(),
		now:         start,
		start:       start,
		end:         end,
		tickMins:    cfg.Simulation.TickMins,
		serviceTime: cfg.Scoring.ServiceTimeMins,
		totalOrders: len(orders),
		routeLog:    make(map[string][]model.Coordinate),
		recorder:    kpi.NewRecorder(len(drivers), len(orders)),
	}, nil
}

// RunID identifies this run in exports and metric samples.
func (s *Simulation) RunID() string { return s.runID }

// Now returns the current simulated minute.
func (s *Simulation) Now() float64 { return s.now }

// Pending returns the number of orders awaiting assignment.
func (s *Simulation) Pending() int { return len(s.pending) }

// Run executes ticks until the clock bound is reached or every order is
// delivered, then returns the KPI snapshot. Orders still undelivered at
// termination are reported in the results, never an error.
func (s *Simulation) Run(ctx context.Context, strategy dispatch.Strategy) (kpi.Results, error) {
	s.log.Infof("run %s: strategy=%s orders=%d drivers=%d window=%s-%s",
		s.runID, strategy, s.totalOrders, len(s.drivers),
		model.FormatClock(s.start), model.FormatClock(s.end))

	for s.now < s.end && s.completed < s.totalOrders {
		select {
		case <-ctx.Done():
			return s.results(strategy), ctx.Err()
		default:
		}
		if err := s.Tick(strategy); err != nil {
			return s.results(strategy), err
		}
	}

	res := s.results(strategy)
	s.sink.RecordRun(metrics.RunSample{
		RunID:            s.runID,
		Strategy:         string(strategy),
		Delivered:        res.OrdersDelivered,
		TotalOrders:      res.TotalOrders,
		DriversActivated: res.DriversActivated,
		TotalKm:          res.TotalKm,
		AvgDeliveryMins:  res.AvgDeliveryMins,
		OnTimeRatePct:    res.OnTimeRatePct,
	})
	if res.Undelivered > 0 {
		s.log.Warnf("run %s: %d orders undelivered at %s", s.runID, res.Undelivered, model.FormatClock(s.now))
	}
	s.log.Infof("run %s: delivered %d/%d, %.1f km, %d drivers activated",
		s.runID, res.OrdersDelivered, res.TotalOrders, res.TotalKm, res.DriversActivated)
	return res, nil
}

// Tick executes one simulated minute in the fixed order: advance driver
// state, inject newly created orders, dispatch through the batching gate,
// record KPIs, advance the clock.
func (s *Simulation) Tick(strategy dispatch.Strategy) error {
	if err := s.advanceDrivers(); err != nil {
		return err
	}
	s.injectOrders()

	assigned := 0
	if s.gateOpen(strategy) {
		res, err := s.engine.Dispatch(strategy, dispatch.Tick{
			Now:         s.now,
			Pending:     append([]*model.Order(nil), s.pending...),
			Drivers:     s.drivers,
			Index:       s.index,
			ArrivalRate: s.arrivalRate(),
		})
		if err != nil {
			var unknown dispatch.ErrUnknownStrategy
			if errors.As(err, &unknown) {
				return err
			}
			return &CorruptionError{Minute: s.now, Detail: err.Error(), Dump: dumpState(s.drivers, s.index)}
		}
		for _, o := range res.Assigned {
			s.pending = removePending(s.pending, o)
		}
		s.recorder.AddDistance(res.MarginalKm)
		assigned = len(res.Assigned)
	}

	if err := s.verify(); err != nil {
		return err
	}

	busy := 0
	for _, d := range s.drivers {
		if len(d.AssignedOrders) > 0 || d.Status != model.DriverIdle {
			s.recorder.Activate(d.ID)
			if len(s.routeLog[d.ID]) == 0 {
				s.routeLog[d.ID] = append(s.routeLog[d.ID], d.Position)
			}
		}
		if d.Status != model.DriverIdle {
			busy++
		}
	}
	s.recorder.RecordTick(busy)
	s.sink.RecordTick(metrics.TickSample{
		RunID:        s.runID,
		Strategy:     string(strategy),
		Minute:       s.now,
		Assigned:     assigned,
		Pending:      len(s.pending),
		Completed:    s.completed,
		BusyDrivers:  busy,
		TotalDrivers: len(s.drivers),
	})
	if s.bus != nil {
		s.bus.Publish(events.TickEvent{Minute: s.now, Assigned: assigned, Pending: len(s.pending), Completed: s.completed})
	}
	if assigned > 0 {
		s.log.Infof("[%s] assigned=%d pending=%d completed=%d", model.FormatClock(s.now), assigned, len(s.pending), s.completed)
	} else if int(s.now)%10 == 0 {
		s.log.Debugf("[%s] pending=%d completed=%d", model.FormatClock(s.now), len(s.pending), s.completed)
	}

	s.now += s.tickMins
	return nil
}

// advanceDrivers drains every stop whose ETA has passed. Arrival teleports
// the driver to the stop, mutates the order, and charges the service time
// against the next leg's ETA.
func (s *Simulation) advanceDrivers() error {
	for _, d := range s.drivers {
		if d.Status == model.DriverIdle {
			continue
		}
		for d.Status != model.DriverIdle &&
			d.CurrentStopIndex >= 0 && d.CurrentStopIndex < len(d.Route) &&
			d.ETANextStop <= s.now {

			stop := d.Route[d.CurrentStopIndex]
			o := s.index[stop.OrderID]
			if o == nil {
				return &CorruptionError{Minute: s.now, Detail: fmt.Sprintf("driver %s routes unknown order %s", d.ID, stop.OrderID), Dump: dumpState(s.drivers, s.index)}
			}

			d.Position = stop.Coord
			s.routeLog[d.ID] = append(s.routeLog[d.ID], d.Position)

			switch stop.Kind {
			case model.StopPickup:
				if err := o.MarkPickedUp(s.now); err != nil {
					return &CorruptionError{Minute: s.now, Detail: err.Error(), Dump: dumpState(s.drivers, s.index)}
				}
			case model.StopDropoff:
				if err := o.MarkDelivered(s.now); err != nil {
					return &CorruptionError{Minute: s.now, Detail: err.Error(), Dump: dumpState(s.drivers, s.index)}
				}
				s.recorder.RecordDelivery(o, d.ID)
				s.completed++
				d.AssignedOrders = removeID(d.AssignedOrders, o.ID)
			}
			if s.bus != nil {
				s.bus.Publish(events.StopEvent{Minute: s.now, DriverID: d.ID, OrderID: o.ID, Kind: stop.Kind.String()})
			}

			d.CurrentStopIndex++
			if d.CurrentStopIndex >= len(d.Route) {
				d.ResetRoute()
				continue
			}
			next := d.Route[d.CurrentStopIndex]
			d.ETANextStop = s.now + s.serviceTime + s.oracle.TravelTime(d.Position, next.Coord)
			if d.Status == model.DriverAccruing && !d.PickupsRemaining() {
				d.Status = model.DriverDelivering
			}
		}
	}
	return nil
}

// injectOrders moves orders whose creation time has arrived into the
// pending queue.
func (s *Simulation) injectOrders() {
	for len(s.backlog) > 0 && s.backlog[0].CreatedAt <= s.now {
		o := s.backlog[0]
		s.backlog = s.backlog[1:]
		s.pending = append(s.pending, o)
		s.arrivals = append(s.arrivals, o.CreatedAt)
	}
}

// gateOpen implements the batching gate. Baseline dispatches every tick;
// the auction policies hold orders until the oldest pending order has aged
// past the batch window or any order is urgent.
func (s *Simulation) gateOpen(strategy dispatch.Strategy) bool {
	if len(s.pending) == 0 {
		return false
	}
	if strategy == dispatch.StrategyBaseline {
		return true
	}
	oldest := math.Inf(1)
	for _, o := range s.pending {
		if o.CreatedAt < oldest {
			oldest = o.CreatedAt
		}
		// Urgent flush: within a third of the estimated duration of the
		// deadline.
		if o.Deadline-s.now <= float64(o.EstimatedMins)/3 {
			return true
		}
	}
	return s.now-oldest >= s.cfg.Dispatch.BatchWindowMins
}

// arrivalRate returns the order arrival rate in orders per minute over the
// adaptive policy's rolling window.
func (s *Simulation) arrivalRate() float64 {
	window := s.cfg.Dispatch.CombinatorialWindowMins
	if window <= 0 {
		return 0
	}
	cutoff := s.now - window
	n := 0
	for _, t := range s.arrivals {
		if t >= cutoff {
			n++
		}
	}
	return float64(n) / window
}

// verify checks the cross-entity invariants the engine cannot break
// locally: single ownership of assigned orders and per-driver route
// structure. A violation is fatal.
func (s *Simulation) verify() error {
	owners := make(map[string]string)
	for _, d := range s.drivers {
		if err := d.Validate(); err != nil {
			return &CorruptionError{Minute: s.now, Detail: err.Error(), Dump: dumpState(s.drivers, s.index)}
		}
		for _, id := range d.AssignedOrders {
			if prev, ok := owners[id]; ok {
				return &CorruptionError{
					Minute: s.now,
					Detail: fmt.Sprintf("order %s owned by drivers %s and %s", id, prev, d.ID),
					Dump:   dumpState(s.drivers, s.index),
				}
			}
			owners[id] = d.ID
		}
	}
	return nil
}

func (s *Simulation) results(strategy dispatch.Strategy) kpi.Results {
	res := s.recorder.Snapshot(s.runID, string(strategy))
	res.DriverRoutes = make(map[string][]model.Coordinate, len(s.routeLog))
	for id, log := range s.routeLog {
		res.DriverRoutes[id] = append([]model.Coordinate(nil), log...)
	}
	return res
}

func removePending(list []*model.Order, o *model.Order) []*model.Order {
	for i, x := range list {
		if x == o {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func removeID(list []string, id string) []string {
	for i, x := range list {
		if x == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
