package dispatch

import (
	"math"

	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

// runSequential auctions each pending order individually: every eligible
// driver bids its marginal cost for adding the order to its current route,
// and the cheapest bid wins. When every bid is infinite the order is still
// assigned through fallbackAssign (nearest Idle driver, else nearest
// Accruing driver with spare capacity), late or not.
func (e *Engine) runSequential(t Tick) (Result, error) {
	var res Result
	pool := eligible(t)
	existing := e.existingDistances(t)

	for _, o := range t.Pending {
		bestBid := math.Inf(1)
		var bestDriver *model.Driver
		var bestBundle model.Bundle
		var bestMarginal float64

		for _, d := range pool {
			if len(d.AssignedOrders)+1 > d.Capacity {
				continue
			}
			candidate := append(t.Index.Resolve(d.AssignedOrders), o)
			stops, totalKm := e.optimizer.Plan(d.Position, candidate, pickedUp(d, t.Index))
			if len(stops) == 0 {
				continue
			}
			b := model.Bundle{Orders: candidate, Stops: stops, TotalKm: totalKm}
			bidsTotal.WithLabelValues(string(StrategySequential)).Inc()
			bid := e.scorer.Bid(d, b, t.Now, existing[d.ID])
			if bid < bestBid {
				bestBid = bid
				bestDriver = d
				bestBundle = b
				bestMarginal = totalKm - existing[d.ID]
			}
		}

		if bestDriver != nil && !math.IsInf(bestBid, 1) {
			if err := e.assign(bestDriver, bestBundle, t.Now, StrategySequential, []*model.Order{o}, bestMarginal, false); err != nil {
				return res, err
			}
			res.Assigned = append(res.Assigned, o)
			res.MarginalKm += bestMarginal
			existing[bestDriver.ID] = bestBundle.TotalKm
			if !bestDriver.HasCapacity() {
				pool = removeDriver(pool, bestDriver)
			}
			continue
		}

		// Better late than never: the SLA rejection is bypassed but capacity
		// never is.
		d, km, err := e.fallbackAssign(StrategySequential, t, o, pool, existing)
		if err != nil {
			return res, err
		}
		if d != nil {
			res.Assigned = append(res.Assigned, o)
			res.MarginalKm += km
			res.Fallbacks++
			if !d.HasCapacity() {
				pool = removeDriver(pool, d)
			}
		}
	}
	return res, nil
}

// fallbackAssign places an order nobody bid finitely on. Idle drivers are
// preferred; an Accruing driver with room is used only when no Idle driver
// is available. Returns a nil driver when nobody has capacity.
func (e *Engine) fallbackAssign(st Strategy, t Tick, o *model.Order, pool []*model.Driver, existing map[string]float64) (*model.Driver, float64, error) {
	pick := func(status model.DriverStatus) *model.Driver {
		var best *model.Driver
		bestKm := math.Inf(1)
		for _, d := range pool {
			if d.Status != status || !d.HasCapacity() {
				continue
			}
			if km := e.oracle.Distance(d.Position, o.Pickup); km < bestKm {
				bestKm = km
				best = d
			}
		}
		return best
	}

	d := pick(model.DriverIdle)
	if d != nil {
		b := e.directRoute(d, o)
		if err := e.assign(d, b, t.Now, st, []*model.Order{o}, b.TotalKm, true); err != nil {
			return nil, 0, err
		}
		existing[d.ID] = b.TotalKm
		return d, b.TotalKm, nil
	}

	d = pick(model.DriverAccruing)
	if d == nil {
		return nil, 0, nil
	}
	candidate := append(t.Index.Resolve(d.AssignedOrders), o)
	stops, totalKm := e.optimizer.Plan(d.Position, candidate, pickedUp(d, t.Index))
	if len(stops) == 0 {
		return nil, 0, nil
	}
	marginal := totalKm - existing[d.ID]
	b := model.Bundle{Orders: candidate, Stops: stops, TotalKm: totalKm}
	if err := e.assign(d, b, t.Now, st, []*model.Order{o}, marginal, true); err != nil {
		return nil, 0, err
	}
	existing[d.ID] = totalKm
	return d, marginal, nil
}
