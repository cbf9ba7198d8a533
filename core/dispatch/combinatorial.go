package dispatch

import (
	"math"

	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

// candidateBid is one (driver, bundle) pair with a finite cost.
type candidateBid struct {
	cost      float64
	driver    *model.Driver
	bundle    model.Bundle
	newOrders []*model.Order
	marginal  float64
}

// better is the auction's selection key, min-lexicographic over
// (cost, -#new orders, driver ID, bundle key). Preferring larger new-order
// sets on equal cost is the fleet-compression lever; the trailing keys keep
// selection reproducible regardless of bid evaluation order.
func (c candidateBid) better(o candidateBid) bool {
	if c.cost != o.cost {
		return c.cost < o.cost
	}
	if len(c.newOrders) != len(o.newOrders) {
		return len(c.newOrders) > len(o.newOrders)
	}
	if c.driver.ID != o.driver.ID {
		return c.driver.ID < o.driver.ID
	}
	return c.bundle.Key() < o.bundle.Key()
}

// runCombinatorial auctions spatially clustered bundles. Each round
// regenerates candidate bundles over the remaining pending orders, collects
// every finite (driver, bundle) bid and awards the best by selection key,
// until pending orders or eligible drivers run out.
func (e *Engine) runCombinatorial(t Tick) (Result, error) {
	var res Result
	pool := eligible(t)
	existing := e.existingDistances(t)
	pending := append([]*model.Order(nil), t.Pending...)

	for len(pending) > 0 && len(pool) > 0 {
		var best *candidateBid
		for _, group := range e.bundler.Generate(pending) {
			for _, d := range pool {
				if len(d.AssignedOrders)+len(group) > d.Capacity {
					continue
				}
				all := append(t.Index.Resolve(d.AssignedOrders), group...)
				stops, totalKm := e.optimizer.Plan(d.Position, all, pickedUp(d, t.Index))
				if len(stops) == 0 {
					continue
				}
				b := model.Bundle{Orders: all, Stops: stops, TotalKm: totalKm}
				bidsTotal.WithLabelValues(string(StrategyCombinatorial)).Inc()
				cost := e.scorer.Bid(d, b, t.Now, existing[d.ID])
				if math.IsInf(cost, 1) {
					continue
				}
				cand := candidateBid{cost: cost, driver: d, bundle: b, newOrders: group, marginal: totalKm - existing[d.ID]}
				if best == nil || cand.better(*best) {
					best = &cand
				}
			}
		}

		if best == nil {
			// Every bundle breached the SLA: place what we can via the
			// nearest-driver fallback and stop when nothing moves.
			progressed := false
			for _, o := range append([]*model.Order(nil), pending...) {
				if len(pool) == 0 {
					break
				}
				d, km, err := e.fallbackAssign(StrategyCombinatorial, t, o, pool, existing)
				if err != nil {
					return res, err
				}
				if d == nil {
					continue
				}
				progressed = true
				res.Assigned = append(res.Assigned, o)
				res.MarginalKm += km
				res.Fallbacks++
				pending = removeOrder(pending, o)
				if !d.HasCapacity() {
					pool = removeDriver(pool, d)
				}
			}
			if !progressed {
				break
			}
			continue
		}

		if err := e.assign(best.driver, best.bundle, t.Now, StrategyCombinatorial, best.newOrders, best.marginal, false); err != nil {
			return res, err
		}
		res.MarginalKm += best.marginal
		existing[best.driver.ID] = best.bundle.TotalKm
		for _, o := range best.newOrders {
			res.Assigned = append(res.Assigned, o)
			pending = removeOrder(pending, o)
		}
		if !best.driver.HasCapacity() {
			pool = removeDriver(pool, best.driver)
		}
	}
	return res, nil
}
