package dispatch

import (
	"math"

	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

// runBaseline assigns each pending order, in arrival order, to the nearest
// Idle driver with a trivial two-stop route. No bundling, no re-routing;
// orders without an Idle driver defer to the next tick.
func (e *Engine) runBaseline(t Tick) (Result, error) {
	var res Result

	idle := make([]*model.Driver, 0, len(t.Drivers))
	for _, d := range eligible(t) {
		if d.Status == model.DriverIdle {
			idle = append(idle, d)
		}
	}

	for _, o := range t.Pending {
		if len(idle) == 0 {
			break
		}
		var best *model.Driver
		bestKm := math.Inf(1)
		for _, d := range idle {
			if km := e.oracle.Distance(d.Position, o.Pickup); km < bestKm {
				bestKm = km
				best = d
			}
		}
		b := e.directRoute(best, o)
		if err := e.assign(best, b, t.Now, StrategyBaseline, []*model.Order{o}, b.TotalKm, false); err != nil {
			return res, err
		}
		res.Assigned = append(res.Assigned, o)
		res.MarginalKm += b.TotalKm
		idle = removeDriver(idle, best)
	}
	return res, nil
}
