// Package scoring implements the marginal-cost bid function of the
// market-based auction. Lower bids win; +Inf means the driver rejects the
// bundle outright.
package scoring

import (
	"math"

	"github.com/sal0-h/snoonu-smart-dispatch/core/geo"
	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

// delayCapMins bounds the lateness charged per order so a single stuck
// delivery cannot dominate the bid.
const delayCapMins = 20

// Scorer computes the cost a driver would charge to take a bundle.
type Scorer struct {
	Oracle geo.Oracle

	WDistance       float64
	WDelay          float64
	BundleDiscount  float64
	MaxDeliveryMins float64
	ServiceTimeMins float64
	Penalties       map[model.VehicleClass]float64
}

// VehiclePenalty returns the cost multiplier for the vehicle class.
// Unknown classes get the neutral multiplier.
func (s Scorer) VehiclePenalty(class model.VehicleClass) float64 {
	if p, ok := s.Penalties[class]; ok {
		return p
	}
	return 1.0
}

// Bid returns the driver's cost for the bundle, or +Inf when the bundle
// breaches capacity or the hard delivery SLA. existingKm is the length of
// the driver's current committed route from its position; the bid is priced
// on the marginal distance the bundle adds on top of it.
func (s Scorer) Bid(d *model.Driver, b model.Bundle, now, existingKm float64) float64 {
	if len(b.Orders) > d.Capacity {
		return math.Inf(1)
	}

	orders := make(map[string]*model.Order, len(b.Orders))
	for _, o := range b.Orders {
		orders[o.ID] = o
	}

	// Simulate the traversal: travel plus service time at every stop, with
	// the SLA checked at each dropoff.
	var totalDelay float64
	at := now
	last := d.Position
	for _, stop := range b.Stops {
		at += s.Oracle.TravelTime(last, stop.Coord) + s.ServiceTimeMins
		if stop.Kind == model.StopDropoff {
			o := orders[stop.OrderID]
			if o == nil {
				return math.Inf(1)
			}
			duration := at - o.CreatedAt
			if duration > s.MaxDeliveryMins {
				return math.Inf(1)
			}
			if delay := duration - float64(o.EstimatedMins); delay > 0 {
				totalDelay += math.Min(delay, delayCapMins)
			}
		}
		last = stop.Coord
	}

	marginalKm := b.TotalKm - existingKm
	base := s.WDistance*marginalKm + s.WDelay*totalDelay
	perOrder := base * s.VehiclePenalty(d.Vehicle) / float64(len(b.Orders))

	discount := 1 - s.BundleDiscount*float64(len(b.Orders)-1)
	if discount < 0 {
		discount = 0
	}
	return perOrder * discount
}
