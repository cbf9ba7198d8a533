// Package route finds minimum-distance visit sequences for a driver's
// order set, honoring the pickup-before-dropoff precedence constraint.
package route

import (
	"math"

	"github.com/sal0-h/snoonu-smart-dispatch/core/geo"
	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

// Optimizer solves the TSP with precedence constraints by exhaustive
// permutation search. Order sets are bounded by driver capacity (2 by
// default, so at most 4 stops and 24 permutations); the search is optimal
// for any size, just not fast for large ones.
type Optimizer struct {
	Oracle geo.Oracle
}

// Plan returns the minimum-distance stop sequence starting at start that
// visits every stop of the given orders. Orders whose ID appears in pickedUp
// contribute a dropoff stop only; all others contribute pickup then dropoff.
// An empty order set yields a nil route with infinite distance.
func (p Optimizer) Plan(start model.Coordinate, orders []*model.Order, pickedUp map[string]bool) ([]model.Stop, float64) {
	if len(orders) == 0 {
		return nil, math.Inf(1)
	}

	stops := make([]model.Stop, 0, 2*len(orders))
	for _, o := range orders {
		if !pickedUp[o.ID] {
			stops = append(stops, model.PickupStop(o))
		}
		stops = append(stops, model.DropoffStop(o))
	}

	best := make([]model.Stop, 0, len(stops))
	bestKm := math.Inf(1)
	perm := make([]model.Stop, 0, len(stops))
	used := make([]bool, len(stops))

	var search func(km float64, carried map[string]bool)
	search = func(km float64, carried map[string]bool) {
		if km >= bestKm {
			return
		}
		if len(perm) == len(stops) {
			bestKm = km
			best = append(best[:0], perm...)
			return
		}
		last := start
		if len(perm) > 0 {
			last = perm[len(perm)-1].Coord
		}
		for i, s := range stops {
			if used[i] {
				continue
			}
			// A dropoff is only legal once its pickup has been visited.
			if s.Kind == model.StopDropoff && !carried[s.OrderID] && !pickedUp[s.OrderID] {
				continue
			}
			used[i] = true
			perm = append(perm, s)
			if s.Kind == model.StopPickup {
				carried[s.OrderID] = true
			}
			search(km+p.Oracle.Distance(last, s.Coord), carried)
			if s.Kind == model.StopPickup {
				delete(carried, s.OrderID)
			}
			perm = perm[:len(perm)-1]
			used[i] = false
		}
	}
	search(0, make(map[string]bool, len(orders)))

	if math.IsInf(bestKm, 1) {
		return nil, math.Inf(1)
	}
	return best, bestKm
}
