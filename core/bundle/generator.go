// Package bundle produces candidate order groupings for the combinatorial
// auction using recursive greedy max-cut over pickup proximity.
package bundle

import (
	"github.com/sal0-h/snoonu-smart-dispatch/core/geo"
	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

// maxCutDepth bounds the recursion of the cut tree.
const maxCutDepth = 5

// Generator emits candidate order groups of size 1..MaxBundleSize. Every
// pending order appears at least once (as a singleton), every proximate
// pair is emitted, and the cut tree emits the whole pending set when it
// fits the size cap.
type Generator struct {
	Oracle            geo.Oracle
	MaxBundleSize     int
	MaxPairDistanceKm float64
}

// Generate returns the deduplicated candidate groups for the pending
// orders.
func (g Generator) Generate(pending []*model.Order) [][]*model.Order {
	if len(pending) == 0 {
		return nil
	}
	maxSize := g.MaxBundleSize
	if maxSize < 1 {
		maxSize = 1
	}

	// Pairwise pickup distances, computed once.
	dist := g.pickupMatrix(pending)

	seen := make(map[string]bool)
	var groups [][]*model.Order
	emit := func(group []*model.Order) {
		key := model.GroupKey(group)
		if !seen[key] {
			seen[key] = true
			groups = append(groups, append([]*model.Order(nil), group...))
		}
	}

	var split func(group []*model.Order, depth int)
	split = func(group []*model.Order, depth int) {
		if len(group) == 0 {
			return
		}
		if len(group) <= maxSize {
			emit(group)
			if len(group) == 1 {
				return
			}
		}
		a, b := maxCut(group, dist)
		if len(a) > 1 && len(a) <= maxSize {
			emit(a)
		}
		if len(b) > 1 && len(b) <= maxSize {
			emit(b)
		}
		if depth < maxCutDepth {
			if len(a) > maxSize {
				split(a, depth+1)
			}
			if len(b) > maxSize {
				split(b, depth+1)
			}
		}
	}
	split(pending, 0)

	// Proximate pairs, so no good 2-order bundle is missed.
	if maxSize >= 2 {
		for i, o1 := range pending {
			for _, o2 := range pending[i+1:] {
				if dist[pairKey(o1.ID, o2.ID)] <= g.MaxPairDistanceKm {
					emit([]*model.Order{o1, o2})
				}
			}
		}
	}

	// Every order as a singleton.
	for _, o := range pending {
		emit([]*model.Order{o})
	}
	return groups
}

func (g Generator) pickupMatrix(orders []*model.Order) map[[2]string]float64 {
	dist := make(map[[2]string]float64, len(orders)*len(orders))
	for i, o1 := range orders {
		for _, o2 := range orders[i+1:] {
			d := g.Oracle.Distance(o1.Pickup, o2.Pickup)
			dist[pairKey(o1.ID, o2.ID)] = d
			dist[pairKey(o2.ID, o1.ID)] = d
		}
	}
	return dist
}

func pairKey(a, b string) [2]string { return [2]string{a, b} }

// maxCut walks the group in input order and places each order into the group
// with the larger summed pickup distance to it; ties go to the first group.
// The second group starts empty and the sums are non-negative, so every
// order lands in the first group and b is always empty.
func maxCut(group []*model.Order, dist map[[2]string]float64) (a, b []*model.Order) {
	if len(group) <= 1 {
		return group, nil
	}
	for _, o := range group {
		var toA, toB float64
		for _, m := range a {
			toA += dist[pairKey(o.ID, m.ID)]
		}
		for _, m := range b {
			toB += dist[pairKey(o.ID, m.ID)]
		}
		if toA >= toB {
			a = append(a, o)
		} else {
			b = append(b, o)
		}
	}
	return a, b
}
