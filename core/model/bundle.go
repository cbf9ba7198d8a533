package model

import (
	"sort"
	"strings"
)

// Bundle is a candidate job a driver bids on: a non-empty order group, a
// precedence-respecting visit sequence and its total traversal distance.
// When the bundle extends an Accruing driver's work, Orders includes the
// driver's already-assigned orders as well as the new ones.
type Bundle struct {
	Orders  []*Order
	Stops   []Stop
	TotalKm float64
}

// OrderIDs returns the IDs of all orders in the bundle.
func (b Bundle) OrderIDs() []string {
	ids := make([]string, len(b.Orders))
	for i, o := range b.Orders {
		ids[i] = o.ID
	}
	return ids
}

// Key is a stable identity for the unordered order set, used for
// deduplication and as the last tie-break in auction selection.
func (b Bundle) Key() string { return GroupKey(b.Orders) }

// GroupKey returns the canonical key for an unordered order group.
func GroupKey(orders []*Order) string {
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, "+")
}
