package model

import "fmt"

// OrderStatus is the lifecycle state of an order. Transitions are strictly
// forward: Pending -> Assigned -> PickedUp -> Delivered.
type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderAssigned
	OrderPickedUp
	OrderDelivered
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "PENDING"
	case OrderAssigned:
		return "ASSIGNED"
	case OrderPickedUp:
		return "PICKED_UP"
	case OrderDelivered:
		return "DELIVERED"
	}
	return fmt.Sprintf("OrderStatus(%d)", int(s))
}

// Order is a delivery request from a pickup point to a dropoff point.
// CreatedAt and Deadline are minutes since midnight; PickupTime and
// DropoffTime stay negative until the simulator stamps them.
type Order struct {
	ID            string
	Pickup        Coordinate
	Dropoff       Coordinate
	CreatedAt     float64
	Deadline      float64
	EstimatedMins int

	Status      OrderStatus
	PickupTime  float64
	DropoffTime float64
}

// NewOrder returns a pending order with unset timestamps.
func NewOrder(id string, pickup, dropoff Coordinate, createdAt, deadline float64, estimatedMins int) *Order {
	return &Order{
		ID:            id,
		Pickup:        pickup,
		Dropoff:       dropoff,
		CreatedAt:     createdAt,
		Deadline:      deadline,
		EstimatedMins: estimatedMins,
		Status:        OrderPending,
		PickupTime:    -1,
		DropoffTime:   -1,
	}
}

// advance moves the order to the target status, rejecting any backward or
// skipped transition.
func (o *Order) advance(to OrderStatus) error {
	if to != o.Status+1 {
		return fmt.Errorf("order %s: illegal transition %s -> %s", o.ID, o.Status, to)
	}
	o.Status = to
	return nil
}

// MarkAssigned transitions the order to Assigned.
func (o *Order) MarkAssigned() error { return o.advance(OrderAssigned) }

// MarkPickedUp transitions the order to PickedUp and stamps the pickup time.
func (o *Order) MarkPickedUp(now float64) error {
	if err := o.advance(OrderPickedUp); err != nil {
		return err
	}
	o.PickupTime = now
	return nil
}

// MarkDelivered transitions the order to Delivered and stamps the dropoff
// time.
func (o *Order) MarkDelivered(now float64) error {
	if err := o.advance(OrderDelivered); err != nil {
		return err
	}
	if o.PickupTime >= 0 && now < o.PickupTime {
		return fmt.Errorf("order %s: dropoff %.1f before pickup %.1f", o.ID, now, o.PickupTime)
	}
	o.DropoffTime = now
	return nil
}

// Clone returns a deep copy, used to run several strategies on identical
// inputs.
func (o *Order) Clone() *Order {
	cp := *o
	return &cp
}

// Index resolves order IDs to orders. Routes and drivers reference orders by
// ID only; the index is the single place the relation is materialized.
type Index map[string]*Order

// NewIndex builds an index over the given orders.
func NewIndex(orders []*Order) Index {
	idx := make(Index, len(orders))
	for _, o := range orders {
		idx[o.ID] = o
	}
	return idx
}

// Resolve maps the given IDs through the index, skipping unknown IDs.
func (idx Index) Resolve(ids []string) []*Order {
	out := make([]*Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := idx[id]; ok {
			out = append(out, o)
		}
	}
	return out
}
