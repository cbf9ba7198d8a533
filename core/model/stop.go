package model

// StopKind distinguishes pickup visits from dropoff visits.
type StopKind int

const (
	StopPickup StopKind = iota
	StopDropoff
)

func (k StopKind) String() string {
	if k == StopPickup {
		return "PICKUP"
	}
	return "DROPOFF"
}

// Stop is a single visit in a driver's route. It references its order by ID
// only; callers resolve the order through an Index.
type Stop struct {
	Coord   Coordinate
	Kind    StopKind
	OrderID string
}

// PickupStop builds the pickup stop for an order.
func PickupStop(o *Order) Stop {
	return Stop{Coord: o.Pickup, Kind: StopPickup, OrderID: o.ID}
}

// DropoffStop builds the dropoff stop for an order.
func DropoffStop(o *Order) Stop {
	return Stop{Coord: o.Dropoff, Kind: StopDropoff, OrderID: o.ID}
}
