package model

import (
	"fmt"
	"strings"
)

// VehicleClass is the courier's vehicle type. It selects the cost penalty
// applied during bidding.
type VehicleClass string

const (
	VehicleMotorbike VehicleClass = "motorbike"
	VehicleBike      VehicleClass = "bike"
	VehicleCar       VehicleClass = "car"
)

// ParseVehicleClass normalizes a CSV vehicle type. Unknown values are an
// input-schema error.
func ParseVehicleClass(s string) (VehicleClass, error) {
	switch VehicleClass(strings.ToLower(strings.TrimSpace(s))) {
	case VehicleMotorbike:
		return VehicleMotorbike, nil
	case VehicleBike:
		return VehicleBike, nil
	case VehicleCar:
		return VehicleCar, nil
	}
	return "", fmt.Errorf("unknown vehicle type %q", s)
}

// DriverStatus is the dispatch state of a driver.
//
//	Idle:       no assigned orders, may bid on new work.
//	Accruing:   at least one pickup pending; more orders may be attached up
//	            to capacity.
//	Delivering: all pickups done, the remaining route is frozen.
type DriverStatus int

const (
	DriverIdle DriverStatus = iota
	DriverAccruing
	DriverDelivering
)

func (s DriverStatus) String() string {
	switch s {
	case DriverIdle:
		return "IDLE"
	case DriverAccruing:
		return "ACCRUING"
	case DriverDelivering:
		return "DELIVERING"
	}
	return fmt.Sprintf("DriverStatus(%d)", int(s))
}

// DefaultCapacity is the number of orders a courier carries at once unless
// the dataset says otherwise.
const DefaultCapacity = 2

// Driver is a courier. Static fields come from the dataset; the rest is
// mutated by the simulator and the dispatch engine only.
type Driver struct {
	ID            string
	Origin        Coordinate
	Vehicle       VehicleClass
	Capacity      int
	AvailableFrom float64

	Position         Coordinate
	Status           DriverStatus
	AssignedOrders   []string
	Route            []Stop
	CurrentStopIndex int
	ETANextStop      float64
}

// NewDriver returns an idle driver positioned at its origin.
func NewDriver(id string, origin Coordinate, vehicle VehicleClass, capacity int, availableFrom float64) *Driver {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Driver{
		ID:               id,
		Origin:           origin,
		Vehicle:          vehicle,
		Capacity:         capacity,
		AvailableFrom:    availableFrom,
		Position:         origin,
		Status:           DriverIdle,
		CurrentStopIndex: -1,
		ETANextStop:      availableFrom,
	}
}

// HasCapacity reports whether another order fits.
func (d *Driver) HasCapacity() bool { return len(d.AssignedOrders) < d.Capacity }

// Carries reports whether the order is currently assigned to this driver.
func (d *Driver) Carries(orderID string) bool {
	for _, id := range d.AssignedOrders {
		if id == orderID {
			return true
		}
	}
	return false
}

// RemainingStops returns the not-yet-visited tail of the route.
func (d *Driver) RemainingStops() []Stop {
	if d.CurrentStopIndex < 0 || d.CurrentStopIndex >= len(d.Route) {
		return nil
	}
	return d.Route[d.CurrentStopIndex:]
}

// PickupsRemaining reports whether any pickup stop is still ahead.
func (d *Driver) PickupsRemaining() bool {
	for _, s := range d.RemainingStops() {
		if s.Kind == StopPickup {
			return true
		}
	}
	return false
}

// ResetRoute clears all route state and returns the driver to Idle.
func (d *Driver) ResetRoute() {
	d.Status = DriverIdle
	d.AssignedOrders = nil
	d.Route = nil
	d.CurrentStopIndex = -1
}

// Validate checks structural invariants: capacity respected, exactly one
// dropoff per assigned order, pickup before dropoff.
func (d *Driver) Validate() error {
	if len(d.AssignedOrders) > d.Capacity {
		return fmt.Errorf("driver %s: %d orders exceed capacity %d", d.ID, len(d.AssignedOrders), d.Capacity)
	}
	pickupSeen := make(map[string]bool)
	dropoffSeen := make(map[string]bool)
	for _, s := range d.RemainingStops() {
		switch s.Kind {
		case StopPickup:
			if pickupSeen[s.OrderID] {
				return fmt.Errorf("driver %s: duplicate pickup for %s", d.ID, s.OrderID)
			}
			pickupSeen[s.OrderID] = true
		case StopDropoff:
			if dropoffSeen[s.OrderID] {
				return fmt.Errorf("driver %s: duplicate dropoff for %s", d.ID, s.OrderID)
			}
			dropoffSeen[s.OrderID] = true
		}
	}
	for id := range pickupSeen {
		if !dropoffSeen[id] {
			return fmt.Errorf("driver %s: pickup without dropoff for %s", d.ID, id)
		}
	}
	for _, id := range d.AssignedOrders {
		if !dropoffSeen[id] {
			return fmt.Errorf("driver %s: no dropoff for assigned order %s", d.ID, id)
		}
	}
	if d.Status == DriverDelivering && len(pickupSeen) > 0 {
		return fmt.Errorf("driver %s: delivering with pickups remaining", d.ID)
	}
	// Pickup precedes dropoff within the remaining route.
	open := make(map[string]bool)
	for id := range pickupSeen {
		open[id] = true
	}
	for _, s := range d.RemainingStops() {
		switch s.Kind {
		case StopPickup:
			delete(open, s.OrderID)
		case StopDropoff:
			if open[s.OrderID] {
				return fmt.Errorf("driver %s: dropoff before pickup for %s", d.ID, s.OrderID)
			}
		}
	}
	return nil
}

// Clone returns a deep copy, used to run several strategies on identical
// inputs.
func (d *Driver) Clone() *Driver {
	cp := *d
	cp.AssignedOrders = append([]string(nil), d.AssignedOrders...)
	cp.Route = append([]Stop(nil), d.Route...)
	return &cp
}
