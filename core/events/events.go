// Package events defines the simulation events published on the internal
// event bus.
package events

// AssignmentEvent is published when a driver wins a bundle.
type AssignmentEvent struct {
	Minute     float64
	Strategy   string
	DriverID   string
	OrderIDs   []string
	MarginalKm float64
	Fallback   bool
}

// StopEvent is published when a driver arrives at a route stop.
type StopEvent struct {
	Minute   float64
	DriverID string
	OrderID  string
	Kind     string
}

// TickEvent is published at the end of every simulated minute.
type TickEvent struct {
	Minute    float64
	Assigned  int
	Pending   int
	Completed int
}
