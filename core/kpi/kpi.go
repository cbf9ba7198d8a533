// Package kpi accumulates per-run delivery metrics. The recorder is
// write-only during a tick; aggregation happens once in Snapshot.
package kpi

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

// onTimeThresholdMins is the delivery duration considered on time.
const onTimeThresholdMins = 30

// DeliveryRecord is the per-order diagnostic log entry.
type DeliveryRecord struct {
	OrderID      string
	DriverID     string
	CreatedAt    float64
	PickedUpAt   float64
	DeliveredAt  float64
	DurationMins float64
}

// Recorder collects raw observations over a run.
type Recorder struct {
	totalDrivers int
	totalOrders  int

	deliveries []DeliveryRecord
	totalKm    float64
	activated  map[string]bool
	busyTicks  int
	driverTick int
}

// NewRecorder sizes a recorder for the fleet and order book.
func NewRecorder(totalDrivers, totalOrders int) *Recorder {
	return &Recorder{
		totalDrivers: totalDrivers,
		totalOrders:  totalOrders,
		activated:    make(map[string]bool),
	}
}

// AddDistance accumulates marginal fleet distance committed this tick.
func (r *Recorder) AddDistance(km float64) { r.totalKm += km }

// Activate marks a driver as having carried at least one order. The set
// only grows, so the activation count is monotone over the run.
func (r *Recorder) Activate(driverID string) { r.activated[driverID] = true }

// RecordDelivery logs a completed order.
func (r *Recorder) RecordDelivery(o *model.Order, driverID string) {
	r.deliveries = append(r.deliveries, DeliveryRecord{
		OrderID:      o.ID,
		DriverID:     driverID,
		CreatedAt:    o.CreatedAt,
		PickedUpAt:   o.PickupTime,
		DeliveredAt:  o.DropoffTime,
		DurationMins: o.DropoffTime - o.CreatedAt,
	})
}

// RecordTick logs fleet occupancy for utilization tracking.
func (r *Recorder) RecordTick(busyDrivers int) {
	r.busyTicks += busyDrivers
	r.driverTick += r.totalDrivers
}

// Delivered returns the number of completed orders so far.
func (r *Recorder) Delivered() int { return len(r.deliveries) }

// DriversActivated returns the count of distinct drivers ever assigned work.
func (r *Recorder) DriversActivated() int { return len(r.activated) }

// TotalKm returns the fleet distance committed so far.
func (r *Recorder) TotalKm() float64 { return r.totalKm }

// Deliveries returns the per-order log in completion order.
func (r *Recorder) Deliveries() []DeliveryRecord {
	return append([]DeliveryRecord(nil), r.deliveries...)
}

// Results is the KPI snapshot of one run.
type Results struct {
	RunID    string `json:"run_id"`
	Strategy string `json:"strategy"`

	OrdersDelivered int     `json:"orders_delivered"`
	TotalOrders     int     `json:"total_orders"`
	Undelivered     int     `json:"undelivered"`
	SuccessRatePct  float64 `json:"delivery_success_rate_pct"`

	DriversActivated       int     `json:"drivers_activated"`
	TotalDrivers           int     `json:"total_drivers"`
	DriversIdle            int     `json:"drivers_idle"`
	DriverUtilizationPct   float64 `json:"driver_utilization_rate_pct"`
	OrdersPerDriver        float64 `json:"orders_per_driver"`
	FleetUtilizationPct    float64 `json:"fleet_utilization_pct"`
	ActiveDriverEfficiency float64 `json:"active_driver_efficiency"`

	AvgDeliveryMins    float64 `json:"avg_delivery_time_min"`
	MedianDeliveryMins float64 `json:"median_delivery_time_min"`
	MinDeliveryMins    float64 `json:"min_delivery_time_min"`
	MaxDeliveryMins    float64 `json:"max_delivery_time_min"`
	StdDeliveryMins    float64 `json:"std_delivery_time_min"`
	P90DeliveryMins    float64 `json:"p90_delivery_time_min"`
	P95DeliveryMins    float64 `json:"p95_delivery_time_min"`
	P99DeliveryMins    float64 `json:"p99_delivery_time_min"`

	TotalKm       float64 `json:"total_fleet_distance_km"`
	AvgKmPerOrder float64 `json:"avg_distance_per_order_km"`
	KmPerDriver   float64 `json:"distance_per_driver_km"`

	OnTime        int     `json:"on_time_deliveries"`
	OnTimeRatePct float64 `json:"on_time_rate_pct"`
	EarlyUnder15  int     `json:"early_deliveries_under_15m"`
	LateOver30    int     `json:"late_deliveries_over_30m"`
	LateOver45    int     `json:"late_deliveries_over_45m"`
	LateOver60    int     `json:"late_deliveries_over_60m"`
	LateRate45Pct float64 `json:"late_rate_45m_pct"`
	LateRate60Pct float64 `json:"late_rate_60m_pct"`

	Assignments  map[string]string             `json:"assignments"`
	DriverRoutes map[string][]model.Coordinate `json:"driver_routes,omitempty"`
	Deliveries   []DeliveryRecord              `json:"-"`
}

// Snapshot aggregates the recorded observations.
func (r *Recorder) Snapshot(runID, strategy string) Results {
	res := Results{
		RunID:            runID,
		Strategy:         strategy,
		OrdersDelivered:  len(r.deliveries),
		TotalOrders:      r.totalOrders,
		Undelivered:      r.totalOrders - len(r.deliveries),
		DriversActivated: len(r.activated),
		TotalDrivers:     r.totalDrivers,
		DriversIdle:      r.totalDrivers - len(r.activated),
		TotalKm:          r.totalKm,
		Assignments:      make(map[string]string, len(r.deliveries)),
		Deliveries:       r.Deliveries(),
	}
	for _, d := range r.deliveries {
		res.Assignments[d.OrderID] = d.DriverID
	}
	if r.driverTick > 0 {
		res.FleetUtilizationPct = float64(r.busyTicks) / float64(r.driverTick) * 100
	}
	if r.totalDrivers > 0 {
		res.DriverUtilizationPct = float64(len(r.activated)) / float64(r.totalDrivers) * 100
	}
	if r.totalOrders > 0 {
		res.SuccessRatePct = float64(len(r.deliveries)) / float64(r.totalOrders) * 100
	}
	if len(r.deliveries) == 0 {
		return res
	}

	durations := make([]float64, 0, len(r.deliveries))
	for _, d := range r.deliveries {
		durations = append(durations, d.DurationMins)
		switch {
		case d.DurationMins > 60:
			res.LateOver60++
			res.LateOver45++
			res.LateOver30++
		case d.DurationMins > 45:
			res.LateOver45++
			res.LateOver30++
		case d.DurationMins > 30:
			res.LateOver30++
		}
		if d.DurationMins <= onTimeThresholdMins {
			res.OnTime++
		}
		if d.DurationMins < 15 {
			res.EarlyUnder15++
		}
	}
	sort.Float64s(durations)

	res.AvgDeliveryMins = stat.Mean(durations, nil)
	res.MedianDeliveryMins = stat.Quantile(0.5, stat.Empirical, durations, nil)
	res.MinDeliveryMins = durations[0]
	res.MaxDeliveryMins = durations[len(durations)-1]
	if len(durations) > 1 {
		res.StdDeliveryMins = stat.StdDev(durations, nil)
	}
	res.P90DeliveryMins = stat.Quantile(0.90, stat.Empirical, durations, nil)
	res.P95DeliveryMins = stat.Quantile(0.95, stat.Empirical, durations, nil)
	res.P99DeliveryMins = stat.Quantile(0.99, stat.Empirical, durations, nil)

	delivered := float64(len(r.deliveries))
	res.AvgKmPerOrder = r.totalKm / delivered
	res.OnTimeRatePct = float64(res.OnTime) / delivered * 100
	res.LateRate45Pct = float64(res.LateOver45) / delivered * 100
	res.LateRate60Pct = float64(res.LateOver60) / delivered * 100
	if n := len(r.activated); n > 0 {
		res.OrdersPerDriver = delivered / float64(n)
		res.KmPerDriver = r.totalKm / float64(n)
		res.ActiveDriverEfficiency = delivered / float64(n)
	}
	return res
}
