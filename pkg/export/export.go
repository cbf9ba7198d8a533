// Package export writes run results and per-order logs in JSON and CSV for
// downstream reporting.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/sal0-h/snoonu-smart-dispatch/core/kpi"
	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
)

// WriteJSON writes the results of one or more runs to w in JSON format.
func WriteJSON(w io.Writer, results []kpi.Results) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// WriteCSV writes a comparison table to w, one row per run.
func WriteCSV(w io.Writer, results []kpi.Results) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"run_id", "strategy", "orders_delivered", "total_orders",
		"drivers_activated", "total_distance_km",
		"avg_delivery_time_min", "median_delivery_time_min",
		"p95_delivery_time_min", "max_delivery_time_min",
		"orders_per_driver", "on_time_rate_pct",
		"late_over_45", "late_over_60", "fleet_utilization_pct",
	}); err != nil {
		return err
	}
	for _, r := range results {
		rec := []string{
			r.RunID,
			r.Strategy,
			strconv.Itoa(r.OrdersDelivered),
			strconv.Itoa(r.TotalOrders),
			strconv.Itoa(r.DriversActivated),
			f(r.TotalKm),
			f(r.AvgDeliveryMins),
			f(r.MedianDeliveryMins),
			f(r.P95DeliveryMins),
			f(r.MaxDeliveryMins),
			f(r.OrdersPerDriver),
			f(r.OnTimeRatePct),
			strconv.Itoa(r.LateOver45),
			strconv.Itoa(r.LateOver60),
			f(r.FleetUtilizationPct),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOrderLog writes the per-order diagnostic log to w as CSV.
func WriteOrderLog(w io.Writer, records []kpi.DeliveryRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"order_id", "driver_id", "created", "picked_up", "delivered", "duration_min"}); err != nil {
		return err
	}
	for _, d := range records {
		rec := []string{
			d.OrderID,
			d.DriverID,
			model.FormatClock(d.CreatedAt),
			model.FormatClock(d.PickedUpAt),
			model.FormatClock(d.DeliveredAt),
			f(d.DurationMins),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
