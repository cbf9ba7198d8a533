package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/sal0-h/snoonu-smart-dispatch/core/metrics"
	"github.com/sal0-h/snoonu-smart-dispatch/infra/logger"
)

// PromSink exposes simulation samples as Prometheus metrics.
type PromSink struct {
	pending   *prometheus.GaugeVec
	busy      *prometheus.GaugeVec
	assigned  *prometheus.CounterVec
	completed *prometheus.GaugeVec
	fleetKm   *prometheus.GaugeVec
}

// NewPromSink registers the simulation collectors on the given registry.
// A nil registry uses the default registerer.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_pending_orders",
			Help: "Orders awaiting assignment",
		}, []string{"strategy"}),
		busy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_busy_drivers",
			Help: "Drivers currently accruing or delivering",
		}, []string{"strategy"}),
		assigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_orders_assigned_total",
			Help: "Orders assigned by the dispatch engine",
		}, []string{"strategy"}),
		completed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_orders_completed",
			Help: "Orders delivered so far",
		}, []string{"strategy"}),
		fleetKm: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sim_fleet_distance_km",
			Help: "Total fleet distance committed",
		}, []string{"strategy"}),
	}
	for _, c := range []prometheus.Collector{s.pending, s.busy, s.assigned, s.completed, s.fleetKm} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordTick implements coremetrics.Sink.
func (s *PromSink) RecordTick(t coremetrics.TickSample) {
	s.pending.WithLabelValues(t.Strategy).Set(float64(t.Pending))
	s.busy.WithLabelValues(t.Strategy).Set(float64(t.BusyDrivers))
	s.assigned.WithLabelValues(t.Strategy).Add(float64(t.Assigned))
	s.completed.WithLabelValues(t.Strategy).Set(float64(t.Completed))
}

// RecordRun implements coremetrics.Sink.
func (s *PromSink) RecordRun(r coremetrics.RunSample) {
	s.fleetKm.WithLabelValues(r.Strategy).Set(r.TotalKm)
}

// Close implements coremetrics.Sink.
func (s *PromSink) Close() error { return nil }

// Serve starts a Prometheus exposition endpoint on addr in a goroutine.
func Serve(addr string, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server: %v", err)
		}
	}()
}
