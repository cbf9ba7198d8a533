package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	assignmentsTotal *prometheus.CounterVec
	fallbackTotal    *prometheus.CounterVec
	bidsTotal        *prometheus.CounterVec
	marginalKmTotal  *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec) {
	asn := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_assignments_total",
			Help: "Orders assigned to drivers",
		},
		[]string{"strategy"},
	)
	fb := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_fallback_assignments_total",
			Help: "Assignments made through the nearest-driver fallback",
		},
		[]string{"strategy"},
	)
	bids := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_bids_evaluated_total",
			Help: "Marginal-cost bids evaluated during auctions",
		},
		[]string{"strategy"},
	)
	km := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_marginal_km_total",
			Help: "Marginal route distance committed by assignments",
		},
		[]string{"strategy"},
	)
	return asn, fb, bids, km
}

func init() {
	assignmentsTotal, fallbackTotal, bidsTotal, marginalKmTotal = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used. Re-registration on
// the same registry is ignored so tests can call it freely.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{assignmentsTotal, fallbackTotal, bidsTotal, marginalKmTotal} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}
