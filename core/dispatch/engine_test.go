package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sal0-h/snoonu-smart-dispatch/core/bundle"
	"github.com/sal0-h/snoonu-smart-dispatch/core/geo"
	"github.com/sal0-h/snoonu-smart-dispatch/core/model"
	"github.com/sal0-h/snoonu-smart-dispatch/core/scoring"
	"github.com/sal0-h/snoonu-smart-dispatch/infra/logger"
)

var oracle = geo.Haversine{AvgSpeedKmh: 35}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	scorer := scoring.Scorer{
		Oracle:          oracle,
		WDistance:       1.0,
		WDelay:          1.5,
		BundleDiscount:  0.25,
		MaxDeliveryMins: 52,
		ServiceTimeMins: 5,
		Penalties: map[model.VehicleClass]float64{
			model.VehicleMotorbike: 1.0,
			model.VehicleBike:      1.2,
			model.VehicleCar:       1.4,
		},
	}
	bundler := bundle.Generator{Oracle: oracle, MaxBundleSize: 2, MaxPairDistanceKm: 5}
	e, err := NewEngine(oracle, scorer, bundler, 2.0, logger.NopLogger{}, nil)
	require.NoError(t, err)
	return e
}

func coord(lat, lng float64) model.Coordinate { return model.Coordinate{Lat: lat, Lng: lng} }

func newOrder(id string, pickup, dropoff model.Coordinate, created float64, estimated int) *model.Order {
	return model.NewOrder(id, pickup, dropoff, created, created+float64(estimated), estimated)
}

func newDriver(id string, at model.Coordinate) *model.Driver {
	return model.NewDriver(id, at, model.VehicleMotorbike, 2, 1020)
}

func tick(now float64, pending []*model.Order, drivers []*model.Driver) Tick {
	return Tick{Now: now, Pending: pending, Drivers: drivers, Index: model.NewIndex(pending)}
}

// tickWith also indexes orders already attached to drivers.
func tickWith(now float64, pending, attached []*model.Order, drivers []*model.Driver) Tick {
	all := append(append([]*model.Order(nil), pending...), attached...)
	return Tick{Now: now, Pending: pending, Drivers: drivers, Index: model.NewIndex(all)}
}
